package taskgraph

import (
	"github.com/roach88/buildcfg/internal/ir"
	"github.com/roach88/buildcfg/internal/project"
)

// MutationReport describes one executed mutation.
type MutationReport struct {
	Seq         int      `json:"seq"`
	Filter      string   `json:"filter"`
	Description string   `json:"description,omitempty"`
	Origin      string   `json:"origin,omitempty"`
	Matched     []string `json:"matched"`
}

// Mutate resolves m's filter against the current task set and runs the
// effect on each match in task order.
//
// The effect works on a copy of the properties; a failing effect leaves
// that task unchanged and aborts with MutationFailed. Tasks already
// mutated by this call keep their changes, since the whole evaluation
// is discarded on error.
func (g *Graph) Mutate(m project.Mutation) (MutationReport, error) {
	report := MutationReport{
		Seq:         m.Seq,
		Filter:      m.Filter.String(),
		Description: m.Description,
		Origin:      m.Origin,
		Matched:     []string{},
	}
	if g.sealed {
		return report, ir.NewDescriptorFinalized("mutateTasks")
	}
	if m.Effect == nil {
		return report, ir.NewInvalidEffect("mutateTasks", "mutation has no effect")
	}

	// resolve the filter once, before any effect runs
	var targets []*Task
	for _, t := range g.tasks {
		if m.Filter.Matches(t.Name, t.Type) {
			targets = append(targets, t)
		}
	}

	for _, t := range targets {
		props := t.Properties.Clone()
		if err := m.Effect(ir.TaskInfo{Name: t.Name, Type: t.Type}, props); err != nil {
			label := m.Description
			if label == "" {
				label = report.Filter
			}
			return report, ir.Locate(ir.NewMutationFailed(label, t.Name, err), m.Origin)
		}
		t.Properties = props
		report.Matched = append(report.Matched, t.Name)
	}

	if len(targets) == 0 {
		g.logger.Warn("mutation matched no tasks",
			"filter", report.Filter,
			"seq", m.Seq,
			"origin", m.Origin)
	} else {
		g.logger.Debug("mutation applied",
			"filter", report.Filter,
			"seq", m.Seq,
			"tasks", report.Matched)
	}
	return report, nil
}
