// Package taskgraph materializes build tasks from the plugins applied to
// a project descriptor and runs post-configuration mutations on them.
//
// Lifecycle:
//
//	Materialize -> Mutate* -> Seal
//
// The task set is closed once Materialize returns. Mutate only changes
// properties, and only until Seal. A sealed graph is immutable and safe
// for concurrent readers.
package taskgraph

import (
	"log/slog"
	"slices"

	"github.com/roach88/buildcfg/internal/ir"
	"github.com/roach88/buildcfg/internal/project"
)

// Task is a named, typed unit of build work.
type Task struct {
	Name       string   `json:"name"`
	Type       string   `json:"type"`
	Properties ir.Map   `json:"properties"`
	Owners     []string `json:"owners"`
}

// Property returns the value of key, if set.
func (t Task) Property(key string) (ir.Value, bool) {
	v, ok := t.Properties[key]
	return v, ok
}

func (t *Task) clone() Task {
	return Task{
		Name:       t.Name,
		Type:       t.Type,
		Properties: t.Properties.Clone(),
		Owners:     slices.Clone(t.Owners),
	}
}

// Graph is the closed set of tasks of one evaluation.
type Graph struct {
	tasks    []*Task
	byName   map[string]*Task
	bindings []ir.ScopeBinding
	sealed   bool
	logger   *slog.Logger
}

// Materialize builds one task per contribution of every applied plugin,
// in application order.
//
// Two plugins contributing one name with different types fail with
// ConflictingTaskDefinition. With equal types the task is shared and
// properties merge key by key, the later plugin winning.
func Materialize(d *project.Descriptor) (*Graph, error) {
	g := &Graph{
		byName:   make(map[string]*Task),
		bindings: d.ScopeBindings(),
		logger:   d.Logger(),
	}

	for _, app := range d.Plugins() {
		for _, contrib := range app.Tasks {
			existing, ok := g.byName[contrib.Name]
			if !ok {
				t := &Task{
					Name:       contrib.Name,
					Type:       contrib.Type,
					Properties: contrib.Properties.Clone(),
					Owners:     []string{app.ID},
				}
				g.tasks = append(g.tasks, t)
				g.byName[t.Name] = t
				continue
			}

			if existing.Type != contrib.Type {
				return nil, ir.NewConflictingTask(contrib.Name,
					existing.Type, existing.Owners[len(existing.Owners)-1],
					contrib.Type, app.ID)
			}
			for k, v := range contrib.Properties {
				existing.Properties[k] = ir.Clone(v)
			}
			if !slices.Contains(existing.Owners, app.ID) {
				existing.Owners = append(existing.Owners, app.ID)
			}
		}
	}

	g.logger.Debug("task graph materialized",
		"tasks", len(g.tasks),
		"plugins", len(d.Plugins()))
	return g, nil
}

// Len returns the number of tasks.
func (g *Graph) Len() int {
	return len(g.tasks)
}

// Sealed reports whether Seal was called.
func (g *Graph) Sealed() bool {
	return g.sealed
}

// Task returns a copy of the named task.
func (g *Graph) Task(name string) (Task, bool) {
	t, ok := g.byName[name]
	if !ok {
		return Task{}, false
	}
	return t.clone(), true
}

// Tasks returns copies of every task in materialization order.
func (g *Graph) Tasks() []Task {
	out := make([]Task, len(g.tasks))
	for i, t := range g.tasks {
		out[i] = t.clone()
	}
	return out
}

// Names returns task names in materialization order.
func (g *Graph) Names() []string {
	out := make([]string, len(g.tasks))
	for i, t := range g.tasks {
		out[i] = t.Name
	}
	return out
}

// TasksOfType returns every task whose type is typ.
func (g *Graph) TasksOfType(typ string) []Task {
	return g.Select(ir.TaskFilter{Type: typ})
}

// Select returns every task matched by filter, in materialization order.
func (g *Graph) Select(filter ir.TaskFilter) []Task {
	var out []Task
	for _, t := range g.tasks {
		if filter.Matches(t.Name, t.Type) {
			out = append(out, t.clone())
		}
	}
	return out
}

// Consumers returns the tasks that consume dependencies of scope.
// Consumers named by a binding but absent from the graph are skipped.
func (g *Graph) Consumers(scope ir.Scope) []string {
	scope = ir.NormalizeScope(scope)
	var out []string
	for _, b := range g.bindings {
		if b.Scope != scope {
			continue
		}
		for _, name := range b.Consumers {
			if _, ok := g.byName[name]; ok && !slices.Contains(out, name) {
				out = append(out, name)
			}
		}
	}
	return out
}

// ScopesOf returns the scopes consumed by task, in binding order.
func (g *Graph) ScopesOf(task string) []ir.Scope {
	var out []ir.Scope
	for _, b := range g.bindings {
		if slices.Contains(b.Consumers, task) {
			out = append(out, b.Scope)
		}
	}
	return out
}

// Seal freezes the graph. Later Mutate calls fail with DescriptorFinalized.
func (g *Graph) Seal() {
	g.sealed = true
}

// Snapshot renders the tasks for fingerprinting.
func (g *Graph) Snapshot() []ir.TaskSnapshot {
	out := make([]ir.TaskSnapshot, len(g.tasks))
	for i, t := range g.tasks {
		out[i] = ir.TaskSnapshot{
			Name:       t.Name,
			Type:       t.Type,
			Owners:     slices.Clone(t.Owners),
			Properties: t.Properties.Clone(),
		}
	}
	return out
}
