package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/buildcfg/internal/engine"
	"github.com/roach88/buildcfg/internal/ir"
)

// EvaluationSnapshot captures everything a scenario execution produced.
// It is serialized with canonical JSON for deterministic comparison.
type EvaluationSnapshot struct {
	ScenarioName string
	Trace        []engine.Step
	Result       *engine.Result
	Err          error
}

// toCanonicalMap converts the snapshot to an ir.Map for canonical JSON.
// A failed evaluation carries its error code and message; a successful
// one its fingerprint, mutation reports and configuration.
func (s *EvaluationSnapshot) toCanonicalMap() ir.Map {
	trace := make(ir.List, len(s.Trace))
	for i, step := range s.Trace {
		entry := ir.Map{
			"seq":  ir.Int(step.Seq),
			"kind": ir.String(step.Kind),
		}
		if step.Detail != "" {
			entry["detail"] = ir.String(step.Detail)
		}
		if step.Origin != "" {
			entry["origin"] = ir.String(step.Origin)
		}
		trace[i] = entry
	}

	out := ir.Map{
		"scenario_name": ir.String(s.ScenarioName),
		"trace":         trace,
	}
	if s.Err != nil {
		out["error_code"] = ir.String(string(ir.CodeOf(s.Err)))
		out["error"] = ir.String(s.Err.Error())
		return out
	}

	mutations := make(ir.List, len(s.Result.Mutations))
	for i, report := range s.Result.Mutations {
		entry := ir.Map{
			"filter":  ir.String(report.Filter),
			"matched": ir.Strings(report.Matched...),
		}
		if report.Description != "" {
			entry["description"] = ir.String(report.Description)
		}
		mutations[i] = entry
	}
	out["fingerprint"] = ir.String(s.Result.Fingerprint)
	out["mutations"] = mutations
	out["configuration"] = s.Result.Snapshot().CanonicalMap()
	return out
}

// RunWithGolden executes a scenario and compares its evaluation against a
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if the scenario could not be run.
// Test failure (via goldie) occurs if the output doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	return AssertGolden(t, scenario.Name, result)
}

// MarshalGolden renders result as the canonical JSON stored in golden files.
func MarshalGolden(scenarioName string, result *Result) ([]byte, error) {
	snapshot := EvaluationSnapshot{
		ScenarioName: scenarioName,
		Trace:        result.Trace,
		Result:       result.Evaluation,
		Err:          result.EvalError,
	}
	return ir.MarshalCanonical(snapshot.toCanonicalMap())
}

// AssertGolden compares an already computed result against a golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := MarshalGolden(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
