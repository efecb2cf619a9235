package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/buildcfg/internal/engine"
	"github.com/roach88/buildcfg/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string        // Assertion type for categorization
	Expected string        // Human-readable expected outcome
	Actual   string        // Human-readable actual outcome
	Trace    []engine.Step // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, step := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s", step.Seq, step.Kind, step.Detail)
			if step.Origin != "" {
				fmt.Fprintf(&buf, " (%s)", step.Origin)
			}
			buf.WriteByte('\n')
		}
	}

	return buf.String()
}

// EvaluateAssertions runs every assertion against result and returns the
// failure messages, in assertion order.
//
// Every assertion except error_code requires a successful evaluation;
// against a failed one it fails with the evaluation error.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	expectsFailure := false
	for i, a := range assertions {
		if a.Type == AssertErrorCode {
			expectsFailure = true
		}
		if err := evaluateAssertion(result, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d (%s): %v", i, a.Type, err))
		}
	}
	if result.Failed() && !expectsFailure {
		errs = append(errs, fmt.Sprintf("unexpected failure: %v", result.failure()))
	}
	return errs
}

func evaluateAssertion(result *Result, a Assertion) error {
	if a.Type == AssertErrorCode {
		return assertErrorCode(result, a)
	}
	if result.Evaluation == nil {
		return &AssertionError{
			Type:     a.Type,
			Expected: "successful evaluation",
			Actual:   fmt.Sprintf("evaluation failed: %v", result.EvalError),
		}
	}

	switch a.Type {
	case AssertTaskExists:
		return assertTaskExists(result.Evaluation, a)
	case AssertTaskAbsent:
		return assertTaskAbsent(result.Evaluation, a)
	case AssertTaskProperty:
		return assertTaskProperty(result.Evaluation, a)
	case AssertDependencies:
		return assertList(a.Type, "dependencies of task "+a.Task, a.Coordinates, coordinateStrings(result.Evaluation.DependenciesFor(a.Task)))
	case AssertScope:
		return assertList(a.Type, "scope "+a.Scope, a.Coordinates, coordinateStrings(result.Evaluation.Descriptor.Coordinates(ir.Scope(a.Scope))))
	case AssertPlugins:
		return assertList(a.Type, "applied plugins", a.Plugins, result.Evaluation.Descriptor.PluginIDs())
	case AssertStepOrder:
		return assertStepOrder(result.Trace, a)
	case AssertStepCount:
		return assertStepCount(result.Trace, a)
	case AssertMutation:
		return assertMutation(result.Evaluation, a)
	case AssertFingerprint:
		if result.Evaluation.Fingerprint != a.Fingerprint {
			return &AssertionError{
				Type:     a.Type,
				Expected: a.Fingerprint,
				Actual:   result.Evaluation.Fingerprint,
			}
		}
		return nil
	case AssertResolved:
		return assertResolved(result, a)
	default:
		return fmt.Errorf("unknown assertion type: %s", a.Type)
	}
}

func assertErrorCode(result *Result, a Assertion) error {
	got := result.ErrorCode()
	if string(got) == a.Code {
		return nil
	}
	actual := "evaluation succeeded"
	if result.Failed() {
		actual = fmt.Sprintf("%s (%v)", got, result.failure())
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: a.Code,
		Actual:   actual,
		Trace:    result.Trace,
	}
}

func assertTaskExists(res *engine.Result, a Assertion) error {
	task, ok := res.Graph.Task(a.Task)
	if !ok {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("task %s", a.Task),
			Actual:   fmt.Sprintf("tasks are %v", res.Graph.Names()),
		}
	}
	if a.TaskType != "" && task.Type != a.TaskType {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("task %s of type %s", a.Task, a.TaskType),
			Actual:   fmt.Sprintf("type %s", task.Type),
		}
	}
	return nil
}

func assertTaskAbsent(res *engine.Result, a Assertion) error {
	if task, ok := res.Graph.Task(a.Task); ok {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("no task %s", a.Task),
			Actual:   fmt.Sprintf("task %s of type %s contributed by %v", task.Name, task.Type, task.Owners),
		}
	}
	return nil
}

func assertTaskProperty(res *engine.Result, a Assertion) error {
	task, ok := res.Graph.Task(a.Task)
	if !ok {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("task %s", a.Task),
			Actual:   "task not found",
		}
	}
	actual, set := task.Property(a.Property)

	if a.Absent {
		if set {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%s.%s unset", a.Task, a.Property),
				Actual:   describe(actual),
			}
		}
		return nil
	}

	expected, err := ir.FromGo(a.Value)
	if err != nil {
		return fmt.Errorf("expected value: %w", err)
	}
	if !set {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s.%s = %s", a.Task, a.Property, describe(expected)),
			Actual:   "unset",
		}
	}
	if !ir.Equal(expected, actual) {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s.%s = %s", a.Task, a.Property, describe(expected)),
			Actual:   describe(actual),
		}
	}
	return nil
}

func assertStepOrder(trace []engine.Step, a Assertion) error {
	// subsequence match; kinds may repeat
	next := 0
	for _, step := range trace {
		if next < len(a.Steps) && step.Kind == a.Steps[next] {
			next++
		}
	}
	if next < len(a.Steps) {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("steps in order: %v", a.Steps),
			Actual:   fmt.Sprintf("no %s step after the first %d", a.Steps[next], next),
			Trace:    trace,
		}
	}
	return nil
}

func assertStepCount(trace []engine.Step, a Assertion) error {
	count := 0
	for _, step := range trace {
		if step.Kind == a.Kind {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%d %s steps", a.Count, a.Kind),
			Actual:   fmt.Sprintf("%d steps", count),
			Trace:    trace,
		}
	}
	return nil
}

func assertMutation(res *engine.Result, a Assertion) error {
	for _, report := range res.Mutations {
		if report.Filter != a.Filter {
			continue
		}
		return assertList(a.Type, "tasks matched by "+a.Filter, a.Matched, report.Matched)
	}
	filters := make([]string, len(res.Mutations))
	for i, report := range res.Mutations {
		filters[i] = report.Filter
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("mutation %s", a.Filter),
		Actual:   fmt.Sprintf("mutations are %v", filters),
	}
}

func assertResolved(result *Result, a Assertion) error {
	if result.Resolution == nil {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("resolution of scope %s", a.Scope),
			Actual:   "scenario names no catalog",
		}
	}
	var got []string
	for _, artifact := range result.Resolution.Artifacts(ir.Scope(a.Scope)) {
		got = append(got, artifact.Resolved.String())
	}
	return assertList(a.Type, "resolved "+a.Scope, a.Coordinates, got)
}

func assertList(typ, what string, expected, actual []string) error {
	if len(expected) == 0 && len(actual) == 0 {
		return nil
	}
	if !slices.Equal(expected, actual) {
		return &AssertionError{
			Type:     typ,
			Expected: fmt.Sprintf("%s = %v", what, expected),
			Actual:   fmt.Sprintf("%v", actual),
		}
	}
	return nil
}

func coordinateStrings(cs []ir.Coordinate) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.String()
	}
	return out
}

// describe renders a value as canonical JSON for messages.
func describe(v ir.Value) string {
	b, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
