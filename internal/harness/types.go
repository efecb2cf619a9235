package harness

import (
	"github.com/roach88/buildcfg/internal/engine"
	"github.com/roach88/buildcfg/internal/ir"
	"github.com/roach88/buildcfg/internal/resolve"
)

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every assertion holds.
	Pass bool `json:"pass"`

	// Trace is the evaluation's step list, empty when the evaluation failed.
	Trace []engine.Step `json:"trace"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Evaluation is the finalized configuration, nil when the evaluation
	// failed.
	Evaluation *engine.Result `json:"-"`

	// EvalError is the error that aborted the evaluation, if any.
	EvalError error `json:"-"`

	// Resolution is set when the scenario names a resolver catalog and
	// the evaluation succeeded.
	Resolution *resolve.Resolution `json:"resolution,omitempty"`

	// ResolveError is the error returned by the resolver, if any.
	ResolveError error `json:"-"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []engine.Step{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// ErrorCode returns the code of the evaluation or resolution error,
// or "" if both succeeded.
func (r *Result) ErrorCode() ir.ErrorCode {
	if r.EvalError != nil {
		return ir.CodeOf(r.EvalError)
	}
	return ir.CodeOf(r.ResolveError)
}

// Failed reports whether the evaluation or resolution failed.
func (r *Result) Failed() bool {
	return r.EvalError != nil || r.ResolveError != nil
}

func (r *Result) failure() error {
	if r.EvalError != nil {
		return r.EvalError
	}
	return r.ResolveError
}
