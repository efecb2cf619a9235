package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/buildcfg/internal/engine"
	"github.com/roach88/buildcfg/internal/ir"
	"github.com/roach88/buildcfg/internal/loader"
	"github.com/roach88/buildcfg/internal/project"
	"github.com/roach88/buildcfg/internal/resolve"
)

// DefaultEvaluationID is the evaluation id used when a scenario names none.
const DefaultEvaluationID = "scenario-default"

// Harness is the test execution engine.
// It runs scenarios with a fixed evaluation id so traces and golden
// files are reproducible.
type Harness struct {
	logger *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario gets a fresh plugin registry. Execution flow:
// 1. Load plugin catalogs and the descriptor
// 2. Evaluate the descriptor
// 3. Resolve the configuration if the scenario names a catalog
// 4. Evaluate assertions
//
// An evaluation error is an outcome, not a harness error: it is kept in
// the result for error_code assertions. The returned error reports
// scenarios that could not be run at all.
func Run(scenario *Scenario) (*Result, error) {
	h := &Harness{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}
	return h.run(context.Background(), scenario)
}

func (h *Harness) run(ctx context.Context, scenario *Scenario) (*Result, error) {
	catalog, err := loader.LoadCatalog(scenario.Plugins)
	if err != nil {
		return nil, fmt.Errorf("failed to load plugins: %w", err)
	}

	evaluator, err := h.evaluator(scenario, catalog)
	if err != nil {
		return nil, err
	}

	result := NewResult()
	script, err := loader.LoadScript(scenario.Descriptor, loader.Options{Logger: h.logger})
	if err != nil {
		if ir.CodeOf(err) == "" {
			return nil, fmt.Errorf("failed to load descriptor: %w", err)
		}
		result.EvalError = err
	} else {
		evaluation, err := evaluator.Evaluate(script)
		if err != nil {
			result.EvalError = err
		} else {
			result.Evaluation = evaluation
			result.Trace = evaluation.Steps
		}
	}

	if result.Evaluation != nil && scenario.Catalog != "" {
		if err := h.resolve(ctx, scenario.Catalog, result); err != nil {
			return nil, err
		}
	}

	h.logger.Info("scenario evaluated",
		"scenario", scenario.Name,
		"failed", result.Failed(),
		"code", result.ErrorCode())

	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(errMsg)
	}
	return result, nil
}

func (h *Harness) evaluator(scenario *Scenario, catalog *loader.Catalog) (*engine.Evaluator, error) {
	id := scenario.EvaluationID
	if id == "" {
		id = DefaultEvaluationID
	}
	opts := []engine.Option{
		engine.WithLogger(h.logger),
		engine.WithIDGenerator(engine.NewFixedGenerator(id)),
	}

	if scenario.Options.DependencyPolicy != "" {
		p, err := project.ParseDependencyPolicy(scenario.Options.DependencyPolicy)
		if err != nil {
			return nil, err
		}
		opts = append(opts, engine.WithDependencyPolicy(p))
	}
	if scenario.Options.IdentityPolicy != "" {
		p, err := project.ParseIdentityPolicy(scenario.Options.IdentityPolicy)
		if err != nil {
			return nil, err
		}
		opts = append(opts, engine.WithIdentityPolicy(p))
	}
	if scenario.Options.StrictScopes != nil {
		opts = append(opts, engine.WithStrictScopes(*scenario.Options.StrictScopes))
	}
	return engine.New(catalog.Registry, opts...), nil
}

func (h *Harness) resolve(ctx context.Context, path string, result *Result) error {
	catalog, err := resolve.LoadCatalog(path)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}
	resolution, err := catalog.WithLogger(h.logger).Resolve(ctx, result.Evaluation.Request())
	if err != nil {
		result.ResolveError = err
		return nil
	}
	result.Resolution = resolution
	return nil
}
