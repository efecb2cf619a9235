package cli

import (
	"errors"

	"github.com/roach88/buildcfg/internal/engine"
	"github.com/roach88/buildcfg/internal/ir"
	"github.com/roach88/buildcfg/internal/loader"
)

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric         = "E001"                       // Generic/unknown error
	ErrCodeNotFound        = loader.ErrCodeNotFound       // Path not found
	ErrCodeWriteFailed     = "E007"                       // File write error
	ErrCodeUnknownSurface  = loader.ErrCodeUnknownSurface // Not a .cue, .hcl or .star file
	ErrCodeParseFailed     = loader.ErrCodeParseFailed    // Descriptor failed to parse
	ErrCodePluginCatalog   = loader.ErrCodePluginCatalog  // Plugin catalog failed to load
	ErrCodeJournal         = "E011"                       // Journal could not be opened, read or written
	ErrCodeResolverCatalog = "E012"                       // Resolver catalog failed to load

	ErrCodeEvaluationFailed = "E020" // Evaluation aborted with a configuration error
	ErrCodeResolutionFailed = "E021" // Resolver could not resolve a coordinate
	ErrCodeValidationFailed = "E022" // Static validation found errors
	ErrCodeTestFailed       = "E023" // One or more scenarios failed
)

// session is a loaded descriptor with the plugin catalog it is
// evaluated against.
type session struct {
	catalog *loader.Catalog
	script  *ir.Script
}

// openSession loads the plugin catalogs named by the settings and the
// descriptor at path.
func openSession(opts *RootOptions, path string) (*session, error) {
	catalog, err := loader.LoadCatalog(opts.settings().Plugins)
	if err != nil {
		return nil, err
	}
	for _, w := range catalog.Warnings {
		opts.logger().Warn("plugin prerequisite cycle", "path", w.Path, "message", w.Message)
	}

	script, err := loader.LoadScript(path, loader.Options{Logger: opts.logger()})
	if err != nil {
		return nil, err
	}
	return &session{catalog: catalog, script: script}, nil
}

// evaluator builds an evaluator with the policy settings. ids may be nil.
func (s *session) evaluator(opts *RootOptions, ids engine.IDGenerator) (*engine.Evaluator, error) {
	engineOpts, err := opts.settings().EvaluatorOptions()
	if err != nil {
		return nil, err
	}
	engineOpts = append(engineOpts, engine.WithLogger(opts.logger()))
	if ids != nil {
		engineOpts = append(engineOpts, engine.WithIDGenerator(ids))
	}
	return engine.New(s.catalog.Registry, engineOpts...), nil
}

// evaluate loads and evaluates the descriptor at path.
func evaluate(opts *RootOptions, path string) (*engine.Result, error) {
	s, err := openSession(opts, path)
	if err != nil {
		return nil, err
	}
	ev, err := s.evaluator(opts, nil)
	if err != nil {
		return nil, err
	}
	return ev.Evaluate(s.script)
}

// reportError writes err under its CLI error code and returns the
// ExitError for it. Configuration errors are failures (exit 1); anything
// that kept the command from running is a command error (exit 2).
func reportError(formatter *OutputFormatter, err error) error {
	var loadErr *loader.LoadError
	var irErr *ir.Error
	switch {
	case errors.As(err, &loadErr):
		_ = formatter.Error(loadErr.Code, err.Error(), nil)
		return WrapExitError(ExitCommandError, loadErr.Code, err)
	case errors.As(err, &irErr):
		code := ErrCodeEvaluationFailed
		if irErr.Code == ir.ErrCodeResolutionFailure {
			code = ErrCodeResolutionFailed
		}
		_ = formatter.Error(code, err.Error(), errorDetails(irErr))
		return WrapExitError(ExitFailure, code, err)
	default:
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, ErrCodeGeneric, err)
	}
}

// ErrorDetails is the detail payload of a configuration error.
type ErrorDetails struct {
	Kind    string `json:"kind"`
	Subject string `json:"subject,omitempty"`
	Origin  string `json:"origin,omitempty"`
}

func errorDetails(err *ir.Error) ErrorDetails {
	return ErrorDetails{
		Kind:    string(err.Code),
		Subject: err.Subject,
		Origin:  err.Origin,
	}
}
