package cli

import (
	"context"
	"fmt"

	"github.com/roach88/buildcfg/internal/engine"
	"github.com/roach88/buildcfg/internal/ir"
	"github.com/roach88/buildcfg/internal/settings"
	"github.com/roach88/buildcfg/internal/store"
)

// journalPath returns the --journal flag value, falling back to the
// settings.
func journalPath(opts *RootOptions, flag string) string {
	if flag != "" {
		return flag
	}
	return opts.settings().Journal
}

// recordEvaluation appends the outcome of evaluating script to the
// journal at path. A failed evaluation is journaled under a fresh
// UUIDv7 since the evaluator never assigned it an id.
func recordEvaluation(ctx context.Context, path string, script *ir.Script, res *engine.Result, evalErr error) (store.Evaluation, error) {
	var entry store.Evaluation
	var err error
	if evalErr != nil {
		entry, err = store.FromFailure(engine.UUIDv7Generator{}.Generate(), script, evalErr)
	} else {
		entry, err = store.FromResult(res)
	}
	if err != nil {
		return store.Evaluation{}, err
	}

	s, err := store.Open(path)
	if err != nil {
		return store.Evaluation{}, err
	}
	defer s.Close()

	stored, _, err := s.WriteEvaluation(ctx, entry)
	return stored, err
}

// withJournal opens the journal at path for reading and runs fn.
func withJournal(path string, fn func(*store.Store) error) error {
	if path == "" {
		return fmt.Errorf("no journal configured (use --journal or set journal in %s)", settings.DefaultFile)
	}
	s, err := store.Open(path)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}
