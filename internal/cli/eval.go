package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/buildcfg/internal/engine"
	"github.com/roach88/buildcfg/internal/ir"
	"github.com/roach88/buildcfg/internal/taskgraph"
)

// EvalOptions holds flags for the eval command.
type EvalOptions struct {
	*RootOptions
	Journal string // journal database path
}

// EvalOutput is the result of a successful evaluation.
type EvalOutput struct {
	ID            string                     `json:"id"`
	Source        string                     `json:"source"`
	Fingerprint   string                     `json:"fingerprint"`
	Configuration json.RawMessage            `json:"configuration"` // canonical snapshot
	Mutations     []taskgraph.MutationReport `json:"mutations"`
	Steps         []engine.Step              `json:"steps,omitempty"`
	JournalSeq    int64                      `json:"journal_seq,omitempty"`
}

// NewEvalCommand creates the eval command.
func NewEvalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EvalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "eval <descriptor>",
		Short: "Evaluate a descriptor",
		Long: `Evaluate a descriptor and print the finalized configuration.

Plugins are applied, dependencies recorded and tasks materialized in
declaration order; task mutations run last. The fingerprint identifies
the resulting configuration independently of how it was declared.

With --journal (or journal in buildcfg.toml) the outcome is appended to
the evaluation journal, failures included.

Exit codes:
  0 - Evaluation succeeded
  1 - Evaluation failed with a configuration error
  2 - Command error (descriptor not found, parse error, etc.)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Journal, "journal", "", "append the outcome to this journal database")

	return cmd
}

func runEval(opts *EvalOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	s, err := openSession(opts.RootOptions, path)
	if err != nil {
		return reportError(formatter, err)
	}
	formatter.VerboseLog("Loaded %d declaration(s) from %s", len(s.script.Declarations), path)

	ev, err := s.evaluator(opts.RootOptions, nil)
	if err != nil {
		return reportError(formatter, err)
	}
	res, evalErr := ev.Evaluate(s.script)

	var journalSeq int64
	if journal := journalPath(opts.RootOptions, opts.Journal); journal != "" {
		stored, err := recordEvaluation(cmd.Context(), journal, s.script, res, evalErr)
		if err != nil {
			_ = formatter.Error(ErrCodeJournal, fmt.Sprintf("writing journal: %v", err), nil)
			return WrapExitError(ExitCommandError, ErrCodeJournal, err)
		}
		formatter.VerboseLog("Journaled evaluation %s as #%d", stored.ID, stored.Seq)
		journalSeq = stored.Seq
	}

	if evalErr != nil {
		return reportError(formatter, evalErr)
	}

	out, err := newEvalOutput(res, opts.Verbose)
	if err != nil {
		return reportError(formatter, err)
	}
	out.JournalSeq = journalSeq

	if formatter.Format == "json" {
		return formatter.SuccessFor(res.ID, out)
	}
	writeEvalText(formatter, res, opts.Verbose)
	return nil
}

func newEvalOutput(res *engine.Result, withSteps bool) (*EvalOutput, error) {
	config, err := ir.MarshalCanonical(res.Snapshot().CanonicalMap())
	if err != nil {
		return nil, fmt.Errorf("marshal configuration: %w", err)
	}
	out := &EvalOutput{
		ID:            res.ID,
		Source:        res.Source,
		Fingerprint:   res.Fingerprint,
		Configuration: config,
		Mutations:     res.Mutations,
	}
	if out.Mutations == nil {
		out.Mutations = []taskgraph.MutationReport{}
	}
	if withSteps {
		out.Steps = res.Steps
	}
	return out, nil
}

// writeEvalText prints the finalized configuration for humans.
func writeEvalText(formatter *OutputFormatter, res *engine.Result, withSteps bool) {
	w := formatter.Writer
	snap := res.Snapshot()

	fmt.Fprintf(w, "OK Evaluated %s (%s)\n", res.Source, res.ID)
	fmt.Fprintf(w, "Fingerprint: %s\n\n", res.Fingerprint)

	fmt.Fprintf(w, "Identity: group=%s version=%s\n",
		snap.Identity.GroupOr("(unset)"), snap.Identity.VersionOr("(unset)"))
	fmt.Fprintf(w, "Plugins: %s\n", joinOrNone(snap.Plugins))

	if len(snap.Repositories) > 0 {
		fmt.Fprintln(w, "\nRepositories:")
		for _, repo := range snap.Repositories {
			if repo.URL != "" {
				fmt.Fprintf(w, "  %s %s\n", repo.Name, repo.URL)
			} else {
				fmt.Fprintf(w, "  %s\n", repo.Name)
			}
		}
	}

	if len(snap.Scopes) > 0 {
		fmt.Fprintln(w, "\nScopes:")
		for _, scope := range snap.Scopes {
			fmt.Fprintf(w, "  %s\n", scope.Scope)
			for _, p := range scope.Platforms {
				fmt.Fprintf(w, "    platform %s\n", p)
			}
			for _, d := range scope.Dependencies {
				fmt.Fprintf(w, "    %s\n", d)
			}
		}
	}

	fmt.Fprintf(w, "\nTasks (%d):\n", len(snap.Tasks))
	for _, task := range snap.Tasks {
		fmt.Fprintf(w, "  %s (%s) from %s\n", task.Name, task.Type, strings.Join(task.Owners, ", "))
		if deps := res.DependenciesFor(task.Name); len(deps) > 0 {
			fmt.Fprintf(w, "    dependencies: %s\n", joinCoordinates(deps))
		}
	}

	if len(res.Mutations) > 0 {
		fmt.Fprintln(w, "\nMutations:")
		for _, m := range res.Mutations {
			fmt.Fprintf(w, "  %s matched %d: %s\n", m.Filter, len(m.Matched), joinOrNone(m.Matched))
		}
	}

	if withSteps {
		fmt.Fprintln(w, "\nSteps:")
		writeSteps(formatter, res.Steps)
	}
}

func writeSteps(formatter *OutputFormatter, steps []engine.Step) {
	for _, step := range steps {
		line := fmt.Sprintf("  [%d] %s", step.Seq, step.Kind)
		if step.Detail != "" {
			line += " " + step.Detail
		}
		if step.Origin != "" {
			line += " (" + step.Origin + ")"
		}
		fmt.Fprintln(formatter.Writer, line)
	}
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	return strings.Join(items, ", ")
}

func joinCoordinates(cs []ir.Coordinate) string {
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = c.String()
	}
	return strings.Join(parts, ", ")
}
