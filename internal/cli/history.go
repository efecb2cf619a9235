package cli

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/buildcfg/internal/queryir"
	"github.com/roach88/buildcfg/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Journal     string
	Source      string
	Status      string
	Fingerprint string
	Where       string
	Limit       int
}

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	*RootOptions
	Journal string
}

// HistoryEntry is one journal entry in the history listing.
type HistoryEntry struct {
	Seq         int64  `json:"seq"`
	ID          string `json:"id"`
	Source      string `json:"source"`
	Status      string `json:"status"`
	Fingerprint string `json:"fingerprint,omitempty"`
	ErrorCode   string `json:"error_code,omitempty"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List journaled evaluations",
		Long: `List the evaluations recorded in the journal, oldest first.

With --fingerprint only successful evaluations that produced that exact
configuration are listed, whatever descriptor they came from.

--where takes comma separated column=value terms over the journal
columns (id, seq, source, script_hash, status, fingerprint, error_code,
error_message). Digits compare as integers; quote them to compare text.

Examples:
  buildcfg history --journal build.db
  buildcfg history --source build.cue --limit 5
  buildcfg history --status failed
  buildcfg history --where "error_code=VERSION_CONFLICT"
  buildcfg history --fingerprint 3f2a...`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Journal, "journal", "", "journal database path")
	cmd.Flags().StringVar(&opts.Source, "source", "", "only evaluations of this descriptor")
	cmd.Flags().StringVar(&opts.Status, "status", "", "only evaluations with this status (ok|failed)")
	cmd.Flags().StringVar(&opts.Fingerprint, "fingerprint", "", "only evaluations that produced this configuration")
	cmd.Flags().StringVar(&opts.Where, "where", "", "only evaluations matching column=value terms")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "only the most recent N evaluations")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	status := store.Status(opts.Status)
	if status != "" && status != store.StatusOK && status != store.StatusFailed {
		msg := fmt.Sprintf("invalid status %q: must be ok or failed", opts.Status)
		_ = formatter.Error(ErrCodeGeneric, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}
	if opts.Limit < 0 {
		msg := fmt.Sprintf("invalid limit %d", opts.Limit)
		_ = formatter.Error(ErrCodeGeneric, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}

	where, err := queryir.ParseWhere(opts.Where)
	if err == nil {
		err = store.CheckWhere(where)
	}
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid --where", err)
	}

	var evaluations []store.Evaluation
	err = withJournal(journalPath(opts.RootOptions, opts.Journal), func(s *store.Store) error {
		var err error
		if opts.Fingerprint != "" {
			evaluations, err = s.FindByFingerprint(cmd.Context(), opts.Fingerprint)
			return err
		}
		evaluations, err = s.ListEvaluations(cmd.Context(), store.ListOptions{
			Source: opts.Source,
			Status: status,
			Where:  where,
			Limit:  opts.Limit,
		})
		return err
	})
	if err != nil {
		_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
		return WrapExitError(ExitCommandError, ErrCodeJournal, err)
	}

	entries := make([]HistoryEntry, len(evaluations))
	for i, ev := range evaluations {
		entries[i] = HistoryEntry{
			Seq:         ev.Seq,
			ID:          ev.ID,
			Source:      ev.Source,
			Status:      string(ev.Status),
			Fingerprint: ev.Fingerprint,
			ErrorCode:   ev.ErrorCode,
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(entries)
	}

	w := formatter.Writer
	if len(entries) == 0 {
		fmt.Fprintln(w, "No evaluations recorded.")
		return nil
	}
	for _, e := range entries {
		outcome := "OK"
		detail := e.Fingerprint
		if e.Status == string(store.StatusFailed) {
			outcome = "FAIL"
			detail = e.ErrorCode
		}
		fmt.Fprintf(w, "#%d %s %s %s %s\n", e.Seq, outcome, e.ID, e.Source, detail)
	}
	return nil
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show <evaluation-id>",
		Short: "Show a journaled evaluation",
		Long: `Show one journaled evaluation with its steps and, for a successful
evaluation, the finalized configuration.

Exit codes:
  0 - Evaluation found
  2 - Evaluation not found or journal unreadable`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Journal, "journal", "", "journal database path")

	return cmd
}

func runShow(opts *ShowOptions, id string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	var ev store.Evaluation
	err := withJournal(journalPath(opts.RootOptions, opts.Journal), func(s *store.Store) error {
		var err error
		ev, err = s.ReadEvaluation(cmd.Context(), id)
		return err
	})
	if errors.Is(err, sql.ErrNoRows) {
		msg := fmt.Sprintf("evaluation not found: %s", id)
		_ = formatter.Error(ErrCodeNotFound, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}
	if err != nil {
		_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
		return WrapExitError(ExitCommandError, ErrCodeJournal, err)
	}

	if formatter.Format == "json" {
		return formatter.SuccessFor(ev.ID, showOutput(ev))
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Evaluation %s (#%d)\n", ev.ID, ev.Seq)
	fmt.Fprintf(w, "Source: %s\n", ev.Source)
	fmt.Fprintf(w, "Script hash: %s\n", ev.ScriptHash)
	if ev.Status == store.StatusFailed {
		fmt.Fprintf(w, "FAIL %s: %s\n", ev.ErrorCode, ev.Error)
		return nil
	}
	fmt.Fprintf(w, "OK Fingerprint: %s\n", ev.Fingerprint)
	if len(ev.Steps) > 0 {
		fmt.Fprintln(w, "\nSteps:")
		writeSteps(formatter, ev.Steps)
	}
	fmt.Fprintf(w, "\nConfiguration:\n%s\n", ev.Snapshot)
	return nil
}

// showJSON embeds the stored snapshot as JSON instead of a string.
type showJSON struct {
	store.Evaluation
	Snapshot json.RawMessage `json:"snapshot,omitempty"`
}

func showOutput(ev store.Evaluation) showJSON {
	out := showJSON{Evaluation: ev}
	if ev.Snapshot != "" {
		out.Snapshot = json.RawMessage(ev.Snapshot)
	}
	return out
}
