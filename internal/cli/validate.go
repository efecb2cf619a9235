package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/buildcfg/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                       `json:"valid"`
	Errors   []compiler.ValidationError `json:"errors,omitempty"`
	Warnings []compiler.CycleWarning    `json:"warnings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <descriptor>",
		Short: "Validate a descriptor without evaluating it",
		Long: `Validate a descriptor against the registered plugins without evaluating it.

Reports every problem found rather than stopping at the first: unknown
plugins, scopes no applied plugin binds, managed dependencies without a
platform, malformed effects. Cycles among plugin prerequisites in the
loaded catalogs are reported as warnings.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	s, err := openSession(opts, path)
	if err != nil {
		return reportError(formatter, err)
	}
	formatter.VerboseLog("Validating %d declaration(s) against %d plugin(s)",
		len(s.script.Declarations), len(s.catalog.Registry.IDs()))

	result := ValidationResult{
		Errors:   compiler.Validate(s.script, s.catalog.Registry),
		Warnings: s.catalog.Warnings,
	}
	result.Valid = len(result.Errors) == 0

	if formatter.Format == "json" {
		var failure *CLIError
		if !result.Valid {
			failure = &CLIError{Code: ErrCodeValidationFailed, Message: result.Errors[0].Error()}
		}
		if err := formatter.Report(result, failure); err != nil {
			return err
		}
	} else {
		writeValidationText(formatter.Writer, result)
	}

	if !result.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))
	}
	return nil
}

func writeValidationText(w io.Writer, result ValidationResult) {
	for _, warn := range result.Warnings {
		fmt.Fprintf(w, "WARN %s\n", warn.Message)
	}
	if result.Valid {
		fmt.Fprintln(w, "OK Descriptor valid")
		return
	}

	fmt.Fprintln(w, "FAIL Validation failed")
	fmt.Fprintln(w)
	for _, e := range result.Errors {
		if e.Origin != "" {
			fmt.Fprintln(w, e.Origin)
		}
		fmt.Fprintf(w, "  %s: %s: %s\n\n", e.Code, e.Field, e.Message)
	}
}
