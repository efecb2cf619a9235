package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/buildcfg/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update    bool   // regenerate golden files
	Filter    string // scenario filter (glob pattern)
	GoldenDir string // golden file directory; empty means golden/ next to each scenario
}

// Golden states of a scenario.
const (
	GoldenMatch   = "match"
	GoldenUpdated = "updated"
)

// ScenarioResult is the outcome of one scenario.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Golden string   `json:"golden,omitempty"` // GoldenMatch, GoldenUpdated, or empty without a golden file
	Errors []string `json:"errors,omitempty"`
}

func (r *ScenarioResult) fail(format string, args ...any) {
	r.Pass = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// TestResult is the outcome of a test run.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

func (r *TestResult) add(s ScenarioResult) {
	r.Scenarios = append(r.Scenarios, s)
	r.Total++
	if s.Pass {
		r.Passed++
	} else {
		r.Failed++
	}
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run conformance scenarios",
		Long: `Run the YAML scenarios in a directory through the harness.

A scenario evaluates one descriptor and asserts on the finalized
configuration, the evaluation trace or the error code. If a golden file
exists for the scenario, the evaluation snapshot must match it byte for
byte; --update rewrites it instead.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (missing directory, bad filter)

Examples:
  buildcfg test ./scenarios
  buildcfg test ./scenarios --filter "junit_*"
  buildcfg test ./scenarios --update --golden ./golden
  buildcfg test ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")
	cmd.Flags().StringVar(&opts.GoldenDir, "golden", "", "golden file directory (default golden/ next to each scenario)")

	return cmd
}

func runTests(opts *TestOptions, dir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if _, err := os.Stat(dir); err != nil {
		msg := fmt.Sprintf("scenarios directory not found: %s", dir)
		_ = formatter.Error(ErrCodeNotFound, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}
	files, err := harness.FindScenarios(dir, opts.Filter)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "find scenarios", err)
	}

	result := TestResult{Scenarios: []ScenarioResult{}}
	for _, file := range files {
		formatter.VerboseLog("running %s", file)
		sr := runScenario(file, opts)
		result.add(sr)
		if formatter.Format != "json" {
			writeScenarioText(formatter.Writer, sr)
		}
	}

	var failure *CLIError
	if result.Failed > 0 {
		failure = &CLIError{
			Code:    ErrCodeTestFailed,
			Message: fmt.Sprintf("%d scenario(s) failed", result.Failed),
		}
	}

	if formatter.Format == "json" {
		if err := formatter.Report(result, failure); err != nil {
			return err
		}
	} else {
		writeTestSummary(formatter.Writer, result)
	}

	if failure != nil {
		return NewExitError(ExitFailure, failure.Message)
	}
	return nil
}

// runScenario loads, runs and golden-checks one scenario file. Paths in
// the scenario are relative to the file.
func runScenario(file string, opts *TestOptions) ScenarioResult {
	scenario, err := harness.LoadScenarioFile(file)
	if err != nil {
		out := ScenarioResult{Name: filepath.Base(file)}
		out.fail("failed to load scenario: %v", err)
		return out
	}

	result, err := harness.Run(scenario)
	if err != nil {
		out := ScenarioResult{Name: scenario.Name}
		out.fail("execution failed: %v", err)
		return out
	}

	out := ScenarioResult{Name: scenario.Name, Pass: result.Pass, Errors: result.Errors}
	snapshot, err := harness.MarshalGolden(scenario.Name, result)
	if err != nil {
		out.fail("marshal snapshot: %v", err)
		return out
	}

	state, err := checkGolden(goldenFilePath(opts.GoldenDir, file, scenario.Name), snapshot, opts.Update)
	if err != nil {
		out.fail("%v", err)
		return out
	}
	out.Golden = state
	return out
}

// goldenFilePath returns the golden file of the named scenario.
func goldenFilePath(goldenDir, scenarioFile, name string) string {
	if goldenDir == "" {
		goldenDir = filepath.Join(filepath.Dir(scenarioFile), "golden")
	}
	return filepath.Join(goldenDir, name+".golden")
}

// checkGolden compares snapshot with the golden file at path, or
// rewrites the file when update is set. A missing golden file is not a
// failure and yields an empty state.
func checkGolden(path string, snapshot []byte, update bool) (string, error) {
	if update {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return "", fmt.Errorf("update golden file: %w", err)
		}
		if err := os.WriteFile(path, snapshot, 0o644); err != nil {
			return "", fmt.Errorf("update golden file: %w", err)
		}
		return GoldenUpdated, nil
	}

	want, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read golden file: %w", err)
	}
	if !bytes.Equal(want, snapshot) {
		return "", fmt.Errorf("evaluation does not match golden file %s (run with --update to regenerate)", path)
	}
	return GoldenMatch, nil
}

func writeScenarioText(w io.Writer, r ScenarioResult) {
	mark := "PASS"
	if !r.Pass {
		mark = "FAIL"
	}
	switch r.Golden {
	case GoldenUpdated:
		fmt.Fprintf(w, "%s %s (golden updated)\n", mark, r.Name)
	case GoldenMatch:
		fmt.Fprintf(w, "%s %s (golden)\n", mark, r.Name)
	default:
		fmt.Fprintf(w, "%s %s\n", mark, r.Name)
	}
	if !r.Pass {
		for _, e := range r.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
	}
}

func writeTestSummary(w io.Writer, r TestResult) {
	if r.Total == 0 {
		fmt.Fprintln(w, "No scenarios found.")
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", r.Passed, r.Failed, r.Total)
	if r.Failed == 0 {
		fmt.Fprintln(w, "OK All scenarios passed")
	}
}
