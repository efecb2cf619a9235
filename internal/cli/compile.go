package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/buildcfg/internal/ir"
	"github.com/roach88/buildcfg/internal/loader"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompilationResult holds the compiled declaration list.
type CompilationResult struct {
	Source       string          `json:"source"`
	Surface      loader.Surface  `json:"surface"`
	ScriptHash   string          `json:"script_hash"`
	Declarations json.RawMessage `json:"declarations"` // canonical JSON
}

// CompilationStats holds summary statistics.
type CompilationStats struct {
	DeclarationCount int
	PluginCount      int
	DependencyCount  int
	MutationCount    int
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <descriptor>",
		Short: "Compile a descriptor to its declaration list",
		Long: `Compile a .cue, .hcl or .star descriptor to the ordered list of
declarations it records, without evaluating it.

The declarations are printed in canonical form; the script hash is the
digest of that form.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	surface, err := loader.SurfaceOf(path)
	if err != nil {
		return reportError(formatter, err)
	}
	script, err := loader.LoadScript(path, loader.Options{Logger: opts.logger()})
	if err != nil {
		return reportError(formatter, err)
	}
	formatter.VerboseLog("Compiled %s as %s", path, surface)

	hash, err := ir.ScriptHash(script)
	if err != nil {
		return reportError(formatter, err)
	}
	decls, err := ir.MarshalCanonical(script.CanonicalList())
	if err != nil {
		return reportError(formatter, err)
	}

	result := &CompilationResult{
		Source:       script.Source,
		Surface:      surface,
		ScriptHash:   hash,
		Declarations: decls,
	}

	// Write to file if --output specified
	if opts.Output != "" {
		if err := writeScriptToFile(result, opts.Output); err != nil {
			_ = formatter.Error(ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
			return WrapExitError(ExitCommandError, ErrCodeWriteFailed, err)
		}
	}

	return outputCompileSuccess(formatter, script, result, calculateStats(script), opts.Output)
}

// calculateStats computes summary statistics from a compiled script.
func calculateStats(script *ir.Script) CompilationStats {
	stats := CompilationStats{DeclarationCount: len(script.Declarations)}
	for _, d := range script.Declarations {
		switch d.Kind {
		case ir.DeclApplyPlugin:
			stats.PluginCount++
		case ir.DeclAddDependency:
			stats.DependencyCount++
		case ir.DeclMutateTasks:
			stats.MutationCount++
		}
	}
	return stats
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, script *ir.Script, result *CompilationResult, stats CompilationStats, outputFile string) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	// Human-readable text output
	w := formatter.Writer
	fmt.Fprintf(w, "OK Compiled %d declaration(s): %d plugin(s), %d dependency(ies), %d mutation(s)\n",
		stats.DeclarationCount, stats.PluginCount, stats.DependencyCount, stats.MutationCount)
	fmt.Fprintf(w, "Script hash: %s\n\n", result.ScriptHash)

	for i, d := range script.Declarations {
		fmt.Fprintf(w, "  %2d %-17s %s", i+1, d.Kind, describeDeclaration(d))
		if d.Origin != "" {
			fmt.Fprintf(w, "  (%s)", d.Origin)
		}
		fmt.Fprintln(w)
	}

	if outputFile != "" {
		fmt.Fprintf(w, "\nWrote declarations to %s\n", outputFile)
	}
	return nil
}

// describeDeclaration renders the payload of d on one line.
func describeDeclaration(d ir.Declaration) string {
	switch d.Kind {
	case ir.DeclApplyPlugin:
		return d.PluginID
	case ir.DeclSetIdentity:
		var parts []string
		if d.Group != nil {
			parts = append(parts, "group="+*d.Group)
		}
		if d.Version != nil {
			parts = append(parts, "version="+*d.Version)
		}
		return strings.Join(parts, " ")
	case ir.DeclAddRepository:
		if d.Repository != nil {
			return d.Repository.Name
		}
	case ir.DeclAddDependency, ir.DeclAddPlatform:
		if d.Dependency != nil {
			s := string(d.Dependency.Scope) + " " + d.Dependency.Coordinate.String()
			if d.Dependency.Managed {
				s += " (managed)"
			}
			return s
		}
	case ir.DeclMutateTasks:
		if d.Mutation != nil {
			if d.Mutation.Func != nil {
				return d.Mutation.Filter.String() + " func " + d.Mutation.Description
			}
			return fmt.Sprintf("%s %d effect(s)", d.Mutation.Filter, len(d.Mutation.Effects))
		}
	}
	return ""
}

// writeScriptToFile writes the compilation result to a file as indented JSON.
func writeScriptToFile(result *CompilationResult, filename string) error {
	// Indented for readability; the canonical form is used only for hashing
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling declarations: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}

	return nil
}
