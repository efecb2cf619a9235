package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/buildcfg/internal/settings"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose  bool
	Format   string // "json" | "text"
	LogLevel string
	Config   string   // settings file; empty looks for buildcfg.toml
	Plugins  []string // CUE plugin catalog directories

	// Settings and Logger are filled in before any command runs.
	Settings *settings.Settings
	Logger   *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the buildcfg CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "buildcfg",
		Short: "buildcfg - build configuration evaluator",
		Long: `Evaluate build descriptors into a finalized project configuration.

A descriptor (.cue, .hcl or .star) applies plugins, declares repositories
and dependencies, and records task mutations. buildcfg evaluates it against
the built-in plugins plus any CUE plugin catalogs and prints the resulting
tasks, dependencies and fingerprint.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "warn", "log level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&opts.Config, "config", "", "settings file (default ./"+settings.DefaultFile+")")
	cmd.PersistentFlags().StringSliceVar(&opts.Plugins, "plugins", nil, "CUE plugin catalog directories")

	// Add subcommands
	cmd.AddCommand(NewEvalCommand(opts))
	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewTasksCommand(opts))
	cmd.AddCommand(NewPluginsCommand(opts))
	cmd.AddCommand(NewResolveCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))

	return cmd
}

// load merges the settings file and environment with the flags that
// were set explicitly, then builds the logger.
func (o *RootOptions) load(cmd *cobra.Command) error {
	// Validate format flag
	if !isValidFormat(o.Format) {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", o.Format, ValidFormats))
	}

	s, err := settings.Load(o.Config)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid settings", err)
	}

	flags := cmd.Flags()
	if flags.Changed("format") {
		s.Format = o.Format
	} else {
		o.Format = s.Format
	}
	if flags.Changed("log-level") {
		s.LogLevel = o.LogLevel
	}
	if flags.Changed("plugins") {
		s.Plugins = o.Plugins
	}
	if err := s.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid settings", err)
	}

	o.Settings = s
	o.Logger = s.Logger()
	return nil
}

// settings returns the loaded settings, or the defaults when a command
// runs without the root command (as in tests).
func (o *RootOptions) settings() *settings.Settings {
	if o.Settings == nil {
		o.Settings = settings.Default()
		if len(o.Plugins) > 0 {
			o.Settings.Plugins = o.Plugins
		}
	}
	return o.Settings
}

func (o *RootOptions) logger() *slog.Logger {
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o.Logger
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
