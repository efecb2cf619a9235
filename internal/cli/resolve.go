package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/buildcfg/internal/engine"
	"github.com/roach88/buildcfg/internal/ir"
	"github.com/roach88/buildcfg/internal/resolve"
)

// ResolveOptions holds flags for the resolve command.
type ResolveOptions struct {
	*RootOptions
	Catalog string // resolver catalog YAML
}

// ScopeResolution is the resolved artifacts of one scope.
type ScopeResolution struct {
	Scope     ir.Scope           `json:"scope"`
	Artifacts []resolve.Artifact `json:"artifacts"`
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResolveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "resolve <descriptor>",
		Short: "Evaluate a descriptor and resolve its dependencies",
		Long: `Evaluate a descriptor, then resolve every scope's dependencies against
a static repository catalog.

Repositories are tried in declaration order; the first that serves a
coordinate wins. Managed dependencies take their version from a platform
declared in the same scope.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Catalog, "catalog", "", "resolver catalog YAML (default from settings)")

	return cmd
}

func runResolve(opts *ResolveOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	catalogPath := opts.Catalog
	if catalogPath == "" {
		catalogPath = opts.settings().Catalog
	}
	if catalogPath == "" {
		_ = formatter.Error(ErrCodeResolverCatalog, "no resolver catalog (use --catalog or set catalog in settings)", nil)
		return NewExitError(ExitCommandError, ErrCodeResolverCatalog)
	}
	catalog, err := resolve.LoadCatalog(catalogPath)
	if err != nil {
		_ = formatter.Error(ErrCodeResolverCatalog, err.Error(), nil)
		return WrapExitError(ExitCommandError, ErrCodeResolverCatalog, err)
	}

	res, err := evaluate(opts.RootOptions, path)
	if err != nil {
		return reportError(formatter, err)
	}

	resolution, err := engine.ResolveDependencies(cmd.Context(), res, catalog.WithLogger(opts.logger()))
	if err != nil {
		return reportError(formatter, err)
	}

	scopes := []ScopeResolution{}
	for _, scope := range res.Request().SortedScopes() {
		scopes = append(scopes, ScopeResolution{Scope: scope, Artifacts: resolution.Artifacts(scope)})
	}

	if formatter.Format == "json" {
		return formatter.SuccessFor(res.ID, scopes)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "OK Resolved %d scope(s) of %s\n", len(scopes), res.Source)
	for _, sr := range scopes {
		fmt.Fprintf(w, "\n%s\n", sr.Scope)
		for _, a := range sr.Artifacts {
			fmt.Fprintf(w, "  %s from %s", a.Resolved, a.Repository)
			if a.Platform != "" {
				fmt.Fprintf(w, " via %s", a.Platform)
			}
			if a.Requested != a.Resolved {
				fmt.Fprintf(w, " (requested %s)", a.Requested)
			}
			fmt.Fprintln(w)
		}
	}
	return nil
}
