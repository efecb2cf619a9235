package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/buildcfg/internal/ir"
	"github.com/roach88/buildcfg/internal/loader"
)

// PluginOutput describes one registered plugin.
type PluginOutput struct {
	ID          string                `json:"id"`
	Description string                `json:"description,omitempty"`
	Source      string                `json:"source"` // "builtin" or "catalog"
	Applies     []string              `json:"applies,omitempty"`
	Tasks       []ir.TaskContribution `json:"tasks"`
	Scopes      []ir.ScopeBinding     `json:"scopes"`
}

// NewPluginsCommand creates the plugins command.
func NewPluginsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plugins [plugin-id]",
		Short: "List registered plugins",
		Long: `List the built-in plugins plus those loaded from --plugins catalogs,
with the tasks they contribute and the scopes they bind.

With a plugin id, only that plugin is shown, with its task properties.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id := ""
			if len(args) == 1 {
				id = args[0]
			}
			return runPlugins(rootOpts, id, cmd)
		},
	}

	return cmd
}

func runPlugins(opts *RootOptions, id string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	catalog, err := loader.LoadCatalog(opts.settings().Plugins)
	if err != nil {
		return reportError(formatter, err)
	}
	formatter.VerboseLog("Loaded %d catalog plugin(s)", len(catalog.Loaded))

	fromCatalog := make(map[string]bool, len(catalog.Loaded))
	for _, def := range catalog.Loaded {
		fromCatalog[def.ID] = true
	}

	plugins := []PluginOutput{}
	for _, def := range catalog.Registry.Definitions() {
		if id != "" && def.ID != id {
			continue
		}
		source := "builtin"
		if fromCatalog[def.ID] {
			source = "catalog"
		}
		plugins = append(plugins, PluginOutput{
			ID:          def.ID,
			Description: def.Description,
			Source:      source,
			Applies:     def.Applies,
			Tasks:       def.Tasks,
			Scopes:      def.Scopes,
		})
	}
	if id != "" && len(plugins) == 0 {
		return reportError(formatter, ir.NewUnknownPlugin(id))
	}

	if formatter.Format == "json" {
		return formatter.Success(plugins)
	}

	w := formatter.Writer
	for i, p := range plugins {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s [%s]", p.ID, p.Source)
		if p.Description != "" {
			fmt.Fprintf(w, " - %s", p.Description)
		}
		fmt.Fprintln(w)
		if len(p.Applies) > 0 {
			fmt.Fprintf(w, "  applies: %s\n", strings.Join(p.Applies, ", "))
		}
		for _, task := range p.Tasks {
			fmt.Fprintf(w, "  task %s (%s)\n", task.Name, task.Type)
			if id == "" {
				continue
			}
			for _, key := range task.Properties.SortedKeys() {
				b, err := ir.MarshalCanonical(task.Properties[key])
				if err != nil {
					return reportError(formatter, err)
				}
				fmt.Fprintf(w, "    %s = %s\n", key, b)
			}
		}
		for _, binding := range p.Scopes {
			fmt.Fprintf(w, "  scope %s -> %s\n", binding.Scope, strings.Join(binding.Consumers, ", "))
		}
	}
	return nil
}
