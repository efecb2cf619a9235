package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/buildcfg/internal/ir"
)

// TasksOptions holds flags for the tasks command.
type TasksOptions struct {
	*RootOptions
	Type string
	Name string
}

// TaskOutput is one task of the finalized graph.
type TaskOutput struct {
	Name         string   `json:"name"`
	Type         string   `json:"type"`
	Owners       []string `json:"owners"`
	Properties   ir.Map   `json:"properties"`
	Dependencies []string `json:"dependencies"`
}

// NewTasksCommand creates the tasks command.
func NewTasksCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TasksOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "tasks <descriptor>",
		Short: "Query the finalized task graph",
		Long: `Evaluate a descriptor and list the tasks of the finalized graph.

--type and --name filter the list the same way a task mutation filter
does: a task matches when it has the given name, the given type, or both.

Examples:
  buildcfg tasks build.cue --type JavaCompile
  buildcfg tasks build.hcl --name test --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTasks(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Type, "type", "", "only tasks of this type")
	cmd.Flags().StringVar(&opts.Name, "name", "", "only the task with this name")

	return cmd
}

func runTasks(opts *TasksOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	res, err := evaluate(opts.RootOptions, path)
	if err != nil {
		return reportError(formatter, err)
	}

	filter := ir.TaskFilter{Name: opts.Name, Type: opts.Type}
	tasks := []TaskOutput{}
	for _, task := range res.Graph.Select(filter) {
		deps := []string{}
		for _, c := range res.DependenciesFor(task.Name) {
			deps = append(deps, c.String())
		}
		tasks = append(tasks, TaskOutput{
			Name:         task.Name,
			Type:         task.Type,
			Owners:       task.Owners,
			Properties:   task.Properties,
			Dependencies: deps,
		})
	}
	formatter.VerboseLog("%d of %d task(s) match %s", len(tasks), res.Graph.Len(), filter)

	if formatter.Format == "json" {
		return formatter.SuccessFor(res.ID, tasks)
	}

	w := formatter.Writer
	if len(tasks) == 0 {
		fmt.Fprintf(w, "No tasks match %s\n", filter)
		return nil
	}
	for _, task := range tasks {
		fmt.Fprintf(w, "%s (%s) from %s\n", task.Name, task.Type, strings.Join(task.Owners, ", "))
		for _, key := range task.Properties.SortedKeys() {
			b, err := ir.MarshalCanonical(task.Properties[key])
			if err != nil {
				return reportError(formatter, err)
			}
			fmt.Fprintf(w, "  %s = %s\n", key, b)
		}
		if len(task.Dependencies) > 0 {
			fmt.Fprintf(w, "  dependencies: %s\n", strings.Join(task.Dependencies, ", "))
		}
	}
	return nil
}
