package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/kirod/internal/tasks"
)

func newTaskCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Read or update a single task",
	}

	get := &cobra.Command{
		Use:   "get <feature> <task-id>",
		Short: "Print a task as JSON",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlain(cmd, root, func(a *app, ctx context.Context) (string, error) {
				return a.workflow.GetTask(ctx, args[0], args[1])
			})
		},
	}

	set := &cobra.Command{
		Use:   "set <feature> <task-id> <status>",
		Short: "Set a task's status",
		Long: fmt.Sprintf(`Set a task's status.

Status is one of %s. The change is refused when it breaks the
sequencing rules, e.g. starting 2 before 1 is done.

Examples:
  kirod task set auth 1.2 in_progress
  kirod task set auth 1.2 done`, strings.Join(statusNames(), ", ")),
		Args: cobra.ExactArgs(3),
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 2 {
				return statusNames(), cobra.ShellCompDirectiveNoFileComp
			}
			return nil, cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlain(cmd, root, func(a *app, ctx context.Context) (string, error) {
				return a.workflow.SetTask(ctx, args[0], args[1], args[2])
			})
		},
	}

	cmd.AddCommand(get, set)
	return cmd
}

func statusNames() []string {
	return []string{string(tasks.StatusPending), string(tasks.StatusInProgress), string(tasks.StatusDone)}
}

// runPlain is runOp without markdown rendering.
func runPlain(cmd *cobra.Command, root *rootOptions, op func(*app, context.Context) (string, error)) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, root, cliLogLevel)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	out, err := op(a, ctx)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
	return err
}
