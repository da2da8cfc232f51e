package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/kirod/internal/termui"
)

// featureFunc is a workflow operation on a single feature.
type featureFunc func(a *app, ctx context.Context, feature string) (string, error)

// newPhaseCmd builds a "<name> <feature>" command that prints the
// operation's markdown response.
func newPhaseCmd(root *rootOptions, name, short string, fn featureFunc) *cobra.Command {
	return &cobra.Command{
		Use:   name + " <feature>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOp(cmd, root, func(a *app, ctx context.Context) (string, error) {
				return fn(a, ctx, args[0])
			})
		},
	}
}

func newExecuteCmd(root *rootOptions) *cobra.Command {
	var taskID string

	cmd := &cobra.Command{
		Use:   "execute <feature>",
		Short: "Start or continue execution of a feature",
		Long: `Start or continue execution of a feature.

With --task the task is checked against the sequencing rules, marked in
progress and recorded as the current task.

Examples:
  kirod execute auth
  kirod execute auth --task 2.1`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOp(cmd, root, func(a *app, ctx context.Context) (string, error) {
				return a.workflow.BeginExecution(ctx, args[0], taskID)
			})
		},
	}
	cmd.Flags().StringVar(&taskID, "task", "", "task to start, e.g. 2.1")
	return cmd
}

func newVibeCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "vibe",
		Short: "Print the quick development directive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runOp(cmd, root, func(a *app, ctx context.Context) (string, error) {
				return a.workflow.Vibe(ctx)
			})
		},
	}
}

// runOp builds the app, runs op and writes its markdown to stdout.
func runOp(cmd *cobra.Command, root *rootOptions, op func(*app, context.Context) (string, error)) error {
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
	return termui.WriteMarkdown(cmd.OutOrStdout(), out)
}
