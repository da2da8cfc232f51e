package main

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/kirod/internal/dashboard"
	"github.com/fyrsmithlabs/kirod/internal/termui"
	"github.com/fyrsmithlabs/kirod/internal/workspace"
)

func newStatusCmd(root *rootOptions) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show phase and progress of every active feature",
		Long: `Show phase, current task, progress and last update of every active
feature. Terminals get a table; pipes get the markdown dashboard.

With --watch the view stays open and follows changes under the specs
directory. Press q to quit and r to refresh.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, root, cliLogLevel)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			if watch {
				return runWatch(ctx, cmd, a)
			}

			out := cmd.OutOrStdout()
			if !termui.IsTerminal(out) {
				md, err := a.workflow.Status(ctx)
				if err != nil {
					return err
				}
				return termui.WriteMarkdown(out, md)
			}

			rows, err := a.workflow.StatusRows(ctx)
			if errors.Is(err, workspace.ErrNoSpecs) {
				_, err = fmt.Fprintln(out, dashboard.NoSpecsMessage)
				return err
			}
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(out, termui.RenderTable(rows, a.workflow.Location()))
			return err
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "keep the view open and refresh on changes")
	return cmd
}

func runWatch(ctx context.Context, cmd *cobra.Command, a *app) error {
	specsDir := a.workflow.Store().Workspace().SpecsPath()
	watcher, err := termui.NewSpecsWatcher(specsDir)
	if err != nil {
		return err
	}
	defer watcher.Close()

	load := func() ([]dashboard.Row, error) {
		rows, err := a.workflow.StatusRows(ctx)
		if errors.Is(err, workspace.ErrNoSpecs) {
			return nil, nil
		}
		return rows, err
	}

	model := termui.NewWatchModel(load,
		termui.WithWatcher(watcher),
		termui.WithSpecsDir(specsDir),
		termui.WithLocation(a.workflow.Location()),
	)

	_, err = tea.NewProgram(model,
		tea.WithContext(ctx),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()),
		tea.WithAltScreen(),
	).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
