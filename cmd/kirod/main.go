// Kirod drives spec-driven development: requirements, design, task planning
// and execution for features kept under .kiro/specs.
//
// It serves the workflow as MCP tools over stdio or streamable HTTP, and
// exposes the same operations as CLI commands.
//
// Usage:
//
//	# Serve MCP over stdio (editor integration)
//	kirod serve
//
//	# Serve MCP over HTTP with /health and /metrics
//	kirod serve --transport http --port 9191
//
//	# Inspect features from the shell
//	kirod status --watch
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := execute(ctx, newRootCmd(), os.Args[1:]); err != nil {
		os.Exit(1)
	}
}

// rootOptions are the persistent flags shared by every command.
type rootOptions struct {
	configPath string
	root       string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "kirod",
		Short: "Spec-driven development workflow server",
		Long: `kirod guides a feature through requirements, design, task planning and
execution. Specs live under .kiro/specs/<feature> in the workspace root.

Run "kirod serve" to expose the workflow as MCP tools, or use the
subcommands directly from a shell.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetVersionTemplate(versionString() + "\n")

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "config file (default ~/.config/kirod/config.yaml)")
	flags.StringVar(&opts.root, "root", "", "workspace root (overrides workspace.root)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: trace, debug, info, warn, error")

	cmd.AddCommand(
		newServeCmd(opts),
		newPhaseCmd(opts, "requirements", "Start requirements gathering for a feature", (*app).beginRequirements),
		newPhaseCmd(opts, "design", "Start the design phase for a feature", (*app).beginDesign),
		newPhaseCmd(opts, "plan", "Start task planning for a feature", (*app).beginTaskPlanning),
		newExecuteCmd(opts),
		newStatusCmd(opts),
		newPhaseCmd(opts, "scaffold", "Create the file structure listed in a feature's design", (*app).scaffold),
		newPhaseCmd(opts, "review", "Print the QA review context of a feature", (*app).review),
		newPhaseCmd(opts, "archive", "Move a feature to the archive", (*app).archive),
		newVibeCmd(opts),
		newTaskCmd(opts),
		newToolsCmd(),
		newVersionCmd(),
	)

	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return fmt.Errorf("%w\n\n%s", err, c.UsageString())
	})

	return cmd
}

// execute runs cmd with args and reports errors the way the binary does.
func execute(ctx context.Context, cmd *cobra.Command, args []string) error {
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
	}
	return err
}
