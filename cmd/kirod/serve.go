package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/kirod/internal/config"
	"github.com/fyrsmithlabs/kirod/internal/httpserver"
	"github.com/fyrsmithlabs/kirod/internal/mcp"
)

type serveOptions struct {
	transport string
	host      string
	port      int
}

func newServeCmd(root *rootOptions) *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the workflow as MCP tools",
		Long: `Serve the workflow tools over MCP.

The stdio transport is meant for editor integration; stdout carries the
protocol and logs go to stderr. The http transport serves streamable MCP
at /mcp together with /health and /metrics.

Examples:
  kirod serve
  kirod serve --transport http --host 0.0.0.0 --port 9191`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), root, "")
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			if cmd.Flags().Changed("transport") {
				a.cfg.Server.Transport = opts.transport
			}
			if cmd.Flags().Changed("host") {
				a.cfg.Server.Host = opts.host
			}
			if cmd.Flags().Changed("port") {
				a.cfg.Server.Port = opts.port
			}
			if err := a.cfg.Validate(); err != nil {
				return err
			}

			return serve(cmd.Context(), a)
		},
	}

	cmd.Flags().StringVar(&opts.transport, "transport", config.TransportStdio, "transport: stdio or http")
	cmd.Flags().StringVar(&opts.host, "host", "127.0.0.1", "http listen host")
	cmd.Flags().IntVar(&opts.port, "port", 9191, "http listen port")

	return cmd
}

// serve runs the configured transport until ctx is cancelled.
func serve(ctx context.Context, a *app) error {
	mcpSrv, err := mcp.NewServer(&mcp.Config{
		Name:           a.cfg.Server.Name,
		Version:        version,
		Logger:         a.logger,
		MeterProvider:  a.telemetry.MeterProvider(),
		TracerProvider: a.telemetry.TracerProvider(),
	}, a.workflow)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	a.logger.Info(ctx, "starting kirod",
		zap.String("transport", a.cfg.Server.Transport),
		zap.String("root", a.workflow.Store().Workspace().Root),
		zap.Int("tools", mcpSrv.Registry().Count()))

	if a.cfg.Server.Transport == config.TransportStdio {
		if err := mcpSrv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("stdio server error: %w", err)
		}
		a.logger.Info(ctx, "stdio server shutdown complete")
		return nil
	}

	srv, err := httpserver.NewServer(
		&httpserver.Config{Host: a.cfg.Server.Host, Port: a.cfg.Server.Port},
		mcpSrv.HTTPHandler(),
		a.logger,
		httpserver.WithTelemetryHealth(a.telemetry.Health),
	)
	if err != nil {
		return fmt.Errorf("failed to create http server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(ctx) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return <-errCh
}
