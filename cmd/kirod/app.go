package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/kirod/internal/config"
	"github.com/fyrsmithlabs/kirod/internal/directives"
	"github.com/fyrsmithlabs/kirod/internal/logging"
	"github.com/fyrsmithlabs/kirod/internal/telemetry"
	"github.com/fyrsmithlabs/kirod/internal/workflow"
	"github.com/fyrsmithlabs/kirod/internal/workspace"
)

// cliLogLevel keeps one-shot commands quiet unless asked otherwise.
const cliLogLevel = "warn"

// app holds everything a command needs, built from configuration.
type app struct {
	cfg       *config.Config
	logger    *logging.Logger
	telemetry *telemetry.Telemetry
	workflow  *workflow.Service
}

// newApp loads configuration and wires logging, telemetry, the workspace
// store and the workflow service. defaultLevel replaces the configured
// log level unless --log-level is given.
func newApp(ctx context.Context, opts *rootOptions, defaultLevel string) (*app, error) {
	cfg, err := config.LoadWithFile(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if opts.root != "" {
		cfg.Workspace.Root = opts.root
	}
	switch {
	case opts.logLevel != "":
		cfg.Logging.Level = opts.logLevel
	case defaultLevel != "":
		cfg.Logging.Level = defaultLevel
	}

	tel, err := telemetry.New(ctx, telemetryConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	logger, err := newLogger(cfg, tel)
	if err != nil {
		_ = tel.Shutdown(ctx)
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	ws, err := workspace.New(cfg.Workspace.Root, cfg.Workspace.SpecsDir, cfg.Workspace.ArchiveDir)
	if err != nil {
		_ = tel.Shutdown(ctx)
		return nil, fmt.Errorf("invalid workspace: %w", err)
	}

	svc := workflow.New(
		workspace.NewStore(ws),
		directives.NewLoader(cfg.Workspace.DirectivesDir),
		workflow.WithParentCompletionGate(cfg.Policy.ParentCompletionGate),
		workflow.WithLogger(logger),
		workflow.WithTracerProvider(tel.TracerProvider()),
	)

	logger.Debug(ctx, "kirod initialized",
		zap.String("root", ws.Root),
		zap.String("specs", ws.SpecsPath()),
		zap.Bool("telemetry", tel.IsEnabled()))

	return &app{cfg: cfg, logger: logger, telemetry: tel, workflow: svc}, nil
}

// Close flushes telemetry and logs.
func (a *app) Close(ctx context.Context) {
	if err := a.telemetry.Shutdown(ctx); err != nil {
		a.logger.Warn(ctx, "telemetry shutdown failed", zap.Error(err))
	}
	_ = a.logger.Sync()
}

func telemetryConfig(cfg *config.Config) *telemetry.Config {
	tc := telemetry.NewDefaultConfig()
	tc.Enabled = cfg.Telemetry.Enabled
	tc.Endpoint = cfg.Telemetry.Endpoint
	tc.Protocol = cfg.Telemetry.Protocol
	tc.Insecure = cfg.Telemetry.Insecure
	tc.ServiceName = cfg.Telemetry.ServiceName
	tc.ServiceVersion = version
	tc.SampleRate = cfg.Telemetry.SampleRate
	tc.MetricInterval = cfg.Telemetry.MetricInterval
	tc.ShutdownTimeout = cfg.Server.ShutdownTimeout
	return tc
}

func newLogger(cfg *config.Config, tel *telemetry.Telemetry) (*logging.Logger, error) {
	level, err := logging.LevelFromString(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}

	lc := logging.NewDefaultConfig()
	lc.Level = level
	lc.Format = cfg.Logging.Format
	lc.Output.OTEL = cfg.Logging.OTEL && tel.IsEnabled()
	lc.File.Path = cfg.Logging.File
	lc.File.MaxSizeMB = cfg.Logging.MaxSizeMB
	lc.File.MaxBackups = cfg.Logging.MaxBackups
	lc.File.MaxAgeDays = cfg.Logging.MaxAgeDays
	lc.Fields["version"] = version

	return logging.NewLogger(lc, tel.LoggerProvider())
}

func (a *app) beginRequirements(ctx context.Context, feature string) (string, error) {
	return a.workflow.BeginRequirements(ctx, feature)
}

func (a *app) beginDesign(ctx context.Context, feature string) (string, error) {
	return a.workflow.BeginDesign(ctx, feature)
}

func (a *app) beginTaskPlanning(ctx context.Context, feature string) (string, error) {
	return a.workflow.BeginTaskPlanning(ctx, feature)
}

func (a *app) scaffold(ctx context.Context, feature string) (string, error) {
	return a.workflow.Scaffold(ctx, feature)
}

func (a *app) review(ctx context.Context, feature string) (string, error) {
	return a.workflow.Review(ctx, feature)
}

func (a *app) archive(ctx context.Context, feature string) (string, error) {
	return a.workflow.Archive(ctx, feature)
}
