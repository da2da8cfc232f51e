// Package config provides configuration loading for kirod.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (KIROD_SERVER_PORT, KIROD_LOGGING_LEVEL, ...)
//  2. YAML config file (~/.config/kirod/config.yaml)
//  3. Defaults (Default)
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the complete kirod configuration.
type Config struct {
	Workspace WorkspaceConfig `koanf:"workspace"`
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Policy    PolicyConfig    `koanf:"policy"`
}

// WorkspaceConfig locates feature specs. Relative directories are resolved
// against Root.
type WorkspaceConfig struct {
	Root          string `koanf:"root"`
	SpecsDir      string `koanf:"specs_dir"`
	ArchiveDir    string `koanf:"archive_dir"`
	DirectivesDir string `koanf:"directives_dir"` // optional directive overrides
}

// ServerConfig holds MCP server configuration.
type ServerConfig struct {
	Transport       string        `koanf:"transport"` // "stdio" or "http"
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	Name            string        `koanf:"name"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `koanf:"level"`
	Format     string `koanf:"format"`
	File       string `koanf:"file"` // empty disables file output
	MaxSizeMB  int    `koanf:"max_size_mb"`
	MaxBackups int    `koanf:"max_backups"`
	MaxAgeDays int    `koanf:"max_age_days"`
	OTEL       bool   `koanf:"otel"`
}

// TelemetryConfig holds OpenTelemetry export configuration.
type TelemetryConfig struct {
	Enabled        bool          `koanf:"enabled"`
	Endpoint       string        `koanf:"endpoint"`
	Protocol       string        `koanf:"protocol"` // "grpc" or "http"
	Insecure       bool          `koanf:"insecure"`
	ServiceName    string        `koanf:"service_name"`
	SampleRate     float64       `koanf:"sample_rate"`
	MetricInterval time.Duration `koanf:"metric_interval"`
}

// PolicyConfig toggles optional task sequencing rules.
type PolicyConfig struct {
	// ParentCompletionGate refuses to complete a subtask before its parent.
	ParentCompletionGate bool `koanf:"parent_completion_gate"`
}

// Transports.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		Workspace: WorkspaceConfig{
			Root:       ".",
			SpecsDir:   ".kiro/specs",
			ArchiveDir: ".kiro/archive",
		},
		Server: ServerConfig{
			Transport:       TransportStdio,
			Host:            "127.0.0.1",
			Port:            9191,
			ShutdownTimeout: 10 * time.Second,
			Name:            "kirod",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Telemetry: TelemetryConfig{
			Enabled:        false,
			Endpoint:       "localhost:4317",
			Protocol:       "grpc",
			Insecure:       true,
			ServiceName:    "kirod",
			SampleRate:     1.0,
			MetricInterval: 15 * time.Second,
		},
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []error

	if c.Workspace.Root == "" {
		errs = append(errs, errors.New("workspace.root is required"))
	}
	if c.Workspace.SpecsDir == "" || c.Workspace.ArchiveDir == "" {
		errs = append(errs, errors.New("workspace.specs_dir and workspace.archive_dir are required"))
	}
	if c.Workspace.SpecsDir != "" && c.Workspace.SpecsDir == c.Workspace.ArchiveDir {
		errs = append(errs, errors.New("workspace.specs_dir and workspace.archive_dir must differ"))
	}

	switch c.Server.Transport {
	case TransportStdio, TransportHTTP:
	default:
		errs = append(errs, fmt.Errorf("server.transport must be %q or %q, got %q", TransportStdio, TransportHTTP, c.Server.Transport))
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("server.shutdown_timeout must be positive"))
	}

	switch c.Logging.Level {
	case "trace", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level must be one of trace, debug, info, warn, error, got %q", c.Logging.Level))
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		errs = append(errs, fmt.Errorf("logging.format must be 'json' or 'console', got %q", c.Logging.Format))
	}
	if c.Logging.File != "" && c.Logging.MaxSizeMB <= 0 {
		errs = append(errs, errors.New("logging.max_size_mb must be positive when logging.file is set"))
	}

	if c.Telemetry.Enabled {
		if c.Telemetry.Endpoint == "" {
			errs = append(errs, errors.New("telemetry.endpoint is required when telemetry is enabled"))
		}
		if c.Telemetry.Protocol != "grpc" && c.Telemetry.Protocol != "http" {
			errs = append(errs, fmt.Errorf("telemetry.protocol must be 'grpc' or 'http', got %q", c.Telemetry.Protocol))
		}
		if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
			errs = append(errs, fmt.Errorf("telemetry.sample_rate must be between 0 and 1, got %v", c.Telemetry.SampleRate))
		}
		if c.Telemetry.MetricInterval <= 0 {
			errs = append(errs, errors.New("telemetry.metric_interval must be positive"))
		}
	}

	return errors.Join(errs...)
}
