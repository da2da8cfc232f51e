package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, ".", cfg.Workspace.Root)
	assert.Equal(t, ".kiro/specs", cfg.Workspace.SpecsDir)
	assert.Equal(t, ".kiro/archive", cfg.Workspace.ArchiveDir)
	assert.Equal(t, TransportStdio, cfg.Server.Transport)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.False(t, cfg.Policy.ParentCompletionGate)
	require.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{
			name:    "empty root",
			modify:  func(c *Config) { c.Workspace.Root = "" },
			wantErr: "workspace.root is required",
		},
		{
			name:    "same specs and archive dir",
			modify:  func(c *Config) { c.Workspace.ArchiveDir = c.Workspace.SpecsDir },
			wantErr: "must differ",
		},
		{
			name:    "unknown transport",
			modify:  func(c *Config) { c.Server.Transport = "websocket" },
			wantErr: "server.transport",
		},
		{
			name:    "port out of range",
			modify:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: "server.port",
		},
		{
			name:    "bad level",
			modify:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: "logging.level",
		},
		{
			name:    "bad format",
			modify:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: "logging.format",
		},
		{
			name: "telemetry protocol",
			modify: func(c *Config) {
				c.Telemetry.Enabled = true
				c.Telemetry.Protocol = "udp"
			},
			wantErr: "telemetry.protocol",
		},
		{
			name: "telemetry sample rate",
			modify: func(c *Config) {
				c.Telemetry.Enabled = true
				c.Telemetry.SampleRate = 1.5
			},
			wantErr: "telemetry.sample_rate",
		},
		{
			name: "disabled telemetry is not checked",
			modify: func(c *Config) {
				c.Telemetry.Protocol = "udp"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_ValidateJoinsErrors(t *testing.T) {
	cfg := Default()
	cfg.Server.Transport = "carrier-pigeon"
	cfg.Logging.Format = "xml"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.transport")
	assert.Contains(t, err.Error(), "logging.format")
}
