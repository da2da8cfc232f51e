package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestHome points HOME at a temp dir and returns the kirod config dir.
func setupTestHome(t *testing.T) string {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".config", "kirod")
	require.NoError(t, os.MkdirAll(dir, 0700))
	return dir
}

func writeConfig(t *testing.T, dir, content string, perm os.FileMode) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), perm))
	require.NoError(t, os.Chmod(path, perm))
	return path
}

func TestLoadWithFile_MissingFileUsesDefaults(t *testing.T) {
	setupTestHome(t)

	cfg, err := LoadWithFile("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadWithFile_ValidYAML(t *testing.T) {
	dir := setupTestHome(t)
	path := writeConfig(t, dir, `
workspace:
  root: /srv/project
  specs_dir: specs
server:
  transport: http
  port: 8088
  shutdown_timeout: 3s
logging:
  level: debug
  format: console
policy:
  parent_completion_gate: true
`, 0600)

	cfg, err := LoadWithFile(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/project", cfg.Workspace.Root)
	assert.Equal(t, "specs", cfg.Workspace.SpecsDir)
	assert.Equal(t, ".kiro/archive", cfg.Workspace.ArchiveDir, "unset keys keep defaults")
	assert.Equal(t, TransportHTTP, cfg.Server.Transport)
	assert.Equal(t, 8088, cfg.Server.Port)
	assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.True(t, cfg.Policy.ParentCompletionGate)
}

func TestLoadWithFile_EnvOverridesFile(t *testing.T) {
	dir := setupTestHome(t)
	path := writeConfig(t, dir, "server:\n  port: 8088\n", 0600)

	t.Setenv("KIROD_SERVER_PORT", "9999")
	t.Setenv("KIROD_WORKSPACE_ARCHIVE_DIR", "old")
	t.Setenv("KIROD_POLICY_PARENT_COMPLETION_GATE", "true")
	t.Setenv("KIROD_TELEMETRY_METRIC_INTERVAL", "1m")

	cfg, err := LoadWithFile(path)
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "old", cfg.Workspace.ArchiveDir)
	assert.True(t, cfg.Policy.ParentCompletionGate)
	assert.Equal(t, time.Minute, cfg.Telemetry.MetricInterval)
}

func TestLoadWithFile_EmptyValuesFallBack(t *testing.T) {
	setupTestHome(t)
	t.Setenv("KIROD_LOGGING_FORMAT", "")

	cfg, err := LoadWithFile("")
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadWithFile_Rejections(t *testing.T) {
	t.Run("outside allowed dirs", func(t *testing.T) {
		setupTestHome(t)
		_, err := LoadWithFile(filepath.Join(t.TempDir(), "config.yaml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "config path validation failed")
	})

	t.Run("world readable", func(t *testing.T) {
		dir := setupTestHome(t)
		path := writeConfig(t, dir, "server:\n  port: 8088\n", 0644)
		_, err := LoadWithFile(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "insecure config file permissions")
	})

	t.Run("too large", func(t *testing.T) {
		dir := setupTestHome(t)
		big := make([]byte, maxConfigFileSize+1)
		for i := range big {
			big[i] = '#'
		}
		path := writeConfig(t, dir, string(big), 0600)
		_, err := LoadWithFile(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "too large")
	})

	t.Run("invalid values", func(t *testing.T) {
		dir := setupTestHome(t)
		path := writeConfig(t, dir, "server:\n  transport: smoke-signals\n", 0600)
		_, err := LoadWithFile(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "config validation failed")
	})
}

func TestEnvKey(t *testing.T) {
	tests := map[string]string{
		"KIROD_SERVER_PORT":                   "server.port",
		"KIROD_WORKSPACE_SPECS_DIR":           "workspace.specs_dir",
		"KIROD_LOGGING_MAX_SIZE_MB":           "logging.max_size_mb",
		"KIROD_POLICY_PARENT_COMPLETION_GATE": "policy.parent_completion_gate",
		"KIROD_DEBUG":                         "debug",
	}
	for in, want := range tests {
		assert.Equal(t, want, envKey(in), in)
	}
}
