package logging

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	cfg := NewDefaultConfig()

	logger, err := NewLogger(cfg, nil)
	require.NoError(t, err)
	require.NotNil(t, logger)

	assert.NotNil(t, logger.Underlying())
	assert.True(t, logger.Enabled(zapcore.InfoLevel))
	assert.False(t, logger.Enabled(zapcore.DebugLevel))
}

func TestNewLogger_InvalidConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Format = "xml"

	_, err := NewLogger(cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestNewLogger_OTELWithoutProvider(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Output = OutputConfig{OTEL: true}

	_, err := NewLogger(cfg, nil)
	require.Error(t, err)
}

func TestNewLogger_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kirod.log")

	cfg := NewDefaultConfig()
	cfg.Output.Stderr = false
	cfg.File.Path = path

	logger, err := NewLogger(cfg, nil)
	require.NoError(t, err)

	logger.Info(WithFeature(context.Background(), "auth"), "file entry", zap.String("task_id", "1.1"))
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"file entry"`)
	assert.Contains(t, string(data), `"feature":"auth"`)
	assert.Contains(t, string(data), `"service":"kirod"`)
}

func TestLogger_ContextAwareMethods(t *testing.T) {
	tl := NewTestLogger()
	ctx := context.Background()

	tl.Trace(ctx, "trace message")
	tl.Debug(ctx, "debug message")
	tl.Info(ctx, "info message")
	tl.Warn(ctx, "warn message")
	tl.Error(ctx, "error message")

	tl.AssertLogged(t, TraceLevel, "trace message")
	tl.AssertLogged(t, zapcore.DebugLevel, "debug message")
	tl.AssertLogged(t, zapcore.InfoLevel, "info message")
	tl.AssertLogged(t, zapcore.WarnLevel, "warn message")
	tl.AssertLogged(t, zapcore.ErrorLevel, "error message")
	assert.Len(t, tl.All(), 5)
}

func TestLogger_WithAndNamed(t *testing.T) {
	tl := NewTestLogger()

	child := tl.With(zap.String("component", "workflow")).Named("svc")
	child.Info(context.Background(), "from child")

	entries := tl.FilterMessage("from child").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "svc", entries[0].LoggerName)
	tl.AssertField(t, "from child", "component", "workflow")
}

func TestLogger_ContextFields(t *testing.T) {
	tl := NewTestLogger()

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID})

	ctx := trace.ContextWithSpanContext(context.Background(), sc)
	ctx = WithFeature(ctx, "auth")
	ctx = WithTool(ctx, "set_task")
	ctx = WithRequestID(ctx, "req-1")

	tl.Info(ctx, "correlated")

	tl.AssertField(t, "correlated", "trace_id", "4bf92f3577b34da6a3ce929d0e0e4736")
	tl.AssertField(t, "correlated", "span_id", "00f067aa0ba902b7")
	tl.AssertField(t, "correlated", "feature", "auth")
	tl.AssertField(t, "correlated", "tool", "set_task")
	tl.AssertField(t, "correlated", "request.id", "req-1")
}

func TestTestLogger_Reset(t *testing.T) {
	tl := NewTestLogger()
	tl.Info(context.Background(), "before")
	tl.Reset()

	assert.Empty(t, tl.All())
	tl.AssertNotLogged(t, zapcore.InfoLevel, "before")
}

func TestLogger_ForFeature(t *testing.T) {
	tl := NewTestLogger()

	tl.Logger.ForFeature("billing").Warn(context.Background(), "state unreadable")
	tl.Info(WithFeature(context.Background(), "billing"), "from context")
	tl.Info(context.Background(), "untagged")

	assert.Len(t, tl.ForFeature("billing"), 2)
	assert.Empty(t, tl.ForFeature("auth"))
}
