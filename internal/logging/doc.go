// Package logging provides structured logging with OpenTelemetry integration.
//
// # Overview
//
// Logging package wraps Zap with:
//   - Custom Trace level (-2, below Debug)
//   - stderr output, since stdout carries the stdio MCP transport
//   - Optional rotating log file
//   - Optional OpenTelemetry log export
//   - Automatic context field injection (trace_id, feature, tool, request.id)
//
// # Usage
//
//	cfg := logging.NewDefaultConfig()
//	logger, err := logging.NewLogger(cfg, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
//	ctx = logging.WithFeature(ctx, "user-auth")
//	ctx = logging.WithTool(ctx, "set_task")
//	logger.Info(ctx, "task updated", zap.String("task_id", "1.2"))
//
// Output includes the correlation fields:
//
//	{
//	  "ts": "2025-11-24T10:15:30.000Z",
//	  "level": "info",
//	  "msg": "task updated",
//	  "feature": "user-auth",
//	  "tool": "set_task",
//	  "task_id": "1.2"
//	}
//
// # Testing
//
// Use TestLogger for test assertions:
//
//	tl := logging.NewTestLogger()
//	tl.Info(ctx, "test message", zap.String("key", "value"))
//	tl.AssertLogged(t, zapcore.InfoLevel, "test message")
//	tl.AssertField(t, "test message", "key", "value")
package logging
