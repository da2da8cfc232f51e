package logging

import (
	"context"
	"fmt"
	"regexp"
	"unicode/utf8"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Correlation field names.
const (
	fieldTraceID   = "trace_id"
	fieldSpanID    = "span_id"
	fieldFeature   = "feature"
	fieldTool      = "tool"
	fieldRequestID = "request.id"
)

// ctxKey keys the correlation values; its value is the log field name.
type ctxKey string

const (
	featureKey ctxKey = fieldFeature
	toolKey    ctxKey = fieldTool
	requestKey ctxKey = fieldRequestID
)

// correlationKeys are emitted in this order after the trace fields.
var correlationKeys = []ctxKey{featureKey, toolKey, requestKey}

type loggerKey struct{}

// ContextFields returns the trace ids of the active span plus any feature,
// tool and request id stored in ctx.
func ContextFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 2+len(correlationKeys))

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			zap.String(fieldTraceID, sc.TraceID().String()),
			zap.String(fieldSpanID, sc.SpanID().String()),
		)
	}

	for _, key := range correlationKeys {
		if v := stringValue(ctx, key); v != "" {
			fields = append(fields, zap.String(string(key), v))
		}
	}
	return fields
}

func stringValue(ctx context.Context, key ctxKey) string {
	v, _ := ctx.Value(key).(string)
	return v
}

// WithFeature tags ctx with the feature an operation works on.
func WithFeature(ctx context.Context, feature string) context.Context {
	if feature == "" {
		return ctx
	}
	return context.WithValue(ctx, featureKey, feature)
}

// FeatureFromContext returns the feature set by WithFeature.
func FeatureFromContext(ctx context.Context) string {
	return stringValue(ctx, featureKey)
}

// WithTool tags ctx with the MCP tool being served.
func WithTool(ctx context.Context, tool string) context.Context {
	return context.WithValue(ctx, toolKey, tool)
}

// ToolFromContext returns the tool set by WithTool.
func ToolFromContext(ctx context.Context) string {
	return stringValue(ctx, toolKey)
}

const maxRequestIDLen = 128

var requestIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidRequestID reports whether WithRequestID would accept id: 1 to 128
// characters of letters, digits, hyphen and underscore.
func ValidRequestID(id string) bool {
	return checkRequestID(id) == nil
}

func checkRequestID(id string) error {
	switch {
	case id == "":
		return fmt.Errorf("request id cannot be empty")
	case !utf8.ValidString(id):
		return fmt.Errorf("request id contains invalid UTF-8")
	case len(id) > maxRequestIDLen:
		return fmt.Errorf("request id exceeds max length %d", maxRequestIDLen)
	case !requestIDPattern.MatchString(id):
		return fmt.Errorf("request id %q contains invalid characters", id)
	}
	return nil
}

// WithRequestID tags ctx with a request id. It panics on an id that
// ValidRequestID rejects; ids from the outside must be checked first.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if err := checkRequestID(requestID); err != nil {
		panic("logging: " + err.Error())
	}
	return context.WithValue(ctx, requestKey, requestID)
}

// RequestIDFromContext returns the id set by WithRequestID.
func RequestIDFromContext(ctx context.Context) string {
	return stringValue(ctx, requestKey)
}

// WithLogger stores logger in ctx.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the logger stored by WithLogger, or a nop logger.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerKey{}).(*Logger); ok {
		return l
	}
	return NewNop()
}
