package mcp

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/fyrsmithlabs/kirod/internal/workflow"
)

const instrumentationName = "github.com/fyrsmithlabs/kirod/internal/mcp"

// Tool metric names.
const (
	metricInvocations = "kirod.mcp.tool.invocations_total"
	metricDuration    = "kirod.mcp.tool.duration_seconds"
	metricErrors      = "kirod.mcp.tool.errors_total"
	metricActive      = "kirod.mcp.tool.active_requests"
)

// Tool calls read and write a handful of small files.
var durationBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1}

// Metrics holds the tool call instruments. Every instrument is labelled
// with the tool and its registry category; failures also carry the
// workflow error kind as "reason".
type Metrics struct {
	invocations metric.Int64Counter
	duration    metric.Float64Histogram
	errors      metric.Int64Counter
	active      metric.Int64UpDownCounter
}

// NewMetrics creates the instruments on mp, or on the global provider when
// mp is nil.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(instrumentationName)

	var m Metrics
	var err, errs error

	m.invocations, err = meter.Int64Counter(metricInvocations,
		metric.WithDescription("MCP tool invocations"),
		metric.WithUnit("{invocation}"))
	errs = errors.Join(errs, err)

	m.duration, err = meter.Float64Histogram(metricDuration,
		metric.WithDescription("MCP tool call latency"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...))
	errs = errors.Join(errs, err)

	m.errors, err = meter.Int64Counter(metricErrors,
		metric.WithDescription("MCP tool calls that returned an error result"),
		metric.WithUnit("{error}"))
	errs = errors.Join(errs, err)

	m.active, err = meter.Int64UpDownCounter(metricActive,
		metric.WithDescription("MCP tool calls in flight"),
		metric.WithUnit("{request}"))
	errs = errors.Join(errs, err)

	return &m, errs
}

// Track counts a call to tool as in flight and returns the function that
// records its outcome. Instruments that failed to register are skipped.
func (m *Metrics) Track(ctx context.Context, tool string, category ToolCategory) func(error) {
	set := metric.WithAttributes(
		attribute.String("tool", tool),
		attribute.String("category", string(category)),
	)
	if m.active != nil {
		m.active.Add(ctx, 1, set)
	}
	start := time.Now()

	return func(err error) {
		if m.active != nil {
			m.active.Add(ctx, -1, set)
		}
		if m.invocations != nil {
			m.invocations.Add(ctx, 1, set)
		}
		if m.duration != nil {
			m.duration.Record(ctx, time.Since(start).Seconds(), set)
		}
		if err != nil && m.errors != nil {
			m.errors.Add(ctx, 1, set, metric.WithAttributes(
				attribute.String("reason", workflow.KindOf(err).String()),
			))
		}
	}
}
