package httpserver

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics holds the request instruments exposed on /metrics.
type HTTPMetrics struct {
	requestsTotal  *prometheus.CounterVec
	requestDur     *prometheus.HistogramVec
	responseSize   *prometheus.HistogramVec
	activeRequests prometheus.Gauge
}

// NewHTTPMetrics creates the instruments and registers them on reg.
func NewHTTPMetrics(reg prometheus.Registerer) (*HTTPMetrics, error) {
	labels := []string{"method", "endpoint", "status"}

	m := &HTTPMetrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kirod",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests by method, endpoint and status code.",
		}, labels),
		requestDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "kirod",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, labels),
		responseSize: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "kirod",
			Subsystem: "http",
			Name:      "response_size_bytes",
			Help:      "HTTP response body size in bytes.",
			Buckets:   prometheus.ExponentialBuckets(100, 4, 8),
		}, labels),
		activeRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "kirod",
			Subsystem: "http",
			Name:      "active_requests",
			Help:      "Number of HTTP requests in flight.",
		}),
	}

	for _, c := range []prometheus.Collector{m.requestsTotal, m.requestDur, m.responseSize, m.activeRequests} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Middleware records every request.
func (m *HTTPMetrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			m.activeRequests.Inc()
			defer m.activeRequests.Dec()

			err := next(c)
			if err != nil {
				// Let echo write the error response so the status is final.
				c.Error(err)
			}

			values := []string{
				c.Request().Method,
				endpoint(c.Path()),
				strconv.Itoa(c.Response().Status),
			}
			m.requestsTotal.WithLabelValues(values...).Inc()
			m.requestDur.WithLabelValues(values...).Observe(time.Since(start).Seconds())
			m.responseSize.WithLabelValues(values...).Observe(float64(c.Response().Size))

			return nil
		}
	}
}

// endpoint returns the matched route. Unrouted requests share one label
// so arbitrary paths cannot create new series.
func endpoint(path string) string {
	if path == "" {
		return "unmatched"
	}
	return path
}
