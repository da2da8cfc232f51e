// Package httpserver serves kirod over HTTP: the streamable MCP endpoint,
// a health check and a Prometheus scrape endpoint.
package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/kirod/internal/logging"
	"github.com/fyrsmithlabs/kirod/internal/telemetry"
)

// Routes.
const (
	HealthPath  = "/health"
	MetricsPath = "/metrics"
	MCPPath     = "/mcp"
)

// Server provides the HTTP endpoints.
type Server struct {
	echo     *echo.Echo
	logger   *logging.Logger
	config   *Config
	registry *prometheus.Registry
	metrics  *HTTPMetrics
	health   func() telemetry.HealthStatus
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// Addr returns host:port.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Option configures a Server.
type Option func(*Server)

// WithTelemetryHealth reports telemetry health on the health endpoint.
func WithTelemetryHealth(fn func() telemetry.HealthStatus) Option {
	return func(s *Server) {
		s.health = fn
	}
}

// NewServer creates a server routing MCPPath to mcpHandler.
func NewServer(cfg *Config, mcpHandler http.Handler, logger *logging.Logger, opts ...Option) (*Server, error) {
	if mcpHandler == nil {
		return nil, errors.New("mcp handler is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{Host: "127.0.0.1", Port: 9191}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	metrics, err := NewHTTPMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to register http metrics: %w", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:     e,
		logger:   logger.Named("http"),
		config:   cfg,
		registry: registry,
		metrics:  metrics,
	}
	for _, opt := range opts {
		opt(s)
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(metrics.Middleware())
	e.Use(s.requestLog)

	s.registerRoutes(mcpHandler)

	return s, nil
}

func (s *Server) registerRoutes(mcpHandler http.Handler) {
	s.echo.GET(HealthPath, s.handleHealth)
	s.echo.GET(MetricsPath, echo.WrapHandler(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))
	s.echo.Any(MCPPath, echo.WrapHandler(mcpHandler))
}

// requestLog logs every request at debug level, failures at warn.
func (s *Server) requestLog(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)

		req := c.Request()
		ctx := req.Context()
		if id := c.Response().Header().Get(echo.HeaderXRequestID); logging.ValidRequestID(id) {
			ctx = logging.WithRequestID(ctx, id)
		}

		fields := []zap.Field{
			zap.String("method", req.Method),
			zap.String("uri", req.RequestURI),
			zap.Int("status", c.Response().Status),
			zap.Duration("duration", time.Since(start)),
		}
		if err != nil || c.Response().Status >= http.StatusInternalServerError {
			s.logger.Warn(ctx, "http request", append(fields, zap.Error(err))...)
		} else {
			s.logger.Debug(ctx, "http request", fields...)
		}
		return err
	}
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status    string                  `json:"status"`
	Telemetry *telemetry.HealthStatus `json:"telemetry,omitempty"`
}

func (s *Server) handleHealth(c echo.Context) error {
	resp := HealthResponse{Status: "ok"}
	if s.health != nil {
		h := s.health()
		resp.Telemetry = &h
		if h.Degraded {
			resp.Status = "degraded"
		}
	}
	return c.JSON(http.StatusOK, resp)
}

// Echo returns the underlying router.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// ServeHTTP lets the server be used directly as a handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Start listens on the configured address until Shutdown.
func (s *Server) Start(ctx context.Context) error {
	addr := s.config.Addr()
	s.logger.Info(ctx, "starting http server", zap.String("addr", addr), zap.String("mcp_endpoint", MCPPath))
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down http server")
	return s.echo.Shutdown(ctx)
}
