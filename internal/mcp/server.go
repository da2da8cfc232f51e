package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/kirod/internal/logging"
	"github.com/fyrsmithlabs/kirod/internal/workflow"
)

// Server serves the workflow tools over MCP.
type Server struct {
	mcp          *mcp.Server
	workflow     *workflow.Service
	toolRegistry *ToolRegistry
	metrics      *Metrics
	tracer       trace.Tracer
	logger       *logging.Logger
}

// Config configures the MCP server.
type Config struct {
	// Name is the server implementation name (default: "kirod").
	Name string

	// Version is the server version (default: "dev").
	Version string

	Logger         *logging.Logger
	MeterProvider  metric.MeterProvider
	TracerProvider trace.TracerProvider
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Name:    "kirod",
		Version: "dev",
		Logger:  logging.NewNop(),
	}
}

// NewServer creates a server exposing every workflow tool.
func NewServer(cfg *Config, svc *workflow.Service) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if svc == nil {
		return nil, errors.New("workflow service is required")
	}
	if cfg.Name == "" {
		cfg.Name = "kirod"
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNop()
	}
	tp := cfg.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	logger := cfg.Logger.Named("mcp")
	metrics, err := NewMetrics(cfg.MeterProvider)
	if err != nil {
		logger.Warn(context.Background(), "some tool metrics are unavailable", zap.Error(err))
	}

	s := &Server{
		mcp: mcp.NewServer(&mcp.Implementation{
			Name:    cfg.Name,
			Version: cfg.Version,
		}, nil),
		workflow:     svc,
		toolRegistry: DefaultRegistry(),
		metrics:      metrics,
		tracer:       tp.Tracer(instrumentationName),
		logger:       logger,
	}

	s.registerTools()

	return s, nil
}

// Registry returns the metadata of the exposed tools.
func (s *Server) Registry() *ToolRegistry {
	return s.toolRegistry
}

// MCPServer returns the underlying SDK server.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Run serves on the stdio transport until ctx is done or the client
// disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info(ctx, "starting MCP server on stdio transport")
	if err := s.mcp.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("server run failed: %w", err)
	}
	return nil
}

// HTTPHandler returns a streamable HTTP handler serving the same tools.
func (s *Server) HTTPHandler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.mcp
	}, nil)
}
