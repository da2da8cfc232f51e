package mcp

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/kirod/internal/logging"
	"github.com/fyrsmithlabs/kirod/internal/workflow"
)

// Tool names.
const (
	ToolBeginRequirements = "begin_requirements"
	ToolBeginDesign       = "begin_design"
	ToolBeginTaskPlanning = "begin_task_planning"
	ToolBeginExecution    = "begin_execution"
	ToolGetStatus         = "get_status"
	ToolScaffold          = "scaffold_structure"
	ToolReview            = "review"
	ToolArchive           = "archive"
	ToolGetTask           = "get_task"
	ToolSetTask           = "set_task"
	ToolVibe              = "vibe"
)

var catalog = []ToolMetadata{
	{Name: ToolBeginRequirements, Category: CategoryPhase,
		Description: "Start the requirements phase for a feature",
		Keywords:    []string{"spec", "requirements", "start"}},
	{Name: ToolBeginDesign, Category: CategoryPhase,
		Description: "Create the design document (requires completed requirements)",
		Keywords:    []string{"design", "architecture"}},
	{Name: ToolBeginTaskPlanning, Category: CategoryPhase,
		Description: "Generate the task list (requires a completed design)",
		Keywords:    []string{"plan", "tasks", "checklist"}},
	{Name: ToolBeginExecution, Category: CategoryPhase,
		Description: "Execute tasks (requires a completed task list)",
		Keywords:    []string{"execute", "implement", "run"}},
	{Name: ToolGetStatus, Category: CategoryFeature,
		Description: "Show the status dashboard of all active features",
		Keywords:    []string{"dashboard", "progress", "overview"}},
	{Name: ToolScaffold, Category: CategoryFeature,
		Description: "Create files and directories from the file-structure block in design.md",
		Keywords:    []string{"scaffold", "files", "tree"}},
	{Name: ToolReview, Category: CategoryFeature,
		Description: "Perform QA review and gap analysis against the requirements",
		Keywords:    []string{"qa", "gap", "audit"}},
	{Name: ToolArchive, Category: CategoryFeature,
		Description: "Archive a completed feature to clean up the workspace",
		Keywords:    []string{"cleanup", "done", "move"}},
	{Name: ToolGetTask, Category: CategoryTask,
		Description: "Get task details and status",
		Keywords:    []string{"task", "lookup"}},
	{Name: ToolSetTask, Category: CategoryTask,
		Description: "Update task status (validates sequence and requirements)",
		Keywords:    []string{"task", "status", "complete"}},
	{Name: ToolVibe, Category: CategoryMode,
		Description: "Quick development mode (isolated, never combine with workflow tools)",
		Keywords:    []string{"quick", "prototype"}},
}

// DefaultRegistry returns a registry holding every kirod tool.
func DefaultRegistry() *ToolRegistry {
	r := NewToolRegistry()
	for i := range catalog {
		meta := catalog[i]
		r.Register(&meta)
	}
	return r
}

// Required arguments are omitempty so that a missing one reaches the
// workflow and comes back as an error result.

type featureInput struct {
	Feature string `json:"feature,omitempty" jsonschema:"Feature name (kebab-case)"`
}

type executeInput struct {
	Feature string `json:"feature,omitempty" jsonschema:"Feature name"`
	TaskID  string `json:"task_id,omitempty" jsonschema:"Optional task ID to start, e.g. 2.1"`
}

type taskInput struct {
	Feature string `json:"feature,omitempty" jsonschema:"Feature name"`
	TaskID  string `json:"task_id,omitempty" jsonschema:"Task ID, e.g. 2.1"`
}

type setTaskInput struct {
	Feature string `json:"feature,omitempty" jsonschema:"Feature name"`
	TaskID  string `json:"task_id,omitempty" jsonschema:"Task ID"`
	Status  string `json:"status,omitempty" jsonschema:"New status: pending, in_progress or done"`
}

type emptyInput struct{}

func (s *Server) tool(name string) *mcp.Tool {
	meta, _ := s.toolRegistry.Get(name)
	return &mcp.Tool{Name: meta.Name, Description: meta.Description}
}

// registerTools registers every workflow tool with the server.
func (s *Server) registerTools() {
	wf := s.workflow

	mcp.AddTool(s.mcp, s.tool(ToolBeginRequirements), func(ctx context.Context, _ *mcp.CallToolRequest, args featureInput) (*mcp.CallToolResult, any, error) {
		return s.call(ctx, ToolBeginRequirements, args.Feature, func(ctx context.Context) (string, error) {
			return wf.BeginRequirements(ctx, args.Feature)
		})
	})

	mcp.AddTool(s.mcp, s.tool(ToolBeginDesign), func(ctx context.Context, _ *mcp.CallToolRequest, args featureInput) (*mcp.CallToolResult, any, error) {
		return s.call(ctx, ToolBeginDesign, args.Feature, func(ctx context.Context) (string, error) {
			return wf.BeginDesign(ctx, args.Feature)
		})
	})

	mcp.AddTool(s.mcp, s.tool(ToolBeginTaskPlanning), func(ctx context.Context, _ *mcp.CallToolRequest, args featureInput) (*mcp.CallToolResult, any, error) {
		return s.call(ctx, ToolBeginTaskPlanning, args.Feature, func(ctx context.Context) (string, error) {
			return wf.BeginTaskPlanning(ctx, args.Feature)
		})
	})

	mcp.AddTool(s.mcp, s.tool(ToolBeginExecution), func(ctx context.Context, _ *mcp.CallToolRequest, args executeInput) (*mcp.CallToolResult, any, error) {
		return s.call(ctx, ToolBeginExecution, args.Feature, func(ctx context.Context) (string, error) {
			return wf.BeginExecution(ctx, args.Feature, args.TaskID)
		})
	})

	mcp.AddTool(s.mcp, s.tool(ToolGetStatus), func(ctx context.Context, _ *mcp.CallToolRequest, _ emptyInput) (*mcp.CallToolResult, any, error) {
		return s.call(ctx, ToolGetStatus, "", wf.Status)
	})

	mcp.AddTool(s.mcp, s.tool(ToolScaffold), func(ctx context.Context, _ *mcp.CallToolRequest, args featureInput) (*mcp.CallToolResult, any, error) {
		return s.call(ctx, ToolScaffold, args.Feature, func(ctx context.Context) (string, error) {
			return wf.Scaffold(ctx, args.Feature)
		})
	})

	mcp.AddTool(s.mcp, s.tool(ToolReview), func(ctx context.Context, _ *mcp.CallToolRequest, args featureInput) (*mcp.CallToolResult, any, error) {
		return s.call(ctx, ToolReview, args.Feature, func(ctx context.Context) (string, error) {
			return wf.Review(ctx, args.Feature)
		})
	})

	mcp.AddTool(s.mcp, s.tool(ToolArchive), func(ctx context.Context, _ *mcp.CallToolRequest, args featureInput) (*mcp.CallToolResult, any, error) {
		return s.call(ctx, ToolArchive, args.Feature, func(ctx context.Context) (string, error) {
			return wf.Archive(ctx, args.Feature)
		})
	})

	mcp.AddTool(s.mcp, s.tool(ToolGetTask), func(ctx context.Context, _ *mcp.CallToolRequest, args taskInput) (*mcp.CallToolResult, any, error) {
		return s.call(ctx, ToolGetTask, args.Feature, func(ctx context.Context) (string, error) {
			return wf.GetTask(ctx, args.Feature, args.TaskID)
		})
	})

	mcp.AddTool(s.mcp, s.tool(ToolSetTask), func(ctx context.Context, _ *mcp.CallToolRequest, args setTaskInput) (*mcp.CallToolResult, any, error) {
		return s.call(ctx, ToolSetTask, args.Feature, func(ctx context.Context) (string, error) {
			return wf.SetTask(ctx, args.Feature, args.TaskID, args.Status)
		})
	})

	mcp.AddTool(s.mcp, s.tool(ToolVibe), func(ctx context.Context, _ *mcp.CallToolRequest, _ emptyInput) (*mcp.CallToolResult, any, error) {
		return s.call(ctx, ToolVibe, "", wf.Vibe)
	})
}

// call runs one tool invocation with correlation, tracing and metrics, and
// turns its outcome into a tool result. It never returns a protocol error.
func (s *Server) call(ctx context.Context, tool, feature string, fn func(context.Context) (string, error)) (*mcp.CallToolResult, any, error) {
	requestID := uuid.NewString()
	ctx = logging.WithTool(ctx, tool)
	ctx = logging.WithRequestID(ctx, requestID)
	ctx = logging.WithFeature(ctx, feature)

	ctx, span := s.tracer.Start(ctx, "mcp.tool/"+tool, trace.WithAttributes(
		attribute.String("mcp.tool", tool),
		attribute.String("request.id", requestID),
	))
	defer span.End()

	var category ToolCategory
	if meta, ok := s.toolRegistry.Get(tool); ok {
		category = meta.Category
	}
	done := s.metrics.Track(ctx, tool, category)

	start := time.Now()
	text, err := fn(ctx)
	elapsed := time.Since(start)
	done(err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Warn(ctx, "tool call failed",
			zap.String("kind", workflow.KindOf(err).String()),
			zap.Duration("duration", elapsed),
			zap.Error(err))
		return errorResult(err), nil, nil
	}

	s.logger.Debug(ctx, "tool call completed", zap.Duration("duration", elapsed))
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil, nil
}

func errorResult(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: "Error: " + err.Error()}},
		IsError: true,
	}
}
