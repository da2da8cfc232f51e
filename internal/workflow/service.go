package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/kirod/internal/dashboard"
	"github.com/fyrsmithlabs/kirod/internal/directives"
	"github.com/fyrsmithlabs/kirod/internal/logging"
	"github.com/fyrsmithlabs/kirod/internal/sanitize"
	"github.com/fyrsmithlabs/kirod/internal/scaffold"
	"github.com/fyrsmithlabs/kirod/internal/tasks"
	"github.com/fyrsmithlabs/kirod/internal/workspace"
)

const instrumentationName = "github.com/fyrsmithlabs/kirod/internal/workflow"

// NoStructureMessage is returned by Scaffold when design.md has no
// file-structure block.
const NoStructureMessage = "No 'file-structure' code block found in design.md. Cannot scaffold."

// Service runs the workflow operations against one workspace.
type Service struct {
	store      *workspace.Store
	directives *directives.Loader
	validator  tasks.Validator
	logger     *logging.Logger
	tracer     trace.Tracer
	location   *time.Location
}

// Option configures a Service.
type Option func(*Service)

// WithParentCompletionGate enables the parent-completion rule of the
// task validator.
func WithParentCompletionGate(enabled bool) Option {
	return func(s *Service) {
		s.validator.ParentCompletionGate = enabled
	}
}

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTracerProvider sets where operation spans go.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) {
		if tp != nil {
			s.tracer = tp.Tracer(instrumentationName)
		}
	}
}

// WithLocation sets the time zone of the status dashboard.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.location = loc
		}
	}
}

// New creates a Service.
func New(store *workspace.Store, loader *directives.Loader, opts ...Option) *Service {
	if loader == nil {
		loader = directives.NewLoader("")
	}

	s := &Service{
		store:      store,
		directives: loader,
		logger:     logging.NewNop(),
		tracer:     otel.Tracer(instrumentationName),
		location:   time.Local,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the workspace store the service operates on.
func (s *Service) Store() *workspace.Store {
	return s.store
}

// BeginRequirements starts or refreshes the requirements phase.
func (s *Service) BeginRequirements(ctx context.Context, feature string) (_ string, err error) {
	ctx, end := s.start(ctx, "begin_requirements", feature)
	defer func() { end(err) }()

	if err := sanitize.ValidateFeatureName(feature); err != nil {
		return "", classify(err)
	}

	directive, err := s.directives.Compose(directives.Spec)
	if err != nil {
		return "", classify(err)
	}

	if err := s.transition(ctx, feature, workspace.PhaseSpec); err != nil {
		return "", err
	}

	return directive + header(feature, workspace.PhaseSpec.Label()), nil
}

// BeginDesign moves a feature with requirements into the design phase.
func (s *Service) BeginDesign(ctx context.Context, feature string) (_ string, err error) {
	ctx, end := s.start(ctx, "begin_design", feature)
	defer func() { end(err) }()

	if err := sanitize.ValidateFeatureName(feature); err != nil {
		return "", classify(err)
	}

	requirements, err := s.requireDocument(feature, workspace.Requirements,
		"Requirements phase incomplete. Run begin_requirements first.")
	if err != nil {
		return "", err
	}

	directive, err := s.directives.Compose(directives.Design)
	if err != nil {
		return "", classify(err)
	}

	if err := s.transition(ctx, feature, workspace.PhaseDesign); err != nil {
		return "", err
	}

	return directive + header(feature, workspace.PhaseDesign.Label()) +
		"\n\n## Requirements Context\n" + requirements, nil
}

// BeginTaskPlanning moves a feature with a design into task planning.
func (s *Service) BeginTaskPlanning(ctx context.Context, feature string) (_ string, err error) {
	ctx, end := s.start(ctx, "begin_task_planning", feature)
	defer func() { end(err) }()

	if err := sanitize.ValidateFeatureName(feature); err != nil {
		return "", classify(err)
	}

	design, err := s.requireDocument(feature, workspace.Design,
		"Design phase incomplete. Run begin_design first.")
	if err != nil {
		return "", err
	}

	directive, err := s.directives.Compose(directives.Task)
	if err != nil {
		return "", classify(err)
	}

	if err := s.transition(ctx, feature, workspace.PhaseTask); err != nil {
		return "", err
	}

	return directive + header(feature, workspace.PhaseTask.Label()) +
		"\n\n## Design Context\n" + design, nil
}

// BeginExecution moves a planned feature into execution. A non-empty
// taskID is validated and marked in progress first.
func (s *Service) BeginExecution(ctx context.Context, feature, taskID string) (_ string, err error) {
	ctx, end := s.start(ctx, "begin_execution", feature, attribute.String("task_id", taskID))
	defer func() { end(err) }()

	if err := sanitize.ValidateFeatureName(feature); err != nil {
		return "", classify(err)
	}
	if taskID != "" && !tasks.ValidID(taskID) {
		return "", invalidTaskID(taskID)
	}

	document, err := s.requireDocument(feature, workspace.Tasks,
		"Tasks phase incomplete. Run begin_task_planning first.")
	if err != nil {
		return "", err
	}

	directive, err := s.directives.Compose(directives.Execute)
	if err != nil {
		return "", classify(err)
	}

	state := s.loadState(ctx, feature, workspace.PhaseExecute)
	state.Phase = workspace.PhaseExecute

	if taskID != "" {
		if err := s.validator.Validate(tasks.Parse(document), taskID, tasks.StatusInProgress); err != nil {
			return "", rejection(err)
		}
		document = tasks.SetStatus(document, taskID, tasks.StatusInProgress)
		if err := s.store.WriteDocument(feature, workspace.Tasks, document); err != nil {
			return "", classify(err)
		}
		state.CurrentTask = taskID
	}

	if err := s.store.SaveState(feature, state); err != nil {
		return "", classify(err)
	}

	phase := workspace.PhaseExecute.Label()
	if taskID != "" {
		phase += " - Task " + taskID
	}
	s.logger.Info(ctx, "phase entered", zap.String("phase", string(workspace.PhaseExecute)), zap.String("task_id", taskID))

	return directive + header(feature, phase) +
		"\n\n## Requirements\n" + s.contextSection(feature, workspace.Requirements) +
		"\n\n## Design\n" + s.contextSection(feature, workspace.Design) +
		"\n\n## Tasks\n" + document, nil
}

// Status renders the dashboard of all active features.
func (s *Service) Status(ctx context.Context) (_ string, err error) {
	ctx, end := s.start(ctx, "get_status", "")
	defer func() { end(err) }()

	features, err := s.features()
	if errors.Is(err, workspace.ErrNoSpecs) {
		return dashboard.NoSpecsMessage, nil
	}
	if err != nil {
		return "", err
	}
	if len(features) == 0 {
		return dashboard.NoFeaturesMessage, nil
	}
	return dashboard.RenderMarkdown(dashboard.Build(features, s.store), s.location), nil
}

// StatusRows returns the dashboard rows. A missing specs directory wraps
// workspace.ErrNoSpecs.
func (s *Service) StatusRows(_ context.Context) ([]dashboard.Row, error) {
	features, err := s.features()
	if err != nil {
		return nil, err
	}
	return dashboard.Build(features, s.store), nil
}

func (s *Service) features() ([]string, error) {
	features, err := s.store.ListFeatures()
	if err != nil {
		if errors.Is(err, workspace.ErrNoSpecs) {
			return nil, newError(KindNotFound, dashboard.NoSpecsMessage, err)
		}
		return nil, classify(err)
	}
	return features, nil
}

// Location returns the time zone used for timestamps.
func (s *Service) Location() *time.Location {
	return s.location
}

// Scaffold creates the files and directories listed in the design's
// file-structure block under the workspace root.
func (s *Service) Scaffold(ctx context.Context, feature string) (_ string, err error) {
	ctx, end := s.start(ctx, "scaffold_structure", feature)
	defer func() { end(err) }()

	if err := sanitize.ValidateFeatureName(feature); err != nil {
		return "", classify(err)
	}

	design, err := s.requireDocument(feature, workspace.Design,
		"Design phase incomplete. Run begin_design first.")
	if err != nil {
		return "", err
	}

	entries, err := scaffold.Parse(design)
	if errors.Is(err, scaffold.ErrNoBlock) {
		return NoStructureMessage, nil
	}
	if err != nil {
		return "", classify(err)
	}

	result, err := scaffold.Apply(s.store.Workspace().Root, entries)
	if err != nil {
		return "", classify(err)
	}

	s.logger.Info(ctx, "scaffolded structure",
		zap.Int("created", len(result.Created)),
		zap.Int("skipped", len(result.Skipped)))

	return result.Summary(), nil
}

// Review returns the review directive with every document of the feature
// and its progress.
func (s *Service) Review(ctx context.Context, feature string) (_ string, err error) {
	_, end := s.start(ctx, "review", feature)
	defer func() { end(err) }()

	if err := sanitize.ValidateFeatureName(feature); err != nil {
		return "", classify(err)
	}

	document, err := s.requireDocument(feature, workspace.Tasks,
		"Tasks phase not found. Cannot review a feature that hasn't been planned.")
	if err != nil {
		return "", err
	}

	directive, err := s.directives.Compose(directives.Review)
	if err != nil {
		return "", classify(err)
	}

	progress := tasks.Summarize(tasks.Parse(document))

	return directive + header(feature, "QA Review") +
		"\n**Progress**: " + progress.String() +
		"\n\n## Requirements\n" + s.contextSection(feature, workspace.Requirements) +
		"\n\n## Design\n" + s.contextSection(feature, workspace.Design) +
		"\n\n## Tasks Status\n" + document, nil
}

// Archive moves a feature out of the active specs.
func (s *Service) Archive(ctx context.Context, feature string) (_ string, err error) {
	ctx, end := s.start(ctx, "archive", feature)
	defer func() { end(err) }()

	if err := sanitize.ValidateFeatureName(feature); err != nil {
		return "", classify(err)
	}

	dest, err := s.store.Archive(feature)
	switch {
	case errors.Is(err, workspace.ErrFeatureNotFound):
		return "", newError(KindNotFound, fmt.Sprintf("Feature '%s' not found in active specs.", feature), err)
	case errors.Is(err, workspace.ErrAlreadyArchived):
		return "", newError(KindConflict, fmt.Sprintf("Feature '%s' is already archived.", feature), err)
	case err != nil:
		return "", classify(err)
	}

	rel := s.store.Workspace().Rel(dest)
	s.logger.Info(ctx, "feature archived", zap.String("path", rel))

	return fmt.Sprintf("Feature '%s' successfully archived to %s", feature, rel), nil
}

// GetTask returns the parsed task as indented JSON.
func (s *Service) GetTask(ctx context.Context, feature, taskID string) (_ string, err error) {
	_, end := s.start(ctx, "get_task", feature, attribute.String("task_id", taskID))
	defer func() { end(err) }()

	task, err := s.Task(feature, taskID)
	if err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(task, "", "  ")
	if err != nil {
		return "", classify(err)
	}
	return string(data), nil
}

// Task looks up one parsed task.
func (s *Service) Task(feature, taskID string) (*tasks.Task, error) {
	if err := sanitize.ValidateFeatureName(feature); err != nil {
		return nil, classify(err)
	}
	if !tasks.ValidID(taskID) {
		return nil, invalidTaskID(taskID)
	}

	document, err := s.requireDocument(feature, workspace.Tasks, "Tasks file not found")
	if err != nil {
		return nil, err
	}

	task, ok := tasks.Find(tasks.Parse(document), taskID)
	if !ok {
		return nil, newError(KindNotFound, fmt.Sprintf("Task %s not found", taskID), tasks.ErrTaskNotFound)
	}
	return task, nil
}

// Progress summarises the task list of a feature.
func (s *Service) Progress(feature string) (tasks.Progress, error) {
	if err := sanitize.ValidateFeatureName(feature); err != nil {
		return tasks.Progress{}, classify(err)
	}

	document, err := s.requireDocument(feature, workspace.Tasks, "Tasks file not found")
	if err != nil {
		return tasks.Progress{}, err
	}
	return tasks.Summarize(tasks.Parse(document)), nil
}

// SetTask validates and applies a status change, keeping the feature state
// in step with the task list.
func (s *Service) SetTask(ctx context.Context, feature, taskID, status string) (_ string, err error) {
	ctx, end := s.start(ctx, "set_task", feature,
		attribute.String("task_id", taskID),
		attribute.String("status", status))
	defer func() { end(err) }()

	if err := sanitize.ValidateFeatureName(feature); err != nil {
		return "", classify(err)
	}
	if !tasks.ValidID(taskID) {
		return "", invalidTaskID(taskID)
	}
	newStatus, err := tasks.ParseStatus(status)
	if err != nil {
		return "", classify(err)
	}

	document, err := s.requireDocument(feature, workspace.Tasks, "Tasks file not found")
	if err != nil {
		return "", err
	}

	if err := s.validator.Validate(tasks.Parse(document), taskID, newStatus); err != nil {
		return "", rejection(err)
	}

	if err := s.store.WriteDocument(feature, workspace.Tasks, tasks.SetStatus(document, taskID, newStatus)); err != nil {
		return "", classify(err)
	}

	state := s.loadState(ctx, feature, workspace.PhaseExecute)
	switch newStatus {
	case tasks.StatusDone:
		state.MarkCompleted(taskID)
		if state.CurrentTask == taskID {
			state.CurrentTask = ""
		}
	case tasks.StatusInProgress:
		state.Unmark(taskID)
		state.CurrentTask = taskID
	case tasks.StatusPending:
		state.Unmark(taskID)
		if state.CurrentTask == taskID {
			state.CurrentTask = ""
		}
	}

	if err := s.store.SaveState(feature, state); err != nil {
		return "", classify(err)
	}

	s.logger.Info(ctx, "task status changed",
		zap.String("task_id", taskID),
		zap.String("status", string(newStatus)))

	return fmt.Sprintf("Task %s marked as %s", taskID, newStatus), nil
}

// Vibe returns the quick-development directive. It touches no feature.
func (s *Service) Vibe(ctx context.Context) (_ string, err error) {
	_, end := s.start(ctx, "vibe", "")
	defer func() { end(err) }()

	directive, err := s.directives.Compose(directives.Vibe)
	if err != nil {
		return "", classify(err)
	}
	return directive + "\n\n**Mode**: Vibe Coding (Quick Development)", nil
}

// start opens the span of an operation and tags ctx for logging.
func (s *Service) start(ctx context.Context, op, feature string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	ctx = logging.WithFeature(ctx, feature)
	if feature != "" {
		attrs = append(attrs, attribute.String("feature", feature))
	}

	ctx, span := s.tracer.Start(ctx, "workflow."+op, trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			span.SetAttributes(attribute.String("error.kind", KindOf(err).String()))
		}
		span.End()
	}
}

// transition moves feature into phase, creating its state if needed.
func (s *Service) transition(ctx context.Context, feature string, phase workspace.Phase) error {
	state := s.loadState(ctx, feature, phase)
	state.Phase = phase
	if err := s.store.SaveState(feature, state); err != nil {
		return classify(err)
	}
	s.logger.Info(ctx, "phase entered", zap.String("phase", string(phase)))
	return nil
}

// loadState returns the saved state of feature, or a fresh one in phase
// when none can be read. Malformed files are replaced.
func (s *Service) loadState(ctx context.Context, feature string, phase workspace.Phase) *workspace.State {
	state, err := s.store.LoadState(feature)
	if err == nil {
		return state
	}
	if !errors.Is(err, workspace.ErrStateNotFound) {
		s.logger.Warn(ctx, "ignoring unreadable state", zap.Error(err))
	}
	return workspace.NewState(feature, phase)
}

// requireDocument reads doc, reporting a missing file as NotFound with msg.
func (s *Service) requireDocument(feature string, doc workspace.Document, msg string) (string, error) {
	content, err := s.store.ReadDocument(feature, doc)
	if errors.Is(err, workspace.ErrDocumentNotFound) {
		return "", newError(KindNotFound, msg, err)
	}
	if err != nil {
		return "", classify(err)
	}
	return content, nil
}

// contextSection reads an optional document, describing it inline when missing.
func (s *Service) contextSection(feature string, doc workspace.Document) string {
	content, err := s.store.ReadDocument(feature, doc)
	if err != nil {
		return fmt.Sprintf("_%s not found_", doc)
	}
	return content
}

func header(feature, phase string) string {
	return "\n\n**Feature**: " + feature + "\n**Phase**: " + phase
}

func invalidTaskID(id string) error {
	return newError(KindInvalidInput, fmt.Sprintf("invalid task ID %q (expected dotted numbers such as 2.1)", id), tasks.ErrInvalidID)
}

// rejection classifies a validator error. A missing task is NotFound;
// everything else is a failed precondition.
func rejection(err error) error {
	if errors.Is(err, tasks.ErrTaskNotFound) {
		return newError(KindNotFound, err.Error(), err)
	}
	return newError(KindPreconditionFailed, err.Error(), err)
}
