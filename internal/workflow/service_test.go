package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/kirod/internal/directives"
	"github.com/fyrsmithlabs/kirod/internal/logging"
	"github.com/fyrsmithlabs/kirod/internal/scaffold"
	"github.com/fyrsmithlabs/kirod/internal/tasks"
	"github.com/fyrsmithlabs/kirod/internal/telemetry"
	"github.com/fyrsmithlabs/kirod/internal/workspace"
)

var fixedTime = time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)

const taskList = `# Tasks

- [ ] 1. Set up
  - [ ] 1.1. Create module
  - [ ] 1.2. Add config
- [ ] 2. Build parser _Requirements: 1.2_
`

type fixture struct {
	svc    *Service
	store  *workspace.Store
	root   string
	logger *logging.TestLogger
	tel    *telemetry.TestTelemetry
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	root := t.TempDir()
	ws, err := workspace.New(root, "", "")
	require.NoError(t, err)

	store := workspace.NewStore(ws, workspace.WithClock(func() time.Time { return fixedTime }))
	logger := logging.NewTestLogger()
	tel := telemetry.NewTestTelemetry()

	opts = append([]Option{
		WithLogger(logger.Logger),
		WithTracerProvider(tel.TracerProvider()),
		WithLocation(time.UTC),
	}, opts...)

	return &fixture{
		svc:    New(store, directives.NewLoader(""), opts...),
		store:  store,
		root:   root,
		logger: logger,
		tel:    tel,
	}
}

func (f *fixture) write(t *testing.T, feature string, doc workspace.Document, content string) {
	t.Helper()
	require.NoError(t, f.store.WriteDocument(feature, doc, content))
}

func (f *fixture) state(t *testing.T, feature string) *workspace.State {
	t.Helper()
	state, err := f.store.LoadState(feature)
	require.NoError(t, err)
	return state
}

func requireKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, KindOf(err), "error: %v", err)
}

func TestBeginRequirements(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	out, err := f.svc.BeginRequirements(ctx, "auth")
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(out, "\n\n**Feature**: auth\n**Phase**: Requirements Gathering"))
	assert.Contains(t, out, "\n\n---\n")

	state := f.state(t, "auth")
	assert.Equal(t, workspace.PhaseSpec, state.Phase)
	assert.Equal(t, fixedTime, state.LastUpdated)
	assert.Empty(t, state.CompletedTasks)

	f.logger.AssertLogged(t, zapcore.InfoLevel, "phase entered")
	f.tel.AssertSpanAttribute(t, "workflow.begin_requirements", "feature", "auth")
}

func TestBeginRequirements_KeepsProgress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	state := workspace.NewState("auth", workspace.PhaseExecute)
	state.MarkCompleted("1")
	require.NoError(t, f.store.SaveState("auth", state))

	_, err := f.svc.BeginRequirements(ctx, "auth")
	require.NoError(t, err)

	got := f.state(t, "auth")
	assert.Equal(t, workspace.PhaseSpec, got.Phase)
	assert.Equal(t, []string{"1"}, got.CompletedTasks)
}

func TestBeginRequirements_InvalidFeature(t *testing.T) {
	f := newFixture(t)

	for _, name := range []string{"", "../escape", "a/b", ".hidden"} {
		_, err := f.svc.BeginRequirements(context.Background(), name)
		requireKind(t, err, KindInvalidInput)
	}

	_, err := os.Stat(filepath.Join(f.root, ".kiro"))
	assert.True(t, os.IsNotExist(err))
}

func TestBeginDesign(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.BeginDesign(ctx, "auth")
	requireKind(t, err, KindNotFound)
	assert.Equal(t, "Requirements phase incomplete. Run begin_requirements first.", err.Error())

	f.write(t, "auth", workspace.Requirements, "# Requirements\nLogin works.")

	out, err := f.svc.BeginDesign(ctx, "auth")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(out, "**Feature**: auth\n**Phase**: Design\n\n## Requirements Context\n# Requirements\nLogin works."))
	assert.Equal(t, workspace.PhaseDesign, f.state(t, "auth").Phase)
}

func TestBeginTaskPlanning(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.BeginTaskPlanning(ctx, "auth")
	requireKind(t, err, KindNotFound)
	assert.Contains(t, err.Error(), "Run begin_design first")

	f.write(t, "auth", workspace.Design, "# Design")

	out, err := f.svc.BeginTaskPlanning(ctx, "auth")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(out, "**Phase**: Task Planning\n\n## Design Context\n# Design"))
	assert.Equal(t, workspace.PhaseTask, f.state(t, "auth").Phase)
}

func TestBeginExecution(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.BeginExecution(ctx, "auth", "")
	requireKind(t, err, KindNotFound)
	assert.Contains(t, err.Error(), "Run begin_task_planning first")

	f.write(t, "auth", workspace.Tasks, taskList)
	f.write(t, "auth", workspace.Requirements, "REQ")

	out, err := f.svc.BeginExecution(ctx, "auth", "")
	require.NoError(t, err)
	assert.Contains(t, out, "**Phase**: Execute\n\n## Requirements\nREQ\n\n## Design\n_design.md not found_\n\n## Tasks\n"+taskList)

	state := f.state(t, "auth")
	assert.Equal(t, workspace.PhaseExecute, state.Phase)
	assert.Empty(t, state.CurrentTask)
}

func TestBeginExecution_WithTask(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.write(t, "auth", workspace.Tasks, taskList)

	out, err := f.svc.BeginExecution(ctx, "auth", "1.1")
	require.NoError(t, err)
	assert.Contains(t, out, "**Phase**: Execute - Task 1.1")
	assert.Contains(t, out, "  - [-] 1.1. Create module")

	doc, err := f.store.ReadDocument("auth", workspace.Tasks)
	require.NoError(t, err)
	task, ok := tasks.Find(tasks.Parse(doc), "1.1")
	require.True(t, ok)
	assert.Equal(t, tasks.StatusInProgress, task.Status)
	assert.Equal(t, "1.1", f.state(t, "auth").CurrentTask)
}

func TestBeginExecution_RejectedLeavesFilesUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.write(t, "auth", workspace.Tasks, taskList)

	_, err := f.svc.BeginExecution(ctx, "auth", "1.2")
	requireKind(t, err, KindPreconditionFailed)
	assert.Equal(t, "cannot start 1.2 - previous task 1.1 incomplete", err.Error())

	doc, err := f.store.ReadDocument("auth", workspace.Tasks)
	require.NoError(t, err)
	assert.Equal(t, taskList, doc)

	_, err = f.store.LoadState("auth")
	assert.ErrorIs(t, err, workspace.ErrStateNotFound)

	_, err = f.svc.BeginExecution(ctx, "auth", "9")
	requireKind(t, err, KindNotFound)

	_, err = f.svc.BeginExecution(ctx, "auth", "1.x")
	requireKind(t, err, KindInvalidInput)
}

const statusHeader = "# Kiro Feature Status\n\n" +
	"| Feature | Phase | Current Task | Progress | Last Updated |\n" +
	"| :--- | :--- | :--- | :--- | :--- |\n"

func TestStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	out, err := f.svc.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, "No Kiro specs found. Start a feature with 'begin_requirements'.", out)

	require.NoError(t, os.MkdirAll(f.store.Workspace().SpecsPath(), 0750))
	out, err = f.svc.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, "No active features found.", out)

	// A feature directory without state still yields the table, empty.
	require.NoError(t, os.MkdirAll(f.store.Workspace().FeatureDir("stateless"), 0750))
	out, err = f.svc.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, statusHeader, out)

	f.write(t, "auth", workspace.Tasks, taskList)
	_, err = f.svc.BeginExecution(ctx, "auth", "1.1")
	require.NoError(t, err)
	_, err = f.svc.BeginRequirements(ctx, "billing")
	require.NoError(t, err)

	out, err = f.svc.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, statusHeader+
		"| auth | execute | 1.1 | 0/4 (0%) | 2025-06-01 12:30:00 UTC |\n"+
		"| billing | spec | - | - | 2025-06-01 12:30:00 UTC |\n", out)
}

func TestStatus_MalformedStateSkipped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	path := f.store.Workspace().StatePath("broken")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0750))
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	out, err := f.svc.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, statusHeader, out)
}

func TestMalformedStateIsReplaced(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	path := f.store.Workspace().StatePath("auth")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0750))
	require.NoError(t, os.WriteFile(path, []byte(`{"feature":"auth","phase":"shipping"}`), 0600))

	_, err := f.svc.BeginRequirements(ctx, "auth")
	require.NoError(t, err)

	assert.Equal(t, workspace.PhaseSpec, f.state(t, "auth").Phase)
	f.logger.AssertLogged(t, zapcore.WarnLevel, "ignoring unreadable state")
}

func TestScaffold(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Scaffold(ctx, "auth")
	requireKind(t, err, KindNotFound)

	f.write(t, "auth", workspace.Design, "# Design\nNo tree here.")
	out, err := f.svc.Scaffold(ctx, "auth")
	require.NoError(t, err)
	assert.Equal(t, NoStructureMessage, out)

	f.write(t, "auth", workspace.Design, "```file-structure\nsrc/\n  main.go\n```\n")
	out, err = f.svc.Scaffold(ctx, "auth")
	require.NoError(t, err)
	assert.Equal(t, "Scaffolded 2 items:\nDIR: src/\nFILE: src/main.go", out)

	data, err := os.ReadFile(filepath.Join(f.root, "src", "main.go"))
	require.NoError(t, err)
	assert.Equal(t, scaffold.Placeholder, string(data))
}

func TestScaffold_RejectsEscapingPaths(t *testing.T) {
	f := newFixture(t)
	f.write(t, "auth", workspace.Design, "```file-structure\nok.txt\n../outside.txt\n```\n")

	_, err := f.svc.Scaffold(context.Background(), "auth")
	requireKind(t, err, KindInvalidInput)

	_, statErr := os.Stat(filepath.Join(f.root, "ok.txt"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestReview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Review(ctx, "auth")
	requireKind(t, err, KindNotFound)
	assert.Equal(t, "Tasks phase not found. Cannot review a feature that hasn't been planned.", err.Error())

	f.write(t, "auth", workspace.Tasks, strings.Replace(taskList, "- [ ] 1.1.", "- [x] 1.1.", 1))
	f.write(t, "auth", workspace.Design, "DESIGN")

	out, err := f.svc.Review(ctx, "auth")
	require.NoError(t, err)
	assert.Contains(t, out, "**Feature**: auth\n**Phase**: QA Review\n**Progress**: 1/4 (25%)")
	assert.Contains(t, out, "## Requirements\n_requirements.md not found_")
	assert.Contains(t, out, "## Design\nDESIGN")
	assert.Contains(t, out, "## Tasks Status\n# Tasks")
}

func TestArchive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Archive(ctx, "auth")
	requireKind(t, err, KindNotFound)
	assert.Equal(t, "Feature 'auth' not found in active specs.", err.Error())

	_, err = f.svc.BeginRequirements(ctx, "auth")
	require.NoError(t, err)

	out, err := f.svc.Archive(ctx, "auth")
	require.NoError(t, err)
	assert.Equal(t, "Feature 'auth' successfully archived to .kiro/archive/auth", out)
	assert.False(t, f.store.FeatureExists("auth"))

	_, err = f.svc.BeginRequirements(ctx, "auth")
	require.NoError(t, err)

	_, err = f.svc.Archive(ctx, "auth")
	requireKind(t, err, KindConflict)
	assert.Equal(t, "Feature 'auth' is already archived.", err.Error())
	assert.True(t, f.store.FeatureExists("auth"))
}

func TestGetTask(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.GetTask(ctx, "auth", "1")
	requireKind(t, err, KindNotFound)
	assert.Equal(t, "Tasks file not found", err.Error())

	f.write(t, "auth", workspace.Tasks, taskList)

	out, err := f.svc.GetTask(ctx, "auth", "2")
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "2", got["id"])
	assert.Equal(t, "pending", got["status"])
	assert.Equal(t, "Build parser", got["content"])
	assert.Equal(t, []interface{}{"1.2"}, got["requirements"])
	assert.NotContains(t, got, "parentId")

	out, err = f.svc.GetTask(ctx, "auth", "1.1")
	require.NoError(t, err)
	assert.Contains(t, out, `"parentId": "1"`)

	_, err = f.svc.GetTask(ctx, "auth", "7")
	requireKind(t, err, KindNotFound)
	assert.Equal(t, "Task 7 not found", err.Error())
}

func TestSetTask_Lifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.write(t, "auth", workspace.Tasks, taskList)

	out, err := f.svc.SetTask(ctx, "auth", "1.1", "in_progress")
	require.NoError(t, err)
	assert.Equal(t, "Task 1.1 marked as in_progress", out)
	assert.Equal(t, "1.1", f.state(t, "auth").CurrentTask)
	assert.Equal(t, workspace.PhaseExecute, f.state(t, "auth").Phase)

	_, err = f.svc.SetTask(ctx, "auth", "1.1", "done")
	require.NoError(t, err)
	state := f.state(t, "auth")
	assert.Equal(t, []string{"1.1"}, state.CompletedTasks)
	assert.Empty(t, state.CurrentTask)

	_, err = f.svc.SetTask(ctx, "auth", "1.1", "pending")
	require.NoError(t, err)
	assert.Empty(t, f.state(t, "auth").CompletedTasks)

	progress, err := f.svc.Progress("auth")
	require.NoError(t, err)
	assert.Equal(t, tasks.Progress{Total: 4, Pending: 4}, progress)
}

func TestSetTask_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.write(t, "auth", workspace.Tasks, taskList)

	tests := []struct {
		name   string
		taskID string
		status string
		kind   Kind
		msg    string
	}{
		{"out of order", "1.2", "in_progress", KindPreconditionFailed, "cannot start 1.2 - previous task 1.1 incomplete"},
		{"previous top-level task", "2", "done", KindPreconditionFailed, "cannot start 2 - previous task 1 incomplete"},
		{"missing task", "5", "done", KindNotFound, "task 5 not found"},
		{"bad status", "1", "blocked", KindInvalidInput, ""},
		{"bad id", "one", "done", KindInvalidInput, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.SetTask(ctx, "auth", tt.taskID, tt.status)
			requireKind(t, err, tt.kind)
			if tt.msg != "" {
				assert.Equal(t, tt.msg, err.Error())
			}
		})
	}

	doc, err := f.store.ReadDocument("auth", workspace.Tasks)
	require.NoError(t, err)
	assert.Equal(t, taskList, doc)
}

func TestSetTask_ParentCompletionGate(t *testing.T) {
	f := newFixture(t, WithParentCompletionGate(true))
	ctx := context.Background()
	f.write(t, "auth", workspace.Tasks, taskList)

	_, err := f.svc.SetTask(ctx, "auth", "1.1", "done")
	requireKind(t, err, KindPreconditionFailed)
	assert.Equal(t, "cannot complete 1.1 - parent task 1 incomplete", err.Error())
}

func TestVibe(t *testing.T) {
	f := newFixture(t)

	out, err := f.svc.Vibe(context.Background())
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(out, "\n\n**Mode**: Vibe Coding (Quick Development)"))

	_, err = os.Stat(filepath.Join(f.root, ".kiro"))
	assert.True(t, os.IsNotExist(err))
}

func TestDirectiveOverride(t *testing.T) {
	overrides := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(overrides, "spec.md"), []byte("CUSTOM SPEC"), 0600))

	f := newFixture(t)
	f.svc.directives = directives.NewLoader(overrides)

	out, err := f.svc.BeginRequirements(context.Background(), "auth")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "CUSTOM SPEC\n\n---\n"))
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
	}{
		{workspace.ErrFeatureNotFound, KindNotFound},
		{workspace.ErrAlreadyArchived, KindConflict},
		{workspace.ErrMalformedState, KindMalformedState},
		{tasks.ErrRequirementsUnmet, KindPreconditionFailed},
		{tasks.ErrInvalidStatus, KindInvalidInput},
		{errors.New("disk on fire"), KindInternal},
		{&Error{Kind: KindConflict, Msg: "x"}, KindConflict},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, KindOf(tt.err), "%v", tt.err)
	}

	assert.Equal(t, "precondition_failed", KindPreconditionFailed.String())
	assert.Equal(t, "internal", KindInternal.String())
}

func TestErrorSpans(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Archive(context.Background(), "ghost")
	require.Error(t, err)

	f.tel.AssertSpanAttribute(t, "workflow.archive", "error.kind", "not_found")
}
