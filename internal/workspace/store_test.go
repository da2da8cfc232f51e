package workspace

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedTime = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	ws, err := New(t.TempDir(), "", "")
	require.NoError(t, err)

	return NewStore(ws, WithClock(func() time.Time { return fixedTime }))
}

func writeRaw(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
}

func TestNew(t *testing.T) {
	_, err := New("", "", "")
	require.Error(t, err)

	root := t.TempDir()
	ws, err := New(root, "", "/var/archive")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, ".kiro", "specs"), ws.SpecsPath())
	assert.Equal(t, "/var/archive", ws.ArchivePath())
	assert.Equal(t, filepath.Join(root, ".kiro", "specs", "auth", "tasks.md"), ws.DocumentPath("auth", Tasks))
	assert.Equal(t, ".kiro/specs/auth/state.json", ws.Rel(ws.StatePath("auth")))
}

func TestStore_Documents(t *testing.T) {
	s := newTestStore(t)

	assert.False(t, s.HasDocument("auth", Requirements))

	_, err := s.ReadDocument("auth", Requirements)
	require.ErrorIs(t, err, ErrDocumentNotFound)

	require.NoError(t, s.WriteDocument("auth", Requirements, "# Requirements\n"))
	assert.True(t, s.HasDocument("auth", Requirements))
	assert.True(t, s.FeatureExists("auth"))

	content, err := s.ReadDocument("auth", Requirements)
	require.NoError(t, err)
	assert.Equal(t, "# Requirements\n", content)

	_, err = os.Stat(s.Workspace().DocumentPath("auth", Requirements) + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file must not be left behind")
}

func TestStore_WriteDocumentKeepsPermissions(t *testing.T) {
	s := newTestStore(t)
	path := s.Workspace().DocumentPath("auth", Tasks)
	writeRaw(t, path, "- [ ] 1. One\n")
	require.NoError(t, os.Chmod(path, 0644))

	require.NoError(t, s.WriteDocument("auth", Tasks, "- [x] 1. One\n"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), info.Mode().Perm())
}

func TestStore_StateRoundTrip(t *testing.T) {
	s := newTestStore(t)

	_, err := s.LoadState("auth")
	require.ErrorIs(t, err, ErrStateNotFound)

	state := NewState("auth", PhaseExecute)
	state.MarkCompleted("1.1")
	state.CurrentTask = "1.2"
	require.NoError(t, s.SaveState("auth", state))
	assert.Equal(t, fixedTime, state.LastUpdated)

	loaded, err := s.LoadState("auth")
	require.NoError(t, err)
	assert.Equal(t, state, loaded)

	raw, err := os.ReadFile(s.Workspace().StatePath("auth"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"last_updated": "2025-03-14T09:26:53Z"`)
	assert.Contains(t, string(raw), `"completed_tasks": [`)
}

func TestStore_LoadStateMalformed(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "not json", content: "{not json"},
		{name: "wrong phase", content: `{"feature":"auth","phase":"shipping","completed_tasks":[],"last_updated":"2025-01-01T00:00:00Z"}`},
		{name: "missing phase", content: `{"feature":"auth","completed_tasks":[],"last_updated":"2025-01-01T00:00:00Z"}`},
		{name: "completed tasks not strings", content: `{"feature":"auth","phase":"spec","completed_tasks":[1],"last_updated":"2025-01-01T00:00:00Z"}`},
		{name: "bad timestamp", content: `{"feature":"auth","phase":"spec","completed_tasks":[],"last_updated":"yesterday"}`},
		{name: "array", content: `[]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t)
			writeRaw(t, s.Workspace().StatePath("auth"), tt.content)

			_, err := s.LoadState("auth")
			require.ErrorIs(t, err, ErrMalformedState)
		})
	}
}

func TestStore_LoadStateAcceptsMillisecondTimestamps(t *testing.T) {
	s := newTestStore(t)
	writeRaw(t, s.Workspace().StatePath("auth"),
		`{"feature":"auth","phase":"task","completed_tasks":["1"],"last_updated":"2025-01-02T03:04:05.678Z"}`)

	state, err := s.LoadState("auth")
	require.NoError(t, err)
	assert.Equal(t, PhaseTask, state.Phase)
	assert.Equal(t, []string{"1"}, state.CompletedTasks)
	assert.Empty(t, state.CurrentTask)
}

func TestStore_ListFeatures(t *testing.T) {
	s := newTestStore(t)

	assert.False(t, s.SpecsExist())
	_, err := s.ListFeatures()
	require.ErrorIs(t, err, ErrNoSpecs)

	require.NoError(t, os.MkdirAll(s.Workspace().SpecsPath(), 0750))
	features, err := s.ListFeatures()
	require.NoError(t, err)
	assert.Empty(t, features)

	require.NoError(t, s.WriteDocument("zeta", Requirements, "z"))
	require.NoError(t, s.WriteDocument("alpha", Requirements, "a"))
	writeRaw(t, filepath.Join(s.Workspace().SpecsPath(), "notes.txt"), "not a feature")

	features, err = s.ListFeatures()
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "zeta"}, features)
}

func TestStore_Archive(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Archive("auth")
	require.ErrorIs(t, err, ErrFeatureNotFound)

	require.NoError(t, s.WriteDocument("auth", Tasks, "- [x] 1. Done\n"))

	dest, err := s.Archive("auth")
	require.NoError(t, err)
	assert.Equal(t, s.Workspace().ArchivedFeatureDir("auth"), dest)
	assert.False(t, s.FeatureExists("auth"))
	assert.FileExists(t, filepath.Join(dest, "tasks.md"))

	// Recreate and archive again: the archive slot is taken.
	require.NoError(t, s.WriteDocument("auth", Tasks, "- [ ] 1. Again\n"))
	_, err = s.Archive("auth")
	require.ErrorIs(t, err, ErrAlreadyArchived)
	assert.True(t, s.FeatureExists("auth"))
}
