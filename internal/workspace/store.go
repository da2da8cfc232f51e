package workspace

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Store reads and writes feature documents and state under a Workspace.
// It performs no locking; concurrent writers to one feature race.
type Store struct {
	ws  Workspace
	now func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used to stamp saved state.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates a store for ws.
func NewStore(ws Workspace, opts ...Option) *Store {
	s := &Store{ws: ws, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Workspace returns the layout the store operates on.
func (s *Store) Workspace() Workspace {
	return s.ws
}

// HasDocument reports whether feature has doc on disk.
func (s *Store) HasDocument(feature string, doc Document) bool {
	info, err := os.Stat(s.ws.DocumentPath(feature, doc))
	return err == nil && !info.IsDir()
}

// ReadDocument returns the content of doc. A missing file wraps ErrDocumentNotFound.
func (s *Store) ReadDocument(feature string, doc Document) (string, error) {
	data, err := os.ReadFile(s.ws.DocumentPath(feature, doc))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s/%s", ErrDocumentNotFound, feature, doc)
		}
		return "", fmt.Errorf("failed to read %s: %w", doc, err)
	}
	return string(data), nil
}

// WriteDocument replaces doc with content, creating the feature directory if needed.
func (s *Store) WriteDocument(feature string, doc Document, content string) error {
	return writeAtomic(s.ws.DocumentPath(feature, doc), []byte(content))
}

// LoadState reads the state of feature. A missing file wraps ErrStateNotFound;
// a file that is not valid JSON or violates the state schema wraps
// ErrMalformedState.
func (s *Store) LoadState(feature string) (*State, error) {
	data, err := os.ReadFile(s.ws.StatePath(feature))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrStateNotFound, feature)
		}
		return nil, fmt.Errorf("failed to read state: %w", err)
	}
	return decodeState(data)
}

// SaveState stamps LastUpdated and writes state.
func (s *Store) SaveState(feature string, state *State) error {
	state.LastUpdated = s.now().UTC()
	if state.CompletedTasks == nil {
		state.CompletedTasks = []string{}
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	return writeAtomic(s.ws.StatePath(feature), data)
}

// SpecsExist reports whether the specs directory exists.
func (s *Store) SpecsExist() bool {
	info, err := os.Stat(s.ws.SpecsPath())
	return err == nil && info.IsDir()
}

// FeatureExists reports whether feature has an active directory.
func (s *Store) FeatureExists(feature string) bool {
	info, err := os.Stat(s.ws.FeatureDir(feature))
	return err == nil && info.IsDir()
}

// ListFeatures returns the active feature directories in name order.
// A missing specs directory wraps ErrNoSpecs.
func (s *Store) ListFeatures() ([]string, error) {
	entries, err := os.ReadDir(s.ws.SpecsPath())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNoSpecs
		}
		return nil, fmt.Errorf("failed to list features: %w", err)
	}

	features := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			features = append(features, e.Name())
		}
	}
	sort.Strings(features)
	return features, nil
}

// Archive moves feature into the archive directory and returns its new path.
func (s *Store) Archive(feature string) (string, error) {
	if !s.FeatureExists(feature) {
		return "", fmt.Errorf("%w: %s", ErrFeatureNotFound, feature)
	}

	if err := os.MkdirAll(s.ws.ArchivePath(), 0750); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	dest := s.ws.ArchivedFeatureDir(feature)
	if _, err := os.Stat(dest); err == nil {
		return "", fmt.Errorf("%w: %s", ErrAlreadyArchived, feature)
	}

	if err := os.Rename(s.ws.FeatureDir(feature), dest); err != nil {
		return "", fmt.Errorf("failed to archive %s: %w", feature, err)
	}

	return dest, nil
}

// writeAtomic writes data through a temp file and rename. An existing file
// keeps its permissions.
func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	perm := fs.FileMode(0600)
	if info, err := os.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, perm); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename %s: %w", filepath.Base(path), err)
	}

	return nil
}
