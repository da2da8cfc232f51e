// Package workspace manages the on-disk layout of feature specs.
//
// Directory structure:
//
//	<root>/
//	└── .kiro/
//	    ├── specs/
//	    │   └── {feature}/
//	    │       ├── requirements.md
//	    │       ├── design.md
//	    │       ├── tasks.md
//	    │       └── state.json
//	    └── archive/
//	        └── {feature}/             ← moved here by Archive
//
// Every path is resolved from an explicit Workspace value; nothing depends on
// the process working directory.
package workspace

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/fyrsmithlabs/kirod/internal/sanitize"
)

// Default directories, relative to the workspace root.
const (
	DefaultSpecsDir   = ".kiro/specs"
	DefaultArchiveDir = ".kiro/archive"
)

// Errors for workspace operations.
var (
	ErrFeatureNotFound  = errors.New("feature not found")
	ErrDocumentNotFound = errors.New("document not found")
	ErrAlreadyArchived  = errors.New("feature already archived")
	ErrStateNotFound    = errors.New("state not found")
	ErrMalformedState   = errors.New("malformed state file")
	ErrNoSpecs          = errors.New("specs directory not found")
)

// Document names a phase file inside a feature directory.
type Document string

// Phase documents.
const (
	Requirements Document = "requirements.md"
	Design       Document = "design.md"
	Tasks        Document = "tasks.md"
)

// StateFile is the per-feature state record.
const StateFile = "state.json"

// Workspace carries the base directories every operation works against.
type Workspace struct {
	// Root is the absolute project root.
	Root string

	// SpecsDir holds active features. Relative values are joined to Root.
	SpecsDir string

	// ArchiveDir receives archived features. Relative values are joined to Root.
	ArchiveDir string
}

// New returns a Workspace rooted at root. Empty directory arguments fall back
// to the defaults.
func New(root, specsDir, archiveDir string) (Workspace, error) {
	if root == "" {
		return Workspace{}, fmt.Errorf("workspace root: %w", sanitize.ErrEmptyPath)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return Workspace{}, fmt.Errorf("failed to resolve workspace root: %w", err)
	}

	if specsDir == "" {
		specsDir = DefaultSpecsDir
	}
	if archiveDir == "" {
		archiveDir = DefaultArchiveDir
	}

	return Workspace{Root: absRoot, SpecsDir: specsDir, ArchiveDir: archiveDir}, nil
}

// SpecsPath returns the absolute specs directory.
func (w Workspace) SpecsPath() string {
	return w.resolve(w.SpecsDir)
}

// ArchivePath returns the absolute archive directory.
func (w Workspace) ArchivePath() string {
	return w.resolve(w.ArchiveDir)
}

// FeatureDir returns the directory of an active feature.
func (w Workspace) FeatureDir(feature string) string {
	return filepath.Join(w.SpecsPath(), feature)
}

// ArchivedFeatureDir returns where feature lives once archived.
func (w Workspace) ArchivedFeatureDir(feature string) string {
	return filepath.Join(w.ArchivePath(), feature)
}

// DocumentPath returns the path of a phase document of feature.
func (w Workspace) DocumentPath(feature string, doc Document) string {
	return filepath.Join(w.FeatureDir(feature), string(doc))
}

// StatePath returns the path of the state record of feature.
func (w Workspace) StatePath(feature string) string {
	return filepath.Join(w.FeatureDir(feature), StateFile)
}

// Rel renders path relative to the root when possible, for user-facing messages.
func (w Workspace) Rel(path string) string {
	if rel, err := filepath.Rel(w.Root, path); err == nil {
		return filepath.ToSlash(rel)
	}
	return path
}

func (w Workspace) resolve(dir string) string {
	if filepath.IsAbs(dir) {
		return filepath.Clean(dir)
	}
	return filepath.Join(w.Root, dir)
}
