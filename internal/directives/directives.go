// Package directives loads the phase prompts returned by the workflow tools.
//
// Defaults are compiled into the binary. A directory of overrides may replace
// any of them file by file; names match the embedded files ("design.md").
package directives

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

//go:embed defaults/*.md
var defaults embed.FS

// Name identifies a directive or helper file.
type Name string

// Phase directives.
const (
	Spec    Name = "spec"
	Design  Name = "design"
	Task    Name = "task"
	Execute Name = "execute"
	Review  Name = "review"
	Vibe    Name = "vibe"
)

// Helper texts appended to every directive.
const (
	Identity Name = "identity"
	Diagrams Name = "workflow-diagrams"
)

// ErrUnknownDirective is returned for names with no embedded default.
var ErrUnknownDirective = errors.New("unknown directive")

// Loader resolves directives from an optional override directory, falling
// back to the embedded defaults.
type Loader struct {
	overrideDir string
}

// NewLoader creates a loader. An empty overrideDir uses the defaults only.
func NewLoader(overrideDir string) *Loader {
	return &Loader{overrideDir: overrideDir}
}

// Directive returns the text of name.
func (l *Loader) Directive(name Name) (string, error) {
	file := string(name) + ".md"

	if l.overrideDir != "" {
		data, err := os.ReadFile(filepath.Join(l.overrideDir, file))
		if err == nil {
			return string(data), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("failed to read directive override %s: %w", file, err)
		}
	}

	data, err := defaults.ReadFile("defaults/" + file)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrUnknownDirective, name)
	}
	return string(data), nil
}

// Helpers returns the identity and workflow diagram texts as one block,
// each preceded by a horizontal rule. A helper that cannot be read is left
// empty.
func (l *Loader) Helpers() string {
	identity, _ := l.Directive(Identity)
	diagrams, _ := l.Directive(Diagrams)
	return "\n\n---\n" + identity + "\n\n---\n" + diagrams
}

// Compose renders a phase directive followed by the helpers.
func (l *Loader) Compose(name Name) (string, error) {
	directive, err := l.Directive(name)
	if err != nil {
		return "", err
	}
	return directive + l.Helpers(), nil
}
