// Package scaffold creates files and directories from the file-structure
// block of a design document.
//
// A block looks like:
//
//	```file-structure
//	cmd/
//	├── server/
//	│   └── main.go      # entry point
//	└── tools.go
//	internal/store.go
//	```
//
// Tree drawing characters and indentation give nesting. A name ending in "/"
// is a directory, as is any name followed by deeper entries. Lines starting
// with "#" and trailing "# comments" are ignored.
package scaffold

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/fyrsmithlabs/kirod/internal/sanitize"
)

// Placeholder is written into every file the scaffolder creates.
const Placeholder = "// Scaffolding placeholder\n"

// ErrNoBlock is returned when a document has no file-structure block.
var ErrNoBlock = errors.New("no file-structure block")

var block = regexp.MustCompile("(?s)```file-structure[^\\n]*\\n(.*?)```")

// treePrefix is the run of indentation and tree drawing characters.
var treePrefix = regexp.MustCompile(`^[ \t│├└─|+` + "`" + `-]+`)

// Entry is one path from a file-structure block, relative to the workspace root.
type Entry struct {
	Path string
	Dir  bool
}

func (e Entry) String() string {
	if e.Dir {
		return "DIR: " + e.Path + "/"
	}
	return "FILE: " + e.Path
}

type line struct {
	depth int
	name  string
}

// Parse extracts the entries of the first file-structure block in document.
func Parse(document string) ([]Entry, error) {
	m := block.FindStringSubmatch(document)
	if m == nil {
		return nil, ErrNoBlock
	}

	var lines []line
	for _, raw := range strings.Split(m[1], "\n") {
		raw = strings.TrimRight(raw, "\r")
		if strings.TrimSpace(raw) == "" {
			continue
		}

		prefix := treePrefix.FindString(raw)
		name := stripComment(strings.TrimSpace(raw[len(prefix):]))
		if name == "" || strings.HasPrefix(name, "#") {
			continue
		}

		lines = append(lines, line{depth: width(prefix), name: name})
	}

	type frame struct {
		depth int
		dir   string
	}
	var stack []frame

	entries := make([]Entry, 0, len(lines))
	for i, l := range lines {
		for len(stack) > 0 && stack[len(stack)-1].depth >= l.depth {
			stack = stack[:len(stack)-1]
		}

		name := strings.TrimSuffix(l.name, "/")
		isDir := strings.HasSuffix(l.name, "/") || (i+1 < len(lines) && lines[i+1].depth > l.depth)

		p := name
		if len(stack) > 0 {
			p = path.Join(stack[len(stack)-1].dir, name)
		}
		p = path.Clean(p)

		entries = append(entries, Entry{Path: p, Dir: isDir})
		if isDir {
			stack = append(stack, frame{depth: l.depth, dir: p})
		}
	}

	return entries, nil
}

// Result lists what Apply did.
type Result struct {
	Created []Entry
	Skipped []Entry
}

// Apply creates entries under root. Every path is validated before anything
// is written, so an unsafe entry aborts the whole run. Existing files are
// never overwritten.
func Apply(root string, entries []Entry) (*Result, error) {
	resolved := make([]string, len(entries))
	for i, e := range entries {
		p, err := sanitize.ValidateRelativePath(e.Path, root)
		if err != nil {
			return nil, fmt.Errorf("unsafe scaffold path %q: %w", e.Path, err)
		}
		resolved[i] = p
	}

	res := &Result{}
	for i, e := range entries {
		p := resolved[i]

		if e.Dir {
			if info, err := os.Stat(p); err == nil && info.IsDir() {
				res.Skipped = append(res.Skipped, e)
				continue
			}
			if err := os.MkdirAll(p, 0750); err != nil {
				return res, fmt.Errorf("failed to create directory %s: %w", e.Path, err)
			}
			res.Created = append(res.Created, e)
			continue
		}

		if _, err := os.Stat(p); err == nil {
			res.Skipped = append(res.Skipped, e)
			continue
		}
		if err := os.MkdirAll(filepath.Dir(p), 0750); err != nil {
			return res, fmt.Errorf("failed to create directory for %s: %w", e.Path, err)
		}
		if err := os.WriteFile(p, []byte(Placeholder), 0600); err != nil {
			return res, fmt.Errorf("failed to create file %s: %w", e.Path, err)
		}
		res.Created = append(res.Created, e)
	}

	return res, nil
}

// Summary renders the result for a tool response.
func (r *Result) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Scaffolded %d items:", len(r.Created))
	for _, e := range r.Created {
		b.WriteString("\n" + e.String())
	}
	if len(r.Skipped) > 0 {
		fmt.Fprintf(&b, "\n\nSkipped %d existing items:", len(r.Skipped))
		for _, e := range r.Skipped {
			b.WriteString("\n" + e.String())
		}
	}
	return b.String()
}

// stripComment removes a trailing " # comment".
func stripComment(s string) string {
	if i := strings.Index(s, " #"); i >= 0 {
		s = s[:i]
	}
	if i := strings.Index(s, "\t#"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// width counts runes, with tabs as four columns.
func width(prefix string) int {
	n := 0
	for _, r := range prefix {
		if r == '\t' {
			n += 4
			continue
		}
		n++
	}
	return n
}
