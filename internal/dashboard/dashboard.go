// Package dashboard builds the feature status overview.
//
// Build is a pure function of a feature list and a Source, so callers decide
// where features come from and tests need no filesystem.
package dashboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/fyrsmithlabs/kirod/internal/tasks"
	"github.com/fyrsmithlabs/kirod/internal/workspace"
)

// Messages for the empty cases.
const (
	NoSpecsMessage    = "No Kiro specs found. Start a feature with 'begin_requirements'."
	NoFeaturesMessage = "No active features found."
)

// TimeLayout formats the last-updated column.
const TimeLayout = "2006-01-02 15:04:05 MST"

// Source looks up the persisted data of a feature. *workspace.Store
// satisfies it.
type Source interface {
	LoadState(feature string) (*workspace.State, error)
	ReadDocument(feature string, doc workspace.Document) (string, error)
}

// Row is one feature in the overview.
type Row struct {
	Feature     string
	Phase       workspace.Phase
	CurrentTask string

	// Progress is set only in the task and execute phases when a task
	// list exists.
	Progress *tasks.Progress

	LastUpdated time.Time
}

// Build returns one row per feature that has a readable state, in the
// order given. Features without state, or with a malformed state file, are
// left out.
func Build(features []string, src Source) []Row {
	rows := make([]Row, 0, len(features))
	for _, feature := range features {
		state, err := src.LoadState(feature)
		if err != nil || state == nil {
			continue
		}

		row := Row{
			Feature:     feature,
			Phase:       state.Phase,
			CurrentTask: state.CurrentTask,
			LastUpdated: state.LastUpdated,
		}

		if state.Phase == workspace.PhaseTask || state.Phase == workspace.PhaseExecute {
			if doc, err := src.ReadDocument(feature, workspace.Tasks); err == nil {
				p := tasks.Summarize(tasks.Parse(doc))
				row.Progress = &p
			}
		}

		rows = append(rows, row)
	}
	return rows
}

// ProgressText renders the progress column, "-" when there is none.
func (r Row) ProgressText() string {
	if r.Progress == nil {
		return "-"
	}
	return r.Progress.String()
}

// CurrentTaskText renders the current task column, "-" when there is none.
func (r Row) CurrentTaskText() string {
	if r.CurrentTask == "" {
		return "-"
	}
	return r.CurrentTask
}

// LastUpdatedText renders the timestamp in loc. A nil loc means UTC.
func (r Row) LastUpdatedText(loc *time.Location) string {
	if r.LastUpdated.IsZero() {
		return "-"
	}
	if loc == nil {
		loc = time.UTC
	}
	return r.LastUpdated.In(loc).Format(TimeLayout)
}

// RenderMarkdown renders rows as a markdown table. With no rows only the
// heading and column headers are written; callers report an empty specs
// directory with NoFeaturesMessage instead.
func RenderMarkdown(rows []Row, loc *time.Location) string {
	var b strings.Builder
	b.WriteString("# Kiro Feature Status\n\n")
	b.WriteString("| Feature | Phase | Current Task | Progress | Last Updated |\n")
	b.WriteString("| :--- | :--- | :--- | :--- | :--- |\n")
	for _, r := range rows {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
			r.Feature, r.Phase, r.CurrentTaskText(), r.ProgressText(), r.LastUpdatedText(loc))
	}
	return b.String()
}
