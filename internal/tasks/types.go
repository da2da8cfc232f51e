package tasks

import (
	"errors"
	"fmt"
	"strings"
)

// Status is the lifecycle state of a task.
type Status string

const (
	// StatusPending marks a task that has not been started ("[ ]").
	StatusPending Status = "pending"
	// StatusInProgress marks a task being worked on ("[-]").
	StatusInProgress Status = "in_progress"
	// StatusDone marks a finished task ("[x]").
	StatusDone Status = "done"
)

// Common errors.
var (
	ErrInvalidStatus = errors.New("invalid task status")
	ErrInvalidID     = errors.New("invalid task ID")
)

// ParseStatus converts a status name into a Status.
func ParseStatus(s string) (Status, error) {
	switch Status(strings.TrimSpace(strings.ToLower(s))) {
	case StatusPending:
		return StatusPending, nil
	case StatusInProgress:
		return StatusInProgress, nil
	case StatusDone:
		return StatusDone, nil
	}
	return "", fmt.Errorf("%w: %q (expected pending, in_progress or done)", ErrInvalidStatus, s)
}

// Marker returns the checkbox character for the status.
func (s Status) Marker() byte {
	switch s {
	case StatusDone:
		return 'x'
	case StatusInProgress:
		return '-'
	default:
		return ' '
	}
}

// statusFromMarker is the inverse of Status.Marker.
func statusFromMarker(c byte) Status {
	switch c {
	case 'x':
		return StatusDone
	case '-':
		return StatusInProgress
	default:
		return StatusPending
	}
}

// Task is one parsed checklist line.
type Task struct {
	// ID is the dotted numeric identifier, e.g. "1.2.3".
	ID string `json:"id"`

	// Status is derived from the checkbox marker.
	Status Status `json:"status"`

	// Content is the line text without the requirement annotation.
	Content string `json:"content"`

	// Subtasks lists the IDs of direct children in document order.
	Subtasks []string `json:"subtasks"`

	// Requirements lists the task IDs named by the annotation.
	Requirements []string `json:"requirements"`

	// ParentID is the ID with its last segment removed; empty for top-level tasks.
	ParentID string `json:"parentId,omitempty"`
}

// IsSubtask reports whether the task has a parent segment.
func (t *Task) IsSubtask() bool {
	return t.ParentID != ""
}

// Find returns the first task with the given ID.
func Find(tasks []Task, id string) (*Task, bool) {
	for i := range tasks {
		if tasks[i].ID == id {
			return &tasks[i], true
		}
	}
	return nil, false
}

// ValidID reports whether id follows the dotted-decimal grammar.
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}

// parentOf returns everything before the final ".segment" of id.
func parentOf(id string) string {
	if i := strings.LastIndexByte(id, '.'); i >= 0 {
		return id[:i]
	}
	return ""
}
