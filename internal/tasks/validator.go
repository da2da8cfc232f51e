package tasks

import (
	"errors"
	"fmt"
	"strings"
)

// Rejection reasons. A *RejectionError wraps exactly one of them.
var (
	ErrTaskNotFound      = errors.New("task not found")
	ErrOutOfSequence     = errors.New("previous task incomplete")
	ErrRequirementsUnmet = errors.New("requirements not met")
	ErrParentIncomplete  = errors.New("parent task incomplete")
)

// RejectionError explains why a status transition was refused.
type RejectionError struct {
	// TaskID is the task whose transition was refused.
	TaskID string

	// Blocking lists the task IDs that must be done first.
	Blocking []string

	reason error
}

func (e *RejectionError) Error() string {
	switch {
	case errors.Is(e.reason, ErrTaskNotFound):
		return fmt.Sprintf("task %s not found", e.TaskID)
	case errors.Is(e.reason, ErrOutOfSequence):
		return fmt.Sprintf("cannot start %s - previous task %s incomplete", e.TaskID, strings.Join(e.Blocking, ", "))
	case errors.Is(e.reason, ErrRequirementsUnmet):
		return fmt.Sprintf("cannot start %s - requirements not met: %s", e.TaskID, strings.Join(e.Blocking, ", "))
	case errors.Is(e.reason, ErrParentIncomplete):
		return fmt.Sprintf("cannot complete %s - parent task %s incomplete", e.TaskID, strings.Join(e.Blocking, ", "))
	}
	return fmt.Sprintf("task %s: %v", e.TaskID, e.reason)
}

func (e *RejectionError) Unwrap() error {
	return e.reason
}

// Validator decides whether a task may move to a new status.
// The zero value applies the sibling-order and requirement rules only.
type Validator struct {
	// ParentCompletionGate refuses to mark a subtask done while its parent
	// is not done. Children normally finish before their parents, so this
	// rule stays off unless a workflow explicitly asks for it.
	ParentCompletionGate bool
}

// Validate checks a transition with the default Validator.
func Validate(tasks []Task, taskID string, newStatus Status) error {
	return Validator{}.Validate(tasks, taskID, newStatus)
}

// Validate returns nil when taskID may move to newStatus, or a
// *RejectionError naming the blocking tasks. Moving a task back to pending
// is always allowed.
func (v Validator) Validate(tasks []Task, taskID string, newStatus Status) error {
	task, ok := Find(tasks, taskID)
	if !ok {
		return &RejectionError{TaskID: taskID, reason: ErrTaskNotFound}
	}

	if v.ParentCompletionGate && task.ParentID != "" && newStatus == StatusDone {
		if parent, ok := Find(tasks, task.ParentID); ok && parent.Status != StatusDone {
			return &RejectionError{TaskID: taskID, Blocking: []string{parent.ID}, reason: ErrParentIncomplete}
		}
	}

	if newStatus == StatusPending {
		return nil
	}

	if prev, ok := previousSibling(tasks, task); ok && prev.Status != StatusDone {
		return &RejectionError{TaskID: taskID, Blocking: []string{prev.ID}, reason: ErrOutOfSequence}
	}

	if unmet := unmetRequirements(tasks, task); len(unmet) > 0 {
		return &RejectionError{TaskID: taskID, Blocking: unmet, reason: ErrRequirementsUnmet}
	}

	return nil
}

// Siblings returns every task sharing the parent of task, in document order.
// Top-level tasks are siblings of each other.
func Siblings(tasks []Task, task *Task) []Task {
	var siblings []Task
	for _, t := range tasks {
		if t.ParentID == task.ParentID {
			siblings = append(siblings, t)
		}
	}
	return siblings
}

// previousSibling returns the sibling immediately before task, if any.
func previousSibling(tasks []Task, task *Task) (Task, bool) {
	siblings := Siblings(tasks, task)
	for i, s := range siblings {
		if s.ID == task.ID {
			if i == 0 {
				return Task{}, false
			}
			return siblings[i-1], true
		}
	}
	return Task{}, false
}

// unmetRequirements lists the requirement IDs of task that no done task satisfies.
func unmetRequirements(tasks []Task, task *Task) []string {
	var unmet []string
	for _, req := range task.Requirements {
		satisfied := false
		for _, t := range tasks {
			if t.ID == req && t.Status == StatusDone {
				satisfied = true
				break
			}
		}
		if !satisfied {
			unmet = append(unmet, req)
		}
	}
	return unmet
}
