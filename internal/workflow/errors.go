package workflow

import (
	"errors"

	"github.com/fyrsmithlabs/kirod/internal/sanitize"
	"github.com/fyrsmithlabs/kirod/internal/tasks"
	"github.com/fyrsmithlabs/kirod/internal/workspace"
)

// Kind classifies a workflow failure.
type Kind int

const (
	// KindInternal covers I/O failures and anything unclassified.
	KindInternal Kind = iota
	// KindNotFound is a missing phase file, feature or task.
	KindNotFound
	// KindPreconditionFailed is a refused transition.
	KindPreconditionFailed
	// KindConflict is a feature that is already archived.
	KindConflict
	// KindMalformedState is a state file that cannot be decoded.
	KindMalformedState
	// KindInvalidInput is a bad feature name, task ID or status.
	KindInvalidInput
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindPreconditionFailed:
		return "precondition_failed"
	case KindConflict:
		return "conflict"
	case KindMalformedState:
		return "malformed_state"
	case KindInvalidInput:
		return "invalid_input"
	default:
		return "internal"
	}
}

// Error is returned by every Service operation. Msg is safe to show to
// the caller.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf returns the Kind of err, classifying plain errors by their
// sentinel.
func KindOf(err error) Kind {
	var we *Error
	if errors.As(err, &we) {
		return we.Kind
	}

	switch {
	case errors.Is(err, workspace.ErrFeatureNotFound),
		errors.Is(err, workspace.ErrDocumentNotFound),
		errors.Is(err, workspace.ErrStateNotFound),
		errors.Is(err, tasks.ErrTaskNotFound):
		return KindNotFound
	case errors.Is(err, tasks.ErrOutOfSequence),
		errors.Is(err, tasks.ErrRequirementsUnmet),
		errors.Is(err, tasks.ErrParentIncomplete):
		return KindPreconditionFailed
	case errors.Is(err, workspace.ErrAlreadyArchived):
		return KindConflict
	case errors.Is(err, workspace.ErrMalformedState):
		return KindMalformedState
	case errors.Is(err, sanitize.ErrInvalidFeatureName),
		errors.Is(err, sanitize.ErrPathTraversal),
		errors.Is(err, sanitize.ErrAbsolutePath),
		errors.Is(err, sanitize.ErrEmptyPath),
		errors.Is(err, tasks.ErrInvalidStatus),
		errors.Is(err, tasks.ErrInvalidID):
		return KindInvalidInput
	}
	return KindInternal
}

// classify wraps err as an *Error using its own message.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var we *Error
	if errors.As(err, &we) {
		return err
	}
	return newError(KindOf(err), err.Error(), err)
}
