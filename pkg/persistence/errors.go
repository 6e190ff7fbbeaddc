// Package persistence provides standardized error types for storage operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrWorkflowNotFound indicates a workflow was not found by the given identifier.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrWorkflowVersionNotFound indicates no snapshot exists for the requested version.
	ErrWorkflowVersionNotFound = errors.New("workflow version not found")

	// ErrRunNotFound indicates a run was not found by the given identifier.
	ErrRunNotFound = errors.New("run not found")

	// ErrRunFinished indicates an update was attempted on a run in a terminal state.
	ErrRunFinished = errors.New("run already finished")

	// ErrConfirmationNotFound indicates a confirmation request was not found.
	ErrConfirmationNotFound = errors.New("confirmation request not found")

	// ErrConfirmationResolved indicates a confirmation request already carries a decision.
	ErrConfirmationResolved = errors.New("confirmation request already resolved")

	// ErrSequenceConflict indicates an appended event does not extend the run's log.
	ErrSequenceConflict = errors.New("event sequence conflict")

	// ErrScheduleNotFound indicates a schedule was not found by the given identifier.
	ErrScheduleNotFound = errors.New("schedule not found")
)

// WorkflowError wraps workflow storage errors with operation context.
type WorkflowError struct {
	Op         string // Operation being performed (e.g. "GetByID", "Save")
	WorkflowID string
	Version    int
	Err        error
}

func (e *WorkflowError) Error() string {
	if e.Version > 0 {
		return fmt.Sprintf("%s failed for workflow %s v%d: %v", e.Op, e.WorkflowID, e.Version, e.Err)
	}

	return fmt.Sprintf("%s failed for workflow %s: %v", e.Op, e.WorkflowID, e.Err)
}

func (e *WorkflowError) Unwrap() error {
	return e.Err
}

func NewWorkflowError(op, workflowID string, err error) *WorkflowError {
	return &WorkflowError{Op: op, WorkflowID: workflowID, Err: err}
}

// RunError wraps run storage errors with operation context.
type RunError struct {
	Op    string
	RunID string
	Err   error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("%s failed for run %s: %v", e.Op, e.RunID, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

func NewRunError(op, runID string, err error) *RunError {
	return &RunError{Op: op, RunID: runID, Err: err}
}

// EventError wraps event log errors with the run and sequence involved.
type EventError struct {
	Op       string
	RunID    string
	Sequence int64
	Err      error
}

func (e *EventError) Error() string {
	return fmt.Sprintf("%s failed for run %s at sequence %d: %v", e.Op, e.RunID, e.Sequence, e.Err)
}

func (e *EventError) Unwrap() error {
	return e.Err
}

func NewEventError(op, runID string, sequence int64, err error) *EventError {
	return &EventError{Op: op, RunID: runID, Sequence: sequence, Err: err}
}

// IsNotFound reports whether err is any of the not-found sentinels.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound) ||
		errors.Is(err, ErrWorkflowVersionNotFound) ||
		errors.Is(err, ErrRunNotFound) ||
		errors.Is(err, ErrConfirmationNotFound) ||
		errors.Is(err, ErrScheduleNotFound)
}
