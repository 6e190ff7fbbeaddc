// Package services provides the API-facing use cases over the engine and
// persistence layers.
package services

import (
	"errors"
	"fmt"
)

// Business logic errors. Validation errors map to 400 responses, conflicts
// to 409; everything else stays a 500.
var (
	ErrWorkflowNameRequired = errors.New("workflow name is required")
	ErrNodesRequired        = errors.New("workflow must have at least one node")
	ErrWorkflowNil          = errors.New("workflow cannot be nil")
	ErrInvalidDecision      = errors.New("decision must be allow or deny")
	ErrInvalidCron          = errors.New("invalid cron expression")

	ErrNotPublished            = errors.New("workflow is not published")
	ErrCannotModifyUnpublished = errors.New("cannot modify unpublished workflow")
)

// ServiceError wraps service-level errors with operation context.
type ServiceError struct {
	Op      string
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks if an error should produce an HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrWorkflowNameRequired) ||
		errors.Is(err, ErrNodesRequired) ||
		errors.Is(err, ErrWorkflowNil) ||
		errors.Is(err, ErrInvalidDecision) ||
		errors.Is(err, ErrInvalidCron)
}

// IsConflictError checks if an error should produce an HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrNotPublished) ||
		errors.Is(err, ErrCannotModifyUnpublished)
}
