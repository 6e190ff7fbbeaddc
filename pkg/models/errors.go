// Package models defines the core domain models for graph-based workflow execution.
package models

import "fmt"

// ErrorCode identifies a stable engine error category. Codes are part of the
// API contract and never change between releases.
type ErrorCode string

const (
	// Structural errors, caught at validate/save time.
	ErrorCodeCycleDetected       ErrorCode = "cycle_detected"
	ErrorCodeDanglingEdge        ErrorCode = "dangling_edge"
	ErrorCodeOutsideMainSubgraph ErrorCode = "outside_main_subgraph"

	// Config errors, caught at save time per node.
	ErrorCodeNodeConfigInvalid ErrorCode = "node_config_invalid"

	// Gating errors, caught during execution and fail-closed.
	ErrorCodeConditionEval ErrorCode = "condition_eval_error"

	// Execution errors, caught per node.
	ErrorCodeExecutorError   ErrorCode = "executor_error"
	ErrorCodeExecutorTimeout ErrorCode = "executor_timeout"

	// Authorization/safety outcomes. Expected failures, never system faults.
	ErrorCodeSideEffectDenied ErrorCode = "side_effect_denied"

	// Advisory save-time flag for a disabled node the scheduler would
	// silently skip.
	ErrorCodeNodeDisabled ErrorCode = "node_disabled"

	// Aggregate code for a document that failed validation.
	ErrorCodeWorkflowInvalid ErrorCode = "workflow_invalid"

	// RunCancelled marks a run terminated by an explicit cancel request.
	ErrorCodeRunCancelled ErrorCode = "run_cancelled"
)

// EngineError is the data representation of every engine-level failure.
// It travels through events, run records and API responses instead of
// being thrown across the stream.
type EngineError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Path    string    `json:"path,omitempty"`
}

func (e *EngineError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s at %s: %s", e.Code, e.Path, e.Message)
	}

	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewEngineError creates a new engine error with the given code and message.
func NewEngineError(code ErrorCode, message string) *EngineError {
	return &EngineError{Code: code, Message: message}
}

// WithPath attaches a document path (e.g. "nodes/fetch/config") to the error.
func (e *EngineError) WithPath(path string) *EngineError {
	e.Path = path

	return e
}

// ValidationResult aggregates every problem found in a workflow document so
// callers can render one message per violation.
type ValidationResult struct {
	Valid  bool           `json:"valid"`
	Errors []*EngineError `json:"errors,omitempty"`
}

// Add appends a problem and flips the result to invalid.
func (r *ValidationResult) Add(err *EngineError) {
	r.Valid = false
	r.Errors = append(r.Errors, err)
}

// Merge folds another result into this one.
func (r *ValidationResult) Merge(other *ValidationResult) {
	for _, err := range other.Errors {
		r.Add(err)
	}
}

// NewValidationResult returns a result that is valid until a problem is added.
func NewValidationResult() *ValidationResult {
	return &ValidationResult{Valid: true}
}

// WorkflowInvalidError carries a full validation result across boundaries
// that expect an error value, such as run creation against a broken document.
type WorkflowInvalidError struct {
	Result *ValidationResult
}

func (e *WorkflowInvalidError) Error() string {
	return fmt.Sprintf("workflow is invalid with %d problem(s)", len(e.Result.Errors))
}
