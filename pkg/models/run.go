package models

import "time"

// RunStatus represents the lifecycle state of a run.
type RunStatus string

const (
	RunStatusPending              RunStatus = "pending"
	RunStatusRunning              RunStatus = "running"
	RunStatusAwaitingConfirmation RunStatus = "awaiting_confirmation"
	RunStatusCompleted            RunStatus = "completed"
	RunStatusFailed               RunStatus = "failed"
	RunStatusCancelled            RunStatus = "cancelled"
)

// Terminal reports whether the status is final. Terminal runs are immutable.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunStatusCompleted, RunStatusFailed, RunStatusCancelled:
		return true
	default:
		return false
	}
}

// runTransitions encodes the run state machine:
// pending -> running -> {awaiting_confirmation <-> running} -> {completed | failed | cancelled}.
var runTransitions = map[RunStatus][]RunStatus{
	RunStatusPending: {RunStatusRunning, RunStatusCancelled},
	RunStatusRunning: {
		RunStatusAwaitingConfirmation,
		RunStatusCompleted,
		RunStatusFailed,
		RunStatusCancelled,
	},
	RunStatusAwaitingConfirmation: {RunStatusRunning, RunStatusFailed, RunStatusCancelled},
}

// CanTransition reports whether moving from s to next is a defined transition.
func (s RunStatus) CanTransition(next RunStatus) bool {
	for _, allowed := range runTransitions[s] {
		if allowed == next {
			return true
		}
	}

	return false
}

// Run is one execution of a specific workflow version. It is owned by the
// run lifecycle manager and mutated only through defined state transitions.
type Run struct {
	ID              string         `json:"id"`
	WorkflowID      string         `json:"workflow_id"`
	WorkflowVersion int            `json:"workflow_version"`
	Status          RunStatus      `json:"status"`
	Input           map[string]any `json:"input,omitempty"`
	Result          map[string]any `json:"result,omitempty"`
	Error           *EngineError   `json:"error,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	StartedAt       *time.Time     `json:"started_at,omitempty"`
	FinishedAt      *time.Time     `json:"finished_at,omitempty"`
}
