package models

import "time"

// NodeExecutionStatus represents the state of one node within a run.
type NodeExecutionStatus string

const (
	NodeExecutionStatusPending   NodeExecutionStatus = "pending"
	NodeExecutionStatusRunning   NodeExecutionStatus = "running"
	NodeExecutionStatusSucceeded NodeExecutionStatus = "succeeded"
	NodeExecutionStatusFailed    NodeExecutionStatus = "failed"
	NodeExecutionStatusSkipped   NodeExecutionStatus = "skipped"
)

// Terminal reports whether the status is final. A node execution is never
// mutated after reaching a terminal status.
func (s NodeExecutionStatus) Terminal() bool {
	switch s {
	case NodeExecutionStatusSucceeded, NodeExecutionStatusFailed, NodeExecutionStatusSkipped:
		return true
	default:
		return false
	}
}

// NodeExecution is the per-run record of a single node visit. It is created
// lazily as the scheduler reaches the node.
type NodeExecution struct {
	ID         string              `json:"id"`
	RunID      string              `json:"run_id"`
	NodeID     string              `json:"node_id"`
	Status     NodeExecutionStatus `json:"status"`
	Input      map[string]any      `json:"input,omitempty"`
	Output     map[string]any      `json:"output,omitempty"`
	Error      *EngineError        `json:"error,omitempty"`
	StartedAt  *time.Time          `json:"started_at,omitempty"`
	FinishedAt *time.Time          `json:"finished_at,omitempty"`
}
