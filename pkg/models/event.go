package models

import (
	"encoding/json"
	"time"
)

// EventType identifies a scheduler lifecycle transition.
type EventType string

const (
	EventWorkflowStart    EventType = "workflow_start"
	EventNodeStart        EventType = "node_start"
	EventNodeComplete     EventType = "node_complete"
	EventNodeSkip         EventType = "node_skip"
	EventConfirmRequired  EventType = "confirm_required"
	EventConfirmResolved  EventType = "confirm_resolved"
	EventWorkflowComplete EventType = "workflow_complete"
	EventWorkflowError    EventType = "workflow_error"
)

// Terminal reports whether this event ends a run's stream. Every stream
// terminates on exactly one terminal event, even on failure.
func (t EventType) Terminal() bool {
	return t == EventWorkflowComplete || t == EventWorkflowError
}

// EventChannel partitions events for replay consumers.
type EventChannel string

const (
	ChannelAll  EventChannel = "all"
	ChannelRun  EventChannel = "run"  // workflow_* and confirm_* events
	ChannelNode EventChannel = "node" // node_* events
)

// Channel returns the replay channel this event type belongs to.
func (t EventType) Channel() EventChannel {
	switch t {
	case EventNodeStart, EventNodeComplete, EventNodeSkip:
		return ChannelNode
	default:
		return ChannelRun
	}
}

// ExecutionEvent is one append-only record in a run's event log. Sequence is
// scoped to the run and defines the total order for replay. Payload is kept
// as raw bytes so replay reproduces byte-identical content.
type ExecutionEvent struct {
	RunID     string          `json:"run_id"`
	Sequence  int64           `json:"sequence"`
	Type      EventType       `json:"type"`
	NodeID    string          `json:"node_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}
