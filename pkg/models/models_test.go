package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunStatusTransitions(t *testing.T) {
	assert.True(t, RunStatusPending.CanTransition(RunStatusRunning))
	assert.True(t, RunStatusRunning.CanTransition(RunStatusAwaitingConfirmation))
	assert.True(t, RunStatusAwaitingConfirmation.CanTransition(RunStatusRunning))
	assert.True(t, RunStatusRunning.CanTransition(RunStatusCompleted))
	assert.True(t, RunStatusRunning.CanTransition(RunStatusFailed))
	assert.True(t, RunStatusPending.CanTransition(RunStatusCancelled))

	// Terminal states are final.
	assert.False(t, RunStatusCompleted.CanTransition(RunStatusRunning))
	assert.False(t, RunStatusFailed.CanTransition(RunStatusRunning))
	assert.False(t, RunStatusCancelled.CanTransition(RunStatusPending))

	// No shortcut from pending straight to completed.
	assert.False(t, RunStatusPending.CanTransition(RunStatusCompleted))
}

func TestRunStatusTerminal(t *testing.T) {
	terminal := []RunStatus{RunStatusCompleted, RunStatusFailed, RunStatusCancelled}
	for _, status := range terminal {
		assert.True(t, status.Terminal(), string(status))
	}

	open := []RunStatus{RunStatusPending, RunStatusRunning, RunStatusAwaitingConfirmation}
	for _, status := range open {
		assert.False(t, status.Terminal(), string(status))
	}
}

func TestEdgeUnconditional(t *testing.T) {
	tests := []struct {
		condition string
		want      bool
	}{
		{"", true},
		{"   ", true},
		{"\t\n", true},
		{"true", false},
		{"status == 200", false},
	}

	for _, tt := range tests {
		edge := &Edge{Condition: tt.condition}
		assert.Equal(t, tt.want, edge.Unconditional(), "condition %q", tt.condition)
	}
}

func TestEventTypeChannel(t *testing.T) {
	assert.Equal(t, ChannelNode, EventNodeStart.Channel())
	assert.Equal(t, ChannelNode, EventNodeComplete.Channel())
	assert.Equal(t, ChannelNode, EventNodeSkip.Channel())

	assert.Equal(t, ChannelRun, EventWorkflowStart.Channel())
	assert.Equal(t, ChannelRun, EventConfirmRequired.Channel())
	assert.Equal(t, ChannelRun, EventConfirmResolved.Channel())
	assert.Equal(t, ChannelRun, EventWorkflowComplete.Channel())
	assert.Equal(t, ChannelRun, EventWorkflowError.Channel())
}

func TestEventTypeTerminal(t *testing.T) {
	assert.True(t, EventWorkflowComplete.Terminal())
	assert.True(t, EventWorkflowError.Terminal())
	assert.False(t, EventNodeComplete.Terminal())
	assert.False(t, EventConfirmRequired.Terminal())
}

func TestConfirmationDecisionPermits(t *testing.T) {
	assert.True(t, ConfirmationAllow.Permits())
	assert.False(t, ConfirmationDeny.Permits())
	assert.False(t, ConfirmationTimeout.Permits())
	assert.False(t, ConfirmationPending.Permits())
}

func TestWorkflowEdgeLookups(t *testing.T) {
	workflow := &Workflow{
		Nodes: []*Node{
			{ID: "start", Type: NodeTypeStart},
			{ID: "a", Type: "transform"},
			{ID: "end", Type: NodeTypeEnd},
		},
		Edges: []*Edge{
			{ID: "e1", SourceNodeID: "start", TargetNodeID: "a"},
			{ID: "e2", SourceNodeID: "a", TargetNodeID: "end"},
			{ID: "e3", SourceNodeID: "start", TargetNodeID: "end"},
		},
	}

	incoming := workflow.IncomingEdges("end")
	require.Len(t, incoming, 2)
	assert.Equal(t, "e2", incoming[0].ID)
	assert.Equal(t, "e3", incoming[1].ID)

	outgoing := workflow.OutgoingEdges("start")
	require.Len(t, outgoing, 2)
	assert.Equal(t, "e1", outgoing[0].ID)

	node, ok := workflow.NodeByID("a")
	require.True(t, ok)
	assert.Equal(t, "transform", node.Type)

	_, ok = workflow.NodeByID("missing")
	assert.False(t, ok)
}

func TestNewSchedule(t *testing.T) {
	schedule, err := NewSchedule("s1", "wf1", "*/5 * * * *", nil)
	require.NoError(t, err)

	assert.True(t, schedule.Active)
	assert.False(t, schedule.NextDueAt.IsZero())
	assert.True(t, schedule.NextDueAt.After(time.Now().UTC().Add(-time.Minute)))
}

func TestNewScheduleInvalidExpression(t *testing.T) {
	_, err := NewSchedule("s1", "wf1", "not a cron", nil)
	require.Error(t, err)
}

func TestScheduleDue(t *testing.T) {
	now := time.Now().UTC()

	schedule := &Schedule{Active: true, NextDueAt: now.Add(-time.Second)}
	assert.True(t, schedule.Due(now))

	schedule.NextDueAt = now.Add(time.Hour)
	assert.False(t, schedule.Due(now))

	schedule.Active = false
	schedule.NextDueAt = now.Add(-time.Second)
	assert.False(t, schedule.Due(now))
}

func TestEngineErrorString(t *testing.T) {
	err := NewEngineError(ErrorCodeExecutorError, "boom")
	assert.Equal(t, "executor_error: boom", err.Error())

	err = NewEngineError(ErrorCodeNodeConfigInvalid, "missing url").WithPath("nodes/fetch/config")
	assert.Equal(t, "node_config_invalid at nodes/fetch/config: missing url", err.Error())
}

func TestValidationResult(t *testing.T) {
	result := NewValidationResult()
	assert.True(t, result.Valid)

	result.Add(NewEngineError(ErrorCodeCycleDetected, "cycle between a and b"))
	assert.False(t, result.Valid)
	assert.Len(t, result.Errors, 1)

	other := NewValidationResult()
	other.Add(NewEngineError(ErrorCodeDanglingEdge, "edge e1 targets missing node"))

	result.Merge(other)
	assert.Len(t, result.Errors, 2)
}
