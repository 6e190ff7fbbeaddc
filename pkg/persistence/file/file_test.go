package file

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/arcflow/arcflow/pkg/models"
	"github.com/arcflow/arcflow/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Persistence {
	t.Helper()

	store, err := NewPersistence(t.TempDir())
	require.NoError(t, err)

	return store
}

func TestWorkflowSaveAndVersionSnapshot(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	workflow := &models.Workflow{
		ID: "wf1", Name: "Demo", Status: models.WorkflowStatusPublished, Version: 1,
		Nodes: []*models.Node{{ID: "start", Type: models.NodeTypeStart, Name: "Start"}},
	}
	require.NoError(t, store.Workflows().Save(ctx, workflow))

	// Bump the live document; the old version stays readable.
	workflow.Version = 2
	workflow.Name = "Demo v2"
	require.NoError(t, store.Workflows().Save(ctx, workflow))

	latest, err := store.Workflows().GetByID(ctx, "wf1")
	require.NoError(t, err)
	assert.Equal(t, 2, latest.Version)

	v1, err := store.Workflows().GetVersion(ctx, "wf1", 1)
	require.NoError(t, err)
	assert.Equal(t, "Demo", v1.Name)

	_, err = store.Workflows().GetVersion(ctx, "wf1", 9)
	assert.ErrorIs(t, err, persistence.ErrWorkflowVersionNotFound)
}

func TestWorkflowNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Workflows().GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, persistence.ErrWorkflowNotFound)
}

func TestRunTerminalImmutability(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	run := &models.Run{ID: "r1", WorkflowID: "wf1", Status: models.RunStatusPending, CreatedAt: time.Now().UTC()}
	require.NoError(t, store.Runs().Create(ctx, run))

	run.Status = models.RunStatusCompleted
	require.NoError(t, store.Runs().Update(ctx, run))

	run.Status = models.RunStatusRunning
	err := store.Runs().Update(ctx, run)
	assert.ErrorIs(t, err, persistence.ErrRunFinished)
}

func TestConfirmationResolveExactlyOnce(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	request := &models.ConfirmationRequest{
		ConfirmID: "c1", RunID: "r1", NodeID: "n1",
		Decision: models.ConfirmationPending, CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.Confirmations().Create(ctx, request))

	require.NoError(t, store.Confirmations().Resolve(ctx, "c1", models.ConfirmationAllow))

	err := store.Confirmations().Resolve(ctx, "c1", models.ConfirmationDeny)
	assert.ErrorIs(t, err, persistence.ErrConfirmationResolved)

	stored, err := store.Confirmations().GetByID(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, models.ConfirmationAllow, stored.Decision)
	assert.NotNil(t, stored.ResolvedAt)

	err = store.Confirmations().Resolve(ctx, "ghost", models.ConfirmationAllow)
	assert.ErrorIs(t, err, persistence.ErrConfirmationNotFound)
}

func appendEvent(t *testing.T, store *Persistence, runID string, seq int64, eventType models.EventType) {
	t.Helper()

	payload, _ := json.Marshal(map[string]any{"seq": seq})
	err := store.Events().Append(context.Background(), &models.ExecutionEvent{
		RunID: runID, Sequence: seq, Type: eventType,
		Payload: payload, Timestamp: time.Now().UTC(),
	})
	require.NoError(t, err)
}

func TestEventAppendRequiresMonotonicSequence(t *testing.T) {
	store := newTestStore(t)

	appendEvent(t, store, "r1", 1, models.EventWorkflowStart)
	appendEvent(t, store, "r1", 2, models.EventNodeStart)

	err := store.Events().Append(context.Background(), &models.ExecutionEvent{
		RunID: "r1", Sequence: 2, Type: models.EventNodeComplete,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, persistence.ErrSequenceConflict))

	err = store.Events().Append(context.Background(), &models.ExecutionEvent{
		RunID: "r1", Sequence: 5, Type: models.EventNodeComplete,
	})
	assert.ErrorIs(t, err, persistence.ErrSequenceConflict)

	last, err := store.Events().LastSequence(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), last)
}

func TestEventListPagination(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	appendEvent(t, store, "r1", 1, models.EventWorkflowStart)
	appendEvent(t, store, "r1", 2, models.EventNodeStart)
	appendEvent(t, store, "r1", 3, models.EventNodeComplete)
	appendEvent(t, store, "r1", 4, models.EventWorkflowComplete)

	page, err := store.Events().List(ctx, "r1", persistence.EventQuery{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Events, 2)
	assert.True(t, page.HasMore)
	assert.Equal(t, "2", page.NextCursor)

	page, err = store.Events().List(ctx, "r1", persistence.EventQuery{Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, page.Events, 2)
	assert.False(t, page.HasMore)
	assert.Equal(t, int64(3), page.Events[0].Sequence)
}

func TestEventListChannelFilter(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	appendEvent(t, store, "r1", 1, models.EventWorkflowStart)
	appendEvent(t, store, "r1", 2, models.EventNodeStart)
	appendEvent(t, store, "r1", 3, models.EventNodeComplete)
	appendEvent(t, store, "r1", 4, models.EventWorkflowComplete)

	page, err := store.Events().List(ctx, "r1", persistence.EventQuery{Channel: models.ChannelNode})
	require.NoError(t, err)
	require.Len(t, page.Events, 2)

	for _, event := range page.Events {
		assert.Equal(t, models.ChannelNode, event.Type.Channel())
	}

	page, err = store.Events().List(ctx, "r1", persistence.EventQuery{Channel: models.ChannelRun})
	require.NoError(t, err)
	require.Len(t, page.Events, 2)
}

func TestEventReplayIsByteIdentical(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	payload, _ := json.Marshal(map[string]any{"output": map[string]any{"status": 200}})
	require.NoError(t, store.Events().Append(ctx, &models.ExecutionEvent{
		RunID: "r1", Sequence: 1, Type: models.EventNodeComplete,
		NodeID: "fetch", Payload: payload, Timestamp: time.Now().UTC(),
	}))

	first, err := store.Events().List(ctx, "r1", persistence.EventQuery{})
	require.NoError(t, err)

	second, err := store.Events().List(ctx, "r1", persistence.EventQuery{})
	require.NoError(t, err)

	require.Len(t, first.Events, 1)
	require.Len(t, second.Events, 1)
	assert.Equal(t, []byte(first.Events[0].Payload), []byte(second.Events[0].Payload))
	assert.Equal(t, []byte(payload), []byte(first.Events[0].Payload))
}

func TestScheduleListDue(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	due := &models.Schedule{
		ID: "s1", WorkflowID: "wf1", CronExpression: "* * * * *",
		NextDueAt: time.Now().UTC().Add(-time.Minute), Active: true,
	}
	future := &models.Schedule{
		ID: "s2", WorkflowID: "wf1", CronExpression: "* * * * *",
		NextDueAt: time.Now().UTC().Add(time.Hour), Active: true,
	}
	inactive := &models.Schedule{
		ID: "s3", WorkflowID: "wf1", CronExpression: "* * * * *",
		NextDueAt: time.Now().UTC().Add(-time.Minute), Active: false,
	}

	for _, schedule := range []*models.Schedule{due, future, inactive} {
		require.NoError(t, store.Schedules().Save(ctx, schedule))
	}

	dueList, err := store.Schedules().ListDue(ctx)
	require.NoError(t, err)
	require.Len(t, dueList, 1)
	assert.Equal(t, "s1", dueList[0].ID)
}

func TestHealthCheck(t *testing.T) {
	store := newTestStore(t)
	assert.NoError(t, store.HealthCheck(context.Background()))
}
