package postgresql_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/arcflow/arcflow/pkg/models"
	"github.com/arcflow/arcflow/pkg/persistence"
	"github.com/arcflow/arcflow/pkg/persistence/postgresql"
)

var postgresContainer *postgres.PostgresContainer

func dropDB(ctx context.Context, t *testing.T, databaseURL string) {
	t.Helper()

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	for _, table := range []string{"events", "confirmations", "node_executions", "runs", "schedules", "workflows", "schema_migrations"} {
		_, err = db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE")
		require.NoError(t, err)
	}

	err = db.Close()
	require.NoError(t, err)
}

func setupTestDB(t *testing.T) (*postgresql.Persistence, context.Context) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error

		postgresContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("arcflow_test"),
			postgres.WithUsername("arcflow"),
			postgres.WithPassword("arcflow"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	dropDB(ctx, t, databaseURL)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	store, err := postgresql.NewPersistence(ctx, logger, databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		dropDB(ctx, t, databaseURL)

		err := store.Close(ctx)
		require.NoError(t, err)

		cancel()
	})

	return store, ctx
}

func testWorkflow(id string) *models.Workflow {
	return &models.Workflow{
		ID:      id,
		Name:    "Order Pipeline",
		Status:  models.WorkflowStatusPublished,
		Version: 1,
		Nodes: []*models.Node{
			{ID: "start", Type: models.NodeTypeStart, Name: "Start", Enabled: true},
			{ID: "log", Type: "log", Name: "Log", Config: map[string]any{"message": "hello"}, Enabled: true},
			{ID: "end", Type: models.NodeTypeEnd, Name: "End", Enabled: true},
		},
		Edges: []*models.Edge{
			{ID: "e1", SourceNodeID: "start", TargetNodeID: "log"},
			{ID: "e2", SourceNodeID: "log", TargetNodeID: "end"},
		},
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
}

func TestNewPersistence_Migrations(t *testing.T) {
	store, ctx := setupTestDB(t)

	err := store.HealthCheck(ctx)
	require.NoError(t, err)
}

func TestWorkflowRepository_VersionSnapshots(t *testing.T) {
	store, ctx := setupTestDB(t)

	workflow := testWorkflow(uuid.NewString())
	require.NoError(t, store.Workflows().Save(ctx, workflow))

	workflow.Version = 2
	workflow.Name = "Order Pipeline v2"
	require.NoError(t, store.Workflows().Save(ctx, workflow))

	latest, err := store.Workflows().GetByID(ctx, workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, latest.Version)
	assert.Equal(t, "Order Pipeline v2", latest.Name)

	snapshot, err := store.Workflows().GetVersion(ctx, workflow.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, snapshot.Version)
	assert.Equal(t, "Order Pipeline", snapshot.Name)

	_, err = store.Workflows().GetVersion(ctx, workflow.ID, 9)
	assert.ErrorIs(t, err, persistence.ErrWorkflowVersionNotFound)

	_, err = store.Workflows().GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, persistence.ErrWorkflowNotFound)
}

func TestRunRepository_TerminalGuard(t *testing.T) {
	store, ctx := setupTestDB(t)

	run := &models.Run{
		ID:              uuid.NewString(),
		WorkflowID:      uuid.NewString(),
		WorkflowVersion: 1,
		Status:          models.RunStatusPending,
		CreatedAt:       time.Now().UTC(),
	}
	require.NoError(t, store.Runs().Create(ctx, run))

	run.Status = models.RunStatusRunning
	require.NoError(t, store.Runs().Update(ctx, run))

	run.Status = models.RunStatusCompleted
	require.NoError(t, store.Runs().Update(ctx, run))

	run.Status = models.RunStatusRunning
	err := store.Runs().Update(ctx, run)
	assert.ErrorIs(t, err, persistence.ErrRunFinished)

	stored, err := store.Runs().GetByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, stored.Status)
}

func TestConfirmationRepository_ResolveOnce(t *testing.T) {
	store, ctx := setupTestDB(t)

	request := &models.ConfirmationRequest{
		ConfirmID: uuid.NewString(),
		RunID:     uuid.NewString(),
		NodeID:    "charge",
		Decision:  models.ConfirmationPending,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.Confirmations().Create(ctx, request))

	require.NoError(t, store.Confirmations().Resolve(ctx, request.ConfirmID, models.ConfirmationAllow))

	err := store.Confirmations().Resolve(ctx, request.ConfirmID, models.ConfirmationDeny)
	assert.ErrorIs(t, err, persistence.ErrConfirmationResolved)

	stored, err := store.Confirmations().GetByID(ctx, request.ConfirmID)
	require.NoError(t, err)
	assert.Equal(t, models.ConfirmationAllow, stored.Decision)
	require.NotNil(t, stored.ResolvedAt)

	err = store.Confirmations().Resolve(ctx, uuid.NewString(), models.ConfirmationAllow)
	assert.ErrorIs(t, err, persistence.ErrConfirmationNotFound)
}

func TestEventRepository_SequenceAndReplay(t *testing.T) {
	store, ctx := setupTestDB(t)

	runID := uuid.NewString()
	types := []models.EventType{
		models.EventWorkflowStart,
		models.EventNodeStart,
		models.EventNodeComplete,
		models.EventWorkflowComplete,
	}

	for i, eventType := range types {
		payload, _ := json.Marshal(map[string]any{"index": i})
		err := store.Events().Append(ctx, &models.ExecutionEvent{
			RunID:     runID,
			Sequence:  int64(i + 1),
			Type:      eventType,
			NodeID:    "log",
			Payload:   payload,
			Timestamp: time.Now().UTC(),
		})
		require.NoError(t, err)
	}

	// A sequence that does not extend the log is rejected.
	err := store.Events().Append(ctx, &models.ExecutionEvent{
		RunID: runID, Sequence: 3, Type: models.EventNodeStart, Timestamp: time.Now().UTC(),
	})
	assert.ErrorIs(t, err, persistence.ErrSequenceConflict)

	err = store.Events().Append(ctx, &models.ExecutionEvent{
		RunID: runID, Sequence: 9, Type: models.EventNodeStart, Timestamp: time.Now().UTC(),
	})
	assert.ErrorIs(t, err, persistence.ErrSequenceConflict)

	last, err := store.Events().LastSequence(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), last)

	// Two replays return identical pages.
	first, err := store.Events().List(ctx, runID, persistence.EventQuery{})
	require.NoError(t, err)
	second, err := store.Events().List(ctx, runID, persistence.EventQuery{})
	require.NoError(t, err)
	require.Len(t, first.Events, 4)
	assert.Equal(t, first, second)
	assert.JSONEq(t, string(first.Events[0].Payload), `{"index":0}`)
}

func TestEventRepository_Pagination(t *testing.T) {
	store, ctx := setupTestDB(t)

	runID := uuid.NewString()
	for i := 1; i <= 5; i++ {
		err := store.Events().Append(ctx, &models.ExecutionEvent{
			RunID:     runID,
			Sequence:  int64(i),
			Type:      models.EventNodeStart,
			NodeID:    fmt.Sprintf("n%d", i),
			Timestamp: time.Now().UTC(),
		})
		require.NoError(t, err)
	}

	page, err := store.Events().List(ctx, runID, persistence.EventQuery{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Events, 2)
	assert.True(t, page.HasMore)
	assert.Equal(t, "2", page.NextCursor)

	page, err = store.Events().List(ctx, runID, persistence.EventQuery{Limit: 3, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, page.Events, 3)
	assert.False(t, page.HasMore)
	assert.Equal(t, int64(3), page.Events[0].Sequence)
}

func TestEventRepository_ChannelFilter(t *testing.T) {
	store, ctx := setupTestDB(t)

	runID := uuid.NewString()
	types := []models.EventType{
		models.EventWorkflowStart,
		models.EventNodeStart,
		models.EventNodeComplete,
		models.EventWorkflowComplete,
	}

	for i, eventType := range types {
		err := store.Events().Append(ctx, &models.ExecutionEvent{
			RunID: runID, Sequence: int64(i + 1), Type: eventType, Timestamp: time.Now().UTC(),
		})
		require.NoError(t, err)
	}

	page, err := store.Events().List(ctx, runID, persistence.EventQuery{Channel: models.ChannelNode})
	require.NoError(t, err)
	require.Len(t, page.Events, 2)
	assert.Equal(t, models.EventNodeStart, page.Events[0].Type)
	assert.Equal(t, models.EventNodeComplete, page.Events[1].Type)

	page, err = store.Events().List(ctx, runID, persistence.EventQuery{Channel: models.ChannelRun})
	require.NoError(t, err)
	require.Len(t, page.Events, 2)
	assert.Equal(t, models.EventWorkflowStart, page.Events[0].Type)
	assert.Equal(t, models.EventWorkflowComplete, page.Events[1].Type)
}

func TestScheduleRepository_ListDue(t *testing.T) {
	store, ctx := setupTestDB(t)

	due, err := models.NewSchedule(uuid.NewString(), uuid.NewString(), "* * * * *", nil)
	require.NoError(t, err)
	due.NextDueAt = time.Now().UTC().Add(-time.Minute)
	require.NoError(t, store.Schedules().Save(ctx, due))

	future, err := models.NewSchedule(uuid.NewString(), uuid.NewString(), "0 0 1 1 *", nil)
	require.NoError(t, err)
	require.NoError(t, store.Schedules().Save(ctx, future))

	dueNow, err := store.Schedules().ListDue(ctx)
	require.NoError(t, err)
	require.Len(t, dueNow, 1)
	assert.Equal(t, due.ID, dueNow[0].ID)

	all, err := store.Schedules().List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, store.Schedules().Delete(ctx, due.ID))

	err = store.Schedules().Delete(ctx, due.ID)
	assert.ErrorIs(t, err, persistence.ErrScheduleNotFound)
}

func TestNodeExecutionRepository_SaveAndList(t *testing.T) {
	store, ctx := setupTestDB(t)

	runID := uuid.NewString()
	execution := &models.NodeExecution{
		ID:     uuid.NewString(),
		RunID:  runID,
		NodeID: "log",
		Status: models.NodeExecutionStatusRunning,
	}
	require.NoError(t, store.NodeExecutions().Save(ctx, execution))

	execution.Status = models.NodeExecutionStatusSucceeded
	execution.Output = map[string]any{"result": true}
	require.NoError(t, store.NodeExecutions().Save(ctx, execution))

	executions, err := store.NodeExecutions().ListByRun(ctx, runID)
	require.NoError(t, err)
	require.Len(t, executions, 1)
	assert.Equal(t, models.NodeExecutionStatusSucceeded, executions[0].Status)
	assert.Equal(t, true, executions[0].Output["result"])
}
