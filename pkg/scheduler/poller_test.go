package scheduler

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcflow/arcflow/pkg/models"
	"github.com/arcflow/arcflow/pkg/persistence/file"
)

type recordingStarter struct {
	started []string
	err     error
}

func (s *recordingStarter) CreateAndStart(_ context.Context, workflowID string, _ map[string]any) (*models.Run, error) {
	if s.err != nil {
		return nil, s.err
	}

	s.started = append(s.started, workflowID)

	return &models.Run{ID: "run-" + workflowID, WorkflowID: workflowID}, nil
}

func TestPoller_TickStartsDueSchedules(t *testing.T) {
	store, err := file.NewPersistence(t.TempDir())
	require.NoError(t, err)

	t.Cleanup(func() { _ = store.Close(context.Background()) })

	due, err := models.NewSchedule("sched-1", "wf-1", "* * * * *", map[string]any{"from": "cron"})
	require.NoError(t, err)

	// NewSchedule computes the next future due time; pull it into the past.
	due.NextDueAt = time.Now().UTC().Add(-time.Minute)
	require.NoError(t, store.Schedules().Save(t.Context(), due))

	notDue, err := models.NewSchedule("sched-2", "wf-2", "* * * * *", nil)
	require.NoError(t, err)
	require.NoError(t, store.Schedules().Save(t.Context(), notDue))

	starter := &recordingStarter{}
	poller := NewPoller(slog.New(slog.NewTextHandler(io.Discard, nil)), store, starter, 0)

	poller.Tick(t.Context())

	assert.Equal(t, []string{"wf-1"}, starter.started)

	// The fired schedule advanced past now and will not refire this tick.
	refreshed, err := store.Schedules().GetByID(t.Context(), "sched-1")
	require.NoError(t, err)
	assert.True(t, refreshed.NextDueAt.After(time.Now().UTC().Add(-time.Second)))
}

func TestPoller_AdvancesScheduleWhenStartFails(t *testing.T) {
	store, err := file.NewPersistence(t.TempDir())
	require.NoError(t, err)

	t.Cleanup(func() { _ = store.Close(context.Background()) })

	due, err := models.NewSchedule("sched-1", "wf-broken", "* * * * *", nil)
	require.NoError(t, err)

	due.NextDueAt = time.Now().UTC().Add(-time.Minute)
	require.NoError(t, store.Schedules().Save(t.Context(), due))

	starter := &recordingStarter{err: context.DeadlineExceeded}
	poller := NewPoller(slog.New(slog.NewTextHandler(io.Discard, nil)), store, starter, 0)

	poller.Tick(t.Context())

	refreshed, err := store.Schedules().GetByID(t.Context(), "sched-1")
	require.NoError(t, err)
	assert.True(t, refreshed.NextDueAt.After(time.Now().UTC().Add(-time.Second)),
		"a failing workflow must not be retried every tick")
}

func TestPoller_InactiveSchedulesIgnored(t *testing.T) {
	store, err := file.NewPersistence(t.TempDir())
	require.NoError(t, err)

	t.Cleanup(func() { _ = store.Close(context.Background()) })

	inactive, err := models.NewSchedule("sched-1", "wf-1", "* * * * *", nil)
	require.NoError(t, err)

	inactive.NextDueAt = time.Now().UTC().Add(-time.Minute)
	inactive.Active = false
	require.NoError(t, store.Schedules().Save(t.Context(), inactive))

	starter := &recordingStarter{}
	poller := NewPoller(slog.New(slog.NewTextHandler(io.Discard, nil)), store, starter, 0)

	poller.Tick(t.Context())

	assert.Empty(t, starter.started)
}
