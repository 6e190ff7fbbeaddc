// Package scheduler polls cron schedules and starts runs when they fall due.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/arcflow/arcflow/pkg/models"
	"github.com/arcflow/arcflow/pkg/persistence"
)

const DefaultInterval = 15 * time.Second

// RunStarter is what the poller needs from the run service.
type RunStarter interface {
	CreateAndStart(ctx context.Context, workflowID string, input map[string]any) (*models.Run, error)
}

// Poller periodically queries due schedules, starts a run for each, and
// advances the schedule's next execution time. A schedule whose workflow can
// no longer start runs is logged and advanced anyway so it cannot wedge the
// loop.
type Poller struct {
	logger   *slog.Logger
	store    persistence.Persistence
	starter  RunStarter
	interval time.Duration

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewPoller creates a schedule poller.
func NewPoller(logger *slog.Logger, store persistence.Persistence, starter RunStarter, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}

	return &Poller{
		logger:   logger.With("module", "schedule_poller"),
		store:    store,
		starter:  starter,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start launches the polling loop.
func (p *Poller) Start(ctx context.Context) {
	p.logger.InfoContext(ctx, "Starting schedule poller", "interval", p.interval)

	p.wg.Add(1)

	go func() {
		defer p.wg.Done()

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				p.Tick(ctx)
			case <-p.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Tick processes every schedule currently due. Exposed so deployments can
// drive the poller from an external clock and tests can tick deterministically.
func (p *Poller) Tick(ctx context.Context) {
	due, err := p.store.Schedules().ListDue(ctx)
	if err != nil {
		p.logger.ErrorContext(ctx, "Failed to list due schedules", "error", err)

		return
	}

	now := time.Now().UTC()

	for _, schedule := range due {
		p.fire(ctx, schedule, now)
	}
}

func (p *Poller) fire(ctx context.Context, schedule *models.Schedule, now time.Time) {
	run, err := p.starter.CreateAndStart(ctx, schedule.WorkflowID, schedule.Input)
	if err != nil {
		p.logger.ErrorContext(ctx, "Scheduled run failed to start",
			"schedule_id", schedule.ID, "workflow_id", schedule.WorkflowID, "error", err)
	} else {
		p.logger.InfoContext(ctx, "Scheduled run started",
			"schedule_id", schedule.ID, "run_id", run.ID)
	}

	// Advance past the current due time even after a failed start, otherwise
	// a broken workflow would be retried every tick.
	if err := schedule.Refresh(now); err != nil {
		p.logger.ErrorContext(ctx, "Schedule refresh failed",
			"schedule_id", schedule.ID, "error", err)

		return
	}

	if err := p.store.Schedules().Save(ctx, schedule); err != nil {
		p.logger.ErrorContext(ctx, "Schedule save failed",
			"schedule_id", schedule.ID, "error", err)
	}
}

// Stop shuts the polling loop down.
func (p *Poller) Stop() {
	close(p.stopCh)
	p.wg.Wait()
}
