package services

import (
	"context"
	"log/slog"

	"github.com/arcflow/arcflow/pkg/engine"
	"github.com/arcflow/arcflow/pkg/eventbus"
	"github.com/arcflow/arcflow/pkg/models"
	"github.com/arcflow/arcflow/pkg/persistence"
)

// ErrRunNotFound is returned when a run is not found.
var ErrRunNotFound = persistence.ErrRunNotFound

// Run handles run lifecycle use cases on behalf of the API: creation against
// published workflows, starting, cancellation, confirmation and the event
// stream.
type Run struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	engine      *engine.Engine
	bus         eventbus.EventBus
}

// NewRun creates a new run service.
func NewRun(logger *slog.Logger, store persistence.Persistence, eng *engine.Engine, bus eventbus.EventBus) *Run {
	return &Run{
		logger:      logger.With("module", "run_service"),
		persistence: store,
		engine:      eng,
		bus:         bus,
	}
}

// Create creates a pending run bound to the workflow's current published
// version. Draft and historical workflows are not executable.
func (r *Run) Create(ctx context.Context, workflowID string, input map[string]any) (*models.Run, error) {
	workflow, err := r.persistence.Workflows().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if workflow.Status != models.WorkflowStatusPublished {
		return nil, &ServiceError{Op: "Create", Err: ErrNotPublished}
	}

	return r.engine.CreateRun(ctx, workflowID, input)
}

// CreateAndStart creates a run and immediately hands it to the engine. Used
// by the queue receiver and the schedule poller.
func (r *Run) CreateAndStart(ctx context.Context, workflowID string, input map[string]any) (*models.Run, error) {
	run, err := r.Create(ctx, workflowID, input)
	if err != nil {
		return nil, err
	}

	if err := r.engine.StartRun(ctx, run.ID); err != nil {
		return nil, err
	}

	return run, nil
}

// Start moves a pending run onto the engine.
func (r *Run) Start(ctx context.Context, runID string) error {
	return r.engine.StartRun(ctx, runID)
}

// Get retrieves a run by its ID.
func (r *Run) Get(ctx context.Context, runID string) (*models.Run, error) {
	return r.persistence.Runs().GetByID(ctx, runID)
}

// ListByWorkflow retrieves every run of a workflow.
func (r *Run) ListByWorkflow(ctx context.Context, workflowID string) ([]*models.Run, error) {
	return r.persistence.Runs().ListByWorkflow(ctx, workflowID)
}

// NodeExecutions retrieves the per-node records of a run.
func (r *Run) NodeExecutions(ctx context.Context, runID string) ([]*models.NodeExecution, error) {
	return r.persistence.NodeExecutions().ListByRun(ctx, runID)
}

// Confirmations retrieves the confirmation requests of a run.
func (r *Run) Confirmations(ctx context.Context, runID string) ([]*models.ConfirmationRequest, error) {
	return r.persistence.Confirmations().ListByRun(ctx, runID)
}

// Cancel stops a run.
func (r *Run) Cancel(ctx context.Context, runID string) error {
	return r.engine.CancelRun(ctx, runID)
}

// Confirm resolves a pending side-effect confirmation. Only explicit allow
// and deny are accepted from callers; timeout is reserved for the gate.
func (r *Run) Confirm(ctx context.Context, runID, confirmID, decision string) error {
	parsed := models.ConfirmationDecision(decision)
	if parsed != models.ConfirmationAllow && parsed != models.ConfirmationDeny {
		return &ServiceError{Op: "Confirm", Message: "decision " + decision, Err: ErrInvalidDecision}
	}

	return r.engine.Confirm(ctx, runID, confirmID, parsed)
}

// Events returns one page of a run's event log.
func (r *Run) Events(ctx context.Context, runID string, query persistence.EventQuery) (*persistence.EventPage, error) {
	if _, err := r.persistence.Runs().GetByID(ctx, runID); err != nil {
		return nil, err
	}

	return r.persistence.Events().List(ctx, runID, query)
}

// Stream returns the run's events from the cursor onward: the stored history
// first, then live events as the run progresses. The channel closes after the
// terminal event or when ctx is cancelled. Duplicate delivery across the
// replay/live seam is suppressed by sequence.
func (r *Run) Stream(ctx context.Context, runID, cursor string) (<-chan *models.ExecutionEvent, error) {
	if _, err := r.persistence.Runs().GetByID(ctx, runID); err != nil {
		return nil, err
	}

	// Subscribe before replaying so no event can fall between history and
	// live delivery.
	live, err := r.bus.SubscribeRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	out := make(chan *models.ExecutionEvent, 64)

	go func() {
		defer close(out)

		var lastSeq int64

		emit := func(event *models.ExecutionEvent) bool {
			if event.Sequence <= lastSeq {
				return true
			}

			lastSeq = event.Sequence

			select {
			case out <- event:
			case <-ctx.Done():
				return false
			}

			return !event.Type.Terminal()
		}

		for {
			page, err := r.persistence.Events().List(ctx, runID, persistence.EventQuery{
				Cursor: cursor,
				Limit:  256,
			})
			if err != nil {
				r.logger.ErrorContext(ctx, "Event replay failed", "run_id", runID, "error", err)

				return
			}

			for _, event := range page.Events {
				if !emit(event) {
					return
				}
			}

			if !page.HasMore {
				break
			}

			cursor = page.NextCursor
		}

		for {
			select {
			case event, ok := <-live:
				if !ok {
					return
				}

				if !emit(event) {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}
