// Package persistence provides the storage ports the engine and API consume.
package persistence

import (
	"context"

	"github.com/arcflow/arcflow/pkg/models"
)

// Persistence aggregates every repository the system needs. Implementations
// live in the file and postgresql subpackages.
type Persistence interface {
	Workflows() WorkflowRepository
	Runs() RunRepository
	NodeExecutions() NodeExecutionRepository
	Confirmations() ConfirmationRepository
	Events() EventRepository
	Schedules() ScheduleRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// WorkflowRepository stores workflow documents. Saving a document also snapshots
// it under its version so in-flight runs keep executing against the exact
// version they bound to.
type WorkflowRepository interface {
	List(ctx context.Context) ([]*models.Workflow, error)
	GetByID(ctx context.Context, id string) (*models.Workflow, error)
	GetVersion(ctx context.Context, id string, version int) (*models.Workflow, error)
	Save(ctx context.Context, workflow *models.Workflow) error
	Delete(ctx context.Context, id string) error
}

// RunRepository stores run records. Update must refuse to mutate a run whose
// stored status is already terminal.
type RunRepository interface {
	Create(ctx context.Context, run *models.Run) error
	GetByID(ctx context.Context, id string) (*models.Run, error)
	Update(ctx context.Context, run *models.Run) error
	ListByWorkflow(ctx context.Context, workflowID string) ([]*models.Run, error)
}

// NodeExecutionRepository stores per-run node execution records.
type NodeExecutionRepository interface {
	Save(ctx context.Context, execution *models.NodeExecution) error
	ListByRun(ctx context.Context, runID string) ([]*models.NodeExecution, error)
}

// ConfirmationRepository stores side-effect confirmation requests. Resolve
// records a decision exactly once.
type ConfirmationRepository interface {
	Create(ctx context.Context, request *models.ConfirmationRequest) error
	GetByID(ctx context.Context, confirmID string) (*models.ConfirmationRequest, error)
	Resolve(ctx context.Context, confirmID string, decision models.ConfirmationDecision) error
	ListByRun(ctx context.Context, runID string) ([]*models.ConfirmationRequest, error)
}

// EventQuery selects a page of a run's event log.
type EventQuery struct {
	Channel models.EventChannel // empty or "all" selects every channel
	Cursor  string              // opaque; empty starts from the beginning
	Limit   int
}

// EventPage is one page of a run's event log in sequence order.
type EventPage struct {
	Events     []*models.ExecutionEvent `json:"events"`
	NextCursor string                   `json:"next_cursor,omitempty"`
	HasMore    bool                     `json:"has_more"`
}

// EventRepository is the append-only event log. Append must reject an event
// whose sequence does not extend the run's log, and nothing is ever updated
// or deleted: replay reads back exactly the bytes that were appended.
type EventRepository interface {
	Append(ctx context.Context, event *models.ExecutionEvent) error
	List(ctx context.Context, runID string, query EventQuery) (*EventPage, error)
	LastSequence(ctx context.Context, runID string) (int64, error)
}

// ScheduleRepository stores cron schedules for the poller.
type ScheduleRepository interface {
	Save(ctx context.Context, schedule *models.Schedule) error
	GetByID(ctx context.Context, id string) (*models.Schedule, error)
	ListDue(ctx context.Context) ([]*models.Schedule, error)
	List(ctx context.Context) ([]*models.Schedule, error)
	Delete(ctx context.Context, id string) error
}
