package services

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/arcflow/arcflow/pkg/graph"
	"github.com/arcflow/arcflow/pkg/models"
	"github.com/arcflow/arcflow/pkg/persistence"
	"github.com/arcflow/arcflow/pkg/registry"
)

// ErrWorkflowNotFound is returned when a workflow is not found.
var ErrWorkflowNotFound = persistence.ErrWorkflowNotFound

// SaveResult pairs a saved document with its advisory validation report.
// Draft saves tolerate structural problems; publishing does not.
type SaveResult struct {
	Workflow   *models.Workflow         `json:"workflow"`
	Validation *models.ValidationResult `json:"validation"`
}

// Workflow handles workflow document lifecycle: drafting, incremental
// mutation, publishing and deletion.
type Workflow struct {
	persistence persistence.Persistence
	registry    *registry.Registry
	validate    *validator.Validate
}

// NewWorkflow creates a new workflow service.
func NewWorkflow(store persistence.Persistence, nodeRegistry *registry.Registry) *Workflow {
	return &Workflow{
		persistence: store,
		registry:    nodeRegistry,
		validate:    validator.New(),
	}
}

// HealthCheck checks the health of the persistence layer.
func (w *Workflow) HealthCheck(ctx context.Context) (string, bool) {
	if w.persistence == nil {
		return "Persistence layer not initialized", false
	}

	if err := w.persistence.HealthCheck(ctx); err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// List retrieves every workflow document.
func (w *Workflow) List(ctx context.Context) ([]*models.Workflow, error) {
	return w.persistence.Workflows().List(ctx)
}

// FetchByID retrieves a workflow by its ID.
func (w *Workflow) FetchByID(ctx context.Context, id string) (*models.Workflow, error) {
	return w.persistence.Workflows().GetByID(ctx, id)
}

// Validate runs the full validation pipeline a run start would apply:
// structural invariants in strict mode plus per-node config schemas.
func (w *Workflow) Validate(workflow *models.Workflow) *models.ValidationResult {
	result := graph.Validate(workflow, graph.Options{})
	result.Merge(w.registry.ValidateWorkflowNodes(workflow))

	return result
}

// Create adds a new draft workflow. Structural problems do not block the
// save; they are reported as advisory validation output so drafting can
// proceed incrementally.
func (w *Workflow) Create(ctx context.Context, workflow *models.Workflow) (*SaveResult, error) {
	if workflow == nil {
		return nil, ErrWorkflowNil
	}

	if err := w.validate.Struct(workflow); err != nil {
		return nil, &ServiceError{Op: "Create", Message: err.Error(), Err: ErrWorkflowNameRequired}
	}

	now := time.Now().UTC()
	workflow.ID = uuid.NewString()
	workflow.Status = models.WorkflowStatusDraft
	workflow.Version = 1
	workflow.CreatedAt = now
	workflow.UpdatedAt = now
	workflow.PublishedAt = nil

	if err := w.persistence.Workflows().Save(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to create workflow: %w", err)
	}

	return &SaveResult{
		Workflow:   workflow,
		Validation: w.saveValidation(workflow),
	}, nil
}

// Update replaces the document of an existing workflow, keeping its identity
// and version. Unpublished (historical) workflows are immutable.
func (w *Workflow) Update(ctx context.Context, workflowID string, workflow *models.Workflow) (*SaveResult, error) {
	if workflow == nil {
		return nil, ErrWorkflowNil
	}

	existing, err := w.persistence.Workflows().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if existing.Status == models.WorkflowStatusUnpublished {
		return nil, &ServiceError{Op: "Update", Err: ErrCannotModifyUnpublished}
	}

	if err := w.validate.Struct(workflow); err != nil {
		return nil, &ServiceError{Op: "Update", Message: err.Error(), Err: ErrWorkflowNameRequired}
	}

	workflow.ID = existing.ID
	workflow.Status = existing.Status
	workflow.Version = existing.Version
	workflow.CreatedAt = existing.CreatedAt
	workflow.PublishedAt = existing.PublishedAt
	workflow.UpdatedAt = time.Now().UTC()

	if err := w.persistence.Workflows().Save(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to update workflow: %w", err)
	}

	return &SaveResult{
		Workflow:   workflow,
		Validation: w.saveValidation(workflow),
	}, nil
}

// ApplyMutation applies an incremental edit. The mutation gate always rejects
// edits entirely outside the main subgraph, even though a draft save itself
// tolerates unreachable scaffolding.
func (w *Workflow) ApplyMutation(ctx context.Context, workflowID string, mutation *graph.Mutation) (*SaveResult, error) {
	existing, err := w.persistence.Workflows().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if existing.Status == models.WorkflowStatusUnpublished {
		return nil, &ServiceError{Op: "ApplyMutation", Err: ErrCannotModifyUnpublished}
	}

	if gated := graph.GateMutation(existing, mutation); !gated.Valid {
		return &SaveResult{Workflow: existing, Validation: gated},
			&models.WorkflowInvalidError{Result: gated}
	}

	next := graph.Apply(existing, mutation)
	next.UpdatedAt = time.Now().UTC()

	if err := w.persistence.Workflows().Save(ctx, next); err != nil {
		return nil, fmt.Errorf("failed to save mutated workflow: %w", err)
	}

	return &SaveResult{
		Workflow:   next,
		Validation: w.saveValidation(next),
	}, nil
}

// Publish promotes a workflow to a new published version. Publishing runs the
// strict pipeline: a document that would be rejected at run start cannot be
// published.
func (w *Workflow) Publish(ctx context.Context, workflowID string) (*models.Workflow, error) {
	workflow, err := w.persistence.Workflows().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if len(workflow.Nodes) == 0 {
		return nil, &ServiceError{Op: "Publish", Err: ErrNodesRequired}
	}

	if validation := w.Validate(workflow); !validation.Valid {
		return nil, &models.WorkflowInvalidError{Result: validation}
	}

	now := time.Now().UTC()
	workflow.Version++
	workflow.Status = models.WorkflowStatusPublished
	workflow.PublishedAt = &now
	workflow.UpdatedAt = now

	if err := w.persistence.Workflows().Save(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to publish workflow: %w", err)
	}

	return workflow, nil
}

// Delete removes a workflow by its ID.
func (w *Workflow) Delete(ctx context.Context, workflowID string) error {
	if _, err := w.persistence.Workflows().GetByID(ctx, workflowID); err != nil {
		return err
	}

	return w.persistence.Workflows().Delete(ctx, workflowID)
}

// saveValidation is the tolerant save-time report: unreachable scaffolding is
// allowed while drafting, everything else is still surfaced.
func (w *Workflow) saveValidation(workflow *models.Workflow) *models.ValidationResult {
	result := graph.Validate(workflow, graph.Options{AllowUnreachable: true})
	result.Merge(w.registry.ValidateWorkflowNodes(workflow))
	result.Merge(graph.ReportDisabled(workflow))

	return result
}
