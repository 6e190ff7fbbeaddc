package file

import (
	"context"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/arcflow/arcflow/pkg/models"
	"github.com/arcflow/arcflow/pkg/persistence"
)

// RunRepository stores run records as runs/<id>.json.
type RunRepository struct {
	store *Persistence
}

func (r *RunRepository) Create(_ context.Context, run *models.Run) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if err := writeJSON(r.store.path("runs", run.ID+".json"), run); err != nil {
		return persistence.NewRunError("Create", run.ID, err)
	}

	return nil
}

func (r *RunRepository) GetByID(_ context.Context, id string) (*models.Run, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	return r.getLocked(id)
}

func (r *RunRepository) getLocked(id string) (*models.Run, error) {
	run := &models.Run{}
	if err := readJSON(r.store.path("runs", id+".json"), run, persistence.ErrRunNotFound); err != nil {
		return nil, persistence.NewRunError("GetByID", id, err)
	}

	return run, nil
}

// Update persists the run's current state. Terminal runs are immutable; an
// update against one fails with ErrRunFinished.
func (r *RunRepository) Update(_ context.Context, run *models.Run) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	stored, err := r.getLocked(run.ID)
	if err != nil {
		return err
	}

	if stored.Status.Terminal() {
		return persistence.NewRunError("Update", run.ID, persistence.ErrRunFinished)
	}

	if err := writeJSON(r.store.path("runs", run.ID+".json"), run); err != nil {
		return persistence.NewRunError("Update", run.ID, err)
	}

	return nil
}

func (r *RunRepository) ListByWorkflow(_ context.Context, workflowID string) ([]*models.Run, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	entries, err := os.ReadDir(r.store.path("runs"))
	if err != nil {
		return nil, err
	}

	var runs []*models.Run

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		run := &models.Run{}
		if err := readJSON(r.store.path("runs", entry.Name()), run, persistence.ErrRunNotFound); err != nil {
			return nil, err
		}

		if workflowID == "" || run.WorkflowID == workflowID {
			runs = append(runs, run)
		}
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].CreatedAt.Before(runs[j].CreatedAt)
	})

	return runs, nil
}

// NodeExecutionRepository stores the node executions of a run as one JSON
// array at executions/<run_id>.json.
type NodeExecutionRepository struct {
	store *Persistence
}

func (r *NodeExecutionRepository) Save(_ context.Context, execution *models.NodeExecution) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	path := r.store.path("executions", execution.RunID+".json")

	var executions []*models.NodeExecution

	err := readJSON(path, &executions, os.ErrNotExist)
	if err != nil && err != os.ErrNotExist {
		return err
	}

	replaced := false

	for i, existing := range executions {
		if existing.ID == execution.ID {
			executions[i] = execution
			replaced = true

			break
		}
	}

	if !replaced {
		executions = append(executions, execution)
	}

	return writeJSON(path, executions)
}

func (r *NodeExecutionRepository) ListByRun(_ context.Context, runID string) ([]*models.NodeExecution, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var executions []*models.NodeExecution

	err := readJSON(r.store.path("executions", runID+".json"), &executions, os.ErrNotExist)
	if err != nil && err != os.ErrNotExist {
		return nil, err
	}

	return executions, nil
}

// ConfirmationRepository stores confirmation requests as confirmations/<confirm_id>.json.
type ConfirmationRepository struct {
	store *Persistence
}

func (r *ConfirmationRepository) Create(_ context.Context, request *models.ConfirmationRequest) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	return writeJSON(r.store.path("confirmations", request.ConfirmID+".json"), request)
}

func (r *ConfirmationRepository) GetByID(_ context.Context, confirmID string) (*models.ConfirmationRequest, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	return r.getLocked(confirmID)
}

func (r *ConfirmationRepository) getLocked(confirmID string) (*models.ConfirmationRequest, error) {
	request := &models.ConfirmationRequest{}

	path := r.store.path("confirmations", confirmID+".json")
	if err := readJSON(path, request, persistence.ErrConfirmationNotFound); err != nil {
		return nil, err
	}

	return request, nil
}

// Resolve records a decision exactly once. A second resolution fails with
// ErrConfirmationResolved no matter which decision it carries.
func (r *ConfirmationRepository) Resolve(_ context.Context, confirmID string, decision models.ConfirmationDecision) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	request, err := r.getLocked(confirmID)
	if err != nil {
		return err
	}

	if request.Resolved() {
		return persistence.ErrConfirmationResolved
	}

	now := time.Now().UTC()
	request.Decision = decision
	request.ResolvedAt = &now

	return writeJSON(r.store.path("confirmations", confirmID+".json"), request)
}

func (r *ConfirmationRepository) ListByRun(_ context.Context, runID string) ([]*models.ConfirmationRequest, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	entries, err := os.ReadDir(r.store.path("confirmations"))
	if err != nil {
		return nil, err
	}

	var requests []*models.ConfirmationRequest

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		request := &models.ConfirmationRequest{}

		path := r.store.path("confirmations", entry.Name())
		if err := readJSON(path, request, persistence.ErrConfirmationNotFound); err != nil {
			return nil, err
		}

		if request.RunID == runID {
			requests = append(requests, request)
		}
	}

	sort.Slice(requests, func(i, j int) bool {
		return requests[i].CreatedAt.Before(requests[j].CreatedAt)
	})

	return requests, nil
}
