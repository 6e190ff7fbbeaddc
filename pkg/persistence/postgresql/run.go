package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/arcflow/arcflow/pkg/models"
	"github.com/arcflow/arcflow/pkg/persistence"
)

// RunRepository stores run records as JSONB with the status denormalized for
// the terminal-state guard.
type RunRepository struct {
	db *sql.DB
}

func (r *RunRepository) Create(ctx context.Context, run *models.Run) error {
	record, err := json.Marshal(run)
	if err != nil {
		return persistence.NewRunError("Create", run.ID, err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO runs (id, workflow_id, workflow_version, status, record, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		run.ID, run.WorkflowID, run.WorkflowVersion, run.Status, record, run.CreatedAt)
	if err != nil {
		return persistence.NewRunError("Create", run.ID, err)
	}

	return nil
}

func (r *RunRepository) GetByID(ctx context.Context, id string) (*models.Run, error) {
	var record []byte

	err := r.db.QueryRowContext(ctx, `SELECT record FROM runs WHERE id = $1`, id).Scan(&record)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.NewRunError("GetByID", id, persistence.ErrRunNotFound)
	}

	if err != nil {
		return nil, persistence.NewRunError("GetByID", id, err)
	}

	run := &models.Run{}
	if err := json.Unmarshal(record, run); err != nil {
		return nil, persistence.NewRunError("GetByID", id, err)
	}

	return run, nil
}

// Update refuses to touch a run whose stored status is already terminal.
func (r *RunRepository) Update(ctx context.Context, run *models.Run) error {
	record, err := json.Marshal(run)
	if err != nil {
		return persistence.NewRunError("Update", run.ID, err)
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE runs SET status = $2, record = $3
		WHERE id = $1 AND status NOT IN ($4, $5, $6)`,
		run.ID, run.Status, record,
		models.RunStatusCompleted, models.RunStatusFailed, models.RunStatusCancelled)
	if err != nil {
		return persistence.NewRunError("Update", run.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewRunError("Update", run.ID, err)
	}

	if affected == 0 {
		if _, err := r.GetByID(ctx, run.ID); err != nil {
			return err
		}

		return persistence.NewRunError("Update", run.ID, persistence.ErrRunFinished)
	}

	return nil
}

func (r *RunRepository) ListByWorkflow(ctx context.Context, workflowID string) ([]*models.Run, error) {
	query := `SELECT record FROM runs ORDER BY created_at`
	args := []any{}

	if workflowID != "" {
		query = `SELECT record FROM runs WHERE workflow_id = $1 ORDER BY created_at`
		args = append(args, workflowID)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*models.Run

	for rows.Next() {
		var record []byte

		if err := rows.Scan(&record); err != nil {
			return nil, err
		}

		run := &models.Run{}
		if err := json.Unmarshal(record, run); err != nil {
			return nil, err
		}

		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// NodeExecutionRepository stores per-run node execution records.
type NodeExecutionRepository struct {
	db *sql.DB
}

func (r *NodeExecutionRepository) Save(ctx context.Context, execution *models.NodeExecution) error {
	record, err := json.Marshal(execution)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO node_executions (id, run_id, node_id, record)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET record = EXCLUDED.record`,
		execution.ID, execution.RunID, execution.NodeID, record)

	return err
}

func (r *NodeExecutionRepository) ListByRun(ctx context.Context, runID string) ([]*models.NodeExecution, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT record FROM node_executions WHERE run_id = $1`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var executions []*models.NodeExecution

	for rows.Next() {
		var record []byte

		if err := rows.Scan(&record); err != nil {
			return nil, err
		}

		execution := &models.NodeExecution{}
		if err := json.Unmarshal(record, execution); err != nil {
			return nil, err
		}

		executions = append(executions, execution)
	}

	return executions, rows.Err()
}

// ConfirmationRepository stores side-effect confirmation requests.
type ConfirmationRepository struct {
	db *sql.DB
}

func (r *ConfirmationRepository) Create(ctx context.Context, request *models.ConfirmationRequest) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO confirmations (confirm_id, run_id, node_id, decision, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		request.ConfirmID, request.RunID, request.NodeID, request.Decision, request.CreatedAt)

	return err
}

func (r *ConfirmationRepository) GetByID(ctx context.Context, confirmID string) (*models.ConfirmationRequest, error) {
	request := &models.ConfirmationRequest{}

	var resolvedAt sql.NullTime

	err := r.db.QueryRowContext(ctx, `
		SELECT confirm_id, run_id, node_id, decision, created_at, resolved_at
		FROM confirmations WHERE confirm_id = $1`, confirmID).
		Scan(&request.ConfirmID, &request.RunID, &request.NodeID,
			&request.Decision, &request.CreatedAt, &resolvedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.ErrConfirmationNotFound
	}

	if err != nil {
		return nil, err
	}

	if resolvedAt.Valid {
		request.ResolvedAt = &resolvedAt.Time
	}

	return request, nil
}

// Resolve records a decision exactly once; the WHERE clause is the guard.
func (r *ConfirmationRepository) Resolve(ctx context.Context, confirmID string, decision models.ConfirmationDecision) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE confirmations SET decision = $2, resolved_at = $3
		WHERE confirm_id = $1 AND decision = $4`,
		confirmID, decision, time.Now().UTC(), models.ConfirmationPending)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if affected == 0 {
		if _, err := r.GetByID(ctx, confirmID); err != nil {
			return err
		}

		return persistence.ErrConfirmationResolved
	}

	return nil
}

func (r *ConfirmationRepository) ListByRun(ctx context.Context, runID string) ([]*models.ConfirmationRequest, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT confirm_id, run_id, node_id, decision, created_at, resolved_at
		FROM confirmations WHERE run_id = $1 ORDER BY created_at`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []*models.ConfirmationRequest

	for rows.Next() {
		request := &models.ConfirmationRequest{}

		var resolvedAt sql.NullTime

		err := rows.Scan(&request.ConfirmID, &request.RunID, &request.NodeID,
			&request.Decision, &request.CreatedAt, &resolvedAt)
		if err != nil {
			return nil, err
		}

		if resolvedAt.Valid {
			request.ResolvedAt = &resolvedAt.Time
		}

		requests = append(requests, request)
	}

	return requests, rows.Err()
}
