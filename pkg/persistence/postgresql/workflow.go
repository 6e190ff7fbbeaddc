package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/arcflow/arcflow/pkg/models"
	"github.com/arcflow/arcflow/pkg/persistence"
)

// WorkflowRepository stores every saved version of a workflow document; the
// newest carries the latest flag.
type WorkflowRepository struct {
	db *sql.DB
}

func (r *WorkflowRepository) List(ctx context.Context) ([]*models.Workflow, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT document FROM workflows WHERE latest ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var workflows []*models.Workflow

	for rows.Next() {
		workflow, err := scanWorkflow(rows)
		if err != nil {
			return nil, err
		}

		workflows = append(workflows, workflow)
	}

	return workflows, rows.Err()
}

func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	row := r.db.QueryRowContext(ctx, `SELECT document FROM workflows WHERE id = $1 AND latest`, id)

	workflow, err := scanWorkflow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.NewWorkflowError("GetByID", id, persistence.ErrWorkflowNotFound)
	}

	if err != nil {
		return nil, persistence.NewWorkflowError("GetByID", id, err)
	}

	return workflow, nil
}

func (r *WorkflowRepository) GetVersion(ctx context.Context, id string, version int) (*models.Workflow, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT document FROM workflows WHERE id = $1 AND version = $2`, id, version)

	workflow, err := scanWorkflow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &persistence.WorkflowError{
			Op: "GetVersion", WorkflowID: id, Version: version,
			Err: persistence.ErrWorkflowVersionNotFound,
		}
	}

	if err != nil {
		return nil, &persistence.WorkflowError{Op: "GetVersion", WorkflowID: id, Version: version, Err: err}
	}

	return workflow, nil
}

func (r *WorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	document, err := json.Marshal(workflow)
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	_, err = tx.ExecContext(ctx, `UPDATE workflows SET latest = FALSE WHERE id = $1`, workflow.ID)
	if err != nil {
		_ = tx.Rollback()

		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO workflows (id, version, latest, document)
		VALUES ($1, $2, TRUE, $3)
		ON CONFLICT (id, version) DO UPDATE SET document = EXCLUDED.document, latest = TRUE`,
		workflow.ID, workflow.Version, document)
	if err != nil {
		_ = tx.Rollback()

		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	return tx.Commit()
}

func (r *WorkflowRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM workflows WHERE id = $1`, id)
	if err != nil {
		return persistence.NewWorkflowError("Delete", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewWorkflowError("Delete", id, err)
	}

	if affected == 0 {
		return persistence.NewWorkflowError("Delete", id, persistence.ErrWorkflowNotFound)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkflow(row rowScanner) (*models.Workflow, error) {
	var document []byte

	if err := row.Scan(&document); err != nil {
		return nil, err
	}

	workflow := &models.Workflow{}
	if err := json.Unmarshal(document, workflow); err != nil {
		return nil, err
	}

	return workflow, nil
}
