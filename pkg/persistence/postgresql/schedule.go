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

// ScheduleRepository stores cron schedules with next_due_at denormalized so
// the poller's due query stays on an index.
type ScheduleRepository struct {
	db *sql.DB
}

func (r *ScheduleRepository) Save(ctx context.Context, schedule *models.Schedule) error {
	record, err := json.Marshal(schedule)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO schedules (id, workflow_id, record, next_due_at, active)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			workflow_id = EXCLUDED.workflow_id,
			record = EXCLUDED.record,
			next_due_at = EXCLUDED.next_due_at,
			active = EXCLUDED.active`,
		schedule.ID, schedule.WorkflowID, record, schedule.NextDueAt, schedule.Active)

	return err
}

func (r *ScheduleRepository) GetByID(ctx context.Context, id string) (*models.Schedule, error) {
	var record []byte

	err := r.db.QueryRowContext(ctx, `SELECT record FROM schedules WHERE id = $1`, id).Scan(&record)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.ErrScheduleNotFound
	}

	if err != nil {
		return nil, err
	}

	schedule := &models.Schedule{}
	if err := json.Unmarshal(record, schedule); err != nil {
		return nil, err
	}

	return schedule, nil
}

func (r *ScheduleRepository) ListDue(ctx context.Context) ([]*models.Schedule, error) {
	return r.list(ctx, `
		SELECT record FROM schedules
		WHERE active AND next_due_at <= $1
		ORDER BY next_due_at`, time.Now().UTC())
}

func (r *ScheduleRepository) List(ctx context.Context) ([]*models.Schedule, error) {
	return r.list(ctx, `SELECT record FROM schedules ORDER BY next_due_at`)
}

func (r *ScheduleRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM schedules WHERE id = $1`, id)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if affected == 0 {
		return persistence.ErrScheduleNotFound
	}

	return nil
}

func (r *ScheduleRepository) list(ctx context.Context, query string, args ...any) ([]*models.Schedule, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var schedules []*models.Schedule

	for rows.Next() {
		var record []byte

		if err := rows.Scan(&record); err != nil {
			return nil, err
		}

		schedule := &models.Schedule{}
		if err := json.Unmarshal(record, schedule); err != nil {
			return nil, err
		}

		schedules = append(schedules, schedule)
	}

	return schedules, rows.Err()
}
