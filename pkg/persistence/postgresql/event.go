package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/lib/pq"

	"github.com/arcflow/arcflow/pkg/models"
	"github.com/arcflow/arcflow/pkg/persistence"
)

// EventRepository stores the append-only event log. The (run_id, sequence)
// primary key backs the sequence guard: a duplicate append surfaces as a
// unique violation and is reported as a sequence conflict.
type EventRepository struct {
	db *sql.DB
}

func (r *EventRepository) Append(ctx context.Context, event *models.ExecutionEvent) error {
	last, err := r.LastSequence(ctx, event.RunID)
	if err != nil {
		return persistence.NewEventError("Append", event.RunID, event.Sequence, err)
	}

	if event.Sequence != last+1 {
		return persistence.NewEventError("Append", event.RunID, event.Sequence, persistence.ErrSequenceConflict)
	}

	var payload any
	if len(event.Payload) > 0 {
		payload = []byte(event.Payload)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO events (run_id, sequence, type, node_id, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		event.RunID, event.Sequence, event.Type, nullString(event.NodeID), payload, event.Timestamp)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return persistence.NewEventError("Append", event.RunID, event.Sequence, persistence.ErrSequenceConflict)
		}

		return persistence.NewEventError("Append", event.RunID, event.Sequence, err)
	}

	return nil
}

func (r *EventRepository) List(ctx context.Context, runID string, query persistence.EventQuery) (*persistence.EventPage, error) {
	channel := query.Channel
	if channel == "" {
		channel = models.ChannelAll
	}

	var after int64

	if query.Cursor != "" {
		parsed, err := strconv.ParseInt(query.Cursor, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid cursor %q: %w", query.Cursor, err)
		}

		after = parsed
	}

	limit := query.Limit
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT run_id, sequence, type, node_id, payload, created_at
		FROM events WHERE run_id = $1 AND sequence > $2
		ORDER BY sequence`, runID, after)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	page := &persistence.EventPage{}

	for rows.Next() {
		event := &models.ExecutionEvent{}

		var (
			nodeID  sql.NullString
			payload []byte
		)

		err := rows.Scan(&event.RunID, &event.Sequence, &event.Type,
			&nodeID, &payload, &event.Timestamp)
		if err != nil {
			return nil, err
		}

		event.NodeID = nodeID.String
		event.Payload = payload

		if channel != models.ChannelAll && event.Type.Channel() != channel {
			continue
		}

		if len(page.Events) == limit {
			page.HasMore = true

			break
		}

		page.Events = append(page.Events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(page.Events) > 0 {
		page.NextCursor = strconv.FormatInt(page.Events[len(page.Events)-1].Sequence, 10)
	}

	return page, nil
}

func (r *EventRepository) LastSequence(ctx context.Context, runID string) (int64, error) {
	var last int64

	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(sequence), 0) FROM events WHERE run_id = $1`, runID).Scan(&last)
	if err != nil {
		return 0, err
	}

	return last, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
