package file

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/arcflow/arcflow/pkg/models"
	"github.com/arcflow/arcflow/pkg/persistence"
)

// EventRepository stores each run's event log as an append-only JSON-lines
// file at events/<run_id>.jsonl. Lines are never rewritten, so replay reads
// back exactly the payload bytes the recorder appended.
type EventRepository struct {
	store *Persistence
}

func (r *EventRepository) Append(_ context.Context, event *models.ExecutionEvent) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	last, err := r.lastSequenceLocked(event.RunID)
	if err != nil {
		return persistence.NewEventError("Append", event.RunID, event.Sequence, err)
	}

	if event.Sequence != last+1 {
		return persistence.NewEventError("Append", event.RunID, event.Sequence, persistence.ErrSequenceConflict)
	}

	line, err := json.Marshal(event)
	if err != nil {
		return persistence.NewEventError("Append", event.RunID, event.Sequence, err)
	}

	file, err := os.OpenFile(
		r.store.path("events", event.RunID+".jsonl"),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND,
		0o644,
	)
	if err != nil {
		return persistence.NewEventError("Append", event.RunID, event.Sequence, err)
	}
	defer file.Close()

	if _, err := file.Write(append(line, '\n')); err != nil {
		return persistence.NewEventError("Append", event.RunID, event.Sequence, err)
	}

	return file.Sync()
}

func (r *EventRepository) List(_ context.Context, runID string, query persistence.EventQuery) (*persistence.EventPage, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	events, err := r.readAllLocked(runID)
	if err != nil {
		return nil, err
	}

	return paginate(events, query)
}

func (r *EventRepository) LastSequence(_ context.Context, runID string) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	return r.lastSequenceLocked(runID)
}

func (r *EventRepository) lastSequenceLocked(runID string) (int64, error) {
	events, err := r.readAllLocked(runID)
	if err != nil {
		return 0, err
	}

	if len(events) == 0 {
		return 0, nil
	}

	return events[len(events)-1].Sequence, nil
}

func (r *EventRepository) readAllLocked(runID string) ([]*models.ExecutionEvent, error) {
	file, err := os.Open(r.store.path("events", runID+".jsonl"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}

		return nil, err
	}
	defer file.Close()

	var events []*models.ExecutionEvent

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		event := &models.ExecutionEvent{}
		if err := json.Unmarshal(scanner.Bytes(), event); err != nil {
			return nil, fmt.Errorf("corrupt event log for run %s: %w", runID, err)
		}

		events = append(events, event)
	}

	return events, scanner.Err()
}

// paginate applies the channel filter and cursor window shared by the file
// implementation. The cursor is the sequence of the last event returned.
func paginate(events []*models.ExecutionEvent, query persistence.EventQuery) (*persistence.EventPage, error) {
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

	page := &persistence.EventPage{}

	for _, event := range events {
		if event.Sequence <= after {
			continue
		}

		if channel != models.ChannelAll && event.Type.Channel() != channel {
			continue
		}

		if len(page.Events) == limit {
			page.HasMore = true

			break
		}

		page.Events = append(page.Events, event)
	}

	if len(page.Events) > 0 {
		page.NextCursor = strconv.FormatInt(page.Events[len(page.Events)-1].Sequence, 10)
	}

	return page, nil
}
