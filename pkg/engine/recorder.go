package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/goccy/go-json"

	"github.com/arcflow/arcflow/pkg/eventbus"
	"github.com/arcflow/arcflow/pkg/models"
	"github.com/arcflow/arcflow/pkg/persistence"
)

// recorder is the single serialization point of a run's event stream. One
// goroutine assigns sequence numbers, appends durably, and only then fans the
// event out to live subscribers. Two nodes racing to complete are therefore
// always recorded in one consistent order, and a subscriber never sees an
// event that could be lost on restart.
type recorder struct {
	logger   *slog.Logger
	events   persistence.EventRepository
	bus      eventbus.EventBus
	runID    string
	requests chan recordRequest
	done     chan struct{}
}

type recordRequest struct {
	eventType models.EventType
	nodeID    string
	payload   any
	reply     chan error
}

func newRecorder(ctx context.Context, logger *slog.Logger, events persistence.EventRepository, bus eventbus.EventBus, runID string) (*recorder, error) {
	last, err := events.LastSequence(ctx, runID)
	if err != nil {
		return nil, err
	}

	r := &recorder{
		logger:   logger.With("module", "recorder", "run_id", runID),
		events:   events,
		bus:      bus,
		runID:    runID,
		requests: make(chan recordRequest),
		done:     make(chan struct{}),
	}

	go r.loop(last)

	return r, nil
}

func (r *recorder) loop(lastSequence int64) {
	defer close(r.done)

	sequence := lastSequence

	for request := range r.requests {
		sequence++
		request.reply <- r.append(sequence, request)
	}
}

func (r *recorder) append(sequence int64, request recordRequest) error {
	payload, err := json.Marshal(request.payload)
	if err != nil {
		return err
	}

	event := &models.ExecutionEvent{
		RunID:     r.runID,
		Sequence:  sequence,
		Type:      request.eventType,
		NodeID:    request.nodeID,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}

	ctx := context.Background()

	if err := r.events.Append(ctx, event); err != nil {
		return err
	}

	// The durable copy exists; a live delivery failure only degrades the
	// stream, never the log.
	if err := r.bus.PublishEvent(ctx, event); err != nil {
		r.logger.Error("Live event delivery failed",
			"sequence", sequence, "event_type", request.eventType, "error", err)
	}

	return nil
}

// record appends one event and blocks until it is durable.
func (r *recorder) record(eventType models.EventType, nodeID string, payload any) error {
	reply := make(chan error, 1)
	r.requests <- recordRequest{
		eventType: eventType,
		nodeID:    nodeID,
		payload:   payload,
		reply:     reply,
	}

	return <-reply
}

// close stops the recorder after all queued events are appended.
func (r *recorder) close() {
	close(r.requests)
	<-r.done
}
