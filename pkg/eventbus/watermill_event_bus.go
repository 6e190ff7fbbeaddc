package eventbus

import (
	"context"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"

	"github.com/arcflow/arcflow/pkg/models"
)

const (
	runIDMetadataKey     = "run_id"
	eventTypeMetadataKey = "event_type"
)

// WatermillEventBus adapts any watermill publisher/subscriber pair into the
// delivery bus. gochannel backs it in-process; kafka backs it when events
// must cross processes.
type WatermillEventBus struct {
	logger     *slog.Logger
	publisher  message.Publisher
	subscriber message.Subscriber
}

func NewWatermillEventBus(logger *slog.Logger, publisher message.Publisher, subscriber message.Subscriber) *WatermillEventBus {
	return &WatermillEventBus{
		logger:     logger.With("module", "eventbus"),
		publisher:  publisher,
		subscriber: subscriber,
	}
}

func (eb *WatermillEventBus) PublishEvent(_ context.Context, event *models.ExecutionEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := message.NewMessage("msg-"+watermill.NewULID(), payload)
	msg.Metadata.Set(runIDMetadataKey, event.RunID)
	msg.Metadata.Set(eventTypeMetadataKey, string(event.Type))

	return eb.publisher.Publish(RunTopic(event.RunID), msg)
}

// SubscribeRun returns a channel of the run's live events. The channel closes
// when ctx is cancelled or the bus shuts down; a message that cannot be
// decoded is dropped with a log line rather than stalling the stream.
func (eb *WatermillEventBus) SubscribeRun(ctx context.Context, runID string) (<-chan *models.ExecutionEvent, error) {
	messages, err := eb.subscriber.Subscribe(ctx, RunTopic(runID))
	if err != nil {
		return nil, err
	}

	events := make(chan *models.ExecutionEvent)

	go func() {
		defer close(events)

		for msg := range messages {
			event := &models.ExecutionEvent{}

			if err := json.Unmarshal(msg.Payload, event); err != nil {
				eb.logger.ErrorContext(ctx, "Dropping undecodable event",
					"run_id", runID, "error", err)
				msg.Ack()

				continue
			}

			select {
			case events <- event:
				msg.Ack()
			case <-ctx.Done():
				msg.Nack()

				return
			}
		}
	}()

	return events, nil
}

func (eb *WatermillEventBus) Close() error {
	if err := eb.publisher.Close(); err != nil {
		return err
	}

	return eb.subscriber.Close()
}
