package eventbus

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"

	"github.com/arcflow/arcflow/pkg/models"
)

// KafkaRelay decorates a bus so run lifecycle events are mirrored to the
// shared Kafka topic. Node-channel events stay local: downstream consumers
// track run outcomes, not per-node chatter.
type KafkaRelay struct {
	inner EventBus
	relay message.Publisher
}

func NewKafkaRelay(inner EventBus, relay message.Publisher) *KafkaRelay {
	return &KafkaRelay{inner: inner, relay: relay}
}

func (r *KafkaRelay) PublishEvent(ctx context.Context, event *models.ExecutionEvent) error {
	if err := r.inner.PublishEvent(ctx, event); err != nil {
		return err
	}

	if event.Type.Channel() != models.ChannelRun {
		return nil
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := message.NewMessage("msg-"+watermill.NewULID(), payload)
	msg.Metadata.Set(runIDMetadataKey, event.RunID)
	msg.Metadata.Set(eventTypeMetadataKey, string(event.Type))

	return r.relay.Publish(RelayTopic, msg)
}

func (r *KafkaRelay) SubscribeRun(ctx context.Context, runID string) (<-chan *models.ExecutionEvent, error) {
	return r.inner.SubscribeRun(ctx, runID)
}

func (r *KafkaRelay) Close() error {
	if err := r.relay.Close(); err != nil {
		return err
	}

	return r.inner.Close()
}
