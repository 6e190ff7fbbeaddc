package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/arcflow/arcflow/pkg/channels/gochannel"
	"github.com/arcflow/arcflow/pkg/channels/kafka"
	"github.com/arcflow/arcflow/pkg/eventbus"
)

// NewEventBus builds the live event bus. Per-run subscriptions always ride
// the in-process channel; the kafka provider additionally mirrors run
// lifecycle events to the shared relay topic.
func NewEventBus(provider string, logger *slog.Logger, serviceName string) eventbus.EventBus {
	publisher, subscriber, err := gochannel.CreateChannel(watermill.NewSlogLogger(logger))
	if err != nil {
		panic(fmt.Errorf("failed to create in-process pub/sub: %w", err))
	}

	bus := eventbus.NewWatermillEventBus(logger, publisher, subscriber)

	switch provider {
	case "kafka":
		relayPublisher, _, err := kafka.CreateChannel(watermill.NewSlogLogger(logger), serviceName)
		if err != nil {
			panic(fmt.Errorf("failed to create Kafka pub/sub: %w", err))
		}

		return eventbus.NewKafkaRelay(bus, relayPublisher)
	case "", "gochannel":
		return bus
	default:
		panic("Unsupported event bus provider: " + provider)
	}
}
