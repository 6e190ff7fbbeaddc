// Package eventbus carries live execution events from the engine's recorder
// to stream subscribers. The bus is delivery-only: the durable copy of every
// event is in persistence before it is published here.
package eventbus

import (
	"context"

	"github.com/arcflow/arcflow/pkg/models"
)

const (
	// runTopicPrefix scopes live delivery to a single run.
	runTopicPrefix = "arcflow.run."

	// RelayTopic is the Kafka topic run lifecycle events are mirrored to for
	// downstream consumers.
	RelayTopic = "arcflow.runs"
)

// RunTopic returns the live delivery topic for one run.
func RunTopic(runID string) string {
	return runTopicPrefix + runID
}

// EventBus publishes recorded events and hands out per-run subscriptions.
type EventBus interface {
	PublishEvent(ctx context.Context, event *models.ExecutionEvent) error
	SubscribeRun(ctx context.Context, runID string) (<-chan *models.ExecutionEvent, error)
	Close() error
}
