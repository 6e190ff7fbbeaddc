// Package queue provides the Redis run-request intake receiver. External
// systems enqueue {workflow_id, input} documents; the receiver pops them and
// starts runs.
package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/goccy/go-json"
	redis "github.com/redis/go-redis/v9"

	"github.com/arcflow/arcflow/pkg/models"
)

const DefaultQueue = "arcflow:runs"

// RunStarter is what the receiver needs from the run service.
type RunStarter interface {
	CreateAndStart(ctx context.Context, workflowID string, input map[string]any) (*models.Run, error)
}

// runRequest is the wire format external producers push onto the list.
type runRequest struct {
	WorkflowID string         `json:"workflow_id"`
	Input      map[string]any `json:"input,omitempty"`
}

// Receiver consumes run requests from a Redis list with BLPOP.
type Receiver struct {
	logger  *slog.Logger
	client  redis.UniversalClient
	queue   string
	starter RunStarter

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewReceiver connects to Redis and returns a receiver for the given queue.
func NewReceiver(ctx context.Context, logger *slog.Logger, redisURL, queue string, starter RunStarter) (*Receiver, error) {
	if queue == "" {
		queue = DefaultQueue
	}

	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(options)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Receiver{
		logger:  logger.With("module", "queue_receiver", "queue", queue),
		client:  client,
		queue:   queue,
		starter: starter,
		stopCh:  make(chan struct{}),
	}, nil
}

// Start launches the consumer loop.
func (r *Receiver) Start(ctx context.Context) {
	r.logger.InfoContext(ctx, "Starting run request receiver")

	r.wg.Add(1)

	go r.consume(ctx)
}

func (r *Receiver) consume(ctx context.Context) {
	defer r.wg.Done()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ctx.Done():
			return
		default:
			if err := r.processMessage(ctx); err != nil {
				r.logger.ErrorContext(ctx, "Error processing run request", "error", err)
				time.Sleep(time.Second)
			}
		}
	}
}

func (r *Receiver) processMessage(ctx context.Context) error {
	result, err := r.client.BLPop(ctx, time.Second, r.queue).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) {
			return nil
		}

		return fmt.Errorf("failed to pop run request: %w", err)
	}

	if len(result) < 2 {
		return nil
	}

	var request runRequest
	if err := json.Unmarshal([]byte(result[1]), &request); err != nil {
		r.logger.WarnContext(ctx, "Dropping undecodable run request", "error", err)

		return nil
	}

	if request.WorkflowID == "" {
		r.logger.WarnContext(ctx, "Dropping run request without workflow_id")

		return nil
	}

	run, err := r.starter.CreateAndStart(ctx, request.WorkflowID, request.Input)
	if err != nil {
		r.logger.ErrorContext(ctx, "Run request rejected",
			"workflow_id", request.WorkflowID, "error", err)

		return nil
	}

	r.logger.InfoContext(ctx, "Run started from queue",
		"run_id", run.ID, "workflow_id", request.WorkflowID)

	return nil
}

// Stop shuts the consumer loop down and closes the Redis client.
func (r *Receiver) Stop(ctx context.Context) error {
	close(r.stopCh)
	r.wg.Wait()

	if err := r.client.Close(); err != nil {
		r.logger.ErrorContext(ctx, "Error closing Redis client", "error", err)
	}

	return nil
}
