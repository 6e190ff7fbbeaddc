// Package gate implements the side-effect confirmation gate. A node flagged
// with a side effect does not execute until an operator allows it; a denied,
// timed-out, or unanswered request keeps the node from running.
package gate

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/arcflow/arcflow/pkg/models"
	"github.com/arcflow/arcflow/pkg/persistence"
)

var (
	// ErrInvalidDecision indicates a resolution that is neither allow nor deny.
	ErrInvalidDecision = errors.New("decision must be allow or deny")

	// ErrRunMismatch indicates the confirmation belongs to a different run.
	ErrRunMismatch = errors.New("confirmation does not belong to this run")
)

// DefaultTimeout bounds how long an open request waits for a decision.
const DefaultTimeout = 5 * time.Minute

// Gate issues confirmation requests and blocks executors until each request
// is resolved. Requests are persisted before anyone can wait on them, so a
// decision arriving through the API always finds its record.
type Gate struct {
	logger        *slog.Logger
	confirmations persistence.ConfirmationRepository
	timeout       time.Duration

	mu      sync.Mutex
	pending map[string]chan models.ConfirmationDecision
}

func NewGate(logger *slog.Logger, confirmations persistence.ConfirmationRepository, timeout time.Duration) *Gate {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Gate{
		logger:        logger.With("module", "gate"),
		confirmations: confirmations,
		timeout:       timeout,
		pending:       make(map[string]chan models.ConfirmationDecision),
	}
}

// Request opens a confirmation for one node of one run. Every call issues a
// fresh confirm_id: a node visited again after a workflow edit gets a new
// request, never a recycled decision.
func (g *Gate) Request(ctx context.Context, runID, nodeID string) (*models.ConfirmationRequest, error) {
	request := &models.ConfirmationRequest{
		ConfirmID: uuid.NewString(),
		RunID:     runID,
		NodeID:    nodeID,
		Decision:  models.ConfirmationPending,
		CreatedAt: time.Now().UTC(),
	}

	if err := g.confirmations.Create(ctx, request); err != nil {
		return nil, err
	}

	g.mu.Lock()
	g.pending[request.ConfirmID] = make(chan models.ConfirmationDecision, 1)
	g.mu.Unlock()

	g.logger.InfoContext(ctx, "Confirmation requested",
		"run_id", runID, "node_id", nodeID, "confirm_id", request.ConfirmID)

	return request, nil
}

// Await blocks until the request is resolved or the gate timeout passes.
// Timeout is recorded as its own decision; callers treat it as a denial.
func (g *Gate) Await(ctx context.Context, confirmID string) (models.ConfirmationDecision, error) {
	g.mu.Lock()
	waiter, ok := g.pending[confirmID]
	g.mu.Unlock()

	if !ok {
		return "", persistence.ErrConfirmationNotFound
	}

	defer g.forget(confirmID)

	timer := time.NewTimer(g.timeout)
	defer timer.Stop()

	select {
	case decision := <-waiter:
		return decision, nil
	case <-timer.C:
		return g.expire(ctx, confirmID)
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Resolve records an operator decision and wakes the waiting executor. The
// decision is recorded exactly once; a second call reports the conflict.
func (g *Gate) Resolve(ctx context.Context, runID, confirmID string, decision models.ConfirmationDecision) error {
	if decision != models.ConfirmationAllow && decision != models.ConfirmationDeny {
		return ErrInvalidDecision
	}

	request, err := g.confirmations.GetByID(ctx, confirmID)
	if err != nil {
		return err
	}

	if request.RunID != runID {
		return ErrRunMismatch
	}

	if err := g.confirmations.Resolve(ctx, confirmID, decision); err != nil {
		return err
	}

	g.logger.InfoContext(ctx, "Confirmation resolved",
		"run_id", runID, "confirm_id", confirmID, "decision", decision)

	g.notify(confirmID, decision)

	return nil
}

// OpenForRun reports how many of a run's requests still carry no decision.
func (g *Gate) OpenForRun(ctx context.Context, runID string) (int, error) {
	requests, err := g.confirmations.ListByRun(ctx, runID)
	if err != nil {
		return 0, err
	}

	open := 0

	for _, request := range requests {
		if !request.Resolved() {
			open++
		}
	}

	return open, nil
}

// expire records the timeout decision. If an operator decision landed in the
// same instant, the stored decision wins.
func (g *Gate) expire(ctx context.Context, confirmID string) (models.ConfirmationDecision, error) {
	err := g.confirmations.Resolve(ctx, confirmID, models.ConfirmationTimeout)
	if errors.Is(err, persistence.ErrConfirmationResolved) {
		request, getErr := g.confirmations.GetByID(ctx, confirmID)
		if getErr != nil {
			return "", getErr
		}

		return request.Decision, nil
	}

	if err != nil {
		return "", err
	}

	g.logger.WarnContext(ctx, "Confirmation timed out", "confirm_id", confirmID)

	return models.ConfirmationTimeout, nil
}

func (g *Gate) notify(confirmID string, decision models.ConfirmationDecision) {
	g.mu.Lock()
	waiter, ok := g.pending[confirmID]
	g.mu.Unlock()

	if !ok {
		return
	}

	select {
	case waiter <- decision:
	default:
	}
}

func (g *Gate) forget(confirmID string) {
	g.mu.Lock()
	delete(g.pending, confirmID)
	g.mu.Unlock()
}
