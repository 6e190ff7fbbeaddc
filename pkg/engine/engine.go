// Package engine owns the run lifecycle: creating runs against a bound
// workflow version, driving the per-run scheduler, and exposing cancel and
// confirmation entry points.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/arcflow/arcflow/pkg/condition"
	"github.com/arcflow/arcflow/pkg/eventbus"
	"github.com/arcflow/arcflow/pkg/gate"
	"github.com/arcflow/arcflow/pkg/graph"
	"github.com/arcflow/arcflow/pkg/log"
	"github.com/arcflow/arcflow/pkg/models"
	"github.com/arcflow/arcflow/pkg/persistence"
	"github.com/arcflow/arcflow/pkg/registry"
)

const (
	defaultWorkerLimit = 8
	defaultNodeTimeout = 30 * time.Second
)

// Config tunes one engine instance.
type Config struct {
	// WorkerLimit bounds concurrent node executions per run.
	WorkerLimit int

	// DefaultNodeTimeout bounds each executor call unless the node config
	// carries its own timeout.
	DefaultNodeTimeout time.Duration

	// ConfirmTimeout bounds how long a side-effect gate waits for a decision
	// before recording timeout (treated as deny).
	ConfirmTimeout time.Duration
}

// Engine is the run lifecycle manager. A run is created pending, started onto
// its own scheduler goroutine, and reaches exactly one terminal status.
type Engine struct {
	logger    *slog.Logger
	store     persistence.Persistence
	registry  *registry.Registry
	bus       eventbus.EventBus
	gate      *gate.Gate
	evaluator *condition.Evaluator
	config    Config

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	dones   map[string]chan struct{}
}

func NewEngine(
	logger *slog.Logger,
	store persistence.Persistence,
	nodeRegistry *registry.Registry,
	bus eventbus.EventBus,
	config Config,
	evaluatorOpts ...condition.Option,
) *Engine {
	if config.WorkerLimit <= 0 {
		config.WorkerLimit = defaultWorkerLimit
	}

	if config.DefaultNodeTimeout <= 0 {
		config.DefaultNodeTimeout = defaultNodeTimeout
	}

	engineLogger := logger.With("module", "engine")

	return &Engine{
		logger:    engineLogger,
		store:     store,
		registry:  nodeRegistry,
		bus:       bus,
		gate:      gate.NewGate(engineLogger, store.Confirmations(), config.ConfirmTimeout),
		evaluator: condition.NewEvaluator(evaluatorOpts...),
		config:    config,
		cancels:   make(map[string]context.CancelFunc),
		dones:     make(map[string]chan struct{}),
	}
}

// CreateRun binds a new pending run to the workflow's current version. The
// bound version is immutable: later edits to the workflow never affect this
// run. Creation fails while the document is structurally invalid or any node
// config fails its type's schema.
func (e *Engine) CreateRun(ctx context.Context, workflowID string, input map[string]any) (*models.Run, error) {
	workflow, err := e.store.Workflows().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	validation := graph.Validate(workflow, graph.Options{})
	validation.Merge(e.registry.ValidateWorkflowNodes(workflow))

	if !validation.Valid {
		return nil, &models.WorkflowInvalidError{Result: validation}
	}

	run := &models.Run{
		ID:              uuid.NewString(),
		WorkflowID:      workflow.ID,
		WorkflowVersion: workflow.Version,
		Status:          models.RunStatusPending,
		Input:           input,
		CreatedAt:       time.Now().UTC(),
	}

	if err := e.store.Runs().Create(ctx, run); err != nil {
		return nil, err
	}

	e.logger.InfoContext(ctx, "Run created",
		"run_id", run.ID, "workflow_id", workflow.ID, "workflow_version", workflow.Version)

	return run, nil
}

// StartRun moves a pending run onto its own scheduler goroutine and returns
// immediately. Progress is observable through the event stream.
func (e *Engine) StartRun(ctx context.Context, runID string) error {
	run, err := e.store.Runs().GetByID(ctx, runID)
	if err != nil {
		return err
	}

	if run.Status != models.RunStatusPending {
		return fmt.Errorf("run %s is %s, only pending runs start", runID, run.Status)
	}

	workflow, err := e.store.Workflows().GetVersion(ctx, run.WorkflowID, run.WorkflowVersion)
	if err != nil {
		return err
	}

	recorder, err := newRecorder(ctx, e.logger, e.store.Events(), e.bus, run.ID)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	e.mu.Lock()
	e.cancels[run.ID] = cancel
	e.dones[run.ID] = done
	e.mu.Unlock()

	s := &scheduler{
		logger:      log.WithRun(e.logger, run.ID, workflow.ID),
		store:       e.store,
		registry:    e.registry,
		gate:        e.gate,
		evaluator:   e.evaluator,
		recorder:    recorder,
		workflow:    workflow,
		run:         run,
		nodeTimeout: e.config.DefaultNodeTimeout,
		results:     make(chan nodeResult, len(workflow.Nodes)),
		workers:     make(chan struct{}, e.config.WorkerLimit),
		remaining:   make(map[string]int, len(workflow.Nodes)),
		executions:  make(map[string]*models.NodeExecution, len(workflow.Nodes)),
		outputs:     make(map[string]map[string]any, len(workflow.Nodes)),
	}

	go func() {
		defer func() {
			e.mu.Lock()
			delete(e.cancels, run.ID)
			delete(e.dones, run.ID)
			e.mu.Unlock()

			cancel()
			close(done)
		}()

		s.execute(runCtx)
	}()

	return nil
}

// CancelRun stops a run. An active scheduler aborts cooperatively; a pending
// run is sealed directly, still terminating its stream with a terminal event.
func (e *Engine) CancelRun(ctx context.Context, runID string) error {
	e.mu.Lock()
	cancel, active := e.cancels[runID]
	done := e.dones[runID]
	e.mu.Unlock()

	if active {
		cancel()
		<-done

		return nil
	}

	run, err := e.store.Runs().GetByID(ctx, runID)
	if err != nil {
		return err
	}

	if run.Status.Terminal() {
		return persistence.NewRunError("CancelRun", runID, persistence.ErrRunFinished)
	}

	recorder, err := newRecorder(ctx, e.logger, e.store.Events(), e.bus, runID)
	if err != nil {
		return err
	}
	defer recorder.close()

	engineErr := models.NewEngineError(models.ErrorCodeRunCancelled, "run was cancelled")
	run.Status = models.RunStatusCancelled
	run.Error = engineErr
	now := time.Now().UTC()
	run.FinishedAt = &now

	if err := e.store.Runs().Update(ctx, run); err != nil {
		return err
	}

	return recorder.record(models.EventWorkflowError, "", map[string]any{
		"error": engineErr,
	})
}

// Confirm resolves one pending confirmation request with allow or deny. The
// waiting scheduler branch wakes and records the resolution event itself.
func (e *Engine) Confirm(ctx context.Context, runID, confirmID string, decision models.ConfirmationDecision) error {
	return e.gate.Resolve(ctx, runID, confirmID, decision)
}

// Done returns a channel closed when the run's scheduler exits. Runs that are
// not active return a closed channel.
func (e *Engine) Done(runID string) <-chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()

	if done, ok := e.dones[runID]; ok {
		return done
	}

	closed := make(chan struct{})
	close(closed)

	return closed
}

// Shutdown cancels every active run and waits for their schedulers.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	dones := make([]chan struct{}, 0, len(e.dones))

	for runID, cancel := range e.cancels {
		cancel()
		dones = append(dones, e.dones[runID])
	}
	e.mu.Unlock()

	for _, done := range dones {
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return nil
}
