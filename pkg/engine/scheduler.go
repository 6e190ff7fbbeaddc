package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"dario.cat/mergo"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/arcflow/arcflow/pkg/gate"
	"github.com/arcflow/arcflow/pkg/graph"
	"github.com/arcflow/arcflow/pkg/models"
	"github.com/arcflow/arcflow/pkg/otelhelper"
	"github.com/arcflow/arcflow/pkg/persistence"
	"github.com/arcflow/arcflow/pkg/registry"
)

var tracer = otel.Tracer("arcflow/engine")

// scheduler drives one run: topological condition-gated traversal, OR-join
// readiness, input filtering, and the confirmation protocol. All graph state
// (executions, outputs, readiness counters) is owned by the loop goroutine;
// workers only execute nodes and report back over the results channel.
type scheduler struct {
	logger      *slog.Logger
	store       persistence.Persistence
	registry    *registry.Registry
	gate        *gate.Gate
	evaluator   conditionEvaluator
	recorder    *recorder
	workflow    *models.Workflow
	run         *models.Run
	nodeTimeout time.Duration

	results chan nodeResult
	workers chan struct{}

	remaining  map[string]int
	member     map[string]bool
	executions map[string]*models.NodeExecution
	outputs    map[string]map[string]any
	inflight   int
	firstError *models.EngineError

	statusMu sync.Mutex
	awaiting int
	finished bool
}

// conditionEvaluator is what the scheduler needs from pkg/condition.
type conditionEvaluator interface {
	Satisfied(conditionExpr string, output map[string]any) (bool, error)
}

type nodeResult struct {
	execution *models.NodeExecution
}

func (s *scheduler) execute(ctx context.Context) {
	defer s.recorder.close()

	if err := s.transition(ctx, models.RunStatusRunning); err != nil {
		s.logger.ErrorContext(ctx, "Run could not start", "error", err)

		return
	}

	now := time.Now().UTC()
	s.run.StartedAt = &now

	if err := s.store.Runs().Update(ctx, s.run); err != nil {
		s.logger.ErrorContext(ctx, "Run record update failed", "error", err)
	}

	if err := s.recorder.record(models.EventWorkflowStart, "", map[string]any{
		"workflow_id":      s.workflow.ID,
		"workflow_version": s.workflow.Version,
		"input":            s.run.Input,
	}); err != nil {
		s.fail(ctx, models.NewEngineError(models.ErrorCodeExecutorError, err.Error()))

		return
	}

	s.prepare()

	for _, node := range s.workflow.Nodes {
		if s.remaining[node.ID] == 0 {
			s.dispatch(ctx, node)
		}
	}

	for s.inflight > 0 {
		select {
		case result := <-s.results:
			s.inflight--
			s.finishNode(ctx, result.execution)
		case <-ctx.Done():
			s.cancel(ctx)

			return
		}
	}

	s.finish(ctx)
}

// prepare seeds the readiness counters. Nodes outside the main subgraph are
// scaffolding: they get a skipped record up front and never dispatch.
func (s *scheduler) prepare() {
	s.member = graph.MainSubgraph(s.workflow)

	for _, node := range s.workflow.Nodes {
		s.remaining[node.ID] = len(s.workflow.IncomingEdges(node.ID))
	}
}

// dispatch runs once all of a node's incoming edges have a recorded verdict.
// It decides skip-versus-execute on the loop goroutine and hands actual
// execution to a worker.
func (s *scheduler) dispatch(ctx context.Context, node *models.Node) {
	if _, done := s.executions[node.ID]; done {
		return
	}

	if !s.member[node.ID] {
		s.skip(ctx, node, "node lies outside the start-to-end path")

		return
	}

	if !node.Enabled {
		s.skip(ctx, node, "node is disabled")

		return
	}

	incoming := s.workflow.IncomingEdges(node.ID)
	satisfied := s.satisfiedEdges(ctx, incoming)

	// OR-join: at least one satisfied edge, or no incoming edges at all.
	if len(incoming) > 0 && len(satisfied) == 0 {
		s.skip(ctx, node, "no incoming edge was satisfied")

		return
	}

	input := s.assembleInput(ctx, node, satisfied)

	now := time.Now().UTC()
	execution := &models.NodeExecution{
		ID:        uuid.NewString(),
		RunID:     s.run.ID,
		NodeID:    node.ID,
		Status:    models.NodeExecutionStatusRunning,
		Input:     input,
		StartedAt: &now,
	}
	s.executions[node.ID] = execution

	if err := s.store.NodeExecutions().Save(ctx, execution); err != nil {
		s.logger.ErrorContext(ctx, "Node execution record failed", "node_id", node.ID, "error", err)
	}

	if err := s.recorder.record(models.EventNodeStart, node.ID, map[string]any{
		"node_id": node.ID,
		"input":   input,
	}); err != nil {
		s.logger.ErrorContext(ctx, "Event append failed", "node_id", node.ID, "error", err)
	}

	executionCtx := s.executionContext(satisfied)

	s.inflight++

	go s.executeNode(ctx, node, execution, executionCtx)
}

// satisfiedEdges gathers the incoming-edge verdicts. An edge is satisfied only
// if its source succeeded and its condition passes against the source output;
// a condition evaluation error closes the edge and is logged, never fatal.
func (s *scheduler) satisfiedEdges(ctx context.Context, incoming []*models.Edge) []*models.Edge {
	var satisfied []*models.Edge

	for _, edge := range incoming {
		source, ok := s.executions[edge.SourceNodeID]
		if !ok || source.Status != models.NodeExecutionStatusSucceeded {
			continue
		}

		pass, err := s.evaluator.Satisfied(edge.Condition, s.outputs[edge.SourceNodeID])
		if err != nil {
			s.logger.WarnContext(ctx, "Condition failed closed",
				"edge_id", edge.ID, "error", err)

			continue
		}

		if pass {
			satisfied = append(satisfied, edge)
		}
	}

	return satisfied
}

// assembleInput merges the outputs behind satisfied edges in edge document
// order; an earlier edge's keys win. Outputs behind unsatisfied edges are
// never injected, even when the source node did execute. A node with no
// incoming edges receives the run's initial input.
func (s *scheduler) assembleInput(ctx context.Context, node *models.Node, satisfied []*models.Edge) map[string]any {
	if len(s.workflow.IncomingEdges(node.ID)) == 0 {
		input := make(map[string]any, len(s.run.Input))
		for key, value := range s.run.Input {
			input[key] = value
		}

		return input
	}

	input := make(map[string]any)

	for _, edge := range satisfied {
		output := s.outputs[edge.SourceNodeID]
		if output == nil {
			continue
		}

		if err := mergo.Merge(&input, output); err != nil {
			s.logger.ErrorContext(ctx, "Input merge failed",
				"node_id", node.ID, "edge_id", edge.ID, "error", err)
		}
	}

	return input
}

// executionContext builds the per-node view: only outputs that flowed through
// a satisfied edge are visible to the executor and its templates.
func (s *scheduler) executionContext(satisfied []*models.Edge) models.ExecutionContext {
	visible := make(map[string]map[string]any, len(satisfied))

	for _, edge := range satisfied {
		if output, ok := s.outputs[edge.SourceNodeID]; ok {
			visible[edge.SourceNodeID] = output
		}
	}

	return models.ExecutionContext{
		RunID:           s.run.ID,
		WorkflowID:      s.workflow.ID,
		WorkflowVersion: s.workflow.Version,
		Input:           s.run.Input,
		NodeOutputs:     visible,
		Metadata:        s.workflow.Metadata,
	}
}

// executeNode runs on a worker goroutine: confirmation gate first, then the
// executor under its timeout. It never touches scheduler state directly.
func (s *scheduler) executeNode(ctx context.Context, node *models.Node, execution *models.NodeExecution, executionCtx models.ExecutionContext) {
	s.workers <- struct{}{}
	defer func() { <-s.workers }()

	spanCtx, span := otelhelper.StartSpan(ctx, tracer, "engine.node execute",
		attribute.String(otelhelper.RunIDKey, s.run.ID),
		attribute.String(otelhelper.WorkflowIDKey, s.workflow.ID),
		attribute.String(otelhelper.NodeIDKey, node.ID),
		attribute.String(otelhelper.NodeTypeKey, node.Type),
	)
	defer span.End()

	output, nodeErr := s.runNode(spanCtx, node, execution, executionCtx)

	if nodeErr != nil {
		otelhelper.SetError(span, nodeErr,
			attribute.String(otelhelper.NodeIDKey, node.ID))
	}

	now := time.Now().UTC()
	execution.FinishedAt = &now

	if nodeErr != nil {
		execution.Status = models.NodeExecutionStatusFailed
		execution.Error = nodeErr
	} else {
		execution.Status = models.NodeExecutionStatusSucceeded
		execution.Output = output
	}

	s.results <- nodeResult{execution: execution}
}

func (s *scheduler) runNode(ctx context.Context, node *models.Node, execution *models.NodeExecution, executionCtx models.ExecutionContext) (map[string]any, *models.EngineError) {
	hasSideEffect, err := s.registry.HasSideEffect(node.Type)
	if err != nil {
		return nil, models.NewEngineError(models.ErrorCodeExecutorError, err.Error())
	}

	if hasSideEffect {
		if engineErr := s.confirm(ctx, node); engineErr != nil {
			return nil, engineErr
		}
	}

	executor, err := s.registry.CreateNode(ctx, node.Type, node.ID, node.Config)
	if err != nil {
		return nil, models.NewEngineError(models.ErrorCodeExecutorError, err.Error())
	}

	execCtx, cancel := context.WithTimeout(ctx, s.timeoutFor(node))
	defer cancel()

	output, err := executor.Execute(execCtx, executionCtx, execution.Input)
	if err != nil {
		if errors.Is(execCtx.Err(), context.DeadlineExceeded) {
			return nil, models.NewEngineError(
				models.ErrorCodeExecutorTimeout,
				"node "+node.ID+" exceeded its execution timeout",
			).WithPath("nodes/" + node.ID)
		}

		var engineErr *models.EngineError
		if errors.As(err, &engineErr) {
			return nil, engineErr
		}

		return nil, models.NewEngineError(models.ErrorCodeExecutorError, err.Error()).
			WithPath("nodes/" + node.ID)
	}

	return output, nil
}

// confirm runs the side-effect protocol for one node: a fresh request, a
// confirm_required event, a bounded wait, and a confirm_resolved event.
// Anything but an explicit allow fails the node with side_effect_denied.
func (s *scheduler) confirm(ctx context.Context, node *models.Node) *models.EngineError {
	request, err := s.gate.Request(ctx, s.run.ID, node.ID)
	if err != nil {
		return models.NewEngineError(models.ErrorCodeExecutorError, err.Error())
	}

	if err := s.recorder.record(models.EventConfirmRequired, node.ID, map[string]any{
		"node_id":    node.ID,
		"confirm_id": request.ConfirmID,
	}); err != nil {
		s.logger.ErrorContext(ctx, "Event append failed", "node_id", node.ID, "error", err)
	}

	s.setAwaiting(ctx, +1)
	decision, err := s.gate.Await(ctx, request.ConfirmID)
	s.setAwaiting(ctx, -1)

	if err != nil {
		return models.NewEngineError(models.ErrorCodeRunCancelled, err.Error())
	}

	if recordErr := s.recorder.record(models.EventConfirmResolved, node.ID, map[string]any{
		"node_id":    node.ID,
		"confirm_id": request.ConfirmID,
		"decision":   decision,
	}); recordErr != nil {
		s.logger.ErrorContext(ctx, "Event append failed", "node_id", node.ID, "error", recordErr)
	}

	if !decision.Permits() {
		return models.NewEngineError(
			models.ErrorCodeSideEffectDenied,
			"side effect on node "+node.ID+" was not allowed (decision: "+string(decision)+")",
		).WithPath("nodes/" + node.ID)
	}

	return nil
}

// setAwaiting flips the run between running and awaiting_confirmation as
// gates open and close. Independent branches keep executing either way.
func (s *scheduler) setAwaiting(ctx context.Context, delta int) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()

	s.awaiting += delta

	if s.finished {
		return
	}

	var next models.RunStatus

	switch {
	case s.awaiting > 0 && s.run.Status == models.RunStatusRunning:
		next = models.RunStatusAwaitingConfirmation
	case s.awaiting == 0 && s.run.Status == models.RunStatusAwaitingConfirmation:
		next = models.RunStatusRunning
	default:
		return
	}

	s.run.Status = next

	if err := s.store.Runs().Update(ctx, s.run); err != nil {
		s.logger.ErrorContext(ctx, "Run record update failed", "error", err)
	}
}

// skip records a skipped execution and cascades to successors. Skipping is
// normal control flow, not an error.
func (s *scheduler) skip(ctx context.Context, node *models.Node, reason string) {
	now := time.Now().UTC()
	execution := &models.NodeExecution{
		ID:         uuid.NewString(),
		RunID:      s.run.ID,
		NodeID:     node.ID,
		Status:     models.NodeExecutionStatusSkipped,
		FinishedAt: &now,
	}
	s.executions[node.ID] = execution

	if err := s.store.NodeExecutions().Save(ctx, execution); err != nil {
		s.logger.ErrorContext(ctx, "Node execution record failed", "node_id", node.ID, "error", err)
	}

	if err := s.recorder.record(models.EventNodeSkip, node.ID, map[string]any{
		"node_id": node.ID,
		"reason":  reason,
	}); err != nil {
		s.logger.ErrorContext(ctx, "Event append failed", "node_id", node.ID, "error", err)
	}

	s.cascade(ctx, node.ID)
}

// finishNode handles a worker's terminal report on the loop goroutine.
func (s *scheduler) finishNode(ctx context.Context, execution *models.NodeExecution) {
	if err := s.store.NodeExecutions().Save(ctx, execution); err != nil {
		s.logger.ErrorContext(ctx, "Node execution record failed", "node_id", execution.NodeID, "error", err)
	}

	payload := map[string]any{
		"node_id": execution.NodeID,
		"status":  execution.Status,
	}

	if execution.Status == models.NodeExecutionStatusSucceeded {
		s.outputs[execution.NodeID] = execution.Output
		payload["output"] = execution.Output
	} else {
		payload["error"] = execution.Error

		if s.firstError == nil {
			s.firstError = execution.Error
		}
	}

	if err := s.recorder.record(models.EventNodeComplete, execution.NodeID, payload); err != nil {
		s.logger.ErrorContext(ctx, "Event append failed", "node_id", execution.NodeID, "error", err)
	}

	s.cascade(ctx, execution.NodeID)
}

// cascade releases successors whose last unresolved incoming edge just got a
// verdict.
func (s *scheduler) cascade(ctx context.Context, nodeID string) {
	for _, edge := range s.workflow.OutgoingEdges(nodeID) {
		if _, ok := s.remaining[edge.TargetNodeID]; !ok {
			continue
		}

		s.remaining[edge.TargetNodeID]--

		if s.remaining[edge.TargetNodeID] == 0 {
			if target, ok := s.workflow.NodeByID(edge.TargetNodeID); ok {
				s.dispatch(ctx, target)
			}
		}
	}
}

// finish determines the run's terminal state: completed only when no node
// failed; otherwise failed carrying the first fatal error. End nodes still
// execute on surviving branches, so the result reflects whatever reached them.
func (s *scheduler) finish(ctx context.Context) {
	result := make(map[string]any)

	for _, end := range s.workflow.NodesOfType(models.NodeTypeEnd) {
		if output, ok := s.outputs[end.ID]; ok {
			if err := mergo.Merge(&result, output); err != nil {
				s.logger.ErrorContext(ctx, "Result merge failed", "error", err)
			}
		}
	}

	if s.firstError != nil {
		s.run.Error = s.firstError
		s.seal(ctx, models.RunStatusFailed)

		if err := s.recorder.record(models.EventWorkflowError, "", map[string]any{
			"error": s.firstError,
		}); err != nil {
			s.logger.ErrorContext(ctx, "Event append failed", "error", err)
		}

		return
	}

	s.run.Result = result
	s.seal(ctx, models.RunStatusCompleted)

	if err := s.recorder.record(models.EventWorkflowComplete, "", map[string]any{
		"result": result,
	}); err != nil {
		s.logger.ErrorContext(ctx, "Event append failed", "error", err)
	}
}

// fail seals the run before its first node was dispatched.
func (s *scheduler) fail(ctx context.Context, engineErr *models.EngineError) {
	s.run.Error = engineErr
	s.seal(ctx, models.RunStatusFailed)

	if err := s.recorder.record(models.EventWorkflowError, "", map[string]any{
		"error": engineErr,
	}); err != nil {
		s.logger.ErrorContext(ctx, "Event append failed", "error", err)
	}
}

// transition moves the run to a non-terminal status and persists it.
func (s *scheduler) transition(ctx context.Context, next models.RunStatus) error {
	if !s.run.Status.CanTransition(next) {
		return models.NewEngineError(
			models.ErrorCodeWorkflowInvalid,
			"run cannot move from "+string(s.run.Status)+" to "+string(next),
		)
	}

	s.run.Status = next

	return s.store.Runs().Update(ctx, s.run)
}

// cancel drains in-flight workers, marks every unvisited node skipped, and
// terminates the stream. A cancelled run never disappears silently. The
// incoming ctx is already cancelled, so persistence runs on a detached one.
func (s *scheduler) cancel(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)

	for s.inflight > 0 {
		result := <-s.results
		s.inflight--

		if err := s.store.NodeExecutions().Save(ctx, result.execution); err != nil {
			s.logger.ErrorContext(ctx, "Node execution record failed",
				"node_id", result.execution.NodeID, "error", err)
		}
	}

	for _, node := range s.workflow.Nodes {
		if _, done := s.executions[node.ID]; done {
			continue
		}

		now := time.Now().UTC()
		execution := &models.NodeExecution{
			ID:         uuid.NewString(),
			RunID:      s.run.ID,
			NodeID:     node.ID,
			Status:     models.NodeExecutionStatusSkipped,
			FinishedAt: &now,
		}
		s.executions[node.ID] = execution

		if err := s.store.NodeExecutions().Save(ctx, execution); err != nil {
			s.logger.ErrorContext(ctx, "Node execution record failed", "node_id", node.ID, "error", err)
		}
	}

	engineErr := models.NewEngineError(models.ErrorCodeRunCancelled, "run was cancelled")
	s.run.Error = engineErr
	s.seal(ctx, models.RunStatusCancelled)

	if err := s.recorder.record(models.EventWorkflowError, "", map[string]any{
		"error": engineErr,
	}); err != nil {
		s.logger.ErrorContext(ctx, "Event append failed", "error", err)
	}
}

// seal moves the run to a terminal status, routing through running when a
// gate left it in awaiting_confirmation.
func (s *scheduler) seal(ctx context.Context, terminal models.RunStatus) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()

	s.finished = true

	if !s.run.Status.CanTransition(terminal) && s.run.Status == models.RunStatusAwaitingConfirmation {
		s.run.Status = models.RunStatusRunning
	}

	if !s.run.Status.CanTransition(terminal) {
		s.logger.Error("Invalid run transition",
			"from", s.run.Status, "to", terminal)

		return
	}

	s.run.Status = terminal
	now := time.Now().UTC()
	s.run.FinishedAt = &now

	if err := s.store.Runs().Update(context.WithoutCancel(ctx), s.run); err != nil {
		s.logger.ErrorContext(ctx, "Run record update failed", "error", err)
	}
}

func (s *scheduler) timeoutFor(node *models.Node) time.Duration {
	if raw, ok := node.Config["timeout"]; ok {
		switch value := raw.(type) {
		case float64:
			if value > 0 {
				return time.Duration(value * float64(time.Second))
			}
		case int:
			if value > 0 {
				return time.Duration(value) * time.Second
			}
		}
	}

	return s.nodeTimeout
}
