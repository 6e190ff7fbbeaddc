package services

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcflow/arcflow/pkg/graph"
	"github.com/arcflow/arcflow/pkg/models"
	"github.com/arcflow/arcflow/pkg/persistence"
	"github.com/arcflow/arcflow/pkg/persistence/file"
	"github.com/arcflow/arcflow/pkg/registry"
	"github.com/arcflow/arcflow/pkg/testutil"
)

func newWorkflowService(t *testing.T) (*Workflow, persistence.Persistence) {
	t.Helper()

	store, err := file.NewPersistence(t.TempDir())
	require.NoError(t, err)

	t.Cleanup(func() { _ = store.Close(context.Background()) })

	reg := registry.NewRegistry(slog.New(slog.NewTextHandler(io.Discard, nil)))
	reg.RegisterDefaultNodes()

	return NewWorkflow(store, reg), store
}

func TestWorkflow_CreateStartsAsDraft(t *testing.T) {
	service, _ := newWorkflowService(t)

	result, err := service.Create(t.Context(), testutil.CreateTestWorkflow())
	require.NoError(t, err)

	assert.NotEmpty(t, result.Workflow.ID)
	assert.Equal(t, models.WorkflowStatusDraft, result.Workflow.Status)
	assert.Equal(t, 1, result.Workflow.Version)
	assert.True(t, result.Validation.Valid)
}

func TestWorkflow_CreateToleratesUnreachableNodes(t *testing.T) {
	service, _ := newWorkflowService(t)

	workflow := testutil.CreateTestWorkflow(func(w *models.Workflow) {
		w.Nodes = append(w.Nodes, testutil.CreateTestNode(testutil.WithNodeID("island")))
	})

	result, err := service.Create(t.Context(), workflow)
	require.NoError(t, err, "drafting tolerates scaffolding outside the main subgraph")
	assert.True(t, result.Validation.Valid)

	// The strict pipeline still reports it.
	strict := service.Validate(result.Workflow)
	assert.False(t, strict.Valid)
}

func TestWorkflow_CreateReportsDisabledNodes(t *testing.T) {
	service, _ := newWorkflowService(t)

	workflow := testutil.CreateTestWorkflow(func(w *models.Workflow) {
		w.Nodes[1].Enabled = false
	})

	result, err := service.Create(t.Context(), workflow)
	require.NoError(t, err, "a disabled node never blocks a save")
	require.NotEmpty(t, result.Validation.Errors)

	var flagged *models.EngineError

	for _, engineErr := range result.Validation.Errors {
		if engineErr.Code == models.ErrorCodeNodeDisabled {
			flagged = engineErr
		}
	}

	require.NotNil(t, flagged, "saving a reachable disabled node is reported")
	assert.Equal(t, "nodes/step", flagged.Path)

	// Disabling is legitimate: the strict pipeline still accepts the document.
	assert.True(t, service.Validate(result.Workflow).Valid)
}

func TestWorkflow_CreateRejectsShortName(t *testing.T) {
	service, _ := newWorkflowService(t)

	workflow := testutil.CreateTestWorkflow(func(w *models.Workflow) { w.Name = "ab" })

	_, err := service.Create(t.Context(), workflow)
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
}

func TestWorkflow_PublishBumpsVersion(t *testing.T) {
	service, _ := newWorkflowService(t)

	result, err := service.Create(t.Context(), testutil.CreateTestWorkflow())
	require.NoError(t, err)

	published, err := service.Publish(t.Context(), result.Workflow.ID)
	require.NoError(t, err)

	assert.Equal(t, models.WorkflowStatusPublished, published.Status)
	assert.Equal(t, 2, published.Version)
	assert.NotNil(t, published.PublishedAt)
}

func TestWorkflow_PublishRejectsInvalidDocument(t *testing.T) {
	service, _ := newWorkflowService(t)

	workflow := testutil.CreateTestWorkflow(func(w *models.Workflow) {
		w.Nodes = append(w.Nodes, testutil.CreateTestNode(testutil.WithNodeID("island")))
	})

	result, err := service.Create(t.Context(), workflow)
	require.NoError(t, err)

	_, err = service.Publish(t.Context(), result.Workflow.ID)
	require.Error(t, err)

	var invalid *models.WorkflowInvalidError
	require.ErrorAs(t, err, &invalid)
	assert.False(t, invalid.Result.Valid)
}

func TestWorkflow_PublishRejectsBadNodeConfig(t *testing.T) {
	service, _ := newWorkflowService(t)

	workflow := testutil.CreateTestWorkflow(func(w *models.Workflow) {
		for _, node := range w.Nodes {
			if node.ID == "step" {
				// log requires a message
				node.Config = map[string]any{"level": "info"}
			}
		}
	})

	result, err := service.Create(t.Context(), workflow)
	require.NoError(t, err)

	_, err = service.Publish(t.Context(), result.Workflow.ID)
	require.Error(t, err)

	var invalid *models.WorkflowInvalidError
	require.ErrorAs(t, err, &invalid)

	found := false

	for _, problem := range invalid.Result.Errors {
		if problem.Code == models.ErrorCodeNodeConfigInvalid {
			found = true
		}
	}

	assert.True(t, found, "expected a node_config_invalid problem")
}

func TestWorkflow_ApplyMutationGatesIslandEdits(t *testing.T) {
	service, _ := newWorkflowService(t)

	result, err := service.Create(t.Context(), testutil.CreateTestWorkflow())
	require.NoError(t, err)

	// A node added with no anchoring edge lies outside the main subgraph.
	_, err = service.ApplyMutation(t.Context(), result.Workflow.ID, &graph.Mutation{
		AddNodes: []*models.Node{testutil.CreateTestNode(testutil.WithNodeID("island"))},
	})
	require.Error(t, err)

	var invalid *models.WorkflowInvalidError
	require.ErrorAs(t, err, &invalid)
}

func TestWorkflow_ApplyMutationAnchoredAdd(t *testing.T) {
	service, store := newWorkflowService(t)

	result, err := service.Create(t.Context(), testutil.CreateTestWorkflow())
	require.NoError(t, err)

	mutated, err := service.ApplyMutation(t.Context(), result.Workflow.ID, &graph.Mutation{
		AddNodes: []*models.Node{testutil.CreateTestNode(testutil.WithNodeID("extra"))},
		AddEdges: []*models.Edge{
			testutil.CreateTestEdge("step", "extra"),
			testutil.CreateTestEdge("extra", "end"),
		},
	})
	require.NoError(t, err)

	assert.Len(t, mutated.Workflow.Nodes, 4)

	stored, err := store.Workflows().GetByID(t.Context(), result.Workflow.ID)
	require.NoError(t, err)

	_, ok := stored.NodeByID("extra")
	assert.True(t, ok)
}

func TestWorkflow_UpdateRefusesUnpublished(t *testing.T) {
	service, store := newWorkflowService(t)

	workflow := testutil.CreateTestWorkflow(testutil.WithStatus(models.WorkflowStatusUnpublished))
	require.NoError(t, store.Workflows().Save(t.Context(), workflow))

	_, err := service.Update(t.Context(), workflow.ID, testutil.CreateTestWorkflow())
	require.Error(t, err)
	assert.True(t, IsConflictError(err))
}

func TestWorkflow_Delete(t *testing.T) {
	service, _ := newWorkflowService(t)

	result, err := service.Create(t.Context(), testutil.CreateTestWorkflow())
	require.NoError(t, err)

	require.NoError(t, service.Delete(t.Context(), result.Workflow.ID))

	_, err = service.FetchByID(t.Context(), result.Workflow.ID)
	require.ErrorIs(t, err, ErrWorkflowNotFound)
}
