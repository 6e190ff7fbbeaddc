package graph

import (
	"testing"

	"github.com/arcflow/arcflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func workflowWithIsland() *models.Workflow {
	workflow := linearWorkflow()
	workflow.Nodes = append(workflow.Nodes,
		&models.Node{ID: "island", Type: "log", Name: "Island"},
		&models.Node{ID: "island2", Type: "log", Name: "Island 2"},
	)
	workflow.Edges = append(workflow.Edges, &models.Edge{
		ID: "iedge", SourceNodeID: "island", TargetNodeID: "island2",
	})

	return workflow
}

func TestGateMutationRejectsIsolatedNodeEdit(t *testing.T) {
	workflow := workflowWithIsland()

	mutation := &Mutation{
		UpdateNodes: []*models.Node{
			{ID: "island", Type: "log", Name: "Renamed", Config: map[string]any{"message": "x"}},
		},
	}

	result := GateMutation(workflow, mutation)
	require.False(t, result.Valid)
	assert.Equal(t, models.ErrorCodeOutsideMainSubgraph, result.Errors[0].Code)
	assert.Equal(t, "nodes/island", result.Errors[0].Path)

	// The gate only inspects; the document is untouched.
	node, ok := workflow.NodeByID("island")
	require.True(t, ok)
	assert.Equal(t, "Island", node.Name)
}

func TestGateMutationRejectsIsolatedEdgeRewire(t *testing.T) {
	workflow := workflowWithIsland()

	mutation := &Mutation{RemoveEdgeIDs: []string{"iedge"}}

	result := GateMutation(workflow, mutation)
	require.False(t, result.Valid)
	assert.Equal(t, "edges/iedge", result.Errors[0].Path)
}

func TestGateMutationAllowsMainSubgraphEdit(t *testing.T) {
	workflow := workflowWithIsland()

	mutation := &Mutation{
		UpdateNodes: []*models.Node{
			{ID: "fetch", Type: "httprequest", Name: "Fetch v2"},
		},
	}

	result := GateMutation(workflow, mutation)
	assert.True(t, result.Valid)
}

func TestGateMutationAllowsAnchoredAddition(t *testing.T) {
	workflow := linearWorkflow()

	// New node wired into the main path in the same request.
	mutation := &Mutation{
		AddNodes: []*models.Node{{ID: "enrich", Type: "transform", Name: "Enrich"}},
		AddEdges: []*models.Edge{
			{ID: "n1", SourceNodeID: "fetch", TargetNodeID: "enrich"},
			{ID: "n2", SourceNodeID: "enrich", TargetNodeID: "end"},
		},
	}

	result := GateMutation(workflow, mutation)
	assert.True(t, result.Valid)
}

func TestGateMutationRejectsUnanchoredAddition(t *testing.T) {
	workflow := linearWorkflow()

	mutation := &Mutation{
		AddNodes: []*models.Node{{ID: "floating", Type: "log", Name: "Floating"}},
	}

	result := GateMutation(workflow, mutation)
	require.False(t, result.Valid)
	assert.Equal(t, models.ErrorCodeOutsideMainSubgraph, result.Errors[0].Code)
}

func TestApplyMutation(t *testing.T) {
	workflow := linearWorkflow()

	mutation := &Mutation{
		AddNodes: []*models.Node{{ID: "enrich", Type: "transform", Name: "Enrich"}},
		AddEdges: []*models.Edge{
			{ID: "n1", SourceNodeID: "fetch", TargetNodeID: "enrich"},
			{ID: "n2", SourceNodeID: "enrich", TargetNodeID: "end"},
		},
		RemoveEdgeIDs: []string{"e2"},
	}

	next := Apply(workflow, mutation)

	require.Len(t, next.Nodes, 4)
	require.Len(t, next.Edges, 3)

	// Original document untouched.
	assert.Len(t, workflow.Nodes, 3)
	assert.Len(t, workflow.Edges, 2)

	result := Validate(next, Options{})
	assert.True(t, result.Valid)
}

func TestApplyMutationRemoveNodeDropsItsEdges(t *testing.T) {
	workflow := linearWorkflow()

	next := Apply(workflow, &Mutation{RemoveNodeIDs: []string{"fetch"}})

	assert.Len(t, next.Nodes, 2)
	assert.Empty(t, next.Edges)
}
