package graph

import (
	"testing"

	"github.com/arcflow/arcflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func linearWorkflow() *models.Workflow {
	return &models.Workflow{
		ID: "wf-linear",
		Nodes: []*models.Node{
			{ID: "start", Type: models.NodeTypeStart, Name: "Start", Enabled: true},
			{ID: "fetch", Type: "httprequest", Name: "Fetch", Enabled: true},
			{ID: "end", Type: models.NodeTypeEnd, Name: "End", Enabled: true},
		},
		Edges: []*models.Edge{
			{ID: "e1", SourceNodeID: "start", TargetNodeID: "fetch"},
			{ID: "e2", SourceNodeID: "fetch", TargetNodeID: "end"},
		},
	}
}

func TestValidateLinearWorkflow(t *testing.T) {
	result := Validate(linearWorkflow(), Options{})
	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
}

func TestValidateCycleDetected(t *testing.T) {
	workflow := linearWorkflow()
	workflow.Edges = append(workflow.Edges, &models.Edge{
		ID: "back", SourceNodeID: "end", TargetNodeID: "fetch",
	})

	result := Validate(workflow, Options{})
	require.False(t, result.Valid)

	found := false

	for _, err := range result.Errors {
		if err.Code == models.ErrorCodeCycleDetected {
			found = true

			// At least one node on the cycle must be named.
			assert.Contains(t, err.Message, "fetch")
		}
	}

	assert.True(t, found, "expected cycle_detected error")
}

func TestValidateSelfLoop(t *testing.T) {
	workflow := linearWorkflow()
	workflow.Edges = append(workflow.Edges, &models.Edge{
		ID: "self", SourceNodeID: "fetch", TargetNodeID: "fetch",
	})

	result := Validate(workflow, Options{})
	require.False(t, result.Valid)
	assert.Equal(t, models.ErrorCodeCycleDetected, result.Errors[0].Code)
}

func TestValidateDanglingEdge(t *testing.T) {
	workflow := linearWorkflow()
	workflow.Edges = append(workflow.Edges, &models.Edge{
		ID: "e3", SourceNodeID: "fetch", TargetNodeID: "ghost",
	})

	result := Validate(workflow, Options{})
	require.False(t, result.Valid)

	var codes []models.ErrorCode
	for _, err := range result.Errors {
		codes = append(codes, err.Code)
	}

	assert.Contains(t, codes, models.ErrorCodeDanglingEdge)
}

func TestValidateMissingStart(t *testing.T) {
	workflow := linearWorkflow()
	workflow.Nodes = workflow.Nodes[1:]
	workflow.Edges = workflow.Edges[1:]

	result := Validate(workflow, Options{})
	require.False(t, result.Valid)
	assert.Equal(t, models.ErrorCodeWorkflowInvalid, result.Errors[0].Code)
}

func TestValidateIsolatedNodeOutsideMainSubgraph(t *testing.T) {
	workflow := linearWorkflow()
	workflow.Nodes = append(workflow.Nodes, &models.Node{
		ID: "island", Type: "log", Name: "Island", Enabled: true,
	})

	result := Validate(workflow, Options{})
	require.False(t, result.Valid)
	assert.Equal(t, models.ErrorCodeOutsideMainSubgraph, result.Errors[0].Code)
	assert.Equal(t, "nodes/island", result.Errors[0].Path)

	// Tolerant mode admits scaffolding.
	result = Validate(workflow, Options{AllowUnreachable: true})
	assert.True(t, result.Valid)
}

func TestValidateCollectsMultipleErrors(t *testing.T) {
	workflow := linearWorkflow()
	workflow.Nodes = append(workflow.Nodes, &models.Node{ID: "island", Type: "log", Name: "Island"})
	workflow.Edges = append(workflow.Edges, &models.Edge{
		ID: "e9", SourceNodeID: "nowhere", TargetNodeID: "fetch",
	})

	result := Validate(workflow, Options{})
	require.False(t, result.Valid)
	assert.GreaterOrEqual(t, len(result.Errors), 2)
}

func TestMainSubgraph(t *testing.T) {
	workflow := linearWorkflow()
	workflow.Nodes = append(workflow.Nodes,
		&models.Node{ID: "island", Type: "log"},
		&models.Node{ID: "deadend", Type: "log"},
	)
	// deadend is reachable from start but cannot reach end.
	workflow.Edges = append(workflow.Edges, &models.Edge{
		ID: "e4", SourceNodeID: "start", TargetNodeID: "deadend",
	})

	member := MainSubgraph(workflow)
	assert.True(t, member["start"])
	assert.True(t, member["fetch"])
	assert.True(t, member["end"])
	assert.False(t, member["island"])
	assert.False(t, member["deadend"])
}

func TestReportDisabledFlagsReachableNodes(t *testing.T) {
	workflow := linearWorkflow()
	workflow.Nodes[1].Enabled = false
	workflow.Nodes = append(workflow.Nodes, &models.Node{ID: "island", Type: "log"})

	result := ReportDisabled(workflow)
	require.Len(t, result.Errors, 1, "disabled scaffolding off the main subgraph stays quiet")
	assert.Equal(t, models.ErrorCodeNodeDisabled, result.Errors[0].Code)
	assert.Equal(t, "nodes/fetch", result.Errors[0].Path)
}

func TestTopoOrder(t *testing.T) {
	workflow := &models.Workflow{
		Nodes: []*models.Node{
			{ID: "start", Type: models.NodeTypeStart},
			{ID: "a", Type: "transform"},
			{ID: "b", Type: "transform"},
			{ID: "end", Type: models.NodeTypeEnd},
		},
		Edges: []*models.Edge{
			{ID: "e1", SourceNodeID: "start", TargetNodeID: "a"},
			{ID: "e2", SourceNodeID: "start", TargetNodeID: "b"},
			{ID: "e3", SourceNodeID: "a", TargetNodeID: "end"},
			{ID: "e4", SourceNodeID: "b", TargetNodeID: "end"},
		},
	}

	order, err := TopoOrder(workflow)
	require.NoError(t, err)
	require.Len(t, order, 4)

	position := make(map[string]int, len(order))
	for i, id := range order {
		position[id] = i
	}

	assert.Less(t, position["start"], position["a"])
	assert.Less(t, position["start"], position["b"])
	assert.Less(t, position["a"], position["end"])
	assert.Less(t, position["b"], position["end"])

	// Ties resolve in document order.
	assert.Less(t, position["a"], position["b"])
}

func TestTopoOrderCycle(t *testing.T) {
	workflow := linearWorkflow()
	workflow.Edges = append(workflow.Edges, &models.Edge{
		ID: "back", SourceNodeID: "end", TargetNodeID: "start",
	})

	_, err := TopoOrder(workflow)
	require.Error(t, err)

	var engineErr *models.EngineError

	require.ErrorAs(t, err, &engineErr)
	assert.Equal(t, models.ErrorCodeCycleDetected, engineErr.Code)
}
