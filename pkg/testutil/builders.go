// Package testutil provides test data builders shared across package tests.
package testutil

import (
	"time"

	"github.com/google/uuid"

	"github.com/arcflow/arcflow/pkg/models"
)

// CreateTestNode creates a node with default values that can be overridden.
func CreateTestNode(overrides ...func(*models.Node)) *models.Node {
	node := &models.Node{
		ID:      uuid.NewString(),
		Type:    "log",
		Name:    "Test Node",
		Config:  map[string]any{"message": "test", "level": "info"},
		Enabled: true,
	}

	for _, override := range overrides {
		override(node)
	}

	return node
}

// WithNodeID sets the node id.
func WithNodeID(id string) func(*models.Node) {
	return func(n *models.Node) {
		n.ID = id
	}
}

// WithNodeType sets the node type tag.
func WithNodeType(nodeType string) func(*models.Node) {
	return func(n *models.Node) {
		n.Type = nodeType
	}
}

// WithConfig sets the node configuration.
func WithConfig(config map[string]any) func(*models.Node) {
	return func(n *models.Node) {
		n.Config = config
	}
}

// Disabled marks the node disabled.
func Disabled() func(*models.Node) {
	return func(n *models.Node) {
		n.Enabled = false
	}
}

// CreateTestEdge creates an edge between the given nodes.
func CreateTestEdge(sourceID, targetID string, overrides ...func(*models.Edge)) *models.Edge {
	edge := &models.Edge{
		ID:           uuid.NewString(),
		SourceNodeID: sourceID,
		TargetNodeID: targetID,
	}

	for _, override := range overrides {
		override(edge)
	}

	return edge
}

// WithCondition gates the edge with a condition expression.
func WithCondition(condition string) func(*models.Edge) {
	return func(e *models.Edge) {
		e.Condition = condition
	}
}

// CreateTestWorkflow creates a published start -> log -> end workflow that can
// be overridden.
func CreateTestWorkflow(overrides ...func(*models.Workflow)) *models.Workflow {
	start := CreateTestNode(WithNodeID("start"), WithNodeType("start"), WithConfig(nil))
	step := CreateTestNode(WithNodeID("step"))
	end := CreateTestNode(WithNodeID("end"), WithNodeType("end"), WithConfig(nil))

	workflow := &models.Workflow{
		ID:      uuid.NewString(),
		Name:    "Test Workflow",
		Status:  models.WorkflowStatusPublished,
		Version: 1,
		Nodes:   []*models.Node{start, step, end},
		Edges: []*models.Edge{
			CreateTestEdge("start", "step"),
			CreateTestEdge("step", "end"),
		},
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	for _, override := range overrides {
		override(workflow)
	}

	return workflow
}

// WithWorkflowID sets the workflow id.
func WithWorkflowID(id string) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.ID = id
	}
}

// WithGraph replaces the nodes and edges.
func WithGraph(nodes []*models.Node, edges []*models.Edge) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Nodes = nodes
		w.Edges = edges
	}
}

// WithStatus sets the workflow lifecycle status.
func WithStatus(status models.WorkflowStatus) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Status = status
	}
}
