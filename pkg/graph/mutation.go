package graph

import (
	"fmt"

	"github.com/arcflow/arcflow/pkg/models"
)

// Mutation describes an incremental edit to a workflow document: nodes and
// edges added, removed or rewired in one request.
type Mutation struct {
	AddNodes      []*models.Node `json:"add_nodes,omitempty"`
	RemoveNodeIDs []string       `json:"remove_node_ids,omitempty"`
	UpdateNodes   []*models.Node `json:"update_nodes,omitempty"`
	AddEdges      []*models.Edge `json:"add_edges,omitempty"`
	RemoveEdgeIDs []string       `json:"remove_edge_ids,omitempty"`
	UpdateEdges   []*models.Edge `json:"update_edges,omitempty"`
}

// GateMutation rejects any edit that touches only nodes/edges entirely
// outside the current main subgraph. This is a save/modification-time gate
// against uncontrolled drift when the graph is edited incrementally; it is
// never consulted at runtime.
//
// Added nodes are admitted when at least one edge in the same mutation
// anchors them to the main subgraph.
func GateMutation(workflow *models.Workflow, mutation *Mutation) *models.ValidationResult {
	result := models.NewValidationResult()
	member := MainSubgraph(workflow)

	added := make(map[string]bool, len(mutation.AddNodes))
	for _, node := range mutation.AddNodes {
		added[node.ID] = true
	}

	// An endpoint counts as anchored when it is in the main subgraph today or
	// is being introduced by this same mutation.
	anchored := func(nodeID string) bool {
		return member[nodeID] || added[nodeID]
	}

	edgeAnchors := make(map[string]bool)

	for _, edge := range mutation.AddEdges {
		if member[edge.SourceNodeID] || member[edge.TargetNodeID] {
			edgeAnchors[edge.SourceNodeID] = true
			edgeAnchors[edge.TargetNodeID] = true
		}
	}

	for _, node := range mutation.AddNodes {
		if !edgeAnchors[node.ID] {
			result.Add(models.NewEngineError(
				models.ErrorCodeOutsideMainSubgraph,
				fmt.Sprintf("added node %q is not connected to the main subgraph", node.ID),
			).WithPath("nodes/" + node.ID))
		}
	}

	for _, node := range mutation.UpdateNodes {
		if !member[node.ID] {
			result.Add(models.NewEngineError(
				models.ErrorCodeOutsideMainSubgraph,
				fmt.Sprintf("node %q is outside the main subgraph", node.ID),
			).WithPath("nodes/" + node.ID))
		}
	}

	for _, nodeID := range mutation.RemoveNodeIDs {
		if !member[nodeID] {
			result.Add(models.NewEngineError(
				models.ErrorCodeOutsideMainSubgraph,
				fmt.Sprintf("node %q is outside the main subgraph", nodeID),
			).WithPath("nodes/" + nodeID))
		}
	}

	for _, edge := range mutation.AddEdges {
		if !anchored(edge.SourceNodeID) && !anchored(edge.TargetNodeID) {
			result.Add(models.NewEngineError(
				models.ErrorCodeOutsideMainSubgraph,
				fmt.Sprintf("edge %q connects nodes outside the main subgraph", edge.ID),
			).WithPath("edges/" + edge.ID))
		}
	}

	for _, edge := range mutation.UpdateEdges {
		if existing := edgeByID(workflow, edge.ID); existing != nil {
			if !member[existing.SourceNodeID] && !member[existing.TargetNodeID] &&
				!anchored(edge.SourceNodeID) && !anchored(edge.TargetNodeID) {
				result.Add(models.NewEngineError(
					models.ErrorCodeOutsideMainSubgraph,
					fmt.Sprintf("edge %q is outside the main subgraph", edge.ID),
				).WithPath("edges/" + edge.ID))
			}
		}
	}

	for _, edgeID := range mutation.RemoveEdgeIDs {
		if existing := edgeByID(workflow, edgeID); existing != nil {
			if !member[existing.SourceNodeID] && !member[existing.TargetNodeID] {
				result.Add(models.NewEngineError(
					models.ErrorCodeOutsideMainSubgraph,
					fmt.Sprintf("edge %q is outside the main subgraph", edgeID),
				).WithPath("edges/" + edgeID))
			}
		}
	}

	return result
}

// Apply applies a mutation to a copy of the workflow document and returns it.
// The caller validates the result before saving.
func Apply(workflow *models.Workflow, mutation *Mutation) *models.Workflow {
	next := *workflow

	removedNodes := make(map[string]bool, len(mutation.RemoveNodeIDs))
	for _, id := range mutation.RemoveNodeIDs {
		removedNodes[id] = true
	}

	removedEdges := make(map[string]bool, len(mutation.RemoveEdgeIDs))
	for _, id := range mutation.RemoveEdgeIDs {
		removedEdges[id] = true
	}

	updatedNodes := make(map[string]*models.Node, len(mutation.UpdateNodes))
	for _, node := range mutation.UpdateNodes {
		updatedNodes[node.ID] = node
	}

	updatedEdges := make(map[string]*models.Edge, len(mutation.UpdateEdges))
	for _, edge := range mutation.UpdateEdges {
		updatedEdges[edge.ID] = edge
	}

	next.Nodes = make([]*models.Node, 0, len(workflow.Nodes)+len(mutation.AddNodes))

	for _, node := range workflow.Nodes {
		if removedNodes[node.ID] {
			continue
		}

		if updated, ok := updatedNodes[node.ID]; ok {
			next.Nodes = append(next.Nodes, updated)

			continue
		}

		next.Nodes = append(next.Nodes, node)
	}

	next.Nodes = append(next.Nodes, mutation.AddNodes...)

	next.Edges = make([]*models.Edge, 0, len(workflow.Edges)+len(mutation.AddEdges))

	for _, edge := range workflow.Edges {
		if removedEdges[edge.ID] || removedNodes[edge.SourceNodeID] || removedNodes[edge.TargetNodeID] {
			continue
		}

		if updated, ok := updatedEdges[edge.ID]; ok {
			next.Edges = append(next.Edges, updated)

			continue
		}

		next.Edges = append(next.Edges, edge)
	}

	next.Edges = append(next.Edges, mutation.AddEdges...)

	return &next
}

func edgeByID(workflow *models.Workflow, id string) *models.Edge {
	for _, edge := range workflow.Edges {
		if edge.ID == id {
			return edge
		}
	}

	return nil
}
