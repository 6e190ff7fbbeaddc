// Package graph validates workflow documents and derives execution order.
// All failures are returned as structured, enumerable errors so callers can
// render one message per problem.
package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/arcflow/arcflow/pkg/models"
)

// Options controls validation strictness.
type Options struct {
	// AllowUnreachable downgrades the main-subgraph membership check at save
	// time: nodes outside every start-to-end path are tolerated as scaffolding
	// instead of reported. The mutation gate is never relaxed.
	AllowUnreachable bool
}

// Validate checks the structural invariants of a workflow document: dangling
// edge references, cycles, start/end designation and main-subgraph membership.
func Validate(workflow *models.Workflow, opts Options) *models.ValidationResult {
	result := models.NewValidationResult()

	nodeIDs := make(map[string]bool, len(workflow.Nodes))

	for _, node := range workflow.Nodes {
		if nodeIDs[node.ID] {
			result.Add(models.NewEngineError(
				models.ErrorCodeWorkflowInvalid,
				fmt.Sprintf("duplicate node id %q", node.ID),
			).WithPath("nodes/" + node.ID))

			continue
		}

		nodeIDs[node.ID] = true
	}

	// Dangling edges are reported individually and excluded from the walks
	// below so one bad reference does not drown the rest of the report.
	validEdges := make([]*models.Edge, 0, len(workflow.Edges))

	for _, edge := range workflow.Edges {
		dangling := false

		if !nodeIDs[edge.SourceNodeID] {
			result.Add(models.NewEngineError(
				models.ErrorCodeDanglingEdge,
				fmt.Sprintf("edge %q references missing source node %q", edge.ID, edge.SourceNodeID),
			).WithPath("edges/" + edge.ID))

			dangling = true
		}

		if !nodeIDs[edge.TargetNodeID] {
			result.Add(models.NewEngineError(
				models.ErrorCodeDanglingEdge,
				fmt.Sprintf("edge %q references missing target node %q", edge.ID, edge.TargetNodeID),
			).WithPath("edges/" + edge.ID))

			dangling = true
		}

		if !dangling {
			validEdges = append(validEdges, edge)
		}
	}

	if remaining := kahnRemainder(workflow.Nodes, validEdges); len(remaining) > 0 {
		sort.Strings(remaining)
		result.Add(models.NewEngineError(
			models.ErrorCodeCycleDetected,
			"cycle detected involving nodes: "+strings.Join(remaining, ", "),
		).WithPath("nodes/" + remaining[0]))
	}

	var starts, ends []*models.Node

	for _, node := range workflow.Nodes {
		switch {
		case node.IsStart():
			starts = append(starts, node)
		case node.IsEnd():
			ends = append(ends, node)
		}
	}

	switch {
	case len(starts) == 0:
		result.Add(models.NewEngineError(
			models.ErrorCodeWorkflowInvalid,
			"workflow has no start node",
		).WithPath("nodes"))
	case len(starts) > 1:
		result.Add(models.NewEngineError(
			models.ErrorCodeWorkflowInvalid,
			"workflow has more than one start node",
		).WithPath("nodes"))
	}

	if len(ends) == 0 {
		result.Add(models.NewEngineError(
			models.ErrorCodeWorkflowInvalid,
			"workflow has no end node",
		).WithPath("nodes"))
	}

	if !opts.AllowUnreachable && len(starts) == 1 && len(ends) > 0 {
		member := MainSubgraph(workflow)

		for _, node := range workflow.Nodes {
			if !member[node.ID] {
				result.Add(models.NewEngineError(
					models.ErrorCodeOutsideMainSubgraph,
					fmt.Sprintf("node %q lies on no path from start to end", node.ID),
				).WithPath("nodes/" + node.ID))
			}
		}

		for _, edge := range validEdges {
			if !member[edge.SourceNodeID] && !member[edge.TargetNodeID] {
				result.Add(models.NewEngineError(
					models.ErrorCodeOutsideMainSubgraph,
					fmt.Sprintf("edge %q connects nodes outside the main subgraph", edge.ID),
				).WithPath("edges/" + edge.ID))
			}
		}
	}

	return result
}

// ReportDisabled flags disabled nodes that still sit on the main subgraph:
// the scheduler skips them at run time, so a save that leaves one behind
// deserves a visible note. The report is advisory; disabling a node is a
// legitimate way to park part of a workflow.
func ReportDisabled(workflow *models.Workflow) *models.ValidationResult {
	result := models.NewValidationResult()
	member := MainSubgraph(workflow)

	for _, node := range workflow.Nodes {
		if node.Enabled || !member[node.ID] {
			continue
		}

		result.Add(models.NewEngineError(
			models.ErrorCodeNodeDisabled,
			fmt.Sprintf("node %q is disabled and will be skipped at run time", node.ID),
		).WithPath("nodes/" + node.ID))
	}

	return result
}

// MainSubgraph returns the set of node ids lying on at least one path from
// the start node to an end node: nodes reachable from start intersected with
// nodes that can reach an end.
func MainSubgraph(workflow *models.Workflow) map[string]bool {
	forward := make(map[string][]string)
	backward := make(map[string][]string)

	for _, edge := range workflow.Edges {
		forward[edge.SourceNodeID] = append(forward[edge.SourceNodeID], edge.TargetNodeID)
		backward[edge.TargetNodeID] = append(backward[edge.TargetNodeID], edge.SourceNodeID)
	}

	fromStart := make(map[string]bool)

	for _, start := range workflow.NodesOfType(models.NodeTypeStart) {
		reach(start.ID, forward, fromStart)
	}

	toEnd := make(map[string]bool)

	for _, end := range workflow.NodesOfType(models.NodeTypeEnd) {
		reach(end.ID, backward, toEnd)
	}

	member := make(map[string]bool)

	for id := range fromStart {
		if toEnd[id] {
			member[id] = true
		}
	}

	return member
}

func reach(from string, adjacency map[string][]string, visited map[string]bool) {
	if visited[from] {
		return
	}

	visited[from] = true

	for _, next := range adjacency[from] {
		reach(next, adjacency, visited)
	}
}

// TopoOrder computes a topological visiting order via a dependency-counting
// walk. Ties resolve in document order, which keeps scheduling deterministic.
// It returns the ids of nodes left on a cycle as an error.
func TopoOrder(workflow *models.Workflow) ([]string, error) {
	order := make([]string, 0, len(workflow.Nodes))
	indegree := make(map[string]int, len(workflow.Nodes))

	for _, node := range workflow.Nodes {
		indegree[node.ID] = 0
	}

	for _, edge := range workflow.Edges {
		if _, ok := indegree[edge.TargetNodeID]; ok {
			indegree[edge.TargetNodeID]++
		}
	}

	done := make(map[string]bool, len(workflow.Nodes))

	for len(order) < len(workflow.Nodes) {
		progressed := false

		for _, node := range workflow.Nodes {
			if done[node.ID] || indegree[node.ID] != 0 {
				continue
			}

			done[node.ID] = true
			order = append(order, node.ID)
			progressed = true

			for _, edge := range workflow.OutgoingEdges(node.ID) {
				if _, ok := indegree[edge.TargetNodeID]; ok {
					indegree[edge.TargetNodeID]--
				}
			}
		}

		if !progressed {
			remaining := kahnRemainder(workflow.Nodes, workflow.Edges)
			sort.Strings(remaining)

			return nil, models.NewEngineError(
				models.ErrorCodeCycleDetected,
				"cycle detected involving nodes: "+strings.Join(remaining, ", "),
			)
		}
	}

	return order, nil
}

// kahnRemainder runs the dependency-counting walk and returns the node ids it
// could not remove. A non-empty remainder means those nodes sit on a cycle.
func kahnRemainder(nodes []*models.Node, edges []*models.Edge) []string {
	indegree := make(map[string]int, len(nodes))
	for _, node := range nodes {
		indegree[node.ID] = 0
	}

	outgoing := make(map[string][]string)

	for _, edge := range edges {
		if _, ok := indegree[edge.TargetNodeID]; !ok {
			continue
		}

		if _, ok := indegree[edge.SourceNodeID]; !ok {
			continue
		}

		indegree[edge.TargetNodeID]++
		outgoing[edge.SourceNodeID] = append(outgoing[edge.SourceNodeID], edge.TargetNodeID)
	}

	queue := make([]string, 0, len(nodes))

	for _, node := range nodes {
		if indegree[node.ID] == 0 {
			queue = append(queue, node.ID)
		}
	}

	removed := 0

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		removed++

		for _, target := range outgoing[id] {
			indegree[target]--
			if indegree[target] == 0 {
				queue = append(queue, target)
			}
		}
	}

	if removed == len(nodes) {
		return nil
	}

	var remaining []string

	for _, node := range nodes {
		if indegree[node.ID] > 0 {
			remaining = append(remaining, node.ID)
		}
	}

	return remaining
}
