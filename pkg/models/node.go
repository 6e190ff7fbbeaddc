package models

import "strings"

// Built-in structural node types. The start and end markers designate the
// main subgraph; everything else is an open, extensible tag resolved through
// the executor registry.
const (
	NodeTypeStart = "start"
	NodeTypeEnd   = "end"
)

// Node is a typed step instance inside a workflow document. Position is
// presentation-only and never consulted by the engine.
type Node struct {
	ID        string         `json:"id"         validate:"required"`
	Type      string         `json:"type"       validate:"required"`
	Name      string         `json:"name"       validate:"required,min=1"`
	Config    map[string]any `json:"config"`
	PositionX int            `json:"position_x"`
	PositionY int            `json:"position_y"`
	Enabled   bool           `json:"enabled"`
}

// IsStart reports whether this node is the designated entry marker.
func (n *Node) IsStart() bool {
	return n.Type == NodeTypeStart
}

// IsEnd reports whether this node is the designated exit marker.
func (n *Node) IsEnd() bool {
	return n.Type == NodeTypeEnd
}

// Edge connects a source node to a target node, optionally gated by a
// condition over the source node's output.
type Edge struct {
	ID           string `json:"id"`
	SourceNodeID string `json:"source_node_id" validate:"required"`
	TargetNodeID string `json:"target_node_id" validate:"required"`
	Condition    string `json:"condition,omitempty"`
}

// Unconditional reports whether this edge passes through without gating.
// An absent, empty or whitespace-only condition means pass.
func (e *Edge) Unconditional() bool {
	return strings.TrimSpace(e.Condition) == ""
}
