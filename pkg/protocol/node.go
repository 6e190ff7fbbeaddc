// Package protocol defines the interfaces and contracts for pluggable node executors.
package protocol

import (
	"context"

	"github.com/arcflow/arcflow/pkg/models"
)

// Executor is the closed capability interface every node type implements.
// Execute receives the node's parsed configuration (bound at Create time) and
// the input assembled from satisfied incoming edges, and returns the node's
// output. Blocking work must honor ctx cancellation and deadlines.
type Executor interface {
	// ID returns the workflow node id this executor was created for
	ID() string

	// Type returns the node type tag
	Type() string

	// Execute runs the node against the assembled input
	Execute(ctx context.Context, ec models.ExecutionContext, input map[string]any) (map[string]any, error)
}

// NodeFactory creates executor instances and provides static metadata about
// the node type. New node types are added by registering a factory, never by
// modifying the scheduler.
type NodeFactory interface {
	// Create creates a new executor instance with the given configuration
	Create(ctx context.Context, id string, config map[string]any) (Executor, error)

	// ID returns the unique type tag for this node type
	ID() string

	// Name returns the human-readable name for this node type
	Name() string

	// Description returns a description of what this node does
	Description() string

	// Schema returns the JSON schema for configuring this node
	Schema() map[string]any

	// HasSideEffect reports whether nodes of this type can cause an external
	// effect (network write, storage mutation, notification, tool call).
	// Static metadata, declared once per type and never inferred per call.
	HasSideEffect() bool
}
