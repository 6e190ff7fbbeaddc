// Package merge provides the fan-in join node.
package merge

import (
	"context"

	"github.com/arcflow/arcflow/pkg/models"
)

// MergeNode is a structural join point. The input it receives is already the
// combination of every satisfied incoming edge, so execution is a passthrough;
// the node exists so parallel paths have a single place to converge.
type MergeNode struct {
	id string
}

func NewMergeNode(id string, _ map[string]any) (*MergeNode, error) {
	return &MergeNode{id: id}, nil
}

func (n *MergeNode) ID() string {
	return n.id
}

func (n *MergeNode) Type() string {
	return "merge"
}

func (n *MergeNode) Execute(_ context.Context, _ models.ExecutionContext, input map[string]any) (map[string]any, error) {
	output := make(map[string]any, len(input))
	for key, value := range input {
		output[key] = value
	}

	return output, nil
}
