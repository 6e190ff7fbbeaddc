package end

import (
	"context"

	"github.com/arcflow/arcflow/pkg/models"
)

// EndNode collects whatever survived the graph. The scheduler merges the
// outputs of all end nodes into the run result.
type EndNode struct {
	id string
}

func NewEndNode(id string, _ map[string]any) (*EndNode, error) {
	return &EndNode{id: id}, nil
}

func (n *EndNode) ID() string {
	return n.id
}

func (n *EndNode) Type() string {
	return "end"
}

func (n *EndNode) Execute(_ context.Context, _ models.ExecutionContext, input map[string]any) (map[string]any, error) {
	if input == nil {
		return map[string]any{}, nil
	}

	return input, nil
}
