package start

import (
	"context"

	"github.com/arcflow/arcflow/pkg/models"
)

// StartNode marks the workflow entry. The scheduler hands it the run's
// initial input and it flows downstream unchanged.
type StartNode struct {
	id string
}

func NewStartNode(id string, _ map[string]any) (*StartNode, error) {
	return &StartNode{id: id}, nil
}

func (n *StartNode) ID() string {
	return n.id
}

func (n *StartNode) Type() string {
	return "start"
}

func (n *StartNode) Execute(_ context.Context, _ models.ExecutionContext, input map[string]any) (map[string]any, error) {
	if input == nil {
		return map[string]any{}, nil
	}

	return input, nil
}
