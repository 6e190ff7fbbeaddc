package transform

import (
	"context"
	"errors"
	"fmt"

	"github.com/arcflow/arcflow/pkg/models"
	"github.com/arcflow/arcflow/pkg/template"
)

// TransformNode renders its expression against the execution context and
// emits the result as output.
type TransformNode struct {
	id         string
	expression string
}

func NewTransformNode(id string, config map[string]any) (*TransformNode, error) {
	expression, ok := config["expression"].(string)
	if !ok || expression == "" {
		return nil, errors.New("missing required field 'expression'")
	}

	return &TransformNode{id: id, expression: expression}, nil
}

func (n *TransformNode) ID() string {
	return n.id
}

func (n *TransformNode) Type() string {
	return "transform"
}

func (n *TransformNode) Execute(_ context.Context, executionCtx models.ExecutionContext, _ map[string]any) (map[string]any, error) {
	rendered, err := template.RenderWithContext(n.expression, &executionCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to render expression: %w", err)
	}

	if output, ok := rendered.(map[string]any); ok {
		return output, nil
	}

	return map[string]any{"result": rendered}, nil
}
