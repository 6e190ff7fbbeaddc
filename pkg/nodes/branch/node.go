package branch

import (
	"context"
	"errors"
	"fmt"

	"github.com/Knetic/govaluate"

	"github.com/arcflow/arcflow/pkg/condition"
	"github.com/arcflow/arcflow/pkg/models"
)

// BranchNode evaluates its condition against the assembled input and emits
// the branch discriminator downstream edges gate on.
type BranchNode struct {
	id        string
	condition string
}

func NewBranchNode(id string, config map[string]any) (*BranchNode, error) {
	conditionExpr, ok := config["condition"].(string)
	if !ok || conditionExpr == "" {
		return nil, errors.New("missing required field 'condition'")
	}

	// Parse eagerly so a broken expression surfaces at creation, not mid-run.
	if _, err := govaluate.NewEvaluableExpression(condition.Normalize(conditionExpr)); err != nil {
		return nil, fmt.Errorf("invalid condition: %w", err)
	}

	return &BranchNode{id: id, condition: conditionExpr}, nil
}

func (n *BranchNode) ID() string {
	return n.id
}

func (n *BranchNode) Type() string {
	return "branch"
}

func (n *BranchNode) Execute(_ context.Context, _ models.ExecutionContext, input map[string]any) (map[string]any, error) {
	evaluable, err := govaluate.NewEvaluableExpression(condition.Normalize(n.condition))
	if err != nil {
		return nil, fmt.Errorf("invalid condition: %w", err)
	}

	parameters := make(map[string]any, len(input))
	for key, value := range input {
		parameters[key] = value
	}

	raw, err := evaluable.Evaluate(parameters)
	if err != nil {
		return nil, fmt.Errorf("condition evaluation failed: %w", err)
	}

	result := condition.Truthy(raw)

	return map[string]any{
		"branch": fmt.Sprintf("%t", result),
		"result": result,
	}, nil
}
