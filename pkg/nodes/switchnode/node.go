// Package switchnode provides the multi-way decision node.
package switchnode

import (
	"context"
	"errors"
	"fmt"

	"github.com/Knetic/govaluate"

	"github.com/arcflow/arcflow/pkg/condition"
	"github.com/arcflow/arcflow/pkg/models"
)

type switchCase struct {
	name      string
	condition string
}

// SwitchNode evaluates its cases in document order and emits the name of the
// first case whose condition holds as the branch discriminator.
type SwitchNode struct {
	id          string
	cases       []switchCase
	defaultName string
}

func NewSwitchNode(id string, config map[string]any) (*SwitchNode, error) {
	rawCases, ok := config["cases"].([]any)
	if !ok || len(rawCases) == 0 {
		return nil, errors.New("missing required field 'cases'")
	}

	cases := make([]switchCase, 0, len(rawCases))

	for i, rawCase := range rawCases {
		caseMap, ok := rawCase.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("case %d must be an object", i)
		}

		name, ok := caseMap["name"].(string)
		if !ok || name == "" {
			return nil, fmt.Errorf("case %d missing 'name'", i)
		}

		conditionExpr, ok := caseMap["condition"].(string)
		if !ok || conditionExpr == "" {
			return nil, fmt.Errorf("case %d missing 'condition'", i)
		}

		// Parse eagerly so a broken expression surfaces at creation, not mid-run.
		if _, err := govaluate.NewEvaluableExpression(condition.Normalize(conditionExpr)); err != nil {
			return nil, fmt.Errorf("case %q has an invalid condition: %w", name, err)
		}

		cases = append(cases, switchCase{name: name, condition: conditionExpr})
	}

	defaultName := "default"
	if configured, ok := config["default"].(string); ok && configured != "" {
		defaultName = configured
	}

	return &SwitchNode{id: id, cases: cases, defaultName: defaultName}, nil
}

func (n *SwitchNode) ID() string {
	return n.id
}

func (n *SwitchNode) Type() string {
	return "switch"
}

func (n *SwitchNode) Execute(_ context.Context, _ models.ExecutionContext, input map[string]any) (map[string]any, error) {
	parameters := make(map[string]any, len(input))
	for key, value := range input {
		parameters[key] = value
	}

	for _, branchCase := range n.cases {
		evaluable, err := govaluate.NewEvaluableExpression(condition.Normalize(branchCase.condition))
		if err != nil {
			return nil, fmt.Errorf("case %q has an invalid condition: %w", branchCase.name, err)
		}

		raw, err := evaluable.Evaluate(parameters)
		if err != nil {
			return nil, fmt.Errorf("case %q evaluation failed: %w", branchCase.name, err)
		}

		if condition.Truthy(raw) {
			return map[string]any{
				"branch":  branchCase.name,
				"matched": true,
			}, nil
		}
	}

	return map[string]any{
		"branch":  n.defaultName,
		"matched": false,
	}, nil
}
