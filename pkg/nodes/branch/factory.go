// Package branch provides the boolean decision node.
package branch

import (
	"context"

	"github.com/arcflow/arcflow/pkg/protocol"
)

type BranchNodeFactory struct{}

func (f *BranchNodeFactory) Create(_ context.Context, id string, config map[string]any) (protocol.Executor, error) {
	return NewBranchNode(id, config)
}

func (f *BranchNodeFactory) ID() string {
	return "branch"
}

func (f *BranchNodeFactory) Name() string {
	return "Branch"
}

func (f *BranchNodeFactory) Description() string {
	return "Evaluates a condition against its input and emits a true/false branch discriminator for downstream edge gating"
}

func (f *BranchNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"condition": map[string]any{
				"type":        "string",
				"description": "Expression over the node input. Accepts C-like and natural operators (==/===, &&/and, ||/or).",
				"examples":    []string{"amount > 100", "status == 'active' and verified"},
			},
		},
		"required": []string{"condition"},
	}
}

func (f *BranchNodeFactory) HasSideEffect() bool {
	return false
}

func NewBranchNodeFactory() protocol.NodeFactory {
	return &BranchNodeFactory{}
}
