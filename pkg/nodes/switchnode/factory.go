// Package switchnode provides the multi-way decision node.
package switchnode

import (
	"context"

	"github.com/arcflow/arcflow/pkg/protocol"
)

type SwitchNodeFactory struct{}

func (f *SwitchNodeFactory) Create(_ context.Context, id string, config map[string]any) (protocol.Executor, error) {
	return NewSwitchNode(id, config)
}

func (f *SwitchNodeFactory) ID() string {
	return "switch"
}

func (f *SwitchNodeFactory) Name() string {
	return "Switch"
}

func (f *SwitchNodeFactory) Description() string {
	return "Evaluates cases in order and emits the first matching case name as the branch discriminator"
}

func (f *SwitchNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"cases": map[string]any{
				"type":        "array",
				"description": "Ordered cases; the first whose condition is truthy wins.",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"name":      map[string]any{"type": "string"},
						"condition": map[string]any{"type": "string"},
					},
					"required": []string{"name", "condition"},
				},
			},
			"default": map[string]any{
				"type":        "string",
				"description": "Branch name emitted when no case matches",
				"default":     "default",
			},
		},
		"required": []string{"cases"},
	}
}

func (f *SwitchNodeFactory) HasSideEffect() bool {
	return false
}

func NewSwitchNodeFactory() protocol.NodeFactory {
	return &SwitchNodeFactory{}
}
