// Package script provides the external command execution node.
package script

import (
	"context"

	"github.com/arcflow/arcflow/pkg/protocol"
)

type ScriptNodeFactory struct{}

func (f *ScriptNodeFactory) Create(_ context.Context, id string, config map[string]any) (protocol.Executor, error) {
	return NewScriptNode(id, config)
}

func (f *ScriptNodeFactory) ID() string {
	return "script"
}

func (f *ScriptNodeFactory) Name() string {
	return "Script"
}

func (f *ScriptNodeFactory) Description() string {
	return "Runs an external command with the node input on stdin and captures its output"
}

func (f *ScriptNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"command": map[string]any{
				"type":        "string",
				"description": "Executable to run",
			},
			"args": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Arguments, template-enabled",
			},
			"env": map[string]any{
				"type":        "object",
				"description": "Extra environment variables for the command",
			},
			"parse_json": map[string]any{
				"type":        "boolean",
				"description": "Decode stdout as a JSON object instead of returning raw text",
				"default":     false,
			},
		},
		"required": []string{"command"},
	}
}

func (f *ScriptNodeFactory) HasSideEffect() bool {
	return true
}

func NewScriptNodeFactory() protocol.NodeFactory {
	return &ScriptNodeFactory{}
}
