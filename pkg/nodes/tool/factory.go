// Package tool provides the MCP tool invocation node.
package tool

import (
	"context"

	"github.com/arcflow/arcflow/pkg/protocol"
)

type ToolNodeFactory struct{}

func (f *ToolNodeFactory) Create(_ context.Context, id string, config map[string]any) (protocol.Executor, error) {
	return NewToolNode(id, config)
}

func (f *ToolNodeFactory) ID() string {
	return "tool"
}

func (f *ToolNodeFactory) Name() string {
	return "MCP Tool"
}

func (f *ToolNodeFactory) Description() string {
	return "Invokes a tool on an MCP server spawned over stdio"
}

func (f *ToolNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"server_command": map[string]any{
				"type":        "string",
				"description": "Executable that serves MCP over stdio",
			},
			"server_args": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
			"tool": map[string]any{
				"type":        "string",
				"description": "Name of the tool to call",
			},
			"arguments": map[string]any{
				"type":        "object",
				"description": "Tool arguments; string values are template-enabled",
			},
		},
		"required": []string{"server_command", "tool"},
	}
}

func (f *ToolNodeFactory) HasSideEffect() bool {
	return true
}

func NewToolNodeFactory() protocol.NodeFactory {
	return &ToolNodeFactory{}
}
