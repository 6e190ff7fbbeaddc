// Package log provides the logging node.
package log

import (
	"context"

	"github.com/arcflow/arcflow/pkg/protocol"
)

type LogNodeFactory struct{}

func (f *LogNodeFactory) Create(_ context.Context, id string, config map[string]any) (protocol.Executor, error) {
	return NewLogNode(id, config)
}

func (f *LogNodeFactory) ID() string {
	return "log"
}

func (f *LogNodeFactory) Name() string {
	return "Log"
}

func (f *LogNodeFactory) Description() string {
	return "Logs a templated message at a chosen level and passes its input through"
}

func (f *LogNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"message": map[string]any{
				"type":        "string",
				"description": "Message to log. Supports templating with execution context data.",
				"examples": []string{
					"Processing order {{ .input.order_id }}",
					"Fetch returned status {{ .nodes.fetch.status }}",
				},
			},
			"level": map[string]any{
				"type":        "string",
				"description": "Log level for the message",
				"enum":        []string{"debug", "info", "warn", "error"},
				"default":     "info",
			},
		},
		"required": []string{"message"},
	}
}

func (f *LogNodeFactory) HasSideEffect() bool {
	return false
}

func NewLogNodeFactory() protocol.NodeFactory {
	return &LogNodeFactory{}
}
