// Package transform provides the template-driven reshaping node.
package transform

import (
	"context"

	"github.com/arcflow/arcflow/pkg/protocol"
)

type TransformNodeFactory struct{}

func (f *TransformNodeFactory) Create(_ context.Context, id string, config map[string]any) (protocol.Executor, error) {
	return NewTransformNode(id, config)
}

func (f *TransformNodeFactory) ID() string {
	return "transform"
}

func (f *TransformNodeFactory) Name() string {
	return "Transform"
}

func (f *TransformNodeFactory) Description() string {
	return "Reshapes data by rendering a template expression against the execution context"
}

func (f *TransformNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"expression": map[string]any{
				"type":        "string",
				"description": "Template producing the node output. A JSON object result becomes the output map; any other value lands under 'result'.",
				"examples": []string{
					`{"total": {{ .nodes.fetch.json.amount }}, "currency": "USD"}`,
					"{{ .input.name }}",
				},
			},
		},
		"required": []string{"expression"},
	}
}

func (f *TransformNodeFactory) HasSideEffect() bool {
	return false
}

func NewTransformNodeFactory() protocol.NodeFactory {
	return &TransformNodeFactory{}
}
