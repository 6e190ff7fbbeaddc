// Package llm provides the chat completion node.
package llm

import (
	"context"

	"github.com/arcflow/arcflow/pkg/protocol"
)

type LLMNodeFactory struct{}

func (f *LLMNodeFactory) Create(_ context.Context, id string, config map[string]any) (protocol.Executor, error) {
	return NewLLMNode(id, config)
}

func (f *LLMNodeFactory) ID() string {
	return "llm"
}

func (f *LLMNodeFactory) Name() string {
	return "LLM"
}

func (f *LLMNodeFactory) Description() string {
	return "Sends a templated prompt to an OpenAI-compatible chat completion endpoint"
}

func (f *LLMNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"endpoint": map[string]any{
				"type":        "string",
				"description": "Chat completions URL",
				"default":     "https://api.openai.com/v1/chat/completions",
			},
			"model": map[string]any{
				"type":        "string",
				"description": "Model identifier passed to the endpoint",
			},
			"prompt": map[string]any{
				"type":        "string",
				"description": "User message, template-enabled",
			},
			"system": map[string]any{
				"type":        "string",
				"description": "Optional system message",
			},
			"api_key": map[string]any{
				"type":        "string",
				"description": "Bearer token, template-enabled (usually {{.env.OPENAI_API_KEY}})",
			},
			"temperature": map[string]any{
				"type": "number",
			},
			"max_tokens": map[string]any{
				"type": "integer",
			},
		},
		"required": []string{"model", "prompt"},
	}
}

func (f *LLMNodeFactory) HasSideEffect() bool {
	return false
}

func NewLLMNodeFactory() protocol.NodeFactory {
	return &LLMNodeFactory{}
}
