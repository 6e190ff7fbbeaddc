// Package httprequest provides the HTTP call node.
package httprequest

import (
	"context"

	"github.com/arcflow/arcflow/pkg/protocol"
)

type HTTPRequestNodeFactory struct{}

func (f *HTTPRequestNodeFactory) Create(_ context.Context, id string, config map[string]any) (protocol.Executor, error) {
	return NewHTTPRequestNode(id, config)
}

func (f *HTTPRequestNodeFactory) ID() string {
	return "httprequest"
}

func (f *HTTPRequestNodeFactory) Name() string {
	return "HTTP Request"
}

func (f *HTTPRequestNodeFactory) Description() string {
	return "Performs an HTTP request with templated URL, headers and body, with retry on server errors"
}

func (f *HTTPRequestNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{
				"type":        "string",
				"description": "Request URL. Supports templating.",
				"examples":    []string{"https://api.example.com/orders/{{ .input.order_id }}"},
			},
			"method": map[string]any{
				"type":    "string",
				"enum":    []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD"},
				"default": "GET",
			},
			"headers": map[string]any{
				"type":        "object",
				"description": "Request headers; values support templating.",
			},
			"body": map[string]any{
				"type":        "string",
				"description": "Request body. Supports templating.",
			},
			"timeout": map[string]any{
				"type":        "number",
				"description": "Request timeout in seconds",
				"default":     30,
			},
			"retries": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"attempts": map[string]any{"type": "number", "default": 1},
					"delay":    map[string]any{"type": "number", "description": "Delay between attempts in milliseconds"},
				},
			},
		},
		"required": []string{"url"},
	}
}

func (f *HTTPRequestNodeFactory) HasSideEffect() bool {
	return false
}

func NewHTTPRequestNodeFactory() protocol.NodeFactory {
	return &HTTPRequestNodeFactory{}
}
