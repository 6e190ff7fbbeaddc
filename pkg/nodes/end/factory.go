// Package end provides the terminal node that collects a run's result.
package end

import (
	"context"

	"github.com/arcflow/arcflow/pkg/protocol"
)

type EndNodeFactory struct{}

func (f *EndNodeFactory) Create(_ context.Context, id string, config map[string]any) (protocol.Executor, error) {
	return NewEndNode(id, config)
}

func (f *EndNodeFactory) ID() string {
	return "end"
}

func (f *EndNodeFactory) Name() string {
	return "End"
}

func (f *EndNodeFactory) Description() string {
	return "Terminal point of the workflow; its input becomes the run result"
}

func (f *EndNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
}

func (f *EndNodeFactory) HasSideEffect() bool {
	return false
}

func NewEndNodeFactory() protocol.NodeFactory {
	return &EndNodeFactory{}
}
