// Package start provides the entry node every workflow begins at.
package start

import (
	"context"

	"github.com/arcflow/arcflow/pkg/protocol"
)

type StartNodeFactory struct{}

func (f *StartNodeFactory) Create(_ context.Context, id string, config map[string]any) (protocol.Executor, error) {
	return NewStartNode(id, config)
}

func (f *StartNodeFactory) ID() string {
	return "start"
}

func (f *StartNodeFactory) Name() string {
	return "Start"
}

func (f *StartNodeFactory) Description() string {
	return "Entry point of the workflow; passes the run's initial input through"
}

func (f *StartNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
}

func (f *StartNodeFactory) HasSideEffect() bool {
	return false
}

func NewStartNodeFactory() protocol.NodeFactory {
	return &StartNodeFactory{}
}
