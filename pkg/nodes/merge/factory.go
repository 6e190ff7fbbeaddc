// Package merge provides the fan-in join node.
package merge

import (
	"context"

	"github.com/arcflow/arcflow/pkg/protocol"
)

type MergeNodeFactory struct{}

func (f *MergeNodeFactory) Create(_ context.Context, id string, config map[string]any) (protocol.Executor, error) {
	return NewMergeNode(id, config)
}

func (f *MergeNodeFactory) ID() string {
	return "merge"
}

func (f *MergeNodeFactory) Name() string {
	return "Merge"
}

func (f *MergeNodeFactory) Description() string {
	return "Joins parallel paths and passes the combined upstream outputs downstream"
}

func (f *MergeNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
}

func (f *MergeNodeFactory) HasSideEffect() bool {
	return false
}

func NewMergeNodeFactory() protocol.NodeFactory {
	return &MergeNodeFactory{}
}
