// Package filewrite provides the local file output node.
package filewrite

import (
	"context"

	"github.com/arcflow/arcflow/pkg/protocol"
)

type FileWriteNodeFactory struct{}

func (f *FileWriteNodeFactory) Create(_ context.Context, id string, config map[string]any) (protocol.Executor, error) {
	return NewFileWriteNode(id, config)
}

func (f *FileWriteNodeFactory) ID() string {
	return "filewrite"
}

func (f *FileWriteNodeFactory) Name() string {
	return "File Write"
}

func (f *FileWriteNodeFactory) Description() string {
	return "Writes templated content to a file on the local filesystem"
}

func (f *FileWriteNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "Destination file path, template-enabled",
			},
			"content": map[string]any{
				"type":        "string",
				"description": "Content to write; template-enabled. Empty writes the node input as JSON.",
			},
			"mode": map[string]any{
				"type":        "string",
				"enum":        []string{"overwrite", "append", "create"},
				"description": "overwrite replaces, append extends, create fails if the file exists",
				"default":     "overwrite",
			},
		},
		"required": []string{"path"},
	}
}

func (f *FileWriteNodeFactory) HasSideEffect() bool {
	return true
}

func NewFileWriteNodeFactory() protocol.NodeFactory {
	return &FileWriteNodeFactory{}
}
