// Package filewrite provides the local file output node.
package filewrite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"

	"github.com/arcflow/arcflow/pkg/models"
	"github.com/arcflow/arcflow/pkg/template"
)

const (
	ModeOverwrite = "overwrite"
	ModeAppend    = "append"
	ModeCreate    = "create"
)

// FileWriteNode writes rendered content to the local filesystem.
type FileWriteNode struct {
	id      string
	path    string
	content string
	mode    string
}

func NewFileWriteNode(id string, config map[string]any) (*FileWriteNode, error) {
	path, ok := config["path"].(string)
	if !ok || path == "" {
		return nil, errors.New("missing required field 'path'")
	}

	content, _ := config["content"].(string)

	mode := ModeOverwrite
	if configured, ok := config["mode"].(string); ok && configured != "" {
		mode = configured
	}

	switch mode {
	case ModeOverwrite, ModeAppend, ModeCreate:
	default:
		return nil, fmt.Errorf("invalid mode %q, must be one of: overwrite, append, create", mode)
	}

	return &FileWriteNode{
		id:      id,
		path:    path,
		content: content,
		mode:    mode,
	}, nil
}

func (n *FileWriteNode) ID() string {
	return n.id
}

func (n *FileWriteNode) Type() string {
	return "filewrite"
}

func (n *FileWriteNode) Execute(_ context.Context, ec models.ExecutionContext, input map[string]any) (map[string]any, error) {
	renderedPath, err := template.RenderWithContext(n.path, &ec)
	if err != nil {
		return nil, fmt.Errorf("failed to render path: %w", err)
	}

	path := fmt.Sprintf("%v", renderedPath)

	data, err := n.renderContent(ec, input)
	if err != nil {
		return nil, err
	}

	if n.mode == ModeCreate {
		if _, err := os.Stat(path); err == nil {
			return nil, fmt.Errorf("file %q already exists", path)
		}
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory %q: %w", dir, err)
		}
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if n.mode == ModeAppend {
		flags = os.O_WRONLY | os.O_CREATE | os.O_APPEND
	}

	file, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open %q: %w", path, err)
	}
	defer file.Close()

	written, err := file.Write(data)
	if err != nil {
		return nil, fmt.Errorf("failed to write %q: %w", path, err)
	}

	return map[string]any{
		"file_path":     path,
		"bytes_written": written,
		"mode":          n.mode,
	}, nil
}

// renderContent produces the bytes to write: the rendered content template,
// or the node input serialized as indented JSON when no template is given.
func (n *FileWriteNode) renderContent(ec models.ExecutionContext, input map[string]any) ([]byte, error) {
	if n.content == "" {
		data, err := json.MarshalIndent(input, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal input: %w", err)
		}

		return data, nil
	}

	rendered, err := template.RenderWithContext(n.content, &ec)
	if err != nil {
		return nil, fmt.Errorf("failed to render content: %w", err)
	}

	if text, ok := rendered.(string); ok {
		return []byte(text), nil
	}

	data, err := json.MarshalIndent(rendered, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal rendered content: %w", err)
	}

	return data, nil
}
