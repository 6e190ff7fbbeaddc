// Package tool provides the MCP tool invocation node.
package tool

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/arcflow/arcflow/pkg/models"
	"github.com/arcflow/arcflow/pkg/template"
)

// ToolNode spawns an MCP server over stdio, calls one tool, and shuts the
// server down. One process per execution keeps tool servers from outliving
// the runs that need them.
type ToolNode struct {
	id            string
	serverCommand string
	serverArgs    []string
	tool          string
	arguments     map[string]any
}

func NewToolNode(id string, config map[string]any) (*ToolNode, error) {
	serverCommand, ok := config["server_command"].(string)
	if !ok || serverCommand == "" {
		return nil, errors.New("missing required field 'server_command'")
	}

	toolName, ok := config["tool"].(string)
	if !ok || toolName == "" {
		return nil, errors.New("missing required field 'tool'")
	}

	var serverArgs []string

	if rawArgs, ok := config["server_args"].([]any); ok {
		serverArgs = make([]string, 0, len(rawArgs))
		for i, rawArg := range rawArgs {
			arg, ok := rawArg.(string)
			if !ok {
				return nil, fmt.Errorf("server_args %d must be a string", i)
			}

			serverArgs = append(serverArgs, arg)
		}
	}

	arguments, _ := config["arguments"].(map[string]any)

	return &ToolNode{
		id:            id,
		serverCommand: serverCommand,
		serverArgs:    serverArgs,
		tool:          toolName,
		arguments:     arguments,
	}, nil
}

func (n *ToolNode) ID() string {
	return n.id
}

func (n *ToolNode) Type() string {
	return "tool"
}

func (n *ToolNode) Execute(ctx context.Context, ec models.ExecutionContext, _ map[string]any) (map[string]any, error) {
	arguments, err := template.RenderConfig(n.arguments, &ec)
	if err != nil {
		return nil, fmt.Errorf("failed to render arguments: %w", err)
	}

	mcpClient, err := client.NewStdioMCPClient(n.serverCommand, nil, n.serverArgs...)
	if err != nil {
		return nil, fmt.Errorf("failed to start MCP server %q: %w", n.serverCommand, err)
	}
	defer mcpClient.Close()

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.Capabilities = mcp.ClientCapabilities{}
	initReq.Params.ClientInfo = mcp.Implementation{
		Name:    "arcflow",
		Version: "1.0.0",
	}

	if _, err := mcpClient.Initialize(ctx, initReq); err != nil {
		return nil, fmt.Errorf("failed to initialize MCP session: %w", err)
	}

	callReq := mcp.CallToolRequest{}
	callReq.Params.Name = n.tool
	callReq.Params.Arguments = arguments

	result, err := mcpClient.CallTool(ctx, callReq)
	if err != nil {
		return nil, fmt.Errorf("tool %q call failed: %w", n.tool, err)
	}

	text := collectText(result)

	if result.IsError {
		return nil, fmt.Errorf("tool %q returned an error: %s", n.tool, text)
	}

	return map[string]any{
		"tool":    n.tool,
		"content": text,
	}, nil
}

// collectText flattens the text content blocks of a tool result.
func collectText(result *mcp.CallToolResult) string {
	parts := make([]string, 0, len(result.Content))

	for _, content := range result.Content {
		if textContent, ok := mcp.AsTextContent(content); ok {
			parts = append(parts, textContent.Text)
		}
	}

	return strings.Join(parts, "\n")
}
