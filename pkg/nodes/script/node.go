// Package script provides the external command execution node.
package script

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/goccy/go-json"

	"github.com/arcflow/arcflow/pkg/models"
	"github.com/arcflow/arcflow/pkg/template"
)

// ScriptNode runs an external command. The assembled node input is piped to
// stdin as JSON; the command's exit status and captured streams become the
// node output. Cancellation and deadlines propagate through ctx.
type ScriptNode struct {
	id        string
	command   string
	args      []string
	env       map[string]string
	parseJSON bool
}

func NewScriptNode(id string, config map[string]any) (*ScriptNode, error) {
	command, ok := config["command"].(string)
	if !ok || command == "" {
		return nil, errors.New("missing required field 'command'")
	}

	var args []string

	if rawArgs, ok := config["args"].([]any); ok {
		args = make([]string, 0, len(rawArgs))
		for i, rawArg := range rawArgs {
			arg, ok := rawArg.(string)
			if !ok {
				return nil, fmt.Errorf("arg %d must be a string", i)
			}

			args = append(args, arg)
		}
	}

	env := make(map[string]string)

	if rawEnv, ok := config["env"].(map[string]any); ok {
		for key, value := range rawEnv {
			env[key] = fmt.Sprintf("%v", value)
		}
	}

	parseJSON, _ := config["parse_json"].(bool)

	return &ScriptNode{
		id:        id,
		command:   command,
		args:      args,
		env:       env,
		parseJSON: parseJSON,
	}, nil
}

func (n *ScriptNode) ID() string {
	return n.id
}

func (n *ScriptNode) Type() string {
	return "script"
}

func (n *ScriptNode) Execute(ctx context.Context, ec models.ExecutionContext, input map[string]any) (map[string]any, error) {
	args := make([]string, 0, len(n.args))

	for _, arg := range n.args {
		if !strings.Contains(arg, "{{") {
			args = append(args, arg)
			continue
		}

		rendered, err := template.RenderWithContext(arg, &ec)
		if err != nil {
			return nil, fmt.Errorf("failed to render arg %q: %w", arg, err)
		}

		args = append(args, fmt.Sprintf("%v", rendered))
	}

	stdin, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal input: %w", err)
	}

	cmd := exec.CommandContext(ctx, n.command, args...)
	cmd.Stdin = bytes.NewReader(stdin)
	cmd.Env = os.Environ()

	for key, value := range n.env {
		cmd.Env = append(cmd.Env, key+"="+value)
	}

	var stdout, stderr bytes.Buffer

	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	exitCode := 0

	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			return nil, fmt.Errorf("failed to run %q: %w", n.command, runErr)
		}

		exitCode = exitErr.ExitCode()
	}

	output := map[string]any{
		"exit_code": exitCode,
		"stdout":    stdout.String(),
		"stderr":    stderr.String(),
	}

	if exitCode != 0 {
		return nil, fmt.Errorf("command %q exited with code %d: %s", n.command, exitCode, strings.TrimSpace(stderr.String()))
	}

	if n.parseJSON {
		var decoded map[string]any
		if err := json.Unmarshal(stdout.Bytes(), &decoded); err != nil {
			return nil, fmt.Errorf("failed to decode stdout as JSON: %w", err)
		}

		output["json"] = decoded
	}

	return output, nil
}
