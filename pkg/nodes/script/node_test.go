package script

import (
	"context"
	"strings"
	"testing"

	"github.com/arcflow/arcflow/pkg/models"
)

func TestScriptNode_CapturesStdout(t *testing.T) {
	node, err := NewScriptNode("run", map[string]any{
		"command": "sh",
		"args":    []any{"-c", "echo hello"},
	})
	if err != nil {
		t.Fatalf("failed to create node: %v", err)
	}

	output, err := node.Execute(context.Background(), models.ExecutionContext{}, map[string]any{})
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}

	if output["exit_code"] != 0 {
		t.Errorf("expected exit_code 0, got %v", output["exit_code"])
	}

	if strings.TrimSpace(output["stdout"].(string)) != "hello" {
		t.Errorf("unexpected stdout: %q", output["stdout"])
	}
}

func TestScriptNode_InputOnStdin(t *testing.T) {
	node, err := NewScriptNode("run", map[string]any{
		"command": "cat",
	})
	if err != nil {
		t.Fatalf("failed to create node: %v", err)
	}

	output, err := node.Execute(context.Background(), models.ExecutionContext{}, map[string]any{
		"order_id": "ord-9",
	})
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}

	if !strings.Contains(output["stdout"].(string), `"order_id":"ord-9"`) {
		t.Errorf("expected input JSON on stdout, got %q", output["stdout"])
	}
}

func TestScriptNode_ParseJSON(t *testing.T) {
	node, err := NewScriptNode("run", map[string]any{
		"command":    "sh",
		"args":       []any{"-c", `echo '{"total": 12}'`},
		"parse_json": true,
	})
	if err != nil {
		t.Fatalf("failed to create node: %v", err)
	}

	output, err := node.Execute(context.Background(), models.ExecutionContext{}, nil)
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}

	decoded, ok := output["json"].(map[string]any)
	if !ok {
		t.Fatalf("expected decoded json output, got %T", output["json"])
	}

	if decoded["total"] != float64(12) {
		t.Errorf("expected total 12, got %v", decoded["total"])
	}
}

func TestScriptNode_NonZeroExitFails(t *testing.T) {
	node, err := NewScriptNode("run", map[string]any{
		"command": "sh",
		"args":    []any{"-c", "echo boom >&2; exit 3"},
	})
	if err != nil {
		t.Fatalf("failed to create node: %v", err)
	}

	if _, err := node.Execute(context.Background(), models.ExecutionContext{}, nil); err == nil {
		t.Fatal("expected an error for non-zero exit")
	} else if !strings.Contains(err.Error(), "boom") {
		t.Errorf("expected stderr in error, got %v", err)
	}
}

func TestNewScriptNode_RequiresCommand(t *testing.T) {
	if _, err := NewScriptNode("run", map[string]any{}); err == nil {
		t.Fatal("expected an error for missing command")
	}
}
