package switchnode

import (
	"context"
	"testing"

	"github.com/arcflow/arcflow/pkg/models"
)

func switchConfig() map[string]any {
	return map[string]any{
		"cases": []any{
			map[string]any{"name": "premium", "condition": "tier == 'gold'"},
			map[string]any{"name": "bulk", "condition": "quantity >= 100"},
		},
		"default": "standard",
	}
}

func TestSwitchNode_FirstMatchWins(t *testing.T) {
	node, err := NewSwitchNode("route", switchConfig())
	if err != nil {
		t.Fatalf("failed to create node: %v", err)
	}

	output, err := node.Execute(context.Background(), models.ExecutionContext{}, map[string]any{
		"tier":     "gold",
		"quantity": 500.0,
	})
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}

	if output["branch"] != "premium" {
		t.Errorf("expected branch 'premium', got %v", output["branch"])
	}

	if output["matched"] != true {
		t.Errorf("expected matched true, got %v", output["matched"])
	}
}

func TestSwitchNode_FallsThroughToLaterCase(t *testing.T) {
	node, err := NewSwitchNode("route", switchConfig())
	if err != nil {
		t.Fatalf("failed to create node: %v", err)
	}

	output, err := node.Execute(context.Background(), models.ExecutionContext{}, map[string]any{
		"tier":     "silver",
		"quantity": 250.0,
	})
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}

	if output["branch"] != "bulk" {
		t.Errorf("expected branch 'bulk', got %v", output["branch"])
	}
}

func TestSwitchNode_NoMatchUsesDefault(t *testing.T) {
	node, err := NewSwitchNode("route", switchConfig())
	if err != nil {
		t.Fatalf("failed to create node: %v", err)
	}

	output, err := node.Execute(context.Background(), models.ExecutionContext{}, map[string]any{
		"tier":     "silver",
		"quantity": 3.0,
	})
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}

	if output["branch"] != "standard" {
		t.Errorf("expected branch 'standard', got %v", output["branch"])
	}

	if output["matched"] != false {
		t.Errorf("expected matched false, got %v", output["matched"])
	}
}

func TestNewSwitchNode_RejectsMissingCases(t *testing.T) {
	if _, err := NewSwitchNode("route", map[string]any{}); err == nil {
		t.Fatal("expected an error for missing cases")
	}
}

func TestNewSwitchNode_RejectsBrokenCondition(t *testing.T) {
	_, err := NewSwitchNode("route", map[string]any{
		"cases": []any{
			map[string]any{"name": "broken", "condition": "tier =="},
		},
	})
	if err == nil {
		t.Fatal("expected an error for broken condition")
	}
}
