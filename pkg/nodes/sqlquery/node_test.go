package sqlquery

import "testing"

func TestNewSQLQueryNode_RequiresDSNAndStatement(t *testing.T) {
	if _, err := NewSQLQueryNode("q", map[string]any{"statement": "SELECT 1"}); err == nil {
		t.Fatal("expected an error for missing dsn")
	}

	if _, err := NewSQLQueryNode("q", map[string]any{"dsn": "postgres://localhost/db"}); err == nil {
		t.Fatal("expected an error for missing statement")
	}
}

func TestNewSQLQueryNode_RejectsInvalidMode(t *testing.T) {
	_, err := NewSQLQueryNode("q", map[string]any{
		"dsn":       "postgres://localhost/db",
		"statement": "DELETE FROM orders",
		"mode":      "truncate",
	})
	if err == nil {
		t.Fatal("expected an error for invalid mode")
	}
}

func TestNewSQLQueryNode_Defaults(t *testing.T) {
	node, err := NewSQLQueryNode("q", map[string]any{
		"dsn":       "postgres://localhost/db",
		"statement": "SELECT * FROM orders WHERE id = $1",
		"params":    []any{"{{.input.order_id}}"},
	})
	if err != nil {
		t.Fatalf("failed to create node: %v", err)
	}

	if node.mode != ModeQuery {
		t.Errorf("expected default mode query, got %q", node.mode)
	}

	if node.Type() != "sqlquery" {
		t.Errorf("unexpected type %q", node.Type())
	}
}
