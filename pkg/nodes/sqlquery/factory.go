// Package sqlquery provides the PostgreSQL statement node.
package sqlquery

import (
	"context"

	"github.com/arcflow/arcflow/pkg/protocol"
)

type SQLQueryNodeFactory struct{}

func (f *SQLQueryNodeFactory) Create(_ context.Context, id string, config map[string]any) (protocol.Executor, error) {
	return NewSQLQueryNode(id, config)
}

func (f *SQLQueryNodeFactory) ID() string {
	return "sqlquery"
}

func (f *SQLQueryNodeFactory) Name() string {
	return "SQL Query"
}

func (f *SQLQueryNodeFactory) Description() string {
	return "Runs a parameterized SQL statement against a PostgreSQL database"
}

func (f *SQLQueryNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"dsn": map[string]any{
				"type":        "string",
				"description": "PostgreSQL connection string, template-enabled (usually {{.env.DATABASE_URL}})",
			},
			"statement": map[string]any{
				"type":        "string",
				"description": "SQL text with $1..$n placeholders",
			},
			"mode": map[string]any{
				"type":        "string",
				"enum":        []string{"query", "exec"},
				"description": "query returns rows, exec returns the affected row count",
				"default":     "query",
			},
			"params": map[string]any{
				"type":        "array",
				"description": "Positional statement parameters, template-enabled",
			},
		},
		"required": []string{"dsn", "statement"},
	}
}

func (f *SQLQueryNodeFactory) HasSideEffect() bool {
	return true
}

func NewSQLQueryNodeFactory() protocol.NodeFactory {
	return &SQLQueryNodeFactory{}
}
