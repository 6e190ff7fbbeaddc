// Package sqlquery provides the PostgreSQL statement node.
package sqlquery

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/lib/pq"

	"github.com/arcflow/arcflow/pkg/models"
	"github.com/arcflow/arcflow/pkg/template"
)

const (
	ModeQuery = "query"
	ModeExec  = "exec"
)

// SQLQueryNode runs a single parameterized statement per execution. The
// connection is opened and closed inside Execute so a long-lived run never
// pins a database connection across confirmation waits.
type SQLQueryNode struct {
	id        string
	dsn       string
	statement string
	mode      string
	params    []any
}

func NewSQLQueryNode(id string, config map[string]any) (*SQLQueryNode, error) {
	dsn, ok := config["dsn"].(string)
	if !ok || dsn == "" {
		return nil, errors.New("missing required field 'dsn'")
	}

	statement, ok := config["statement"].(string)
	if !ok || statement == "" {
		return nil, errors.New("missing required field 'statement'")
	}

	mode := ModeQuery
	if configured, ok := config["mode"].(string); ok && configured != "" {
		mode = configured
	}

	if mode != ModeQuery && mode != ModeExec {
		return nil, fmt.Errorf("invalid mode %q, must be 'query' or 'exec'", mode)
	}

	params, _ := config["params"].([]any)

	return &SQLQueryNode{
		id:        id,
		dsn:       dsn,
		statement: statement,
		mode:      mode,
		params:    params,
	}, nil
}

func (n *SQLQueryNode) ID() string {
	return n.id
}

func (n *SQLQueryNode) Type() string {
	return "sqlquery"
}

func (n *SQLQueryNode) Execute(ctx context.Context, ec models.ExecutionContext, _ map[string]any) (map[string]any, error) {
	renderedDSN, err := template.RenderWithContext(n.dsn, &ec)
	if err != nil {
		return nil, fmt.Errorf("failed to render dsn: %w", err)
	}

	params, err := n.renderParams(ec)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("postgres", fmt.Sprintf("%v", renderedDSN))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if n.mode == ModeExec {
		result, err := db.ExecContext(ctx, n.statement, params...)
		if err != nil {
			return nil, fmt.Errorf("exec failed: %w", err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to read affected rows: %w", err)
		}

		return map[string]any{"rows_affected": affected}, nil
	}

	rows, err := db.QueryContext(ctx, n.statement, params...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	collected, err := scanRows(rows)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"rows":      collected,
		"row_count": len(collected),
	}, nil
}

func (n *SQLQueryNode) renderParams(ec models.ExecutionContext) ([]any, error) {
	params := make([]any, 0, len(n.params))

	for i, param := range n.params {
		text, ok := param.(string)
		if !ok || !strings.Contains(text, "{{") {
			params = append(params, param)
			continue
		}

		rendered, err := template.RenderWithContext(text, &ec)
		if err != nil {
			return nil, fmt.Errorf("failed to render param %d: %w", i, err)
		}

		params = append(params, rendered)
	}

	return params, nil
}

func scanRows(rows *sql.Rows) ([]map[string]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	collected := make([]map[string]any, 0)

	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))

		for i := range values {
			pointers[i] = &values[i]
		}

		if err := rows.Scan(pointers...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(map[string]any, len(columns))

		for i, column := range columns {
			value := values[i]
			if raw, ok := value.([]byte); ok {
				value = string(raw)
			}

			row[column] = value
		}

		collected = append(collected, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration failed: %w", err)
	}

	return collected, nil
}
