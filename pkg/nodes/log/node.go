package log

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/arcflow/arcflow/pkg/models"
	"github.com/arcflow/arcflow/pkg/template"
)

var validLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// LogNode writes a templated message to the run's log and passes its input
// through unchanged.
type LogNode struct {
	id      string
	message string
	level   string
	logger  *slog.Logger
}

func NewLogNode(id string, config map[string]any) (*LogNode, error) {
	message, ok := config["message"].(string)
	if !ok {
		return nil, errors.New("missing required field 'message'")
	}

	level := "info"
	if configured, ok := config["level"].(string); ok {
		if !validLevels[configured] {
			return nil, fmt.Errorf("invalid log level '%s' (must be debug, info, warn, or error)", configured)
		}

		level = configured
	}

	return &LogNode{
		id:      id,
		message: message,
		level:   level,
		logger:  slog.Default(),
	}, nil
}

func (n *LogNode) ID() string {
	return n.id
}

func (n *LogNode) Type() string {
	return "log"
}

func (n *LogNode) Execute(ctx context.Context, executionCtx models.ExecutionContext, input map[string]any) (map[string]any, error) {
	rendered, err := template.RenderWithContext(n.message, &executionCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to render message: %w", err)
	}

	message := fmt.Sprintf("%v", rendered)
	logger := n.logger.With("run_id", executionCtx.RunID, "node_id", n.id)

	switch n.level {
	case "debug":
		logger.DebugContext(ctx, message)
	case "warn":
		logger.WarnContext(ctx, message)
	case "error":
		logger.ErrorContext(ctx, message)
	default:
		logger.InfoContext(ctx, message)
	}

	output := map[string]any{
		"message": message,
		"level":   n.level,
		"logged":  true,
	}

	for key, value := range input {
		if _, taken := output[key]; !taken {
			output[key] = value
		}
	}

	return output, nil
}
