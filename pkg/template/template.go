// Package template renders {{ }} expressions in node configuration against
// the run's execution context.
package template

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/arcflow/arcflow/pkg/models"
)

// RenderWithContext renders input against the run view node executors see:
// the initial input, upstream node outputs that passed their edge verdicts,
// workflow variables, and the process environment.
func RenderWithContext(input string, executionCtx *models.ExecutionContext) (any, error) {
	data := map[string]any{
		"input":        executionCtx.Input,
		"node_outputs": executionCtx.NodeOutputs,
		"nodes":        executionCtx.NodeOutputs,
		"variables":    executionCtx.Variables,
		"vars":         executionCtx.Variables,
		"metadata":     executionCtx.Metadata,
		"env":          getEnvVars(),
		"run": map[string]any{
			"id":               executionCtx.RunID,
			"workflow_id":      executionCtx.WorkflowID,
			"workflow_version": executionCtx.WorkflowVersion,
		},
	}

	return Render(input, data)
}

func Render(templateStr string, data any) (any, error) {
	tmpl, err := template.
		New("transform").
		Funcs(template.FuncMap{
			"now": func() string {
				return time.Now().UTC().Format(time.RFC3339)
			},
			"rand": func(max int) int {
				if max <= 0 {
					return 0
				}

				num := make([]byte, 1)
				if _, err := rand.Read(num); err != nil {
					return 0
				}

				return int(num[0]) % max
			},
		}).Parse(templateStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template '%s': %w", templateStr, err)
	}

	var buf strings.Builder

	err = tmpl.Execute(&buf, data)
	if err != nil {
		return nil, fmt.Errorf("failed to execute template '%s': %w", templateStr, err)
	}

	result := strings.TrimSpace(buf.String())

	// Rendered JSON documents come back structured.
	if (strings.HasPrefix(result, "{") && strings.HasSuffix(result, "}")) ||
		(strings.HasPrefix(result, "[") && strings.HasSuffix(result, "]")) {
		var jsonResult any

		err := json.Unmarshal([]byte(result), &jsonResult)
		if err == nil {
			return jsonResult, nil
		}

		return jsonResult, fmt.Errorf("failed to parse json '%s': %w", templateStr, err)
	}

	if num, err := strconv.ParseFloat(result, 64); err == nil {
		return num, nil
	}

	if b, err := strconv.ParseBool(result); err == nil {
		return b, nil
	}

	return result, nil
}

// RenderConfig renders every string value of a node config in place,
// descending into nested maps and slices. Non-string values pass through.
func RenderConfig(config map[string]any, executionCtx *models.ExecutionContext) (map[string]any, error) {
	rendered := make(map[string]any, len(config))

	for key, value := range config {
		result, err := renderValue(value, executionCtx)
		if err != nil {
			return nil, fmt.Errorf("config key %q: %w", key, err)
		}

		rendered[key] = result
	}

	return rendered, nil
}

func renderValue(value any, executionCtx *models.ExecutionContext) (any, error) {
	switch typed := value.(type) {
	case string:
		if !strings.Contains(typed, "{{") {
			return typed, nil
		}

		return RenderWithContext(typed, executionCtx)
	case map[string]any:
		return RenderConfig(typed, executionCtx)
	case []any:
		rendered := make([]any, len(typed))

		for i, item := range typed {
			result, err := renderValue(item, executionCtx)
			if err != nil {
				return nil, err
			}

			rendered[i] = result
		}

		return rendered, nil
	default:
		return value, nil
	}
}

func getEnvVars() map[string]any {
	envMap := make(map[string]any)

	for _, env := range os.Environ() {
		parts := strings.SplitN(env, "=", 2)
		if len(parts) == 2 {
			envMap[parts[0]] = parts[1]
		}
	}

	return envMap
}
