package httprequest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/arcflow/arcflow/pkg/models"
	"github.com/arcflow/arcflow/pkg/template"
)

// Config holds the parsed node configuration.
type Config struct {
	URL     string
	Method  string
	Headers map[string]string
	Body    string
	Timeout float64
	Retries RetryConfig
}

// RetryConfig defines retry behavior. Only server errors and network
// failures retry; client errors never do.
type RetryConfig struct {
	Attempts int
	Delay    int
}

// HTTPRequestNode performs a single HTTP call per execution.
type HTTPRequestNode struct {
	id     string
	config Config
}

func NewHTTPRequestNode(id string, config map[string]any) (*HTTPRequestNode, error) {
	parsed := Config{
		Method:  http.MethodGet,
		Headers: make(map[string]string),
		Timeout: 30,
		Retries: RetryConfig{Attempts: 1},
	}

	url, ok := config["url"].(string)
	if !ok || url == "" {
		return nil, errors.New("missing required field 'url'")
	}

	parsed.URL = url

	if method, ok := config["method"].(string); ok {
		parsed.Method = strings.ToUpper(method)
	}

	if headers, ok := config["headers"].(map[string]any); ok {
		for key, value := range headers {
			if str, ok := value.(string); ok {
				parsed.Headers[key] = str
			}
		}
	}

	if body, ok := config["body"].(string); ok {
		parsed.Body = body
	}

	if timeout, ok := config["timeout"].(float64); ok && timeout > 0 {
		parsed.Timeout = timeout
	}

	if retries, ok := config["retries"].(map[string]any); ok {
		if attempts, ok := retries["attempts"].(float64); ok && attempts > 0 {
			parsed.Retries.Attempts = int(attempts)
		}

		if delay, ok := retries["delay"].(float64); ok && delay > 0 {
			parsed.Retries.Delay = int(delay)
		}
	}

	return &HTTPRequestNode{id: id, config: parsed}, nil
}

func (n *HTTPRequestNode) ID() string {
	return n.id
}

func (n *HTTPRequestNode) Type() string {
	return "httprequest"
}

func (n *HTTPRequestNode) Execute(ctx context.Context, executionCtx models.ExecutionContext, _ map[string]any) (map[string]any, error) {
	url, err := n.renderString(n.config.URL, &executionCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to render url: %w", err)
	}

	body := ""
	if n.config.Body != "" {
		body, err = n.renderString(n.config.Body, &executionCtx)
		if err != nil {
			return nil, fmt.Errorf("failed to render body: %w", err)
		}
	}

	headers := make(map[string]string, len(n.config.Headers))

	for key, value := range n.config.Headers {
		rendered, err := n.renderString(value, &executionCtx)
		if err != nil {
			headers[key] = value

			continue
		}

		headers[key] = rendered
	}

	var lastErr error

	for attempt := 1; attempt <= n.config.Retries.Attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(time.Duration(n.config.Retries.Delay) * time.Millisecond):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		result, err := n.performRequest(ctx, url, body, headers)
		if err == nil {
			return result, nil
		}

		lastErr = err

		httpErr := &HTTPError{}
		if errors.As(err, &httpErr) && httpErr.StatusCode < http.StatusInternalServerError {
			break
		}
	}

	return nil, fmt.Errorf("http request failed after %d attempt(s): %w", n.config.Retries.Attempts, lastErr)
}

func (n *HTTPRequestNode) renderString(input string, executionCtx *models.ExecutionContext) (string, error) {
	rendered, err := template.RenderWithContext(input, executionCtx)
	if err != nil {
		return "", err
	}

	if str, ok := rendered.(string); ok {
		return str, nil
	}

	encoded, err := json.Marshal(rendered)
	if err != nil {
		return "", err
	}

	return string(encoded), nil
}

// HTTPError carries the status code so retry logic can tell client errors
// from server errors.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

func (n *HTTPRequestNode) performRequest(ctx context.Context, url, body string, headers map[string]string) (map[string]any, error) {
	var reqBody io.Reader
	if body != "" {
		reqBody = strings.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, n.config.Method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, value := range headers {
		req.Header.Set(key, value)
	}

	if body != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	client := &http.Client{
		Timeout: time.Duration(n.config.Timeout * float64(time.Second)),
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	result := map[string]any{
		"status_code": resp.StatusCode,
		"body":        string(respBody),
	}

	var jsonBody any
	if err := json.Unmarshal(respBody, &jsonBody); err == nil {
		result["json"] = jsonBody
	}

	return result, nil
}
