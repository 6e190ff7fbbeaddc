// Package llm provides the chat completion node.
package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/arcflow/arcflow/pkg/models"
	"github.com/arcflow/arcflow/pkg/template"
)

const defaultEndpoint = "https://api.openai.com/v1/chat/completions"

// LLMNode calls an OpenAI-compatible chat completions endpoint. It is a pure
// read of the model (no confirmation gate); use a notify or tool node when
// the completion should drive an external effect.
type LLMNode struct {
	id          string
	endpoint    string
	model       string
	prompt      string
	system      string
	apiKey      string
	temperature *float64
	maxTokens   int
	client      *http.Client
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func NewLLMNode(id string, config map[string]any) (*LLMNode, error) {
	model, ok := config["model"].(string)
	if !ok || model == "" {
		return nil, errors.New("missing required field 'model'")
	}

	prompt, ok := config["prompt"].(string)
	if !ok || prompt == "" {
		return nil, errors.New("missing required field 'prompt'")
	}

	endpoint := defaultEndpoint
	if configured, ok := config["endpoint"].(string); ok && configured != "" {
		endpoint = configured
	}

	system, _ := config["system"].(string)
	apiKey, _ := config["api_key"].(string)

	var temperature *float64
	if raw, ok := config["temperature"].(float64); ok {
		temperature = &raw
	}

	maxTokens := 0
	if raw, ok := config["max_tokens"].(float64); ok {
		maxTokens = int(raw)
	}

	return &LLMNode{
		id:          id,
		endpoint:    endpoint,
		model:       model,
		prompt:      prompt,
		system:      system,
		apiKey:      apiKey,
		temperature: temperature,
		maxTokens:   maxTokens,
		client:      &http.Client{Timeout: 120 * time.Second},
	}, nil
}

func (n *LLMNode) ID() string {
	return n.id
}

func (n *LLMNode) Type() string {
	return "llm"
}

func (n *LLMNode) Execute(ctx context.Context, ec models.ExecutionContext, _ map[string]any) (map[string]any, error) {
	prompt, err := template.RenderWithContext(n.prompt, &ec)
	if err != nil {
		return nil, fmt.Errorf("failed to render prompt: %w", err)
	}

	messages := make([]chatMessage, 0, 2)
	if n.system != "" {
		messages = append(messages, chatMessage{Role: "system", Content: n.system})
	}

	messages = append(messages, chatMessage{Role: "user", Content: fmt.Sprintf("%v", prompt)})

	payload, err := json.Marshal(chatRequest{
		Model:       n.model,
		Messages:    messages,
		Temperature: n.temperature,
		MaxTokens:   n.maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	if n.apiKey != "" {
		key, err := template.RenderWithContext(n.apiKey, &ec)
		if err != nil {
			return nil, fmt.Errorf("failed to render api_key: %w", err)
		}

		req.Header.Set("Authorization", "Bearer "+fmt.Sprintf("%v", key))
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var completion chatResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if completion.Error != nil {
		return nil, fmt.Errorf("completion endpoint returned an error: %s", completion.Error.Message)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("completion endpoint returned status %d", resp.StatusCode)
	}

	if len(completion.Choices) == 0 {
		return nil, errors.New("completion returned no choices")
	}

	return map[string]any{
		"content":       completion.Choices[0].Message.Content,
		"finish_reason": completion.Choices[0].FinishReason,
		"model":         completion.Model,
		"usage": map[string]any{
			"prompt_tokens":     completion.Usage.PromptTokens,
			"completion_tokens": completion.Usage.CompletionTokens,
			"total_tokens":      completion.Usage.TotalTokens,
		},
	}, nil
}
