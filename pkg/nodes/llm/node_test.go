package llm

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/arcflow/arcflow/pkg/models"
)

func TestLLMNode_Completion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		if !strings.Contains(string(body), "summarize order ord-7") {
			t.Errorf("expected rendered prompt in request, got %s", body)
		}

		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("expected bearer auth, got %q", r.Header.Get("Authorization"))
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"model": "gpt-4o-mini",
			"choices": [{"message": {"role": "assistant", "content": "done"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 2, "total_tokens": 12}
		}`))
	}))
	defer server.Close()

	node, err := NewLLMNode("summarize", map[string]any{
		"endpoint": server.URL,
		"model":    "gpt-4o-mini",
		"prompt":   "summarize order {{.input.order_id}}",
		"api_key":  "sk-test",
	})
	if err != nil {
		t.Fatalf("failed to create node: %v", err)
	}

	ec := models.ExecutionContext{Input: map[string]any{"order_id": "ord-7"}}

	output, err := node.Execute(context.Background(), ec, nil)
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}

	if output["content"] != "done" {
		t.Errorf("expected content 'done', got %v", output["content"])
	}

	usage, ok := output["usage"].(map[string]any)
	if !ok || usage["total_tokens"] != 12 {
		t.Errorf("unexpected usage: %v", output["usage"])
	}
}

func TestLLMNode_EndpointError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"message": "invalid api key"}}`))
	}))
	defer server.Close()

	node, err := NewLLMNode("summarize", map[string]any{
		"endpoint": server.URL,
		"model":    "gpt-4o-mini",
		"prompt":   "hello",
	})
	if err != nil {
		t.Fatalf("failed to create node: %v", err)
	}

	_, err = node.Execute(context.Background(), models.ExecutionContext{}, nil)
	if err == nil || !strings.Contains(err.Error(), "invalid api key") {
		t.Fatalf("expected endpoint error, got %v", err)
	}
}

func TestNewLLMNode_RequiresModelAndPrompt(t *testing.T) {
	if _, err := NewLLMNode("n", map[string]any{"prompt": "hi"}); err == nil {
		t.Fatal("expected an error for missing model")
	}

	if _, err := NewLLMNode("n", map[string]any{"model": "gpt-4o-mini"}); err == nil {
		t.Fatal("expected an error for missing prompt")
	}
}
