package httprequest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/arcflow/arcflow/pkg/models"
)

func TestHTTPRequestNode_Execute_JSONResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/orders/ord-1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"amount": 42}`))
	}))
	defer server.Close()

	node, err := NewHTTPRequestNode("fetch", map[string]any{
		"url": server.URL + "/orders/{{ .input.order_id }}",
	})
	if err != nil {
		t.Fatalf("failed to create node: %v", err)
	}

	executionCtx := models.ExecutionContext{
		Input: map[string]any{"order_id": "ord-1"},
	}

	output, err := node.Execute(context.Background(), executionCtx, nil)
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}

	if output["status_code"] != http.StatusOK {
		t.Errorf("expected 200, got %v", output["status_code"])
	}

	jsonBody, ok := output["json"].(map[string]any)
	if !ok {
		t.Fatal("expected parsed json body")
	}

	if jsonBody["amount"] != 42.0 {
		t.Errorf("expected amount 42, got %v", jsonBody["amount"])
	}
}

func TestHTTPRequestNode_Execute_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)

			return
		}

		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	node, err := NewHTTPRequestNode("fetch", map[string]any{
		"url":     server.URL,
		"retries": map[string]any{"attempts": 3.0},
	})
	if err != nil {
		t.Fatalf("failed to create node: %v", err)
	}

	output, err := node.Execute(context.Background(), models.ExecutionContext{}, nil)
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}

	if calls.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", calls.Load())
	}

	if output["body"] != "ok" {
		t.Errorf("unexpected body %v", output["body"])
	}
}

func TestHTTPRequestNode_Execute_ClientErrorDoesNotRetry(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	node, err := NewHTTPRequestNode("fetch", map[string]any{
		"url":     server.URL,
		"retries": map[string]any{"attempts": 3.0},
	})
	if err != nil {
		t.Fatalf("failed to create node: %v", err)
	}

	_, err = node.Execute(context.Background(), models.ExecutionContext{}, nil)
	if err == nil {
		t.Fatal("expected an error")
	}

	if calls.Load() != 1 {
		t.Errorf("expected 1 attempt, got %d", calls.Load())
	}
}

func TestNewHTTPRequestNode_RequiresURL(t *testing.T) {
	if _, err := NewHTTPRequestNode("fetch", map[string]any{}); err == nil {
		t.Fatal("expected an error for missing url")
	}
}
