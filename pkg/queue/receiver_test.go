package queue

import (
	"io"
	"log/slog"
	"testing"
)

func TestNewReceiver_RejectsInvalidURL(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, err := NewReceiver(t.Context(), logger, "not-a-url", "", nil)
	if err == nil {
		t.Fatal("expected an error for invalid redis url")
	}
}
