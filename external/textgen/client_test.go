package textgen

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pola-png/prediction-engine/internal/platform/logging"
)

func newCompletionServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestComplete_ReturnsMessageContent(t *testing.T) {
	t.Parallel()

	srv := newCompletionServer(t, http.StatusOK, `{
		"id": "chatcmpl-1",
		"object": "chat.completion",
		"model": "gpt-4o-mini",
		"choices": [
			{"index": 0, "message": {"role": "assistant", "content": "{\"home\": 0.5}"}, "finish_reason": "stop"}
		]
	}`)

	client := NewClient(ClientConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Timeout: 5 * time.Second,
		Logger:  logging.NewNop(),
	})

	got, err := client.Complete(context.Background(), "analyze the fixture")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if got != `{"home": 0.5}` {
		t.Fatalf("unexpected content: %q", got)
	}
}

func TestComplete_NoChoices(t *testing.T) {
	t.Parallel()

	srv := newCompletionServer(t, http.StatusOK, `{
		"id": "chatcmpl-2",
		"object": "chat.completion",
		"model": "gpt-4o-mini",
		"choices": []
	}`)

	client := NewClient(ClientConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Timeout: 5 * time.Second,
		Logger:  logging.NewNop(),
	})

	if _, err := client.Complete(context.Background(), "analyze the fixture"); err == nil {
		t.Fatalf("expected error when no choices returned")
	}
}

func TestComplete_UpstreamError(t *testing.T) {
	t.Parallel()

	srv := newCompletionServer(t, http.StatusTooManyRequests, `{
		"error": {"message": "rate limit exceeded", "type": "requests"}
	}`)

	client := NewClient(ClientConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Timeout: 5 * time.Second,
		Logger:  logging.NewNop(),
	})

	if _, err := client.Complete(context.Background(), "analyze the fixture"); err == nil {
		t.Fatalf("expected error on upstream failure")
	}
}
