package models

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"google.golang.org/genai"

	"github.com/easeaico/chat-characters/internal/chat"
	"github.com/easeaico/chat-characters/internal/types"
)

type capturedRequest struct {
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func newCompletionServer(t *testing.T, status int, captured *capturedRequest, headers *http.Header) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		if headers != nil {
			*headers = r.Header.Clone()
		}
		if captured != nil {
			if err := json.NewDecoder(r.Body).Decode(captured); err != nil {
				t.Errorf("failed to decode request: %v", err)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"bad request","type":"invalid_request_error"}}`))
			return
		}
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "meta-llama/llama-3.1-70b-instruct",
			"choices": [{
				"index": 0,
				"finish_reason": "stop",
				"message": {"role": "assistant", "content": "Hey! Nice to meet you."}
			}]
		}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenRouterModelRoundTrip(t *testing.T) {
	var captured capturedRequest
	var headers http.Header
	srv := newCompletionServer(t, http.StatusOK, &captured, &headers)

	llm, err := NewOpenRouterModel(context.Background(), DefaultChatModel, "https://chat.example.com", &genai.ClientConfig{
		APIKey:      "test-key",
		HTTPOptions: genai.HTTPOptions{BaseURL: srv.URL},
	})
	if err != nil {
		t.Fatalf("NewOpenRouterModel returned error: %v", err)
	}

	reply, err := NewLLMCompleter(llm, 0.9, 200).Complete(context.Background(), "anthropic/claude-3-haiku", []types.Message{
		{Role: types.RoleSystem, Content: "persona"},
		{Role: types.RoleUser, Content: "before"},
		{Role: types.RoleAssistant, Content: "reply"},
		{Role: types.RoleUser, Content: "hello"},
	})
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if reply != "Hey! Nice to meet you." {
		t.Fatalf("unexpected reply: %q", reply)
	}

	if captured.Model != "anthropic/claude-3-haiku" {
		t.Fatalf("expected requested model, got %q", captured.Model)
	}
	if captured.MaxTokens != 200 || math.Abs(captured.Temperature-0.9) > 1e-6 {
		t.Fatalf("unexpected sampling params: %+v", captured)
	}
	wantRoles := []string{"system", "user", "assistant", "user"}
	if len(captured.Messages) != len(wantRoles) {
		t.Fatalf("expected %d messages, got %+v", len(wantRoles), captured.Messages)
	}
	for i, role := range wantRoles {
		if captured.Messages[i].Role != role {
			t.Fatalf("message %d: expected role %q, got %q", i, role, captured.Messages[i].Role)
		}
	}
	if headers.Get("X-Title") != "ChatCharacters" || headers.Get("HTTP-Referer") != "https://chat.example.com" {
		t.Fatalf("expected attribution headers, got %v", headers)
	}
	if headers.Get("Authorization") != "Bearer test-key" {
		t.Fatalf("expected bearer auth, got %q", headers.Get("Authorization"))
	}
}

func TestOpenRouterModelClientErrorIsNotRetryable(t *testing.T) {
	srv := newCompletionServer(t, http.StatusBadRequest, nil, nil)

	llm, err := NewOpenRouterModel(context.Background(), DefaultChatModel, "", &genai.ClientConfig{
		APIKey:      "test-key",
		HTTPOptions: genai.HTTPOptions{BaseURL: srv.URL},
	})
	if err != nil {
		t.Fatalf("NewOpenRouterModel returned error: %v", err)
	}

	_, err = NewLLMCompleter(llm, 0.9, 200).Complete(context.Background(), DefaultChatModel, []types.Message{{Role: types.RoleUser, Content: "hi"}})
	var completionErr *chat.CompletionError
	if !errors.As(err, &completionErr) {
		t.Fatalf("expected CompletionError, got %v", err)
	}
	if completionErr.Reason != "status 400" || completionErr.Retryable {
		t.Fatalf("unexpected completion error: %+v", completionErr)
	}
}

func TestNewOpenRouterModelValidatesConfig(t *testing.T) {
	if _, err := NewOpenRouterModel(context.Background(), DefaultChatModel, "", nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
	if _, err := NewOpenRouterModel(context.Background(), DefaultChatModel, "", &genai.ClientConfig{}); err == nil {
		t.Fatalf("expected error for missing API key")
	}
	if _, err := NewOpenRouterModel(context.Background(), "", "", &genai.ClientConfig{APIKey: "k"}); err == nil {
		t.Fatalf("expected error for missing model name")
	}
}
