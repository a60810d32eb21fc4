package models

import (
	"context"
	"errors"
	"iter"
	"testing"

	"google.golang.org/adk/model"
	"google.golang.org/genai"

	"github.com/easeaico/chat-characters/internal/chat"
	"github.com/easeaico/chat-characters/internal/types"
)

type fakeLLM struct {
	responses []*model.LLMResponse
	err       error
	last      *model.LLMRequest
}

func (f *fakeLLM) Name() string { return "fake" }

func (f *fakeLLM) GenerateContent(ctx context.Context, req *model.LLMRequest, stream bool) iter.Seq2[*model.LLMResponse, error] {
	f.last = req
	return func(yield func(*model.LLMResponse, error) bool) {
		if f.err != nil {
			yield(nil, f.err)
			return
		}
		for _, r := range f.responses {
			if !yield(r, nil) {
				return
			}
		}
	}
}

func textResponse(text string) *model.LLMResponse {
	return &model.LLMResponse{Content: genai.NewContentFromText(text, genai.RoleModel)}
}

func TestCompleteReturnsReplyAndMapsRoles(t *testing.T) {
	llm := &fakeLLM{responses: []*model.LLMResponse{textResponse("  hello there ")}}
	completer := NewLLMCompleter(llm, 0.9, 200)

	reply, err := completer.Complete(context.Background(), "anthropic/claude-3-haiku", []types.Message{
		{Role: types.RoleSystem, Content: "persona"},
		{Role: types.RoleUser, Content: "earlier"},
		{Role: types.RoleAssistant, Content: "answer"},
		{Role: types.RoleUser, Content: "now"},
	})
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if reply != "hello there" {
		t.Fatalf("expected trimmed reply, got %q", reply)
	}
	if llm.last == nil || llm.last.Model != "anthropic/claude-3-haiku" {
		t.Fatalf("expected model to be forwarded, got %+v", llm.last)
	}
	roles := []string{}
	for _, c := range llm.last.Contents {
		roles = append(roles, c.Role)
	}
	want := []string{"system", "user", "model", "user"}
	for i := range want {
		if roles[i] != want[i] {
			t.Fatalf("expected roles %v, got %v", want, roles)
		}
	}
	if llm.last.Config == nil || llm.last.Config.MaxOutputTokens != 200 || llm.last.Config.Temperature == nil {
		t.Fatalf("expected sampling config, got %+v", llm.last.Config)
	}
}

func TestCompleteEmptyReplyIsMalformed(t *testing.T) {
	completer := NewLLMCompleter(&fakeLLM{responses: []*model.LLMResponse{{}}}, 0.9, 200)

	_, err := completer.Complete(context.Background(), "m", []types.Message{{Role: types.RoleUser, Content: "hi"}})
	var completionErr *chat.CompletionError
	if !errors.As(err, &completionErr) {
		t.Fatalf("expected CompletionError, got %v", err)
	}
	if completionErr.Reason != "malformed response" || !errors.Is(err, chat.ErrNoReply) {
		t.Fatalf("unexpected completion error: %v", completionErr)
	}
}

func TestCompleteTimeoutIsRetryable(t *testing.T) {
	completer := NewLLMCompleter(&fakeLLM{err: context.DeadlineExceeded}, 0.9, 200)

	_, err := completer.Complete(context.Background(), "m", []types.Message{{Role: types.RoleUser, Content: "hi"}})
	var completionErr *chat.CompletionError
	if !errors.As(err, &completionErr) {
		t.Fatalf("expected CompletionError, got %v", err)
	}
	if completionErr.Reason != "timeout" || !completionErr.Retryable {
		t.Fatalf("expected retryable timeout, got %+v", completionErr)
	}
}

func TestResolveFallsBackForUnknownModels(t *testing.T) {
	if got := Resolve("anthropic/claude-3-haiku", DefaultChatModel); got != "anthropic/claude-3-haiku" {
		t.Fatalf("expected catalog model to be kept, got %q", got)
	}
	if got := Resolve("made/up", "google/gemma-2-9b-it:free"); got != "google/gemma-2-9b-it:free" {
		t.Fatalf("expected fallback, got %q", got)
	}
	if got := Resolve("", ""); got != DefaultChatModel {
		t.Fatalf("expected default model, got %q", got)
	}
	if len(Catalog()) != 5 {
		t.Fatalf("expected 5 catalog entries, got %d", len(Catalog()))
	}
}
