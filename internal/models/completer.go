package models

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go/v3"
	"google.golang.org/adk/model"
	"google.golang.org/genai"

	"github.com/easeaico/chat-characters/internal/chat"
	"github.com/easeaico/chat-characters/internal/types"
	"github.com/easeaico/chat-characters/internal/utils"
)

// LLMCompleter turns a role-tagged message list into one assistant reply.
type LLMCompleter struct {
	llm         model.LLM
	temperature float32
	maxTokens   int32
}

var _ chat.Completer = (*LLMCompleter)(nil)

// NewLLMCompleter returns a completer sampling with the given temperature and token cap.
func NewLLMCompleter(llm model.LLM, temperature float64, maxTokens int) *LLMCompleter {
	return &LLMCompleter{
		llm:         llm,
		temperature: float32(temperature),
		maxTokens:   int32(maxTokens),
	}
}

// Complete sends messages to modelID and returns the reply text. Failures are
// reported as *chat.CompletionError.
func (c *LLMCompleter) Complete(ctx context.Context, modelID string, messages []types.Message) (string, error) {
	if c == nil || c.llm == nil {
		return "", &chat.CompletionError{Reason: "not configured", Err: fmt.Errorf("llm model is required")}
	}

	config := &genai.GenerateContentConfig{}
	if c.temperature > 0 {
		temperature := c.temperature
		config.Temperature = &temperature
	}
	if c.maxTokens > 0 {
		config.MaxOutputTokens = c.maxTokens
	}
	req := &model.LLMRequest{
		Model:    modelID,
		Contents: toContents(messages),
		Config:   config,
	}

	var sb strings.Builder
	for resp, err := range c.llm.GenerateContent(ctx, req, false) {
		if err != nil {
			return "", classifyError(err)
		}
		if resp == nil || resp.Content == nil {
			continue
		}
		sb.WriteString(utils.ExtractContentText(resp.Content))
	}

	reply := strings.TrimSpace(sb.String())
	if reply == "" {
		return "", &chat.CompletionError{Reason: "malformed response", Retryable: true, Err: chat.ErrNoReply}
	}
	return reply, nil
}

func toContents(messages []types.Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		role := genai.Role(m.Role)
		if m.Role == types.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}
	return contents
}

func classifyError(err error) error {
	var completionErr *chat.CompletionError
	if errors.As(err, &completionErr) {
		return completionErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &chat.CompletionError{Reason: "timeout", Retryable: true, Err: err}
	}
	if errors.Is(err, context.Canceled) {
		return &chat.CompletionError{Reason: "canceled", Err: err}
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		retryable := apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= http.StatusInternalServerError
		return &chat.CompletionError{Reason: fmt.Sprintf("status %d", apiErr.StatusCode), Retryable: retryable, Err: err}
	}
	return &chat.CompletionError{Reason: "transport", Retryable: true, Err: err}
}
