// Package models adapts OpenAI-compatible chat completion APIs to the adk model interface.
package models

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"net/http"
	"runtime"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

// openaiModel wraps an OpenAI compatible chat client.
type openaiModel struct {
	client *openai.Client
	name   string
}

func newOpenAIModel(modelName string, opts ...option.RequestOption) *openaiModel {
	// The UA header is built once per model.
	headerValue := fmt.Sprintf("chat-characters/%s go/%s",
		"1.0.0", strings.TrimPrefix(runtime.Version(), "go"))
	opts = append(opts, option.WithHeader("User-Agent", headerValue))

	client := openai.NewClient(opts...)
	return &openaiModel{
		name:   modelName,
		client: &client,
	}
}

func (m *openaiModel) Name() string {
	return m.name
}

func (m *openaiModel) GenerateContent(ctx context.Context, req *model.LLMRequest, stream bool) iter.Seq2[*model.LLMResponse, error] {
	m.maybeAppendUserContent(req)

	return func(yield func(*model.LLMResponse, error) bool) {
		resp, err := m.generate(ctx, req)
		yield(resp, err)
	}
}

func (m *openaiModel) generate(ctx context.Context, req *model.LLMRequest) (*model.LLMResponse, error) {
	params := buildOpenAIParams(req, m.name)

	resp, err := m.client.Chat.Completions.New(ctx, *params)
	if err != nil {
		slog.Error("failed to call llm API", "model", params.Model, "error", err.Error())
		return nil, fmt.Errorf("failed to call completion API: %w", err)
	}

	if resp == nil || len(resp.Choices) == 0 {
		return &model.LLMResponse{}, nil
	}

	message := resp.Choices[0].Message
	content := &genai.Content{
		Role:  string(genai.RoleModel),
		Parts: []*genai.Part{},
	}
	if message.Content != "" {
		content.Parts = append(content.Parts, &genai.Part{
			Text: message.Content,
		})
	}

	return &model.LLMResponse{
		Content:      content,
		TurnComplete: true,
	}, nil
}

func (m *openaiModel) maybeAppendUserContent(req *model.LLMRequest) {
	if len(req.Contents) == 0 {
		req.Contents = append(req.Contents, genai.NewContentFromText("Handle the requests as specified in the System Instruction.", genai.RoleUser))
	}

	if last := req.Contents[len(req.Contents)-1]; last != nil && last.Role != string(genai.RoleUser) {
		req.Contents = append(req.Contents, genai.NewContentFromText("Continue processing previous requests as instructed.", genai.RoleUser))
	}
}

func clientOptions(cfg *genai.ClientConfig) []option.RequestOption {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.HTTPOptions.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.HTTPOptions.BaseURL))
	}
	for key, values := range cfg.HTTPOptions.Headers {
		for _, value := range values {
			opts = append(opts, option.WithHeaderAdd(key, value))
		}
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	return opts
}

// attributionHeaders returns the app attribution headers OpenRouter reads.
func attributionHeaders(referer, title string) http.Header {
	headers := make(http.Header)
	if referer != "" {
		headers.Set("HTTP-Referer", referer)
	}
	if title != "" {
		headers.Set("X-Title", title)
	}
	return headers
}
