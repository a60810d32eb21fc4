package models

import (
	"context"
	"fmt"

	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

const (
	// DefaultOpenRouterBaseURL is the OpenAI compatible OpenRouter endpoint.
	DefaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"
	appTitle                 = "ChatCharacters"
)

// NewOpenRouterModel creates a model routed through OpenRouter. The request
// model field selects the upstream model, so one instance serves the whole catalog.
func NewOpenRouterModel(ctx context.Context, modelName, referer string, cfg *genai.ClientConfig) (model.LLM, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if modelName == "" {
		return nil, fmt.Errorf("model name cannot be empty")
	}

	routed := *cfg
	if routed.HTTPOptions.BaseURL == "" {
		routed.HTTPOptions.BaseURL = DefaultOpenRouterBaseURL
	}
	headers := attributionHeaders(referer, appTitle)
	for key, values := range cfg.HTTPOptions.Headers {
		headers[key] = values
	}
	routed.HTTPOptions.Headers = headers

	return newOpenAIModel(modelName, clientOptions(&routed)...), nil
}
