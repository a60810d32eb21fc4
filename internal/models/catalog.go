package models

import "github.com/easeaico/chat-characters/internal/types"

// DefaultChatModel is used when a request names no model or an unknown one.
const DefaultChatModel = "meta-llama/llama-3.1-70b-instruct"

var catalog = []types.ModelInfo{
	{ID: "qwen/qwen-2.5-72b-instruct:free", Name: "Qwen 2.5 72B", Cost: "FREE"},
	{ID: "google/gemma-2-9b-it:free", Name: "Gemma 2 9B", Cost: "FREE"},
	{ID: "meta-llama/llama-3.1-70b-instruct", Name: "Llama 3.1 70B", Cost: "$"},
	{ID: "anthropic/claude-3.5-sonnet", Name: "Claude 3.5 Sonnet", Cost: "$$"},
	{ID: "anthropic/claude-3-haiku", Name: "Claude 3 Haiku", Cost: "$"},
}

// Catalog returns the models offered to users.
func Catalog() []types.ModelInfo {
	return append([]types.ModelInfo(nil), catalog...)
}

// Resolve returns id when it is in the catalog and fallback otherwise.
func Resolve(id, fallback string) string {
	for _, m := range catalog {
		if m.ID == id {
			return id
		}
	}
	if fallback == "" {
		return DefaultChatModel
	}
	return fallback
}
