// Package types holds the domain records shared across packages.
package types

import (
	"fmt"
	"time"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one role-tagged entry of a completion request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Exchange is one user message paired with the assistant reply.
type Exchange struct {
	ID               int64     `json:"id"`
	SessionID        string    `json:"session_id"`
	CharacterID      string    `json:"character_id"`
	UserMessage      string    `json:"user_message"`
	AssistantMessage string    `json:"assistant_message"`
	CreatedAt        time.Time `json:"timestamp"`
	// Importance is fixed at creation, in [1,10].
	Importance int `json:"importance_score"`
	// Weight starts at 1.0 and only shrinks through decay.
	Weight    float64   `json:"memory_weight"`
	Embedding []float32 `json:"-"`
}

// SessionKey returns the memory session identifier for a user. With bucketByDay
// the key is scoped to the UTC calendar day of now.
func SessionKey(userID string, bucketByDay bool, now time.Time) string {
	if !bucketByDay || userID == "" {
		return userID
	}
	return fmt.Sprintf("%s@%s", userID, now.UTC().Format("2006-01-02"))
}
