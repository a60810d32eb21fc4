package memory

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/easeaico/chat-characters/internal/types"
	"github.com/easeaico/chat-characters/internal/utils"
)

const memoryContextHeader = "Memory Context:"

// ContextBuilder assembles the message list sent to the completion API.
type ContextBuilder struct {
	cfg Config
}

// NewContextBuilder returns a builder using cfg; invalid fields fall back to defaults.
func NewContextBuilder(cfg Config) *ContextBuilder {
	return &ContextBuilder{cfg: cfg.withDefaults()}
}

// Config returns the effective configuration.
func (b *ContextBuilder) Config() Config {
	return b.cfg
}

// Build returns, in order: the system message (persona prompt plus memory
// context), the recent window expanded into user/assistant pairs in
// chronological order, and the new user message.
func (b *ContextBuilder) Build(systemPrompt string, pool []Scored, userMessage string, now time.Time) []types.Message {
	system := systemPrompt
	if block := b.RenderMemoryContext(pool, now); block != "" {
		if system != "" {
			system += "\n\n"
		}
		system += block
	}

	recent := b.RecentWindow(pool)
	messages := make([]types.Message, 0, 2+2*len(recent))
	messages = append(messages, types.Message{Role: types.RoleSystem, Content: system})
	for _, e := range recent {
		messages = append(messages,
			types.Message{Role: types.RoleUser, Content: e.UserMessage},
			types.Message{Role: types.RoleAssistant, Content: e.AssistantMessage},
		)
	}
	messages = append(messages, types.Message{Role: types.RoleUser, Content: userMessage})
	return messages
}

// Remembered returns the pool members whose score exceeds the inclusion threshold.
func (b *ContextBuilder) Remembered(pool []Scored) []Scored {
	var kept []Scored
	for _, s := range pool {
		if s.Score > b.cfg.InclusionThreshold {
			kept = append(kept, s)
		}
	}
	return kept
}

// RenderMemoryContext renders the above-threshold exchanges, in pool order.
// Both the user text and the reply preview are quoted verbatim, without escaping.
// It returns "" when nothing qualifies.
func (b *ContextBuilder) RenderMemoryContext(pool []Scored, now time.Time) string {
	remembered := b.Remembered(pool)
	if len(remembered) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(memoryContextHeader)
	for _, s := range remembered {
		sb.WriteString("\n- ")
		sb.WriteString(formatMemoryLine(s.Exchange, now))
		if reply := strings.TrimSpace(s.AssistantMessage); reply != "" {
			sb.WriteString("\n  you replied: \"")
			sb.WriteString(utils.Truncate(reply, b.cfg.PreviewChars))
			sb.WriteString("\"")
		}
	}
	return sb.String()
}

// RecentWindow picks the most recent RecentMessages/2 exchanges of the pool,
// regardless of score, ordered oldest first.
func (b *ContextBuilder) RecentWindow(pool []Scored) []types.Exchange {
	n := b.cfg.RecentMessages / 2
	if n <= 0 || len(pool) == 0 {
		return nil
	}
	byTime := make([]types.Exchange, 0, len(pool))
	for _, s := range pool {
		byTime = append(byTime, s.Exchange)
	}
	sort.SliceStable(byTime, func(i, j int) bool {
		if !byTime[i].CreatedAt.Equal(byTime[j].CreatedAt) {
			return byTime[i].CreatedAt.After(byTime[j].CreatedAt)
		}
		return byTime[i].ID > byTime[j].ID
	})
	if len(byTime) > n {
		byTime = byTime[:n]
	}
	for i, j := 0, len(byTime)-1; i < j; i, j = i+1, j-1 {
		byTime[i], byTime[j] = byTime[j], byTime[i]
	}
	return byTime
}

func formatMemoryLine(e types.Exchange, now time.Time) string {
	hours := int(now.Sub(e.CreatedAt).Hours())
	if hours < 0 {
		hours = 0
	}
	return fmt.Sprintf("%dh ago: user said \"%s\" (importance %d/10)", hours, e.UserMessage, e.Importance)
}
