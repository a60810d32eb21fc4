package memory

import (
	"context"
	"time"

	"github.com/easeaico/chat-characters/internal/types"
)

// Store persists exchanges per (session, character).
type Store interface {
	// Append inserts an exchange with weight 1.0. Importance outside [1,10]
	// is rejected with a ValidationError; callers clamp first.
	Append(ctx context.Context, sessionID, characterID, userText, assistantText string, importance int) (types.Exchange, error)
	// FetchRecent returns up to limit exchanges ranked by score, highest first.
	FetchRecent(ctx context.Context, sessionID, characterID string, limit int) ([]Scored, error)
	// Decay multiplies the weight of exchanges older than olderThan by factor.
	Decay(ctx context.Context, sessionID, characterID string, olderThan time.Duration, factor float64) (int64, error)
	// Retire deletes exchanges older than maxAgeDays.
	Retire(ctx context.Context, sessionID, characterID string, maxAgeDays int) (int64, error)
}
