// Package chat runs one conversation turn: recall, completion, scoring and persistence.
package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/easeaico/chat-characters/internal/memory"
	"github.com/easeaico/chat-characters/internal/types"
)

const (
	defaultCompletionTimeout = 30 * time.Second
	indexTimeout             = 15 * time.Second
)

// Completer is the completion API: role-tagged messages in, one assistant reply out.
type Completer interface {
	Complete(ctx context.Context, modelID string, messages []types.Message) (string, error)
}

// TurnRequest is one user message addressed to a character.
type TurnRequest struct {
	SessionID    string
	CharacterID  string
	SystemPrompt string
	Message      string
	Model        string
}

// TurnResult is the reply plus memory metadata of a completed turn.
type TurnResult struct {
	Reply       string
	Model       string
	PoolSize    int
	Importance  int
	Weight      float64
	MemorySaved bool
	ExchangeID  int64
	// CompletionTime is how long the completion call took.
	CompletionTime time.Duration
}

// Options configures a Service. Zero values select defaults.
type Options struct {
	Memory            memory.Config
	Importance        memory.ImportanceScorer
	CompletionTimeout time.Duration
	DefaultModel      string
	// Indexer, when set, is called in the background for each saved exchange.
	Indexer Indexer
}

// Service executes turns, at most one at a time per (session, character).
type Service struct {
	store        memory.Store
	completer    Completer
	builder      *memory.ContextBuilder
	importance   memory.ImportanceScorer
	timeout      time.Duration
	defaultModel string
	indexer      Indexer
	locks        *sessionLocks
	background   sync.WaitGroup
	now          func() time.Time
}

// NewService returns a Service.
func NewService(store memory.Store, completer Completer, opts Options) *Service {
	importance := opts.Importance
	if importance == nil {
		importance = memory.NewKeywordImportance()
	}
	timeout := opts.CompletionTimeout
	if timeout <= 0 {
		timeout = defaultCompletionTimeout
	}
	return &Service{
		store:        store,
		completer:    completer,
		builder:      memory.NewContextBuilder(opts.Memory),
		importance:   importance,
		timeout:      timeout,
		defaultModel: opts.DefaultModel,
		indexer:      opts.Indexer,
		locks:        newSessionLocks(),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// MemoryConfig returns the effective memory configuration.
func (s *Service) MemoryConfig() memory.Config {
	return s.builder.Config()
}

// Turn runs the turn protocol. A failed completion returns *CompletionError and
// persists nothing. A failed append still returns the reply with MemorySaved false,
// and the session is decayed either way.
func (s *Service) Turn(ctx context.Context, req TurnRequest) (*TurnResult, error) {
	if err := validateTurn(req); err != nil {
		return nil, err
	}
	modelID := req.Model
	if modelID == "" {
		modelID = s.defaultModel
	}
	logger := slog.With("session_id", req.SessionID, "character_id", req.CharacterID, "model", modelID)

	release, err := s.locks.acquire(ctx, sessionKey(req.SessionID, req.CharacterID))
	if err != nil {
		return nil, &CompletionError{Reason: "canceled", Err: err}
	}
	defer release()

	cfg := s.builder.Config()
	pool, err := s.store.FetchRecent(ctx, req.SessionID, req.CharacterID, cfg.PoolSize)
	if err != nil {
		logger.Warn("memory fetch failed, continuing without memory", "error", err)
		pool = nil
	}

	messages := s.builder.Build(req.SystemPrompt, pool, req.Message, s.now())

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	started := time.Now()
	reply, err := s.completer.Complete(callCtx, modelID, messages)
	elapsed := time.Since(started)
	timedOut := errors.Is(callCtx.Err(), context.DeadlineExceeded)
	cancel()
	if err == nil && strings.TrimSpace(reply) == "" {
		err = &CompletionError{Reason: "malformed response", Retryable: true, Err: ErrNoReply}
	}
	if err != nil {
		completionErr := asCompletionError(err, timedOut)
		logger.Error("completion failed", "reason", completionErr.Reason, "retryable", completionErr.Retryable, "error", err)
		return nil, completionErr
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		logger.Warn("caller went away before the reply was delivered, not persisting")
		return nil, &CompletionError{Reason: "canceled", Err: ctxErr}
	}

	importance := memory.ClampImportance(s.importance.Importance(req.Message, reply))
	result := &TurnResult{
		Reply:          reply,
		Model:          modelID,
		PoolSize:       len(pool),
		Importance:     importance,
		Weight:         1.0,
		CompletionTime: elapsed,
	}

	saved, err := s.store.Append(ctx, req.SessionID, req.CharacterID, req.Message, reply, importance)
	if err != nil {
		logger.Error("failed to save exchange", "error", err)
	} else {
		result.MemorySaved = true
		result.ExchangeID = saved.ID
		result.Weight = saved.Weight
	}

	// Decay runs on every completed turn, saved or not.
	if affected, err := s.store.Decay(ctx, req.SessionID, req.CharacterID, cfg.DecayAge, cfg.DecayFactor); err != nil {
		logger.Warn("memory decay failed", "error", err)
	} else if affected > 0 {
		logger.Debug("memory decayed", "exchanges", affected, "factor", cfg.DecayFactor)
	}

	if result.MemorySaved && s.indexer != nil {
		s.index(ctx, saved)
	}
	return result, nil
}

// Wait blocks until background indexing has finished.
func (s *Service) Wait() {
	s.background.Wait()
}

func (s *Service) index(ctx context.Context, e types.Exchange) {
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		indexCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), indexTimeout)
		defer cancel()
		if err := s.indexer.Index(indexCtx, e); err != nil {
			slog.Warn("failed to index exchange", "exchange_id", e.ID, "error", err)
		}
	}()
}

func validateTurn(req TurnRequest) error {
	if req.SessionID == "" {
		return &memory.ValidationError{Field: "session_id", Reason: "must not be empty"}
	}
	if req.CharacterID == "" {
		return &memory.ValidationError{Field: "character_id", Reason: "must not be empty"}
	}
	if strings.TrimSpace(req.Message) == "" {
		return &memory.ValidationError{Field: "message", Reason: "must not be empty"}
	}
	return nil
}

func asCompletionError(err error, timedOut bool) *CompletionError {
	var completionErr *CompletionError
	if errors.As(err, &completionErr) {
		return completionErr
	}
	if timedOut || errors.Is(err, context.DeadlineExceeded) {
		return &CompletionError{Reason: "timeout", Retryable: true, Err: err}
	}
	if errors.Is(err, context.Canceled) {
		return &CompletionError{Reason: "canceled", Err: err}
	}
	return &CompletionError{Reason: "transport", Retryable: true, Err: err}
}

func sessionKey(sessionID, characterID string) string {
	return sessionID + "\x00" + characterID
}
