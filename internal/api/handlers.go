package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/easeaico/chat-characters/internal/chat"
	"github.com/easeaico/chat-characters/internal/memory"
	"github.com/easeaico/chat-characters/internal/models"
	"github.com/easeaico/chat-characters/internal/prompt"
	"github.com/easeaico/chat-characters/internal/storage"
	"github.com/easeaico/chat-characters/internal/types"
)

const couldNotRespond = "the assistant could not respond"

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	UserID      string `json:"user_id,omitempty"`
	CharacterID string `json:"character_id"`
	Message     string `json:"message"`
	Model       string `json:"model,omitempty"`
}

// ChatResponse is the reply of a successful turn.
type ChatResponse struct {
	Reply  string     `json:"reply"`
	UserID string     `json:"user_id"`
	Model  string     `json:"model"`
	Memory MemoryInfo `json:"memory"`
}

// MemoryInfo describes what the turn did to memory.
type MemoryInfo struct {
	PoolSize   int     `json:"pool_size"`
	Importance int     `json:"importance"`
	Weight     float64 `json:"weight"`
	Saved      bool    `json:"saved"`
}

type completionFailure struct {
	Error     string `json:"error"`
	Retryable bool   `json:"retryable"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.deps.Metrics.Turns.WithLabelValues(outcomeInvalid).Inc()
		errorResponse(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Message) == "" || req.CharacterID == "" {
		s.deps.Metrics.Turns.WithLabelValues(outcomeInvalid).Inc()
		errorResponse(w, http.StatusBadRequest, "character_id and message are required")
		return
	}
	if req.UserID == "" {
		req.UserID = uuid.NewString()
	}

	character, err := s.deps.Characters.Get(r.Context(), req.CharacterID)
	if err != nil {
		if errors.Is(err, storage.ErrCharacterNotFound) {
			s.deps.Metrics.Turns.WithLabelValues(outcomeInvalid).Inc()
			errorResponse(w, http.StatusNotFound, "character not found")
			return
		}
		slog.Error("failed to load character", "character_id", req.CharacterID, "error", err)
		errorResponse(w, http.StatusInternalServerError, "failed to load character")
		return
	}
	systemPrompt, err := prompt.SystemPrompt(character)
	if err != nil {
		slog.Error("failed to build system prompt", "character_id", req.CharacterID, "error", err)
		errorResponse(w, http.StatusInternalServerError, "failed to load character")
		return
	}

	result, err := s.deps.Chat.Turn(r.Context(), chat.TurnRequest{
		SessionID:    types.SessionKey(req.UserID, s.opts.DayBuckets, s.now()),
		CharacterID:  character.ID,
		SystemPrompt: systemPrompt,
		Message:      req.Message,
		Model:        models.Resolve(req.Model, s.opts.DefaultModel),
	})
	if err != nil {
		s.writeTurnError(w, err)
		return
	}

	s.deps.Metrics.CompletionDuration.Observe(result.CompletionTime.Seconds())
	s.deps.Metrics.PoolSize.Observe(float64(result.PoolSize))
	outcome := outcomeOK
	if !result.MemorySaved {
		outcome = outcomeMemoryNotSaved
	}
	s.deps.Metrics.Turns.WithLabelValues(outcome).Inc()

	successResponse(w, ChatResponse{
		Reply:  result.Reply,
		UserID: req.UserID,
		Model:  result.Model,
		Memory: MemoryInfo{
			PoolSize:   result.PoolSize,
			Importance: result.Importance,
			Weight:     result.Weight,
			Saved:      result.MemorySaved,
		},
	})
}

func (s *Server) writeTurnError(w http.ResponseWriter, err error) {
	var validationErr *memory.ValidationError
	if errors.As(err, &validationErr) {
		s.deps.Metrics.Turns.WithLabelValues(outcomeInvalid).Inc()
		errorResponse(w, http.StatusBadRequest, validationErr.Error())
		return
	}

	s.deps.Metrics.Turns.WithLabelValues(outcomeCompletionError).Inc()
	status := http.StatusBadGateway
	retryable := false
	var completionErr *chat.CompletionError
	if errors.As(err, &completionErr) {
		retryable = completionErr.Retryable
		if completionErr.Timeout() {
			status = http.StatusGatewayTimeout
		}
	}
	writeJSON(w, status, completionFailure{Error: couldNotRespond, Retryable: retryable})
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	successResponse(w, map[string]any{
		"models":  models.Catalog(),
		"default": models.Resolve("", s.opts.DefaultModel),
	})
}

func (s *Server) handleListCharacters(w http.ResponseWriter, r *http.Request) {
	characters, err := s.deps.Characters.List(r.Context())
	if err != nil {
		slog.Error("failed to list characters", "error", err)
		errorResponse(w, http.StatusInternalServerError, "failed to list characters")
		return
	}
	successResponse(w, map[string]any{"characters": characters})
}

func (s *Server) handleGetCharacter(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	character, err := s.deps.Characters.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrCharacterNotFound) {
			errorResponse(w, http.StatusNotFound, "character not found")
			return
		}
		slog.Error("failed to get character", "character_id", id, "error", err)
		errorResponse(w, http.StatusInternalServerError, "failed to get character")
		return
	}
	successResponse(w, character)
}

func (s *Server) handleGetMemory(w http.ResponseWriter, r *http.Request) {
	sessionID, characterID, ok := s.sessionParams(w, r)
	if !ok {
		return
	}
	limit, err := positiveIntParam(r, "limit", s.opts.PoolSize)
	if err != nil {
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	pool, err := s.deps.Memory.FetchRecent(r.Context(), sessionID, characterID, limit)
	if err != nil {
		slog.Error("failed to fetch memory", "session_id", sessionID, "character_id", characterID, "error", err)
		errorResponse(w, http.StatusInternalServerError, "failed to fetch memory")
		return
	}
	successResponse(w, map[string]any{"session_id": sessionID, "exchanges": pool})
}

func (s *Server) handleRetireMemory(w http.ResponseWriter, r *http.Request) {
	sessionID, characterID, ok := s.sessionParams(w, r)
	if !ok {
		return
	}
	days, err := intParam(r, "max_age_days", 0)
	if err != nil {
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	removed, err := s.deps.Memory.Retire(r.Context(), sessionID, characterID, days)
	if err != nil {
		var validationErr *memory.ValidationError
		if errors.As(err, &validationErr) {
			errorResponse(w, http.StatusBadRequest, validationErr.Error())
			return
		}
		slog.Error("failed to retire memory", "session_id", sessionID, "character_id", characterID, "error", err)
		errorResponse(w, http.StatusInternalServerError, "failed to retire memory")
		return
	}
	successResponse(w, map[string]any{"removed": removed})
}

func (s *Server) handleSearchMemory(w http.ResponseWriter, r *http.Request) {
	if s.deps.Searcher == nil || s.deps.Embedder == nil {
		errorResponse(w, http.StatusNotImplemented, "semantic search is not configured")
		return
	}
	sessionID, characterID, ok := s.sessionParams(w, r)
	if !ok {
		return
	}
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		errorResponse(w, http.StatusBadRequest, "q is required")
		return
	}
	limit, err := positiveIntParam(r, "limit", 5)
	if err != nil {
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	embedding, err := s.deps.Embedder.EmbedQuery(r.Context(), query)
	if err != nil {
		slog.Error("failed to embed search query", "error", err)
		errorResponse(w, http.StatusBadGateway, "failed to embed query")
		return
	}
	results, err := s.deps.Searcher.SearchSimilar(r.Context(), sessionID, characterID, embedding, limit)
	if err != nil {
		slog.Error("memory search failed", "session_id", sessionID, "error", err)
		errorResponse(w, http.StatusInternalServerError, "memory search failed")
		return
	}
	if results == nil {
		results = []storage.Recalled{}
	}
	successResponse(w, map[string]any{"results": results})
}

// sessionParams reads user_id and character_id and derives the session key.
func (s *Server) sessionParams(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	userID := r.URL.Query().Get("user_id")
	characterID := r.URL.Query().Get("character_id")
	if userID == "" || characterID == "" {
		errorResponse(w, http.StatusBadRequest, "user_id and character_id are required")
		return "", "", false
	}
	return types.SessionKey(userID, s.opts.DayBuckets, s.now()), characterID, true
}

func intParam(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New(name + " must be an integer")
	}
	return value, nil
}

func positiveIntParam(r *http.Request, name string, fallback int) (int, error) {
	value, err := intParam(r, name, fallback)
	if err != nil {
		return 0, err
	}
	if value <= 0 {
		return 0, errors.New(name + " must be positive")
	}
	return value, nil
}
