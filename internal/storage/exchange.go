package storage

import (
	"context"
	"time"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"github.com/easeaico/chat-characters/internal/memory"
	"github.com/easeaico/chat-characters/internal/types"
)

// defaultScanLimit bounds how many of a session's newest exchanges are ranked per fetch.
const defaultScanLimit = 500

// exchangeModel maps to the exchanges table.
type exchangeModel struct {
	ID               int64   `gorm:"primaryKey"`
	SessionID        string  `gorm:"not null;index:idx_exchanges_session_character,priority:1"`
	CharacterID      string  `gorm:"not null;index:idx_exchanges_session_character,priority:2"`
	UserMessage      string  `gorm:"type:text"`
	AssistantMessage string  `gorm:"type:text"`
	ImportanceScore  int     `gorm:"not null"`
	MemoryWeight     float64 `gorm:"not null"`
	// Embedding of the user message, only set when an embedder is configured.
	Embedding *pgvector.Vector `gorm:"type:vector(768)"`
	CreatedAt time.Time        `gorm:"not null;index"`
}

func (exchangeModel) TableName() string {
	return "exchanges"
}

// ExchangeRepo is the gorm-backed memory store.
type ExchangeRepo struct {
	db        *gorm.DB
	scorer    memory.Scorer
	scanLimit int
	now       func() time.Time
}

var _ memory.Store = (*ExchangeRepo)(nil)

// NewExchangeRepo returns an ExchangeRepo ranking with scorer.
func NewExchangeRepo(db *gorm.DB, scorer memory.Scorer) *ExchangeRepo {
	if scorer == nil {
		scorer = memory.RecencyScorer{}
	}
	return &ExchangeRepo{
		db:        db,
		scorer:    scorer,
		scanLimit: defaultScanLimit,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (r *ExchangeRepo) Append(ctx context.Context, sessionID, characterID, userText, assistantText string, importance int) (types.Exchange, error) {
	if err := memory.ValidateAppend(sessionID, characterID, importance); err != nil {
		return types.Exchange{}, err
	}
	record := exchangeModel{
		SessionID:        sessionID,
		CharacterID:      characterID,
		UserMessage:      userText,
		AssistantMessage: assistantText,
		ImportanceScore:  importance,
		MemoryWeight:     1.0,
		CreatedAt:        r.now(),
	}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return types.Exchange{}, &memory.StorageError{Op: "append", Err: err}
	}
	return exchangeFromModel(record), nil
}

func (r *ExchangeRepo) FetchRecent(ctx context.Context, sessionID, characterID string, limit int) ([]memory.Scored, error) {
	query := r.db.WithContext(ctx).
		Omit("embedding").
		Where("session_id = ? AND character_id = ?", sessionID, characterID).
		Order("created_at DESC").
		Order("id DESC")
	if r.scanLimit > 0 {
		query = query.Limit(r.scanLimit)
	}

	var records []exchangeModel
	if err := query.Find(&records).Error; err != nil {
		return nil, &memory.StorageError{Op: "fetch_recent", Err: err}
	}
	if len(records) == 0 {
		return []memory.Scored{}, nil
	}

	exchanges := make([]types.Exchange, 0, len(records))
	for _, record := range records {
		exchanges = append(exchanges, exchangeFromModel(record))
	}
	return memory.Rank(exchanges, r.scorer, r.now(), limit), nil
}

func (r *ExchangeRepo) Decay(ctx context.Context, sessionID, characterID string, olderThan time.Duration, factor float64) (int64, error) {
	if err := memory.ValidateDecay(sessionID, characterID, factor); err != nil {
		return 0, err
	}
	if olderThan < 0 {
		return 0, &memory.ValidationError{Field: "older_than", Reason: "must not be negative"}
	}

	cutoff := r.now().Add(-olderThan)
	result := r.db.WithContext(ctx).
		Model(&exchangeModel{}).
		Where("session_id = ? AND character_id = ? AND created_at < ?", sessionID, characterID, cutoff).
		Update("memory_weight", gorm.Expr("memory_weight * ?", factor))
	if result.Error != nil {
		return 0, &memory.StorageError{Op: "decay", Err: result.Error}
	}
	return result.RowsAffected, nil
}

func (r *ExchangeRepo) Retire(ctx context.Context, sessionID, characterID string, maxAgeDays int) (int64, error) {
	if sessionID == "" {
		return 0, &memory.ValidationError{Field: "session_id", Reason: "must not be empty"}
	}
	if characterID == "" {
		return 0, &memory.ValidationError{Field: "character_id", Reason: "must not be empty"}
	}
	if maxAgeDays <= 0 {
		return 0, &memory.ValidationError{Field: "max_age_days", Reason: "must be positive"}
	}

	cutoff := r.now().Add(-time.Duration(maxAgeDays) * 24 * time.Hour)
	result := r.db.WithContext(ctx).
		Where("session_id = ? AND character_id = ? AND created_at < ?", sessionID, characterID, cutoff).
		Delete(&exchangeModel{})
	if result.Error != nil {
		return 0, &memory.StorageError{Op: "retire", Err: result.Error}
	}
	return result.RowsAffected, nil
}

// RetireAll deletes exchanges older than maxAgeDays across every session.
func (r *ExchangeRepo) RetireAll(ctx context.Context, maxAgeDays int) (int64, error) {
	if maxAgeDays <= 0 {
		return 0, &memory.ValidationError{Field: "max_age_days", Reason: "must be positive"}
	}
	cutoff := r.now().Add(-time.Duration(maxAgeDays) * 24 * time.Hour)
	result := r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&exchangeModel{})
	if result.Error != nil {
		return 0, &memory.StorageError{Op: "retire_all", Err: result.Error}
	}
	return result.RowsAffected, nil
}

// SetEmbedding stores the vector of an existing exchange.
func (r *ExchangeRepo) SetEmbedding(ctx context.Context, id int64, embedding []float32) error {
	if len(embedding) == 0 {
		return nil
	}
	vector := pgvector.NewVector(embedding)
	if err := r.db.WithContext(ctx).
		Model(&exchangeModel{}).
		Where("id = ?", id).
		Update("embedding", &vector).Error; err != nil {
		return &memory.StorageError{Op: "set_embedding", Err: err}
	}
	return nil
}

// Recalled is an exchange found by similarity search.
type Recalled struct {
	types.Exchange
	Similarity float64 `json:"similarity"`
}

type recalledRow struct {
	exchangeModel
	Similarity float64
}

// SearchSimilar returns the exchanges closest to embedding by cosine distance.
// It needs PostgreSQL with the pgvector extension.
func (r *ExchangeRepo) SearchSimilar(ctx context.Context, sessionID, characterID string, embedding []float32, limit int) ([]Recalled, error) {
	if len(embedding) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 5
	}

	query := `
		SELECT id, session_id, character_id, user_message, assistant_message,
		       importance_score, memory_weight, created_at,
		       1 - (embedding <=> ?) AS similarity
		FROM exchanges
		WHERE session_id = ?
		  AND character_id = ?
		  AND embedding IS NOT NULL
		ORDER BY embedding <=> ?
		LIMIT ?`

	vector := pgvector.NewVector(embedding)
	var rows []recalledRow
	if err := r.db.WithContext(ctx).
		Raw(query, vector, sessionID, characterID, vector, limit).
		Scan(&rows).Error; err != nil {
		return nil, &memory.StorageError{Op: "search_similar", Err: err}
	}

	results := make([]Recalled, 0, len(rows))
	for _, row := range rows {
		results = append(results, Recalled{Exchange: exchangeFromModel(row.exchangeModel), Similarity: row.Similarity})
	}
	return results, nil
}

func exchangeFromModel(model exchangeModel) types.Exchange {
	var embedding []float32
	if model.Embedding != nil {
		embedding = model.Embedding.Slice()
	}
	return types.Exchange{
		ID:               model.ID,
		SessionID:        model.SessionID,
		CharacterID:      model.CharacterID,
		UserMessage:      model.UserMessage,
		AssistantMessage: model.AssistantMessage,
		CreatedAt:        model.CreatedAt,
		Importance:       model.ImportanceScore,
		Weight:           model.MemoryWeight,
		Embedding:        embedding,
	}
}
