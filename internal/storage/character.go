package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/easeaico/chat-characters/internal/types"
)

// ErrCharacterNotFound is returned when no character has the requested id.
var ErrCharacterNotFound = errors.New("character not found")

const (
	characterCacheTTL   = 5 * time.Minute
	characterListKey    = "\x00all"
	characterCachePurge = 10 * time.Minute
)

// characterModel maps to the characters table. The full card is kept as a JSON blob.
type characterModel struct {
	ID           string          `gorm:"primaryKey"`
	Name         string          `gorm:"not null"`
	Data         json.RawMessage `gorm:"type:jsonb"`
	SystemPrompt string          `gorm:"type:text"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (characterModel) TableName() string {
	return "characters"
}

// CharacterRepo accesses characters data through a short-lived read cache.
type CharacterRepo struct {
	db    *gorm.DB
	cache *cache.Cache
}

// NewCharacterRepo returns a CharacterRepo.
func NewCharacterRepo(db *gorm.DB) *CharacterRepo {
	return &CharacterRepo{
		db:    db,
		cache: cache.New(characterCacheTTL, characterCachePurge),
	}
}

// Upsert inserts or replaces a character card.
func (r *CharacterRepo) Upsert(ctx context.Context, character *types.Character) error {
	if character == nil || character.ID == "" {
		return fmt.Errorf("character id is required")
	}
	data, err := json.Marshal(character)
	if err != nil {
		return fmt.Errorf("failed to encode character %s: %w", character.ID, err)
	}
	record := characterModel{
		ID:           character.ID,
		Name:         character.Name,
		Data:         data,
		SystemPrompt: character.SystemPrompt,
	}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "data", "system_prompt", "updated_at"}),
		}).
		Create(&record).Error; err != nil {
		return fmt.Errorf("failed to upsert character %s: %w", character.ID, err)
	}
	r.cache.Flush()
	return nil
}

// GetByID fetches a character by id.
func (r *CharacterRepo) GetByID(ctx context.Context, id string) (*types.Character, error) {
	if cached, found := r.cache.Get(id); found {
		character := cached.(types.Character)
		return &character, nil
	}

	var model characterModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCharacterNotFound
		}
		return nil, fmt.Errorf("failed to get character by id: %w", err)
	}
	character, err := characterFromModel(model)
	if err != nil {
		return nil, err
	}
	r.cache.Set(id, *character, cache.DefaultExpiration)
	return character, nil
}

// List returns every character ordered by id.
func (r *CharacterRepo) List(ctx context.Context) ([]types.Character, error) {
	if cached, found := r.cache.Get(characterListKey); found {
		return append([]types.Character(nil), cached.([]types.Character)...), nil
	}

	var models []characterModel
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list characters: %w", err)
	}
	results := make([]types.Character, 0, len(models))
	for _, model := range models {
		character, err := characterFromModel(model)
		if err != nil {
			return nil, err
		}
		results = append(results, *character)
	}
	r.cache.Set(characterListKey, results, cache.DefaultExpiration)
	return append([]types.Character(nil), results...), nil
}

func characterFromModel(model characterModel) (*types.Character, error) {
	var character types.Character
	if len(model.Data) > 0 {
		if err := json.Unmarshal(model.Data, &character); err != nil {
			return nil, fmt.Errorf("failed to decode character %s: %w", model.ID, err)
		}
	}
	character.ID = model.ID
	character.Name = model.Name
	character.SystemPrompt = model.SystemPrompt
	character.CreatedAt = model.CreatedAt
	character.UpdatedAt = model.UpdatedAt
	return &character, nil
}
