package characters

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/easeaico/chat-characters/internal/storage"
	"github.com/easeaico/chat-characters/internal/types"
)

// SupportID is the id of the built-in fallback character.
const SupportID = "support"

// Fallback returns the support character served when no cards are available.
func Fallback() types.Character {
	return types.Character{
		ID:          SupportID,
		Name:        "Support",
		Occupation:  "Platform Assistant",
		Location:    "ChatCharacters HQ",
		Description: "Friendly assistant helping you connect",
		Avatar:      "💬",
		Interests:   []string{"Helping Others", "Technology", "Conversations"},
		Personality: "Helpful and understanding",
		LookingFor:  "Ways to help you have a great experience",
		SystemPrompt: "You are a helpful support assistant. When users first talk to you, say something like: " +
			"'I'm having trouble loading the other characters right now. Let me help you while we get that sorted out. " +
			"What would you like to chat about?' Be friendly and helpful.",
	}
}

// LoadDir parses every <id>.json card in dir. Unreadable or unrecognized files
// are logged and skipped.
func LoadDir(dir string) ([]types.Character, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to list character cards: %w", err)
	}
	sort.Strings(paths)

	loaded := make([]types.Character, 0, len(paths))
	for _, path := range paths {
		id := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		data, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("failed to read character card", "path", path, "error", err)
			continue
		}
		character, err := ParseCard(id, data)
		if err != nil {
			slog.Warn("skipping character card", "path", path, "error", err)
			continue
		}
		loaded = append(loaded, *character)
	}
	return loaded, nil
}

// Repository persists characters.
type Repository interface {
	Upsert(ctx context.Context, character *types.Character) error
	GetByID(ctx context.Context, id string) (*types.Character, error)
	List(ctx context.Context) ([]types.Character, error)
}

// Directory serves characters from the repository, falling back to the
// support character when none are stored.
type Directory struct {
	repo Repository
}

// NewDirectory returns a Directory.
func NewDirectory(repo Repository) *Directory {
	return &Directory{repo: repo}
}

// Seed upserts every card found in dir and returns how many were stored.
func (d *Directory) Seed(ctx context.Context, dir string) (int, error) {
	if dir == "" {
		return 0, nil
	}
	cards, err := LoadDir(dir)
	if err != nil {
		return 0, err
	}
	for i := range cards {
		if err := d.repo.Upsert(ctx, &cards[i]); err != nil {
			return i, err
		}
	}
	return len(cards), nil
}

// List returns every stored character, or only the fallback when none exist.
func (d *Directory) List(ctx context.Context) ([]types.Character, error) {
	stored, err := d.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(stored) == 0 {
		return []types.Character{Fallback()}, nil
	}
	return stored, nil
}

// Get returns the character with id. The support character is always available.
func (d *Directory) Get(ctx context.Context, id string) (*types.Character, error) {
	character, err := d.repo.GetByID(ctx, id)
	if err == nil {
		return character, nil
	}
	if errors.Is(err, storage.ErrCharacterNotFound) && id == SupportID {
		fallback := Fallback()
		return &fallback, nil
	}
	return nil, err
}
