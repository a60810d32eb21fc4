// Package storage persists characters and conversation exchanges with gorm.
package storage

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/easeaico/chat-characters/internal/memory"
)

// Store holds the DB handle and repositories.
type Store struct {
	db         *gorm.DB
	Characters *CharacterRepo
	Exchanges  *ExchangeRepo
}

// NewStore connects to PostgreSQL, enables pgvector and migrates the schema.
func NewStore(ctx context.Context, databaseURL string, scorer memory.Scorer) (*Store, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := db.WithContext(ctx).Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		slog.Warn("failed to enable pgvector extension", "error", err.Error())
	}

	store, err := newStore(ctx, db, scorer)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return store, nil
}

// Open opens the database behind dialector and migrates the schema.
func Open(ctx context.Context, dialector gorm.Dialector, scorer memory.Scorer) (*Store, error) {
	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm database: %w", err)
	}
	return newStore(ctx, db, scorer)
}

func newStore(ctx context.Context, db *gorm.DB, scorer memory.Scorer) (*Store, error) {
	if err := db.WithContext(ctx).AutoMigrate(&characterModel{}, &exchangeModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return &Store{
		db:         db,
		Characters: NewCharacterRepo(db),
		Exchanges:  NewExchangeRepo(db, scorer),
	}, nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql db: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() {
	if s.db == nil {
		return
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return
	}
	_ = sqlDB.Close()
}
