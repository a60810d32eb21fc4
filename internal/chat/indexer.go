package chat

import (
	"context"
	"fmt"

	"github.com/easeaico/chat-characters/internal/types"
)

// Indexer receives every persisted exchange after its turn, e.g. to make it searchable.
type Indexer interface {
	Index(ctx context.Context, e types.Exchange) error
}

// DocumentEmbedder embeds stored text.
type DocumentEmbedder interface {
	EmbedDocument(ctx context.Context, text string) ([]float32, error)
}

// EmbeddingWriter stores the vector of an existing exchange.
type EmbeddingWriter interface {
	SetEmbedding(ctx context.Context, id int64, embedding []float32) error
}

// EmbeddingIndexer embeds the user message of an exchange and writes the vector back.
type EmbeddingIndexer struct {
	embedder DocumentEmbedder
	writer   EmbeddingWriter
}

// NewEmbeddingIndexer returns an EmbeddingIndexer.
func NewEmbeddingIndexer(embedder DocumentEmbedder, writer EmbeddingWriter) *EmbeddingIndexer {
	return &EmbeddingIndexer{embedder: embedder, writer: writer}
}

func (i *EmbeddingIndexer) Index(ctx context.Context, e types.Exchange) error {
	if e.ID == 0 || e.UserMessage == "" {
		return nil
	}
	vector, err := i.embedder.EmbedDocument(ctx, e.UserMessage)
	if err != nil {
		return fmt.Errorf("failed to embed exchange %d: %w", e.ID, err)
	}
	if err := i.writer.SetEmbedding(ctx, e.ID, vector); err != nil {
		return fmt.Errorf("failed to store embedding of exchange %d: %w", e.ID, err)
	}
	return nil
}
