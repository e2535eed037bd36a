package memory

import (
	"context"
	"errors"
	"log/slog"

	"github.com/papercomputeco/docmem/pkg/embeddings"
	"github.com/papercomputeco/docmem/pkg/vector"
)

// Store persists one chunk per call. Implementations must be safe for
// concurrent use and treat a repeated id as a replace.
type Store interface {
	Upsert(ctx context.Context, id, content string, metadata map[string]string) error
}

// VectorStore embeds chunk content and writes it to a vector driver.
type VectorStore struct {
	embedder embeddings.Embedder
	driver   vector.Driver
	logger   *slog.Logger
}

// NewVectorStore wires an embedder to a collection-bound vector driver.
// Both handles are owned by the caller.
func NewVectorStore(embedder embeddings.Embedder, driver vector.Driver, logger *slog.Logger) *VectorStore {
	return &VectorStore{
		embedder: embedder,
		driver:   driver,
		logger:   logger,
	}
}

// Upsert embeds content and stores it under id. Failures are returned as
// *StoreError.
func (s *VectorStore) Upsert(ctx context.Context, id, content string, metadata map[string]string) error {
	if content == "" {
		return &StoreError{ID: id, Op: "validate", Err: errors.New("empty content")}
	}

	embedding, err := s.embedder.Embed(ctx, content)
	if err != nil {
		return &StoreError{ID: id, Op: "embed", Err: err}
	}

	doc := vector.Document{
		ID:        id,
		Content:   content,
		Metadata:  metadata,
		Embedding: embedding,
	}
	if err := s.driver.Upsert(ctx, []vector.Document{doc}); err != nil {
		return &StoreError{ID: id, Op: "upsert", Err: err}
	}

	s.logger.Debug("stored memory",
		"id", id,
		"source_path", metadata[KeySourcePath],
		"ordinal", metadata[KeyOrdinal],
		"embedding_dim", len(embedding),
	)
	return nil
}

var _ Store = (*VectorStore)(nil)
