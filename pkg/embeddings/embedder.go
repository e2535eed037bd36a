// Package embeddings turns chunk text into vectors for the vector store.
package embeddings

import (
	"context"
	"errors"
)

var (
	// ErrEmbedding is wrapped by every embedder failure.
	ErrEmbedding = errors.New("embedding failed")

	// ErrUnavailable marks a failure that may succeed on retry, such as a
	// 5xx response or a model that is still loading.
	ErrUnavailable = errors.New("embedding service unavailable")

	// ErrRejected marks input the embedding service refused. Sending the
	// same text again fails the same way.
	ErrRejected = errors.New("embedding input rejected")
)

// Embedder provides text embedding capabilities.
type Embedder interface {
	// Embed converts text into a vector embedding.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Close releases any resources held by the embedder.
	Close() error
}
