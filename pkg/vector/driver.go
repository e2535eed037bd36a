// Package vector provides the vector store boundary and its drivers. A driver
// is bound to one named collection, created with get-or-create semantics when
// the driver is constructed.
package vector

import "context"

// Document represents a stored chunk with its embedding and metadata.
type Document struct {
	// ID is the unique, deterministic identifier of the memory.
	ID string

	// Content is the chunk text.
	Content string

	// Metadata holds flat string attributes such as source_path and ordinal.
	Metadata map[string]string

	// Embedding is the vector representation of Content.
	Embedding []float32
}

// Driver handles storage and retrieval of documents in one collection.
type Driver interface {
	// Upsert stores documents. A document whose ID already exists is
	// replaced, so repeating an Upsert with the same input is a no-op.
	Upsert(ctx context.Context, docs []Document) error

	// Get retrieves documents by their IDs. Unknown IDs are omitted.
	Get(ctx context.Context, ids []string) ([]Document, error)

	// Delete removes documents by their IDs.
	Delete(ctx context.Context, ids []string) error

	// Count returns the number of documents in the collection.
	Count(ctx context.Context) (int, error)

	// Close releases any resources held by the driver.
	Close() error
}
