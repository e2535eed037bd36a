package vector

import "errors"

var (
	// ErrNotFound is returned when a document is not found in the vector store.
	ErrNotFound = errors.New("document not found")

	// ErrConnection is returned when the vector store cannot be reached or
	// answers with a transient failure. Callers may retry.
	ErrConnection = errors.New("vector store connection failed")

	// ErrDimensions is returned when an embedding does not match the
	// collection's dimension count.
	ErrDimensions = errors.New("embedding dimension mismatch")
)
