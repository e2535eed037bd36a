// Package ledger tracks every memory between its store and its publish.
//
// A record enters the ledger as stored once the vector store accepted the
// chunk and moves to published once the event was confirmed by the broker.
// Records left in the stored state are republished by reconciliation, and a
// redelivered request skips chunks that are already published.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/papercomputeco/docmem/pkg/memory"
)

// State is the position of a record in the outbox.
type State string

const (
	StateStored    State = "stored"
	StatePublished State = "published"
)

// ErrNotFound is returned when no record exists for an ID.
var ErrNotFound = errors.New("ledger record not found")

// Record is one memory tracked by the ledger.
type Record struct {
	ID         string
	SourcePath string
	Ordinal    int
	Content    string
	CreatedAt  time.Time
	RoutingKey string
	State      State
}

// NewRecord returns the stored-state record for m.
func NewRecord(m memory.Memory, sourcePath string, ordinal int, routingKey string) Record {
	return Record{
		ID:         m.ID,
		SourcePath: sourcePath,
		Ordinal:    ordinal,
		Content:    m.Content,
		CreatedAt:  m.CreatedAt.UTC(),
		RoutingKey: routingKey,
		State:      StateStored,
	}
}

// Memory returns the memory the record was created from.
func (r Record) Memory() memory.Memory {
	return memory.Memory{ID: r.ID, CreatedAt: r.CreatedAt, Content: r.Content}
}

// Driver persists ledger records. Implementations must be safe for
// concurrent use.
type Driver interface {
	// MarkStored records r as stored. An existing record with the same ID
	// is left unchanged, so a published record never moves back.
	MarkStored(ctx context.Context, r Record) error

	// MarkPublished moves the record to published. It returns ErrNotFound
	// when no record exists.
	MarkPublished(ctx context.Context, id string) error

	// Get returns the record for id or ErrNotFound.
	Get(ctx context.Context, id string) (Record, error)

	// Pending returns up to limit stored-but-unpublished records, oldest
	// first and in ordinal order within a file. limit <= 0 means no limit.
	Pending(ctx context.Context, limit int) ([]Record, error)

	Close() error
}
