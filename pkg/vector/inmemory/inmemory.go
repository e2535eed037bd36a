// Package inmemory provides an ephemeral vector driver that lives for the
// duration of the process.
package inmemory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/papercomputeco/docmem/pkg/vector"
)

// Driver implements vector.Driver with a mutex-guarded map.
type Driver struct {
	mu         sync.RWMutex
	collection string
	dimensions uint
	docs       map[string]vector.Document
}

// NewDriver returns an empty collection. A zero dimensions accepts
// embeddings of any length.
func NewDriver(collection string, dimensions uint) *Driver {
	return &Driver{
		collection: collection,
		dimensions: dimensions,
		docs:       make(map[string]vector.Document),
	}
}

func (d *Driver) Upsert(ctx context.Context, docs []vector.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, doc := range docs {
		if d.dimensions > 0 && len(doc.Embedding) != int(d.dimensions) {
			return fmt.Errorf("%w: document %s has %d dimensions, collection %q expects %d",
				vector.ErrDimensions, doc.ID, len(doc.Embedding), d.collection, d.dimensions)
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for _, doc := range docs {
		d.docs[doc.ID] = clone(doc)
	}
	return nil
}

func (d *Driver) Get(_ context.Context, ids []string) ([]vector.Document, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []vector.Document
	for _, id := range ids {
		if doc, ok := d.docs[id]; ok {
			out = append(out, clone(doc))
		}
	}
	return out, nil
}

func (d *Driver) Delete(_ context.Context, ids []string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, id := range ids {
		delete(d.docs, id)
	}
	return nil
}

func (d *Driver) Count(_ context.Context) (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.docs), nil
}

func (d *Driver) Close() error {
	return nil
}

func clone(doc vector.Document) vector.Document {
	doc.Metadata = maps.Clone(doc.Metadata)
	doc.Embedding = slices.Clone(doc.Embedding)
	return doc
}

var _ vector.Driver = (*Driver)(nil)
