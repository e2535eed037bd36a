// Package inmemory provides an in-memory ledger driver. Records are lost on
// exit, so it only fits the ephemeral vector store.
package inmemory

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/papercomputeco/docmem/pkg/ledger"
)

// Driver implements ledger.Driver with a map.
type Driver struct {
	mu      sync.RWMutex
	records map[string]ledger.Record
}

func NewDriver() *Driver {
	return &Driver{records: map[string]ledger.Record{}}
}

func (d *Driver) MarkStored(_ context.Context, r ledger.Record) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.records[r.ID]; ok {
		return nil
	}
	r.State = ledger.StateStored
	d.records[r.ID] = r
	return nil
}

func (d *Driver) MarkPublished(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	r, ok := d.records[id]
	if !ok {
		return ledger.ErrNotFound
	}
	r.State = ledger.StatePublished
	d.records[id] = r
	return nil
}

func (d *Driver) Get(_ context.Context, id string) (ledger.Record, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	r, ok := d.records[id]
	if !ok {
		return ledger.Record{}, ledger.ErrNotFound
	}
	return r, nil
}

func (d *Driver) Pending(_ context.Context, limit int) ([]ledger.Record, error) {
	d.mu.RLock()
	var out []ledger.Record
	for _, r := range d.records {
		if r.State == ledger.StateStored {
			out = append(out, r)
		}
	}
	d.mu.RUnlock()

	slices.SortFunc(out, func(a, b ledger.Record) int {
		return cmp.Or(
			a.CreatedAt.Compare(b.CreatedAt),
			cmp.Compare(a.SourcePath, b.SourcePath),
			cmp.Compare(a.Ordinal, b.Ordinal),
		)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (d *Driver) Close() error {
	return nil
}

var _ ledger.Driver = (*Driver)(nil)
