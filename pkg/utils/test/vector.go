package testutils

import (
	"context"
	"sync"

	"github.com/papercomputeco/docmem/pkg/vector"
)

// MockVectorDriver is a test vector driver that records upserts in order.
type MockVectorDriver struct {
	mu      sync.Mutex
	Upserts []vector.Document

	// Err is returned by Upsert when set.
	Err error
}

func NewMockVectorDriver() *MockVectorDriver {
	return &MockVectorDriver{}
}

func (m *MockVectorDriver) Upsert(_ context.Context, docs []vector.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Upserts = append(m.Upserts, docs...)
	return nil
}

func (m *MockVectorDriver) Get(_ context.Context, ids []string) ([]vector.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []vector.Document
	for _, id := range ids {
		for _, doc := range m.Upserts {
			if doc.ID == id {
				out = append(out, doc)
			}
		}
	}
	return out, nil
}

func (m *MockVectorDriver) Delete(_ context.Context, _ []string) error {
	return nil
}

func (m *MockVectorDriver) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Upserts), nil
}

func (m *MockVectorDriver) Close() error {
	return nil
}

var _ vector.Driver = (*MockVectorDriver)(nil)
