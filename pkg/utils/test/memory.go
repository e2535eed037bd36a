package testutils

import (
	"context"
	"maps"
	"sync"
)

// StoreCall is one recorded MockStore.Upsert.
type StoreCall struct {
	ID       string
	Content  string
	Metadata map[string]string
}

// MockStore is a memory.Store that records calls and can fail on demand.
type MockStore struct {
	mu    sync.Mutex
	Calls []StoreCall

	// FailOn makes Upsert fail for content equal to the key. The error is
	// returned FailTimes times (0 means always).
	FailOn    map[string]error
	FailTimes int
	failures  map[string]int
}

func NewMockStore() *MockStore {
	return &MockStore{
		FailOn:   map[string]error{},
		failures: map[string]int{},
	}
}

func (m *MockStore) Upsert(ctx context.Context, id, content string, metadata map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err, ok := m.FailOn[content]; ok {
		if m.FailTimes == 0 || m.failures[content] < m.FailTimes {
			m.failures[content]++
			return err
		}
	}

	m.Calls = append(m.Calls, StoreCall{ID: id, Content: content, Metadata: maps.Clone(metadata)})
	return nil
}

// Snapshot returns a copy of the recorded calls.
func (m *MockStore) Snapshot() []StoreCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]StoreCall(nil), m.Calls...)
}
