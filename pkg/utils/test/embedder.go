package testutils

import (
	"context"
	"sync"

	"github.com/papercomputeco/docmem/pkg/embeddings"
)

// MockEmbedder returns a fixed-size vector for any text and records every
// input it was asked to embed.
type MockEmbedder struct {
	// Dimensions is the length of returned vectors. Defaults to 3.
	Dimensions int

	// FailOn makes Embed return the mapped error for an exact input.
	FailOn map[string]error

	mu     sync.Mutex
	inputs []string
}

func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{Dimensions: 3, FailOn: map[string]error{}}
}

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.inputs = append(m.inputs, text)

	if err, ok := m.FailOn[text]; ok {
		return nil, err
	}

	vec := make([]float32, m.Dimensions)
	for i := range vec {
		vec[i] = float32(len(text)+i) / 10
	}
	return vec, nil
}

// Inputs returns every text passed to Embed, in call order.
func (m *MockEmbedder) Inputs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.inputs...)
}

func (m *MockEmbedder) Close() error {
	return nil
}

var _ embeddings.Embedder = (*MockEmbedder)(nil)
