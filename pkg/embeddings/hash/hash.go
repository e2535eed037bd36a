// Package hash implements a deterministic, offline Embedder using feature
// hashing over lowercase word tokens. It needs no model server and is meant
// for local runs and tests.
package hash

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/papercomputeco/docmem/pkg/embeddings"
)

// DefaultDimensions is used when no dimension count is configured.
const DefaultDimensions = 256

// Embedder projects token counts into a fixed number of buckets and
// L2-normalizes the result.
type Embedder struct {
	dimensions uint
}

func NewEmbedder(dimensions uint) *Embedder {
	if dimensions == 0 {
		dimensions = DefaultDimensions
	}
	return &Embedder{dimensions: dimensions}
}

// Embed implements embeddings.Embedder.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", embeddings.ErrEmbedding, err)
	}

	vec := make([]float32, e.dimensions)
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	for _, tok := range tokens {
		h := fnv.New64a()
		_, _ = h.Write([]byte(tok))
		sum := h.Sum64()

		// the top bit picks the sign so collisions tend to cancel out
		sign := float32(1)
		if sum>>63 == 1 {
			sign = -1
		}
		vec[sum%uint64(e.dimensions)] += sign
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec, nil
}

func (e *Embedder) Close() error {
	return nil
}

var _ embeddings.Embedder = (*Embedder)(nil)
