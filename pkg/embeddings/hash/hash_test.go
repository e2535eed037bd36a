package hash_test

import (
	"context"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/docmem/pkg/embeddings/hash"
)

func norm(v []float32) float64 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	return math.Sqrt(sum)
}

var _ = Describe("Embedder", func() {
	ctx := context.Background()

	It("returns vectors of the configured size", func() {
		vec, err := hash.NewEmbedder(32).Embed(ctx, "some words here")
		Expect(err).NotTo(HaveOccurred())
		Expect(vec).To(HaveLen(32))
	})

	It("falls back to the default size", func() {
		vec, err := hash.NewEmbedder(0).Embed(ctx, "x")
		Expect(err).NotTo(HaveOccurred())
		Expect(vec).To(HaveLen(hash.DefaultDimensions))
	})

	It("is deterministic and case insensitive", func() {
		e := hash.NewEmbedder(64)
		a, _ := e.Embed(ctx, "Hello World")
		b, _ := e.Embed(ctx, "hello, world!")
		Expect(a).To(Equal(b))
	})

	It("normalizes non-empty text to unit length", func() {
		vec, _ := hash.NewEmbedder(64).Embed(ctx, "the quick brown fox")
		Expect(norm(vec)).To(BeNumerically("~", 1.0, 1e-5))
	})

	It("returns a zero vector for text without tokens", func() {
		vec, _ := hash.NewEmbedder(8).Embed(ctx, "  ...  ")
		Expect(vec).To(Equal(make([]float32, 8)))
	})

	It("fails on a cancelled context", func() {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := hash.NewEmbedder(8).Embed(cancelled, "x")
		Expect(err).To(MatchError(context.Canceled))
	})
})
