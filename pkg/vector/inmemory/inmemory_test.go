package inmemory_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/docmem/pkg/vector"
	"github.com/papercomputeco/docmem/pkg/vector/inmemory"
)

var _ = Describe("Driver", func() {
	var (
		driver *inmemory.Driver
		ctx    context.Context
	)

	BeforeEach(func() {
		driver = inmemory.NewDriver("documents", 2)
		ctx = context.Background()
	})

	It("replaces documents with the same ID", func() {
		doc := vector.Document{ID: "a", Content: "one", Embedding: []float32{1, 0}}
		Expect(driver.Upsert(ctx, []vector.Document{doc})).To(Succeed())
		doc.Content = "two"
		Expect(driver.Upsert(ctx, []vector.Document{doc})).To(Succeed())

		Expect(driver.Count(ctx)).To(Equal(1))
		docs, err := driver.Get(ctx, []string{"a", "missing"})
		Expect(err).NotTo(HaveOccurred())
		Expect(docs).To(HaveLen(1))
		Expect(docs[0].Content).To(Equal("two"))
	})

	It("returns copies that callers cannot mutate", func() {
		meta := map[string]string{"source_path": "/a"}
		Expect(driver.Upsert(ctx, []vector.Document{{ID: "a", Metadata: meta, Embedding: []float32{1, 0}}})).To(Succeed())
		meta["source_path"] = "/changed"

		docs, _ := driver.Get(ctx, []string{"a"})
		Expect(docs[0].Metadata).To(HaveKeyWithValue("source_path", "/a"))
	})

	It("rejects embeddings of the wrong size without writing anything", func() {
		err := driver.Upsert(ctx, []vector.Document{
			{ID: "a", Embedding: []float32{1, 0}},
			{ID: "b", Embedding: []float32{1}},
		})
		Expect(errors.Is(err, vector.ErrDimensions)).To(BeTrue())
		Expect(driver.Count(ctx)).To(Equal(0))
	})

	It("deletes documents", func() {
		Expect(driver.Upsert(ctx, []vector.Document{{ID: "a", Embedding: []float32{1, 0}}})).To(Succeed())
		Expect(driver.Delete(ctx, []string{"a"})).To(Succeed())
		Expect(driver.Count(ctx)).To(Equal(0))
	})

	It("honours a cancelled context", func() {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		Expect(driver.Upsert(cancelled, []vector.Document{{ID: "a", Embedding: []float32{1, 0}}})).To(MatchError(context.Canceled))
	})
})
