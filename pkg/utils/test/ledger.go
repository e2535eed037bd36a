package testutils

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/docmem/pkg/ledger"
)

// NewLedgerRecord returns a stored-state record for tests.
func NewLedgerRecord(id, sourcePath string, ordinal int, createdAt time.Time) ledger.Record {
	return ledger.Record{
		ID:         id,
		SourcePath: sourcePath,
		Ordinal:    ordinal,
		Content:    "content of " + id,
		CreatedAt:  createdAt.UTC(),
		RoutingKey: "memories",
		State:      ledger.StateStored,
	}
}

// DescribeLedgerDriver registers the behavior every ledger.Driver shares.
// newDriver is called before each spec and the driver is closed after it.
func DescribeLedgerDriver(newDriver func() ledger.Driver) {
	Describe("ledger driver behavior", func() {
		var (
			ctx    context.Context
			driver ledger.Driver
			base   time.Time
		)

		BeforeEach(func() {
			ctx = context.Background()
			driver = newDriver()
			base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
		})

		AfterEach(func() {
			Expect(driver.Close()).To(Succeed())
		})

		It("returns ErrNotFound for unknown ids", func() {
			_, err := driver.Get(ctx, "missing")
			Expect(err).To(MatchError(ledger.ErrNotFound))
			Expect(driver.MarkPublished(ctx, "missing")).To(MatchError(ledger.ErrNotFound))
		})

		It("stores and reads back a record", func() {
			r := NewLedgerRecord("a", "/docs/a.txt", 3, base)
			Expect(driver.MarkStored(ctx, r)).To(Succeed())

			got, err := driver.Get(ctx, "a")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ID).To(Equal("a"))
			Expect(got.SourcePath).To(Equal("/docs/a.txt"))
			Expect(got.Ordinal).To(Equal(3))
			Expect(got.Content).To(Equal("content of a"))
			Expect(got.RoutingKey).To(Equal("memories"))
			Expect(got.CreatedAt.Equal(base)).To(BeTrue())
			Expect(got.State).To(Equal(ledger.StateStored))
		})

		It("moves a record to published", func() {
			Expect(driver.MarkStored(ctx, NewLedgerRecord("a", "/a", 0, base))).To(Succeed())
			Expect(driver.MarkPublished(ctx, "a")).To(Succeed())

			got, err := driver.Get(ctx, "a")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.State).To(Equal(ledger.StatePublished))
		})

		It("never moves a published record back to stored", func() {
			r := NewLedgerRecord("a", "/a", 0, base)
			Expect(driver.MarkStored(ctx, r)).To(Succeed())
			Expect(driver.MarkPublished(ctx, "a")).To(Succeed())
			Expect(driver.MarkStored(ctx, r)).To(Succeed())

			got, err := driver.Get(ctx, "a")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.State).To(Equal(ledger.StatePublished))

			pending, err := driver.Pending(ctx, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(pending).To(BeEmpty())
		})

		It("lists pending records oldest first and in ordinal order", func() {
			Expect(driver.MarkStored(ctx, NewLedgerRecord("b1", "/b", 1, base.Add(time.Second)))).To(Succeed())
			Expect(driver.MarkStored(ctx, NewLedgerRecord("a0", "/a", 0, base))).To(Succeed())
			Expect(driver.MarkStored(ctx, NewLedgerRecord("b0", "/b", 0, base.Add(time.Second)))).To(Succeed())
			Expect(driver.MarkStored(ctx, NewLedgerRecord("c0", "/c", 0, base.Add(2*time.Second)))).To(Succeed())
			Expect(driver.MarkPublished(ctx, "c0")).To(Succeed())

			pending, err := driver.Pending(ctx, 0)
			Expect(err).NotTo(HaveOccurred())
			ids := make([]string, 0, len(pending))
			for _, r := range pending {
				ids = append(ids, r.ID)
			}
			Expect(ids).To(Equal([]string{"a0", "b0", "b1"}))
		})

		It("honors the pending limit", func() {
			for i, id := range []string{"x", "y", "z"} {
				Expect(driver.MarkStored(ctx, NewLedgerRecord(id, "/f", i, base))).To(Succeed())
			}

			pending, err := driver.Pending(ctx, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(pending).To(HaveLen(2))
			Expect(pending[0].ID).To(Equal("x"))
			Expect(pending[1].ID).To(Equal("y"))
		})
	})
}
