package ingest_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/docmem/pkg/broker"
	"github.com/papercomputeco/docmem/pkg/chunker"
	"github.com/papercomputeco/docmem/pkg/embeddings"
	"github.com/papercomputeco/docmem/pkg/embeddings/hash"
	"github.com/papercomputeco/docmem/pkg/eventstream"
	"github.com/papercomputeco/docmem/pkg/extract"
	"github.com/papercomputeco/docmem/pkg/ingest"
	"github.com/papercomputeco/docmem/pkg/ledger"
	ledgermem "github.com/papercomputeco/docmem/pkg/ledger/inmemory"
	"github.com/papercomputeco/docmem/pkg/logger"
	"github.com/papercomputeco/docmem/pkg/memory"
	testutils "github.com/papercomputeco/docmem/pkg/utils/test"
	"github.com/papercomputeco/docmem/pkg/vector"
	vectormem "github.com/papercomputeco/docmem/pkg/vector/inmemory"
)

var fixedNow = time.Date(2025, 5, 4, 3, 2, 1, 0, time.UTC)

func requestBody(path, name string) []byte {
	body, err := ingest.AssimilationRequest{FilePath: path, FileName: name}.Marshal()
	Expect(err).NotTo(HaveOccurred())
	return body
}

var _ = Describe("Orchestrator", func() {
	var (
		ctx       context.Context
		tmpDir    string
		store     *testutils.MockStore
		publisher *testutils.MockPublisher
		ldg       *ledgermem.Driver
		orch      *ingest.Orchestrator
	)

	write := func(name, content string) string {
		path := filepath.Join(tmpDir, name)
		Expect(os.WriteFile(path, []byte(content), 0o600)).To(Succeed())
		return path
	}

	newOrchestrator := func(withLedger bool) *ingest.Orchestrator {
		ch, err := chunker.New(chunker.Config{})
		Expect(err).NotTo(HaveOccurred())

		c := ingest.Config{
			Extractor:    extract.NewRegistry(logger.Nop()),
			Chunker:      ch,
			Store:        store,
			Publisher:    publisher,
			RoutingKey:   "memories.document",
			StoreRetry:   ingest.RetryPolicy{Attempts: 3},
			PublishRetry: ingest.RetryPolicy{Attempts: 2},
			Now:          func() time.Time { return fixedNow },
			Logger:       logger.Nop(),
		}
		if withLedger {
			c.Ledger = ldg
		}
		o, err := ingest.New(c)
		Expect(err).NotTo(HaveOccurred())
		return o
	}

	BeforeEach(func() {
		ctx = context.Background()
		tmpDir = GinkgoT().TempDir()
		store = testutils.NewMockStore()
		publisher = testutils.NewMockPublisher()
		ldg = ledgermem.NewDriver()
		orch = newOrchestrator(true)
	})

	Describe("New", func() {
		It("requires every collaborator", func() {
			_, err := ingest.New(ingest.Config{Logger: logger.Nop()})
			Expect(err).To(MatchError(ContainSubstring("extractor is required")))
		})
	})

	Describe("invalid requests", func() {
		It("skips malformed JSON without touching store or publisher", func() {
			outcome, err := orch.Handle(ctx, []byte("{bad"))
			Expect(outcome).To(Equal(ingest.Skipped))
			Expect(err).To(MatchError(ingest.ErrMessageFormat))
			Expect(store.Snapshot()).To(BeEmpty())
			Expect(publisher.Snapshot()).To(BeEmpty())
		})

		It("skips a request without file_name", func() {
			outcome, err := orch.Handle(ctx, []byte(`{"file_path": "/tmp/x"}`))
			Expect(outcome).To(Equal(ingest.Skipped))
			Expect(err).To(MatchError(ContainSubstring("missing file_name")))
		})

		It("tolerates unknown fields", func() {
			path := write("a.txt", "Hello world.\n")
			body := fmt.Sprintf(`{"file_path": %q, "file_name": "a.txt", "priority": 5}`, path)
			outcome, err := orch.Handle(ctx, []byte(body))
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome).To(Equal(ingest.Acknowledged))
		})

		It("skips a missing file with zero store and publish calls", func() {
			outcome, err := orch.Handle(ctx, requestBody(filepath.Join(tmpDir, "gone.txt"), "gone.txt"))
			Expect(outcome).To(Equal(ingest.Skipped))

			var aerr *extract.AccessError
			Expect(errors.As(err, &aerr)).To(BeTrue())
			Expect(ingest.Classify(err)).To(Equal(ingest.KindAccess))
			Expect(store.Snapshot()).To(BeEmpty())
			Expect(publisher.Snapshot()).To(BeEmpty())
		})

		It("skips a directory", func() {
			outcome, err := orch.Handle(ctx, requestBody(tmpDir, "dir"))
			Expect(outcome).To(Equal(ingest.Skipped))
			Expect(err).To(MatchError(ContainSubstring("is a directory")))
		})

		It("skips a file that cannot be parsed", func() {
			path := write("broken.pdf", "not a pdf")
			outcome, _ := orch.Handle(ctx, requestBody(path, "broken.pdf"))
			Expect(outcome).To(Equal(ingest.Skipped))
			Expect(store.Snapshot()).To(BeEmpty())
		})
	})

	Describe("valid files", func() {
		It("stores and publishes each chunk once, in order, under one id", func() {
			path := write("a.txt", "Hello world.\nSecond part.\n")

			outcome, err := orch.Handle(ctx, requestBody(path, "a.txt"))
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome).To(Equal(ingest.Acknowledged))

			stored := store.Snapshot()
			published := publisher.Snapshot()
			Expect(stored).To(HaveLen(2))
			Expect(published).To(HaveLen(2))

			Expect(stored[0].Content).To(Equal("Hello world"))
			Expect(stored[1].Content).To(Equal("Second part"))
			for i := range stored {
				Expect(published[i].Memory.ID).To(Equal(stored[i].ID))
				Expect(published[i].Memory.Content).To(Equal(stored[i].Content))
				Expect(published[i].Memory.CreatedAt).To(Equal(fixedNow))
				Expect(published[i].RoutingKey).To(Equal("memories.document"))
				Expect(stored[i].Metadata).To(HaveKeyWithValue(memory.KeySourcePath, path))
				Expect(stored[i].Metadata).To(HaveKeyWithValue(memory.KeyFileName, "a.txt"))
				Expect(stored[i].Metadata).To(HaveKeyWithValue(memory.KeyOrdinal, fmt.Sprint(i)))
				Expect(stored[i].ID).To(Equal(memory.NewID(path, i, stored[i].Content)))
			}

			Expect(orch.Stats().Snapshot()).To(HaveKeyWithValue("acknowledged", int64(1)))
			Expect(orch.Stats().Snapshot()).To(HaveKeyWithValue("chunks_published", int64(2)))
		})

		It("acknowledges a file of control characters without any calls", func() {
			path := write("ctl.txt", "\x01\x02")
			outcome, err := orch.Handle(ctx, requestBody(path, "ctl.txt"))
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome).To(Equal(ingest.Acknowledged))
			Expect(store.Snapshot()).To(BeEmpty())
			Expect(publisher.Snapshot()).To(BeEmpty())
		})

		It("acknowledges an empty file", func() {
			path := write("empty.txt", "")
			outcome, err := orch.Handle(ctx, requestBody(path, "empty.txt"))
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome).To(Equal(ingest.Acknowledged))
		})

		It("derives the same ids when a file is delivered twice", func() {
			orch = newOrchestrator(false)
			path := write("a.txt", "One.\nTwo.\n")

			_, err := orch.Handle(ctx, requestBody(path, "a.txt"))
			Expect(err).NotTo(HaveOccurred())
			_, err = orch.Handle(ctx, requestBody(path, "a.txt"))
			Expect(err).NotTo(HaveOccurred())

			stored := store.Snapshot()
			Expect(stored).To(HaveLen(4))
			Expect(stored[2].ID).To(Equal(stored[0].ID))
			Expect(stored[3].ID).To(Equal(stored[1].ID))
		})
	})

	Describe("store failures", func() {
		It("retries a temporary failure and continues", func() {
			store.FailOn["Two"] = &memory.StoreError{ID: "x", Op: "upsert", Err: vector.ErrConnection}
			store.FailTimes = 2
			path := write("a.txt", "One.\nTwo.\n")

			outcome, err := orch.Handle(ctx, requestBody(path, "a.txt"))
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome).To(Equal(ingest.Acknowledged))
			Expect(store.Snapshot()).To(HaveLen(2))
		})

		It("requeues when temporary failures outlast the retries and keeps earlier chunks", func() {
			store.FailOn["Two"] = &memory.StoreError{ID: "x", Op: "upsert", Err: vector.ErrConnection}
			path := write("a.txt", "One.\nTwo.\nThree.\n")

			outcome, err := orch.Handle(ctx, requestBody(path, "a.txt"))
			Expect(outcome).To(Equal(ingest.Requeue))
			Expect(ingest.Classify(err)).To(Equal(ingest.KindStore))

			Expect(store.Snapshot()).To(HaveLen(1))
			published := publisher.Snapshot()
			Expect(published).To(HaveLen(1))
			Expect(published[0].Memory.Content).To(Equal("One"))
		})

		It("skips the request when the embedder rejects a chunk", func() {
			store.FailOn["Two"] = &memory.StoreError{
				ID:  "x",
				Op:  "embed",
				Err: fmt.Errorf("%w: %w: ollama returned status 400", embeddings.ErrEmbedding, embeddings.ErrRejected),
			}
			path := write("a.txt", "One.\nTwo.\nThree.\n")

			outcome, err := orch.Handle(ctx, requestBody(path, "a.txt"))
			Expect(outcome).To(Equal(ingest.Skipped))
			Expect(err).To(MatchError(embeddings.ErrRejected))
			Expect(store.Snapshot()).To(HaveLen(1))
			Expect(publisher.Snapshot()).To(HaveLen(1))
			Expect(orch.Stats().Snapshot()).To(HaveKeyWithValue("skipped", int64(1)))
		})

		It("is fatal for a permanent failure", func() {
			store.FailOn["One"] = &memory.StoreError{ID: "x", Op: "upsert", Err: vector.ErrDimensions}
			path := write("a.txt", "One.\n")

			outcome, err := orch.Handle(ctx, requestBody(path, "a.txt"))
			Expect(outcome).To(Equal(ingest.Fatal))
			Expect(err).To(MatchError(vector.ErrDimensions))
			Expect(publisher.Snapshot()).To(BeEmpty())
		})
	})

	Describe("publish failures", func() {
		It("requeues and finishes on redelivery without storing twice", func() {
			publisher.FailOn["Two"] = &eventstream.PublishError{ID: "x", Err: broker.ErrChannelClosed}
			publisher.FailTimes = 2
			path := write("a.txt", "One.\nTwo.\n")

			outcome, err := orch.Handle(ctx, requestBody(path, "a.txt"))
			Expect(outcome).To(Equal(ingest.Requeue))
			Expect(ingest.Classify(err)).To(Equal(ingest.KindPublish))

			pending, err := ldg.Pending(ctx, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(pending).To(HaveLen(1))
			Expect(pending[0].Content).To(Equal("Two"))

			outcome, err = orch.Handle(ctx, requestBody(path, "a.txt"))
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome).To(Equal(ingest.Acknowledged))

			stored := store.Snapshot()
			published := publisher.Snapshot()
			Expect(stored).To(HaveLen(2))
			Expect(published).To(HaveLen(2))
			Expect(published[1].Memory.ID).To(Equal(stored[1].ID))
			Expect(orch.Stats().ChunksSkipped.Load()).To(Equal(int64(1)))

			pending, err = ldg.Pending(ctx, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(pending).To(BeEmpty())
		})

		It("is fatal once the publish connection is lost for good", func() {
			publisher.FailOn["One"] = &eventstream.PublishError{
				ID:  "x",
				Err: errors.Join(broker.ErrChannelClosed, fmt.Errorf("%w: connection is closed", broker.ErrConnectionLost)),
			}
			path := write("a.txt", "One.\n")

			outcome, err := orch.Handle(ctx, requestBody(path, "a.txt"))
			Expect(outcome).To(Equal(ingest.Fatal))
			Expect(err).To(MatchError(broker.ErrConnectionLost))
			Expect(ingest.Classify(err)).To(Equal(ingest.KindConnection))
			Expect(store.Snapshot()).To(HaveLen(1))
			Expect(publisher.Snapshot()).To(BeEmpty())

			pending, err := ldg.Pending(ctx, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(pending).To(HaveLen(1))
		})

		It("is fatal when the exchange is gone", func() {
			publisher.FailOn["One"] = &eventstream.PublishError{ID: "x", Err: broker.ErrTopologyNotFound}
			path := write("a.txt", "One.\n")

			outcome, err := orch.Handle(ctx, requestBody(path, "a.txt"))
			Expect(outcome).To(Equal(ingest.Fatal))
			Expect(ingest.Classify(err)).To(Equal(ingest.KindTopology))
		})
	})

	It("requeues when the context is cancelled", func() {
		path := write("a.txt", "One.\n")
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		outcome, err := orch.Handle(cancelled, requestBody(path, "a.txt"))
		Expect(outcome).To(Equal(ingest.Requeue))
		Expect(err).To(MatchError(context.Canceled))
		Expect(publisher.Snapshot()).To(BeEmpty())
	})

	Describe("Reconcile", func() {
		It("publishes stored records and marks them published", func() {
			m := memory.New("/docs/a.txt", 0, "left behind", fixedNow)
			Expect(ldg.MarkStored(ctx, ledger.NewRecord(m, "/docs/a.txt", 0, "custom.key"))).To(Succeed())

			n, err := orch.Reconcile(ctx, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(1))

			published := publisher.Snapshot()
			Expect(published).To(HaveLen(1))
			Expect(published[0].Memory).To(Equal(m))
			Expect(published[0].RoutingKey).To(Equal("custom.key"))

			rec, err := ldg.Get(ctx, m.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.State).To(Equal(ledger.StatePublished))
		})

		It("stops at the first publish failure", func() {
			m := memory.New("/docs/a.txt", 0, "stuck", fixedNow)
			Expect(ldg.MarkStored(ctx, ledger.NewRecord(m, "/docs/a.txt", 0, ""))).To(Succeed())
			publisher.FailOn["stuck"] = &eventstream.PublishError{ID: m.ID, Err: broker.ErrAuth}

			n, err := orch.Reconcile(ctx, 0)
			Expect(err).To(MatchError(broker.ErrAuth))
			Expect(n).To(BeZero())
		})

		It("requires a ledger", func() {
			_, err := newOrchestrator(false).Reconcile(ctx, 0)
			Expect(err).To(MatchError(ingest.ErrNoLedger))
		})
	})

	Describe("with the vector store and broker publisher", func() {
		It("persists the same content it publishes under each id", func() {
			driver := vectormem.NewDriver("documents", hash.DefaultDimensions)
			producer := testutils.NewMockProducer()
			ch, err := chunker.New(chunker.Config{Strategy: chunker.StrategyParagraph})
			Expect(err).NotTo(HaveOccurred())

			o, err := ingest.New(ingest.Config{
				Extractor:  extract.NewRegistry(logger.Nop()),
				Chunker:    ch,
				Store:      memory.NewVectorStore(hash.NewEmbedder(hash.DefaultDimensions), driver, logger.Nop()),
				Publisher:  eventstream.NewBrokerPublisher(producer, logger.Nop()),
				Ledger:     ldg,
				RoutingKey: "memories.document",
				Logger:     logger.Nop(),
			})
			Expect(err).NotTo(HaveOccurred())

			path := write("notes.md", "# Notes\n\nFirst paragraph about café.\n\nSecond paragraph.\n")
			outcome, err := o.Handle(ctx, requestBody(path, "notes.md"))
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome).To(Equal(ingest.Acknowledged))

			sent := producer.Snapshot()
			Expect(sent).NotTo(BeEmpty())
			count, err := driver.Count(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(len(sent)))

			for _, s := range sent {
				var ev eventstream.MemoryEvent
				Expect(json.Unmarshal(s.Message.Body, &ev)).To(Succeed())

				docs, err := driver.Get(ctx, []string{ev.ID})
				Expect(err).NotTo(HaveOccurred())
				Expect(docs).To(HaveLen(1))
				Expect(docs[0].Content).To(Equal(ev.Content))
			}
		})
	})
})
