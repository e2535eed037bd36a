package ingest_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/docmem/pkg/broker"
	"github.com/papercomputeco/docmem/pkg/ingest"
	"github.com/papercomputeco/docmem/pkg/logger"
	testutils "github.com/papercomputeco/docmem/pkg/utils/test"
)

var _ = Describe("Enqueuer", func() {
	var (
		ctx      context.Context
		dir      string
		producer *testutils.MockProducer
		enqueuer *ingest.Enqueuer
	)

	BeforeEach(func() {
		ctx = context.Background()
		dir = GinkgoT().TempDir()
		producer = testutils.NewMockProducer()
		enqueuer = ingest.NewEnqueuer(producer, "assimilate", logger.Nop())
	})

	It("sends a request the consumer can parse", func() {
		path := filepath.Join(dir, "report.md")
		Expect(os.WriteFile(path, []byte("# Report\n"), 0o600)).To(Succeed())

		req, err := enqueuer.Enqueue(ctx, path)
		Expect(err).NotTo(HaveOccurred())
		Expect(req.FilePath).To(Equal(path))
		Expect(req.FileName).To(Equal("report.md"))

		sent := producer.Snapshot()
		Expect(sent).To(HaveLen(1))
		Expect(sent[0].RoutingKey).To(Equal("assimilate"))
		Expect(sent[0].Message.ContentType).To(Equal("application/json"))
		Expect(sent[0].Message.MessageID).NotTo(BeEmpty())

		parsed, err := ingest.ParseRequest(sent[0].Message.Body)
		Expect(err).NotTo(HaveOccurred())
		Expect(parsed).To(Equal(req))
	})

	It("makes relative paths absolute", func() {
		wd, err := os.Getwd()
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(os.Chdir, wd)
		Expect(os.Chdir(dir)).To(Succeed())
		Expect(os.WriteFile("notes.txt", []byte("Notes.\n"), 0o600)).To(Succeed())

		req, err := enqueuer.Enqueue(ctx, "notes.txt")
		Expect(err).NotTo(HaveOccurred())
		Expect(filepath.IsAbs(req.FilePath)).To(BeTrue())
		Expect(req.FileName).To(Equal("notes.txt"))
	})

	It("refuses missing files and directories without sending", func() {
		_, err := enqueuer.Enqueue(ctx, filepath.Join(dir, "missing.txt"))
		Expect(errors.Is(err, os.ErrNotExist)).To(BeTrue())

		_, err = enqueuer.Enqueue(ctx, dir)
		Expect(err).To(MatchError(ContainSubstring("not a regular file")))

		Expect(producer.Snapshot()).To(BeEmpty())
	})

	It("returns send failures", func() {
		path := filepath.Join(dir, "a.txt")
		Expect(os.WriteFile(path, []byte("A.\n"), 0o600)).To(Succeed())
		producer.Errs = []error{broker.ErrTopologyNotFound}

		_, err := enqueuer.Enqueue(ctx, path)
		Expect(err).To(MatchError(broker.ErrTopologyNotFound))
		Expect(ingest.Classify(err)).To(Equal(ingest.KindTopology))
	})
})
