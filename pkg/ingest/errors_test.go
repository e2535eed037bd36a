package ingest_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/docmem/pkg/broker"
	"github.com/papercomputeco/docmem/pkg/config"
	"github.com/papercomputeco/docmem/pkg/embeddings"
	"github.com/papercomputeco/docmem/pkg/eventstream"
	"github.com/papercomputeco/docmem/pkg/extract"
	"github.com/papercomputeco/docmem/pkg/ingest"
	"github.com/papercomputeco/docmem/pkg/memory"
)

var _ = Describe("Classify", func() {
	DescribeTable("maps errors to their failure domain",
		func(err error, want ingest.Kind) {
			Expect(ingest.Classify(err)).To(Equal(want))
		},
		Entry("nil", nil, ingest.KindNone),
		Entry("config", &config.Error{Path: "docmem.toml"}, ingest.KindConfig),
		Entry("auth", fmt.Errorf("dial: %w", broker.ErrAuth), ingest.KindConnection),
		Entry("connection", broker.ErrConnection, ingest.KindConnection),
		Entry("unexpected", broker.ErrUnexpected, ingest.KindConnection),
		Entry("topology", broker.ErrTopologyNotFound, ingest.KindTopology),
		Entry("format", fmt.Errorf("%w: eof", ingest.ErrMessageFormat), ingest.KindFormat),
		Entry("access", &extract.AccessError{Path: "/x", Op: "stat", Err: errors.New("nope")}, ingest.KindAccess),
		Entry("store", &memory.StoreError{ID: "x", Op: "embed", Err: embeddings.ErrUnavailable}, ingest.KindStore),
		Entry("publish", &eventstream.PublishError{ID: "x", Err: broker.ErrNotConfirmed}, ingest.KindPublish),
		Entry("publish on a lost connection", &eventstream.PublishError{ID: "x", Err: broker.ErrConnectionLost}, ingest.KindConnection),
		Entry("publish to a missing exchange", &eventstream.PublishError{ID: "x", Err: broker.ErrTopologyNotFound}, ingest.KindTopology),
		Entry("canceled", fmt.Errorf("stop: %w", context.Canceled), ingest.KindCanceled),
		Entry("anything else", errors.New("boom"), ingest.KindUnknown),
	)

	It("names every kind", func() {
		Expect(ingest.KindStore.String()).To(Equal("store"))
		Expect(ingest.Kind(99).String()).To(Equal("unknown"))
	})
})

var _ = Describe("Retryable", func() {
	DescribeTable("reports whether another attempt may help",
		func(err error, want bool) {
			Expect(ingest.Retryable(err)).To(Equal(want))
		},
		Entry("nil", nil, false),
		Entry("canceled", context.Canceled, false),
		Entry("deadline", context.DeadlineExceeded, true),
		Entry("temporary store error", &memory.StoreError{Err: embeddings.ErrUnavailable}, true),
		Entry("permanent store error", &memory.StoreError{Err: errors.New("bad")}, false),
		Entry("temporary publish error", &eventstream.PublishError{Err: broker.ErrChannelClosed}, true),
		Entry("plain error", errors.New("boom"), false),
	)
})

var _ = Describe("Outcome", func() {
	It("has readable names", func() {
		Expect(ingest.Acknowledged.String()).To(Equal("acknowledged"))
		Expect(ingest.Skipped.String()).To(Equal("skipped"))
		Expect(ingest.Requeue.String()).To(Equal("requeue"))
		Expect(ingest.Fatal.String()).To(Equal("fatal"))
		Expect(ingest.Outcome(42).String()).To(Equal("unknown"))
	})
})

var _ = Describe("RetryWithBackoff", func() {
	var (
		ctx   context.Context
		calls int
	)

	always := func(error) bool { return true }
	never := func(error) bool { return false }

	BeforeEach(func() {
		ctx = context.Background()
		calls = 0
	})

	It("returns on the first success", func() {
		err := ingest.RetryWithBackoff(ctx, ingest.RetryPolicy{Attempts: 3}, always, func(context.Context) error {
			calls++
			return nil
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(calls).To(Equal(1))
	})

	It("uses every attempt and returns the last error", func() {
		err := ingest.RetryWithBackoff(ctx, ingest.RetryPolicy{Attempts: 3, Delay: time.Millisecond}, always, func(context.Context) error {
			calls++
			return fmt.Errorf("attempt %d", calls)
		})
		Expect(err).To(MatchError("attempt 3"))
		Expect(calls).To(Equal(3))
	})

	It("stops on an error that is not retryable", func() {
		err := ingest.RetryWithBackoff(ctx, ingest.RetryPolicy{Attempts: 5}, never, func(context.Context) error {
			calls++
			return errors.New("permanent")
		})
		Expect(err).To(MatchError("permanent"))
		Expect(calls).To(Equal(1))
	})

	It("treats zero attempts as one", func() {
		_ = ingest.RetryWithBackoff(ctx, ingest.RetryPolicy{}, always, func(context.Context) error {
			calls++
			return errors.New("x")
		})
		Expect(calls).To(Equal(1))
	})

	It("bounds each attempt with the timeout", func() {
		err := ingest.RetryWithBackoff(ctx, ingest.RetryPolicy{Attempts: 2, Timeout: 10 * time.Millisecond}, ingest.Retryable,
			func(ctx context.Context) error {
				calls++
				<-ctx.Done()
				return ctx.Err()
			})
		Expect(err).To(MatchError(context.DeadlineExceeded))
		Expect(calls).To(Equal(2))
	})

	It("stops waiting when the context is cancelled", func() {
		cctx, cancel := context.WithCancel(ctx)
		err := ingest.RetryWithBackoff(cctx, ingest.RetryPolicy{Attempts: 5, Delay: time.Hour}, always, func(context.Context) error {
			calls++
			cancel()
			return errors.New("x")
		})
		Expect(err).To(MatchError(context.Canceled))
		Expect(calls).To(Equal(1))
	})

	It("stops a pending backoff when the context is cancelled", func() {
		cctx, cancel := context.WithCancel(ctx)
		time.AfterFunc(20*time.Millisecond, cancel)

		err := ingest.RetryWithBackoff(cctx, ingest.RetryPolicy{Attempts: 5, Delay: time.Hour}, always, func(context.Context) error {
			calls++
			return errors.New("x")
		})
		Expect(err).To(MatchError(context.Canceled))
		Expect(calls).To(Equal(1))
	})

	It("does not hand a permanent wrapper back on the last attempt", func() {
		err := ingest.RetryWithBackoff(ctx, ingest.RetryPolicy{Attempts: 2}, always, func(context.Context) error {
			calls++
			return broker.ErrNotConfirmed
		})
		Expect(err).To(BeIdenticalTo(broker.ErrNotConfirmed))
		Expect(calls).To(Equal(2))
	})
})

var _ = Describe("ParseRequest", func() {
	It("decodes a valid request", func() {
		req, err := ingest.ParseRequest([]byte(`{"file_path": "/docs/a.pdf", "file_name": "a.pdf"}`))
		Expect(err).NotTo(HaveOccurred())
		Expect(req).To(Equal(ingest.AssimilationRequest{FilePath: "/docs/a.pdf", FileName: "a.pdf"}))
	})

	It("rejects a wrong field type", func() {
		_, err := ingest.ParseRequest([]byte(`{"file_path": 3, "file_name": "a"}`))
		Expect(err).To(MatchError(ingest.ErrMessageFormat))
	})

	It("rejects a missing file_path", func() {
		_, err := ingest.ParseRequest([]byte(`{"file_name": "a"}`))
		Expect(err).To(MatchError(ContainSubstring("missing file_path")))
	})
})
