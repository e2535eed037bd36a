package eventstream_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/docmem/pkg/broker"
	"github.com/papercomputeco/docmem/pkg/eventstream"
	"github.com/papercomputeco/docmem/pkg/logger"
	"github.com/papercomputeco/docmem/pkg/memory"
	testutils "github.com/papercomputeco/docmem/pkg/utils/test"
)

var _ = Describe("MemoryEvent", func() {
	It("marshals exactly id, created_at and content", func() {
		local := time.FixedZone("CEST", 2*60*60)
		m := memory.Memory{
			ID:        "9b2f0c1e-0000-5000-8000-000000000000",
			CreatedAt: time.Date(2025, 6, 1, 14, 30, 0, 0, local),
			Content:   "Hello world",
		}

		body, err := eventstream.NewMemoryEvent(m).Marshal()
		Expect(err).NotTo(HaveOccurred())

		var got map[string]any
		Expect(json.Unmarshal(body, &got)).To(Succeed())
		Expect(got).To(Equal(map[string]any{
			"id":         m.ID,
			"created_at": "2025-06-01T12:30:00Z",
			"content":    "Hello world",
		}))
	})
})

var _ = Describe("BrokerPublisher", func() {
	var (
		ctx      context.Context
		producer *testutils.MockProducer
		pub      *eventstream.BrokerPublisher
		mem      memory.Memory
	)

	BeforeEach(func() {
		ctx = context.Background()
		producer = testutils.NewMockProducer()
		pub = eventstream.NewBrokerPublisher(producer, logger.Nop())
		mem = memory.New("/docs/a.txt", 0, "Hello world", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	})

	It("sends one persistent JSON message keyed by the memory id", func() {
		Expect(pub.Publish(ctx, mem, "memories.new")).To(Succeed())

		sent := producer.Snapshot()
		Expect(sent).To(HaveLen(1))
		Expect(sent[0].RoutingKey).To(Equal("memories.new"))
		Expect(sent[0].Message.MessageID).To(Equal(mem.ID))
		Expect(sent[0].Message.ContentType).To(Equal(eventstream.ContentType))

		var ev eventstream.MemoryEvent
		Expect(json.Unmarshal(sent[0].Message.Body, &ev)).To(Succeed())
		Expect(ev.ID).To(Equal(mem.ID))
		Expect(ev.Content).To(Equal("Hello world"))
		Expect(ev.CreatedAt).To(Equal("2025-01-01T00:00:00Z"))
	})

	It("rejects a memory without an id", func() {
		err := pub.Publish(ctx, memory.Memory{Content: "x"}, "k")
		Expect(err).To(MatchError(eventstream.ErrInvalidMemory))
		Expect(producer.Snapshot()).To(BeEmpty())
	})

	It("reopens the channel after the broker closed it", func() {
		producer.Errs = []error{fmt.Errorf("%w: 504", broker.ErrChannelClosed)}

		err := pub.Publish(ctx, mem, "k")
		var perr *eventstream.PublishError
		Expect(errors.As(err, &perr)).To(BeTrue())
		Expect(perr.ID).To(Equal(mem.ID))
		Expect(perr.Temporary()).To(BeTrue())
		Expect(producer.Reopens).To(Equal(1))

		Expect(pub.Publish(ctx, mem, "k")).To(Succeed())
		Expect(producer.Snapshot()).To(HaveLen(1))
	})

	It("does not reopen for other failures", func() {
		producer.Errs = []error{broker.ErrNotConfirmed}
		err := pub.Publish(ctx, mem, "k")
		Expect(err).To(MatchError(broker.ErrNotConfirmed))
		Expect(producer.Reopens).To(BeZero())
	})

	It("reports the reopen failure alongside the publish failure", func() {
		producer.Errs = []error{broker.ErrChannelClosed}
		producer.ReopenErr = fmt.Errorf("%w: exchange gone", broker.ErrTopologyNotFound)

		err := pub.Publish(ctx, mem, "k")
		Expect(err).To(MatchError(broker.ErrChannelClosed))
		Expect(err).To(MatchError(broker.ErrTopologyNotFound))

		var perr *eventstream.PublishError
		Expect(errors.As(err, &perr)).To(BeTrue())
		Expect(perr.Temporary()).To(BeFalse())
	})

	It("gives up when the producer's connection is gone", func() {
		producer.Errs = []error{broker.ErrChannelClosed}
		producer.ReopenErr = fmt.Errorf("%w: channel/connection is not open", broker.ErrConnectionLost)

		err := pub.Publish(ctx, mem, "k")
		Expect(err).To(MatchError(broker.ErrConnectionLost))

		var perr *eventstream.PublishError
		Expect(errors.As(err, &perr)).To(BeTrue())
		Expect(perr.Temporary()).To(BeFalse())
	})

	It("closes the producer", func() {
		Expect(pub.Close()).To(Succeed())
		Expect(producer.Closed).To(BeTrue())
	})
})

var _ = Describe("PublishError", func() {
	DescribeTable("Temporary",
		func(err error, want bool) {
			Expect((&eventstream.PublishError{ID: "x", Err: err}).Temporary()).To(Equal(want))
		},
		Entry("closed channel", broker.ErrChannelClosed, true),
		Entry("dropped connection", broker.ErrConnection, true),
		Entry("negative confirm", broker.ErrNotConfirmed, true),
		Entry("timeout", context.DeadlineExceeded, true),
		Entry("missing exchange that closed the channel",
			fmt.Errorf("%w: %w", broker.ErrTopologyNotFound, broker.ErrChannelClosed), false),
		Entry("auth", broker.ErrAuth, false),
		Entry("closed producer connection", broker.ErrConnectionLost, false),
		Entry("unknown", errors.New("boom"), false),
	)
})
