package kafka

import (
	"context"
	"log/slog"
	"sync"

	"github.com/segmentio/kafka-go"

	"github.com/papercomputeco/docmem/pkg/broker"
)

const (
	headerContentType = "content-type"
	headerMessageID   = "message-id"
)

// ProducerConfig selects the topic every message is written to.
type ProducerConfig struct {
	Brokers []string
	Topic   string
}

// Producer writes to one topic, waiting for all in-sync replicas.
type Producer struct {
	cfg    ProducerConfig
	logger *slog.Logger

	mu     sync.Mutex
	writer *kafka.Writer
}

// NewProducer checks that the topic exists and builds the writer.
func NewProducer(ctx context.Context, cfg ProducerConfig, logger *slog.Logger) (*Producer, error) {
	if err := checkTopic(ctx, cfg.Brokers, cfg.Topic); err != nil {
		return nil, err
	}
	return &Producer{cfg: cfg, logger: logger, writer: newWriter(cfg)}, nil
}

func newWriter(cfg ProducerConfig) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}
}

func (p *Producer) current() *kafka.Writer {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.writer
}

// Send writes msg keyed by routingKey, so one key always lands on one
// partition.
func (p *Producer) Send(ctx context.Context, routingKey string, msg broker.Message) error {
	contentType := msg.ContentType
	if contentType == "" {
		contentType = "application/json"
	}

	km := kafka.Message{
		Key:   []byte(routingKey),
		Value: msg.Body,
		Time:  msg.Timestamp,
		Headers: []kafka.Header{
			{Key: headerContentType, Value: []byte(contentType)},
		},
	}
	if msg.MessageID != "" {
		km.Headers = append(km.Headers, kafka.Header{Key: headerMessageID, Value: []byte(msg.MessageID)})
	}

	if err := p.current().WriteMessages(ctx, km); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return classify(err)
	}
	return nil
}

// Reopen implements broker.Reopener by re-checking the topic and replacing
// the writer.
func (p *Producer) Reopen(ctx context.Context) error {
	if err := checkTopic(ctx, p.cfg.Brokers, p.cfg.Topic); err != nil {
		return err
	}

	p.mu.Lock()
	old := p.writer
	p.writer = newWriter(p.cfg)
	p.mu.Unlock()

	p.logger.Info("reopened kafka writer", "topic", p.cfg.Topic)
	return old.Close()
}

// Close flushes and closes the writer.
func (p *Producer) Close() error {
	return p.current().Close()
}

var (
	_ broker.Producer = (*Producer)(nil)
	_ broker.Reopener = (*Producer)(nil)
)
