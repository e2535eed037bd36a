package kafka

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/papercomputeco/docmem/pkg/broker"
)

const commitTimeout = 10 * time.Second

// ConsumerConfig selects the topic and consumer group to read.
type ConsumerConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

// Consumer reads a topic through a consumer group. Offsets are committed only
// on Ack or Nack without requeue.
type Consumer struct {
	cfg    kafka.ReaderConfig
	logger *slog.Logger

	mu     sync.Mutex
	reader *kafka.Reader
	err    error
}

// NewConsumer checks that the topic exists and joins the group.
func NewConsumer(ctx context.Context, cfg ConsumerConfig, logger *slog.Logger) (*Consumer, error) {
	if err := checkTopic(ctx, cfg.Brokers, cfg.Topic); err != nil {
		return nil, err
	}

	rc := kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	}
	return &Consumer{
		cfg:    rc,
		logger: logger,
		reader: kafka.NewReader(rc),
	}, nil
}

func (c *Consumer) current() *kafka.Reader {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reader
}

// Deliveries implements broker.Source.
func (c *Consumer) Deliveries(ctx context.Context) (<-chan broker.Delivery, error) {
	c.logger.Info("consuming topic", "topic", c.cfg.Topic, "group", c.cfg.GroupID)

	out := make(chan broker.Delivery)
	go func() {
		defer close(out)
		for {
			r := c.current()
			msg, err := r.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				if c.current() != r {
					// rewound by a requeue; continue on the fresh reader
					continue
				}
				c.mu.Lock()
				c.err = classify(err)
				c.mu.Unlock()
				return
			}

			select {
			case out <- &delivery{c: c, r: r, msg: msg}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// rewind replaces r with a fresh reader so the group resumes from the last
// committed offset. It is a no-op when r was already replaced.
func (c *Consumer) rewind(r *kafka.Reader) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.reader != r {
		return nil
	}
	c.reader = kafka.NewReader(c.cfg)
	c.logger.Debug("rewinding kafka reader", "topic", c.cfg.Topic)
	return r.Close()
}

// Err implements broker.Source.
func (c *Consumer) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Close leaves the consumer group.
func (c *Consumer) Close() error {
	return c.current().Close()
}

type delivery struct {
	c   *Consumer
	r   *kafka.Reader
	msg kafka.Message
}

func (d *delivery) Body() []byte { return d.msg.Value }

func (d *delivery) MessageID() string {
	for _, h := range d.msg.Headers {
		if h.Key == headerMessageID {
			return string(h.Value)
		}
	}
	return d.msg.Topic + "/" + strconv.Itoa(d.msg.Partition) + "/" + strconv.FormatInt(d.msg.Offset, 10)
}

func (d *delivery) Ack() error {
	ctx, cancel := context.WithTimeout(context.Background(), commitTimeout)
	defer cancel()
	return classify(d.r.CommitMessages(ctx, d.msg))
}

func (d *delivery) Nack(requeue bool) error {
	if !requeue {
		return d.Ack()
	}
	return d.c.rewind(d.r)
}

var _ broker.Source = (*Consumer)(nil)
