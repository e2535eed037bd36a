package amqp

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/papercomputeco/docmem/pkg/broker"
)

// Consumer reads deliveries from one queue with manual acknowledgment.
type Consumer struct {
	ch       *amqp.Channel
	queue    string
	prefetch int
	closed   chan *amqp.Error
	logger   *slog.Logger

	mu  sync.Mutex
	err error
}

// NewConsumer opens a channel, checks that queue exists and limits
// unacknowledged deliveries to prefetch.
func (c *Conn) NewConsumer(queue string, prefetch int) (*Consumer, error) {
	ch, err := c.conn.Channel()
	if err != nil {
		return nil, classifyChannel(err)
	}

	if _, err := ch.QueueDeclarePassive(queue, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("looking up queue %q: %w", queue, classifyChannel(err))
	}

	if prefetch < 1 {
		prefetch = 1
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		ch.Close()
		return nil, fmt.Errorf("setting prefetch: %w", classifyChannel(err))
	}

	return &Consumer{
		ch:       ch,
		queue:    queue,
		prefetch: prefetch,
		closed:   ch.NotifyClose(make(chan *amqp.Error, 1)),
		logger:   c.logger,
	}, nil
}

// Deliveries implements broker.Source.
func (c *Consumer) Deliveries(ctx context.Context) (<-chan broker.Delivery, error) {
	msgs, err := c.ch.ConsumeWithContext(ctx, c.queue, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consuming %q: %w", c.queue, classifyChannel(err))
	}

	c.logger.Info("consuming queue", "queue", c.queue, "prefetch", c.prefetch)

	out := make(chan broker.Delivery)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-msgs:
				if !ok {
					c.lost(ctx)
					return
				}
				select {
				case out <- delivery{d: d}:
				case <-ctx.Done():
					_ = d.Nack(false, true)
					return
				}
			}
		}
	}()
	return out, nil
}

// lost records why the delivery stream ended when ctx is still live.
func (c *Consumer) lost(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	var err error = fmt.Errorf("%w: delivery channel closed", broker.ErrConnection)
	select {
	case reason, ok := <-c.closed:
		if ok && reason != nil {
			err = classifyChannel(reason)
		}
	default:
	}

	c.mu.Lock()
	c.err = err
	c.mu.Unlock()
}

// Err implements broker.Source.
func (c *Consumer) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Close closes the consumer channel. Unacknowledged deliveries are returned
// to the queue by the broker.
func (c *Consumer) Close() error {
	if c.ch.IsClosed() {
		return nil
	}
	return c.ch.Close()
}

type delivery struct {
	d amqp.Delivery
}

func (d delivery) Body() []byte      { return d.d.Body }
func (d delivery) MessageID() string { return d.d.MessageId }
func (d delivery) Ack() error        { return d.d.Ack(false) }

func (d delivery) Nack(requeue bool) error {
	return d.d.Nack(false, requeue)
}

var _ broker.Source = (*Consumer)(nil)
