package amqp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/papercomputeco/docmem/pkg/broker"
)

// Producer publishes persistent messages to one exchange on a dedicated
// channel in publisher-confirm mode.
type Producer struct {
	conn     *amqp.Connection
	exchange string
	queue    string
	logger   *slog.Logger

	mu sync.Mutex
	ch *amqp.Channel
}

// ProducerConfig selects the publish target.
type ProducerConfig struct {
	// Exchange receives every message. Empty means the default exchange,
	// where the routing key is the queue name.
	Exchange string

	// Queue, when set, is checked passively on open. Use it with the default
	// exchange.
	Queue string
}

// NewProducer opens the confirm-mode channel and checks the target topology.
func (c *Conn) NewProducer(ctx context.Context, cfg ProducerConfig) (*Producer, error) {
	p := &Producer{
		conn:     c.conn,
		exchange: cfg.Exchange,
		queue:    cfg.Queue,
		logger:   c.logger,
	}
	if err := p.Reopen(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

// Reopen implements broker.Reopener. It opens a fresh channel when the
// current one is missing or closed and re-checks the topology.
func (p *Producer) Reopen(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch != nil && !p.ch.IsClosed() {
		return nil
	}
	if p.conn.IsClosed() {
		return fmt.Errorf("%w: %w", broker.ErrConnectionLost, amqp.ErrClosed)
	}

	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("opening channel: %w", classifyChannel(err))
	}

	if p.exchange != "" {
		if err := ch.ExchangeDeclarePassive(p.exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
			return fmt.Errorf("looking up exchange %q: %w", p.exchange, classifyChannel(err))
		}
	}
	if p.queue != "" {
		if _, err := ch.QueueDeclarePassive(p.queue, true, false, false, false, nil); err != nil {
			return fmt.Errorf("looking up queue %q: %w", p.queue, classifyChannel(err))
		}
	}

	if err := ch.Confirm(false); err != nil {
		ch.Close()
		return fmt.Errorf("enabling publisher confirms: %w", classifyChannel(err))
	}

	if p.ch != nil {
		p.logger.Info("reopened amqp channel", "exchange", p.exchange)
	}
	p.ch = ch
	return nil
}

func (p *Producer) channel() *amqp.Channel {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ch
}

// Send publishes msg and waits for the broker's confirm.
func (p *Producer) Send(ctx context.Context, routingKey string, msg broker.Message) error {
	ch := p.channel()
	if ch == nil || ch.IsClosed() {
		if p.conn.IsClosed() {
			return fmt.Errorf("%w: %w", broker.ErrConnectionLost, amqp.ErrClosed)
		}
		return fmt.Errorf("%w: %w", broker.ErrChannelClosed, amqp.ErrClosed)
	}

	contentType := msg.ContentType
	if contentType == "" {
		contentType = "application/json"
	}

	dc, err := ch.PublishWithDeferredConfirmWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  contentType,
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.MessageID,
		Timestamp:    msg.Timestamp,
		Body:         msg.Body,
	})
	if err != nil {
		return classifyChannel(err)
	}

	ok, err := dc.WaitContext(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return classifyChannel(err)
	}
	if !ok {
		return fmt.Errorf("%w: delivery tag %d", broker.ErrNotConfirmed, dc.DeliveryTag)
	}
	return nil
}

// Close closes the producer channel.
func (p *Producer) Close() error {
	ch := p.channel()
	if ch == nil || ch.IsClosed() {
		return nil
	}
	return ch.Close()
}

var (
	_ broker.Producer = (*Producer)(nil)
	_ broker.Reopener = (*Producer)(nil)
)
