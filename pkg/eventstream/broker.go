package eventstream

import (
	"context"
	"errors"
	"log/slog"

	"github.com/papercomputeco/docmem/pkg/broker"
	"github.com/papercomputeco/docmem/pkg/memory"
)

// BrokerPublisher sends memory events through a broker producer.
type BrokerPublisher struct {
	producer broker.Producer
	logger   *slog.Logger
}

// NewBrokerPublisher wraps producer. The producer is closed by Close.
func NewBrokerPublisher(producer broker.Producer, logger *slog.Logger) *BrokerPublisher {
	return &BrokerPublisher{producer: producer, logger: logger}
}

// Publish sends one event for m. When the producer's channel was closed by
// the broker it is reopened before returning, so the caller's next attempt
// runs on a fresh channel. Failures are returned as *PublishError.
func (p *BrokerPublisher) Publish(ctx context.Context, m memory.Memory, routingKey string) error {
	if m.ID == "" {
		return &PublishError{RoutingKey: routingKey, Err: ErrInvalidMemory}
	}

	body, err := NewMemoryEvent(m).Marshal()
	if err != nil {
		return &PublishError{ID: m.ID, RoutingKey: routingKey, Err: err}
	}

	err = p.producer.Send(ctx, routingKey, broker.Message{
		Body:        body,
		ContentType: ContentType,
		MessageID:   m.ID,
		Timestamp:   m.CreatedAt,
	})
	if err == nil {
		p.logger.Debug("published memory event", "id", m.ID, "routing_key", routingKey)
		return nil
	}

	if errors.Is(err, broker.ErrChannelClosed) {
		if r, ok := p.producer.(broker.Reopener); ok {
			if rerr := r.Reopen(ctx); rerr != nil {
				p.logger.Warn("reopening publish channel failed", "error", rerr)
				err = errors.Join(err, rerr)
			}
		}
	}
	return &PublishError{ID: m.ID, RoutingKey: routingKey, Err: err}
}

// Close closes the underlying producer.
func (p *BrokerPublisher) Close() error {
	return p.producer.Close()
}

var _ Publisher = (*BrokerPublisher)(nil)
