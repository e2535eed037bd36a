package nop

import (
	"context"

	"github.com/papercomputeco/docmem/pkg/eventstream"
	"github.com/papercomputeco/docmem/pkg/memory"
)

// Publisher is a no-op eventstream publisher used for dry runs and tests.
type Publisher struct{}

// NewPublisher creates a new no-op eventstream publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// Publish validates input and otherwise does nothing.
func (p *Publisher) Publish(_ context.Context, m memory.Memory, routingKey string) error {
	if m.ID == "" {
		return &eventstream.PublishError{RoutingKey: routingKey, Err: eventstream.ErrInvalidMemory}
	}

	return nil
}

// Close is a no-op.
func (p *Publisher) Close() error {
	return nil
}

var _ eventstream.Publisher = (*Publisher)(nil)
