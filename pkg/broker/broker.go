// Package broker defines the message broker boundary: a Source of inbound
// deliveries and a Producer of outbound messages. Drivers live in the amqp
// and kafka subpackages.
package broker

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrAuth is returned when the broker refuses the credentials or vhost.
	ErrAuth = errors.New("broker authentication failed")

	// ErrConnection is returned when the broker cannot be reached or the
	// connection drops.
	ErrConnection = errors.New("broker connection failed")

	// ErrConnectionLost is returned by a producer whose connection has been
	// closed. Reopening a channel cannot recover from it.
	ErrConnectionLost = errors.New("broker connection lost")

	// ErrUnexpected wraps any other connect failure.
	ErrUnexpected = errors.New("unexpected broker error")

	// ErrTopologyNotFound is returned when a queue, exchange or topic has not
	// been provisioned.
	ErrTopologyNotFound = errors.New("broker topology not found")

	// ErrChannelClosed marks a send that failed because the broker closed or
	// refused the channel. The producer must be reopened before retrying.
	ErrChannelClosed = errors.New("broker channel closed")

	// ErrNotConfirmed is returned when the broker negatively acknowledges a
	// published message.
	ErrNotConfirmed = errors.New("broker did not confirm message")
)

// Delivery is one inbound message. Exactly one of Ack or Nack must be called.
type Delivery interface {
	Body() []byte
	MessageID() string
	Ack() error
	Nack(requeue bool) error
}

// Source streams deliveries from one queue or topic.
type Source interface {
	// Deliveries starts consuming. The channel is closed when ctx is done or
	// the underlying connection is lost; Err then reports the cause.
	Deliveries(ctx context.Context) (<-chan Delivery, error)

	// Err returns the reason the delivery channel closed, or nil when it
	// closed because ctx was cancelled.
	Err() error

	Close() error
}

// Message is an outbound message.
type Message struct {
	Body        []byte
	ContentType string
	MessageID   string
	Timestamp   time.Time
}

// Producer sends messages to one exchange or topic. Send returns only after
// the broker has accepted the message.
type Producer interface {
	Send(ctx context.Context, routingKey string, msg Message) error
	Close() error
}

// Reopener is implemented by producers whose channel can be re-established
// after ErrChannelClosed. Reopen is idempotent: on a healthy channel it does
// nothing.
type Reopener interface {
	Reopen(ctx context.Context) error
}
