// Package amqp implements the broker boundary on RabbitMQ (AMQP 0-9-1).
//
// Topology is never declared here: queues and exchanges are looked up
// passively and a missing one is reported as broker.ErrTopologyNotFound.
package amqp

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/papercomputeco/docmem/pkg/broker"
)

const defaultHeartbeat = 10 * time.Second

// Conn is one AMQP connection. Consumers and producers each open their own
// channel on it.
type Conn struct {
	conn   *amqp.Connection
	logger *slog.Logger
}

// Dial connects to uri. Failures are classified as broker.ErrAuth,
// broker.ErrConnection or broker.ErrUnexpected.
func Dial(uri, name string, logger *slog.Logger) (*Conn, error) {
	conn, err := amqp.DialConfig(uri, amqp.Config{
		Heartbeat:  defaultHeartbeat,
		Locale:     "en_US",
		Properties: amqp.Table{"connection_name": name},
	})
	if err != nil {
		return nil, classifyDial(err)
	}

	logger.Debug("connected to amqp broker", "connection_name", name)
	return &Conn{conn: conn, logger: logger}, nil
}

// Close closes the connection and every channel opened on it.
func (c *Conn) Close() error {
	if c.conn.IsClosed() {
		return nil
	}
	return c.conn.Close()
}

func classifyDial(err error) error {
	var aerr *amqp.Error
	switch {
	case errors.Is(err, amqp.ErrCredentials), errors.Is(err, amqp.ErrSASL), errors.Is(err, amqp.ErrVhost):
		return fmt.Errorf("%w: %w", broker.ErrAuth, err)
	case errors.As(err, &aerr) && (aerr.Code == amqp.AccessRefused || aerr.Code == amqp.NotAllowed):
		return fmt.Errorf("%w: %w", broker.ErrAuth, err)
	case isNetworkError(err):
		return fmt.Errorf("%w: %w", broker.ErrConnection, err)
	default:
		return fmt.Errorf("%w: %w", broker.ErrUnexpected, err)
	}
}

func isNetworkError(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET)
}

// classifyChannel maps a channel-level error onto the broker sentinels.
// NotFound also closes the channel, so it carries both markers.
func classifyChannel(err error) error {
	var aerr *amqp.Error
	if !errors.As(err, &aerr) {
		if isNetworkError(err) {
			return fmt.Errorf("%w: %w", broker.ErrConnection, err)
		}
		return err
	}

	switch aerr.Code {
	case amqp.NotFound:
		return fmt.Errorf("%w: %w: %w", broker.ErrTopologyNotFound, broker.ErrChannelClosed, err)
	case amqp.AccessRefused, amqp.ChannelError, amqp.UnexpectedFrame, amqp.PreconditionFailed:
		return fmt.Errorf("%w: %w", broker.ErrChannelClosed, err)
	case amqp.ConnectionForced, amqp.FrameError, amqp.InternalError:
		return fmt.Errorf("%w: %w", broker.ErrConnection, err)
	default:
		return fmt.Errorf("%w: %w", broker.ErrUnexpected, err)
	}
}
