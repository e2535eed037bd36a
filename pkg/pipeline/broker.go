package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/papercomputeco/docmem/pkg/broker"
	"github.com/papercomputeco/docmem/pkg/broker/amqp"
	"github.com/papercomputeco/docmem/pkg/broker/kafka"
	"github.com/papercomputeco/docmem/pkg/config"
)

// Broker hands out sources and producers for the configured provider. AMQP
// consumers and producers get separate connections so publisher flow
// control never stalls deliveries.
type Broker struct {
	cfg    config.BrokerConfig
	name   string
	logger *slog.Logger

	mu    sync.Mutex
	conns []*amqp.Conn
}

// NewBroker prepares a broker for cfg. name labels AMQP connections.
// Nothing is dialed until a source or producer is requested.
func NewBroker(cfg config.BrokerConfig, name string, logger *slog.Logger) *Broker {
	return &Broker{cfg: cfg, name: name, logger: logger}
}

func (b *Broker) dial(role string) (*amqp.Conn, error) {
	conn, err := amqp.Dial(b.cfg.AMQPURI(), b.name+"-"+role, b.logger)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	b.conns = append(b.conns, conn)
	b.mu.Unlock()
	return conn, nil
}

// Consumer returns the source of assimilation requests.
func (b *Broker) Consumer(ctx context.Context, prefetch int) (broker.Source, error) {
	switch b.cfg.Provider {
	case "kafka":
		c, err := kafka.NewConsumer(ctx, kafka.ConsumerConfig{
			Brokers: b.cfg.Brokers,
			Topic:   b.cfg.AssimilateQueue,
			GroupID: b.cfg.ConsumerGroup,
		}, b.logger)
		if err != nil {
			return nil, err
		}
		return c, nil
	case "amqp":
		conn, err := b.dial("consumer")
		if err != nil {
			return nil, err
		}
		c, err := conn.NewConsumer(b.cfg.AssimilateQueue, prefetch)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unsupported broker provider: %s", b.cfg.Provider)
	}
}

// MemoriesProducer returns the producer for memory events.
func (b *Broker) MemoriesProducer(ctx context.Context) (broker.Producer, error) {
	switch b.cfg.Provider {
	case "kafka":
		return producer(kafka.NewProducer(ctx, kafka.ProducerConfig{
			Brokers: b.cfg.Brokers,
			Topic:   b.cfg.MemoriesExchange,
		}, b.logger))
	case "amqp":
		conn, err := b.dial("publisher")
		if err != nil {
			return nil, err
		}
		return producer(conn.NewProducer(ctx, amqp.ProducerConfig{Exchange: b.cfg.MemoriesExchange}))
	default:
		return nil, fmt.Errorf("unsupported broker provider: %s", b.cfg.Provider)
	}
}

// RequestsProducer returns a producer that writes assimilation requests to
// queue. Over AMQP it publishes through the default exchange, so the routing
// key passed to Send must be the queue name.
func (b *Broker) RequestsProducer(ctx context.Context, queue string) (broker.Producer, error) {
	switch b.cfg.Provider {
	case "kafka":
		return producer(kafka.NewProducer(ctx, kafka.ProducerConfig{
			Brokers: b.cfg.Brokers,
			Topic:   queue,
		}, b.logger))
	case "amqp":
		conn, err := b.dial("enqueue")
		if err != nil {
			return nil, err
		}
		return producer(conn.NewProducer(ctx, amqp.ProducerConfig{Queue: queue}))
	default:
		return nil, fmt.Errorf("unsupported broker provider: %s", b.cfg.Provider)
	}
}

// producer keeps a failed constructor from leaking a typed nil.
func producer[P broker.Producer](p P, err error) (broker.Producer, error) {
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Close closes every AMQP connection opened by b. Sources and producers
// should be closed first.
func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var errs []error
	for _, c := range b.conns {
		errs = append(errs, c.Close())
	}
	b.conns = nil
	return errors.Join(errs...)
}
