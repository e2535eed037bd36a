// Package worker provides the consumer pool that drains broker deliveries
// into the ingestion Orchestrator.
//
// Each worker settles its delivery by the returned outcome: acknowledged and
// skipped requests are acked, requeued and fatal ones are nacked back onto the
// queue. A fatal outcome stops the whole pool.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/papercomputeco/docmem/pkg/broker"
	"github.com/papercomputeco/docmem/pkg/ingest"
)

var defaultNumWorkers uint = 1

// Handler processes one delivery body.
type Handler interface {
	Handle(ctx context.Context, body []byte) (ingest.Outcome, error)
}

// Config is the configuration options for the worker pool.
type Config struct {
	// Source supplies deliveries. It is not closed by the pool.
	Source broker.Source

	// Handler decides the outcome of each delivery.
	Handler Handler

	// NumWorkers is the number of concurrent consumer loops (defaults to 1).
	NumWorkers uint

	Logger *slog.Logger
}

// Pool runs NumWorkers consumer loops over one delivery stream.
type Pool struct {
	config *Config
	wg     sync.WaitGroup
	logger *slog.Logger

	fatalOnce sync.Once
	fatal     error
}

// NewPool validates c. Workers start with Run.
func NewPool(c *Config) (*Pool, error) {
	if c.Source == nil || c.Handler == nil {
		return nil, errors.New("worker pool requires a source and a handler")
	}
	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}
	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	return &Pool{
		config: c,
		logger: c.Logger,
	}, nil
}

// Run consumes until ctx is cancelled, a delivery is fatal, or the source
// ends. It returns nil after cancellation, the fatal error, or why the source
// ended. In-flight deliveries are settled before Run returns.
func (p *Pool) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	deliveries, err := p.config.Source.Deliveries(ctx)
	if err != nil {
		return err
	}

	p.wg.Add(int(p.config.NumWorkers))
	for i := range p.config.NumWorkers {
		go p.worker(ctx, cancel, i, deliveries)
	}
	p.wg.Wait()

	if p.fatal != nil {
		return p.fatal
	}
	if ctx.Err() != nil {
		p.logger.Info("consumer stopped")
		return nil
	}
	if err := p.config.Source.Err(); err != nil {
		return err
	}
	return fmt.Errorf("%w: delivery stream ended", broker.ErrConnection)
}

// worker is the inner consumer loop that pulls deliveries until the stream
// closes or the pool is cancelled.
func (p *Pool) worker(ctx context.Context, cancel context.CancelFunc, id uint, deliveries <-chan broker.Delivery) {
	defer p.wg.Done()
	p.logger.Debug("worker started", "worker_id", id)

	for {
		select {
		case <-ctx.Done():
			p.logger.Debug("worker stopped", "worker_id", id)
			return
		case d, ok := <-deliveries:
			if !ok {
				p.logger.Debug("worker stopped, delivery stream closed", "worker_id", id)
				return
			}
			if err := p.process(ctx, d); err != nil {
				p.fatalOnce.Do(func() { p.fatal = err })
				cancel()
			}
		}
	}
}

// process hands one delivery to the handler and settles it. It returns the
// handler's error only for a fatal outcome.
func (p *Pool) process(ctx context.Context, d broker.Delivery) error {
	logger := p.logger.With("message_id", d.MessageID())

	outcome, err := p.config.Handler.Handle(ctx, d.Body())

	var settleErr error
	switch outcome {
	case ingest.Acknowledged:
		settleErr = d.Ack()
	case ingest.Skipped:
		logger.Warn("request skipped", "error", err, "kind", ingest.Classify(err))
		settleErr = d.Ack()
	case ingest.Requeue:
		if errors.Is(err, context.Canceled) {
			logger.Info("request interrupted by shutdown, requeueing")
		} else {
			logger.Warn("request requeued", "error", err, "kind", ingest.Classify(err))
		}
		settleErr = d.Nack(true)
	case ingest.Fatal:
		logger.Error("fatal error, stopping consumer", "error", err, "kind", ingest.Classify(err))
		if nackErr := d.Nack(true); nackErr != nil {
			logger.Warn("failed to requeue delivery", "error", nackErr)
		}
		if err == nil {
			err = errors.New("fatal outcome")
		}
		return err
	}

	if settleErr != nil {
		logger.Warn("failed to settle delivery", "outcome", outcome, "error", settleErr)
	}
	return nil
}
