// Package ingest turns assimilation requests into stored and published
// memories.
//
// The Orchestrator handles one request at a time per caller: validate, stat,
// extract, chunk, then store and publish each chunk in ordinal order. Its
// Outcome tells the consumer how to settle the delivery.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/papercomputeco/docmem/pkg/chunker"
	"github.com/papercomputeco/docmem/pkg/eventstream"
	"github.com/papercomputeco/docmem/pkg/extract"
	"github.com/papercomputeco/docmem/pkg/ledger"
	"github.com/papercomputeco/docmem/pkg/memory"
)

// Config holds the Orchestrator's collaborators and limits.
type Config struct {
	Extractor extract.Extractor
	Chunker   *chunker.Chunker
	Store     memory.Store
	Publisher eventstream.Publisher

	// Ledger tracks stored and published chunks. Nil disables the
	// skip-if-published check and reconciliation.
	Ledger ledger.Driver

	// RoutingKey is used for every published event.
	RoutingKey string

	StoreRetry   RetryPolicy
	PublishRetry RetryPolicy

	// Stats receives outcome counters. Nil allocates a private set.
	Stats *Stats

	// Now stamps new memories. Defaults to time.Now.
	Now func() time.Time

	Logger *slog.Logger
}

// Orchestrator is safe for concurrent use; each call to Handle is
// independent.
type Orchestrator struct {
	extractor  extract.Extractor
	chunker    *chunker.Chunker
	store      memory.Store
	publisher  eventstream.Publisher
	ledger     ledger.Driver
	routingKey string

	storeRetry   RetryPolicy
	publishRetry RetryPolicy

	stats  *Stats
	now    func() time.Time
	logger *slog.Logger
}

// New validates c and returns an Orchestrator.
func New(c Config) (*Orchestrator, error) {
	switch {
	case c.Extractor == nil:
		return nil, errors.New("ingest: extractor is required")
	case c.Chunker == nil:
		return nil, errors.New("ingest: chunker is required")
	case c.Store == nil:
		return nil, errors.New("ingest: store is required")
	case c.Publisher == nil:
		return nil, errors.New("ingest: publisher is required")
	case c.Logger == nil:
		return nil, errors.New("ingest: logger is required")
	}

	o := &Orchestrator{
		extractor:    c.Extractor,
		chunker:      c.Chunker,
		store:        c.Store,
		publisher:    c.Publisher,
		ledger:       c.Ledger,
		routingKey:   c.RoutingKey,
		storeRetry:   c.StoreRetry,
		publishRetry: c.PublishRetry,
		stats:        c.Stats,
		now:          c.Now,
		logger:       c.Logger,
	}
	if o.stats == nil {
		o.stats = &Stats{}
	}
	if o.now == nil {
		o.now = time.Now
	}
	return o, nil
}

// Stats returns the counters the Orchestrator updates.
func (o *Orchestrator) Stats() *Stats {
	return o.stats
}

// Handle processes one inbound message body. The returned error explains any
// outcome other than Acknowledged.
func (o *Orchestrator) Handle(ctx context.Context, body []byte) (Outcome, error) {
	outcome, err := o.handle(ctx, body)
	o.stats.record(outcome)
	return outcome, err
}

func (o *Orchestrator) handle(ctx context.Context, body []byte) (Outcome, error) {
	req, err := ParseRequest(body)
	if err != nil {
		o.logger.Warn("skipping malformed request", "error", err)
		return Skipped, err
	}

	logger := o.logger.With("file_path", req.FilePath, "file_name", req.FileName)

	info, err := os.Stat(req.FilePath)
	if err != nil {
		err = &extract.AccessError{Path: req.FilePath, Op: "stat", Err: err}
		logger.Warn("skipping unreadable file", "error", err)
		return Skipped, err
	}
	if info.IsDir() {
		err = &extract.AccessError{Path: req.FilePath, Op: "stat", Err: errors.New("is a directory")}
		logger.Warn("skipping directory", "error", err)
		return Skipped, err
	}

	pages, err := o.extractor.Extract(ctx, req.FilePath)
	if err != nil {
		if ctx.Err() != nil {
			return Requeue, ctx.Err()
		}
		logger.Warn("skipping file that could not be extracted", "error", err)
		return Skipped, err
	}

	chunks := o.chunker.Chunk(req.FilePath, extract.Join(pages))
	logger.Info("assimilating file", "pages", len(pages), "chunks", len(chunks), "strategy", o.chunker.Strategy())

	for _, c := range chunks {
		if outcome, err := o.chunk(ctx, logger, req, c); err != nil {
			return outcome, err
		}
	}

	logger.Info("file assimilated", "chunks", len(chunks))
	return Acknowledged, nil
}

// chunk stores and publishes one chunk. It returns a nil error on success.
func (o *Orchestrator) chunk(ctx context.Context, logger *slog.Logger, req AssimilationRequest, c chunker.TextChunk) (Outcome, error) {
	m := memory.New(c.SourcePath, c.Ordinal, c.Content, o.now())
	logger = logger.With("id", m.ID, "ordinal", c.Ordinal)

	stored := false
	if o.ledger != nil {
		rec, err := o.ledger.Get(ctx, m.ID)
		switch {
		case err == nil && rec.State == ledger.StatePublished:
			logger.Debug("chunk already published")
			o.stats.ChunksSkipped.Add(1)
			return Acknowledged, nil
		case err == nil:
			// stored by an earlier delivery; republish the original event
			m = rec.Memory()
			stored = true
		case !errors.Is(err, ledger.ErrNotFound):
			return o.failure(ctx, fmt.Errorf("reading ledger: %w", err), Requeue)
		}
	}

	if !stored {
		metadata := memory.NewMetadata(c.SourcePath, req.FileName, c.Ordinal, m.CreatedAt)
		err := RetryWithBackoff(ctx, o.storeRetry, retryable(logger, "store"), func(ctx context.Context) error {
			return o.store.Upsert(ctx, m.ID, m.Content, metadata)
		})
		if err != nil {
			if Rejected(err) && ctx.Err() == nil {
				logger.Warn("skipping file with a chunk the embedder rejected", "error", err)
				return Skipped, err
			}
			logger.Error("storing chunk failed", "error", err)
			return o.failure(ctx, err, Fatal)
		}
		o.stats.ChunksStored.Add(1)

		if o.ledger != nil {
			if err := o.ledger.MarkStored(ctx, ledger.NewRecord(m, c.SourcePath, c.Ordinal, o.routingKey)); err != nil {
				return o.failure(ctx, fmt.Errorf("recording stored chunk: %w", err), Requeue)
			}
		}
	}

	if err := o.publish(ctx, logger, m, o.routingKey); err != nil {
		return o.failure(ctx, err, Fatal)
	}
	return Acknowledged, nil
}

func (o *Orchestrator) publish(ctx context.Context, logger *slog.Logger, m memory.Memory, routingKey string) error {
	return publishMemory(ctx, logger, o.publisher, o.ledger, o.stats, o.publishRetry, m, routingKey)
}

// publishMemory publishes m with retries, then marks it published in led
// when there is one.
func publishMemory(ctx context.Context, logger *slog.Logger, p eventstream.Publisher, led ledger.Driver, stats *Stats, policy RetryPolicy, m memory.Memory, routingKey string) error {
	err := RetryWithBackoff(ctx, policy, retryable(logger, "publish"), func(ctx context.Context) error {
		return p.Publish(ctx, m, routingKey)
	})
	if err != nil {
		logger.Error("publishing chunk failed", "error", err)
		return err
	}
	stats.ChunksPublished.Add(1)

	if led != nil {
		if err := led.MarkPublished(ctx, m.ID); err != nil {
			// the event is out; a later redelivery republishes it
			logger.Warn("recording published chunk failed", "error", err)
		}
	}
	return nil
}

// failure maps err to an outcome. Cancellation and retryable failures
// requeue; anything else gets permanent.
func (o *Orchestrator) failure(ctx context.Context, err error, permanent Outcome) (Outcome, error) {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return Requeue, err
	}
	if Retryable(err) {
		return Requeue, err
	}
	return permanent, err
}

func retryable(logger *slog.Logger, op string) func(error) bool {
	return func(err error) bool {
		ok := Retryable(err)
		if ok {
			logger.Warn("retrying "+op, "error", err, "kind", Classify(err))
		}
		return ok
	}
}
