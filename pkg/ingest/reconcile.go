package ingest

import (
	"context"
	"errors"
	"log/slog"

	"github.com/papercomputeco/docmem/pkg/eventstream"
	"github.com/papercomputeco/docmem/pkg/ledger"
)

// ErrNoLedger is returned when reconciliation is attempted without a ledger.
var ErrNoLedger = errors.New("ingest: reconciliation requires a ledger")

// ReconcilerConfig holds what reconciliation needs. It never touches the
// vector store: pending records already carry the stored content.
type ReconcilerConfig struct {
	Ledger    ledger.Driver
	Publisher eventstream.Publisher

	// RoutingKey is used for records stored without one.
	RoutingKey string

	Retry RetryPolicy

	// Stats receives ChunksPublished. Nil allocates a private set.
	Stats *Stats

	Logger *slog.Logger
}

// Reconciler publishes ledger records that were stored but never published.
type Reconciler struct {
	ledger     ledger.Driver
	publisher  eventstream.Publisher
	routingKey string
	retry      RetryPolicy
	stats      *Stats
	logger     *slog.Logger
}

func NewReconciler(c ReconcilerConfig) (*Reconciler, error) {
	switch {
	case c.Ledger == nil:
		return nil, ErrNoLedger
	case c.Publisher == nil:
		return nil, errors.New("ingest: publisher is required")
	case c.Logger == nil:
		return nil, errors.New("ingest: logger is required")
	}

	r := &Reconciler{
		ledger:     c.Ledger,
		publisher:  c.Publisher,
		routingKey: c.RoutingKey,
		retry:      c.Retry,
		stats:      c.Stats,
		logger:     c.Logger,
	}
	if r.stats == nil {
		r.stats = &Stats{}
	}
	return r, nil
}

// Reconcile republishes up to limit pending records, oldest first, and
// returns how many were published. It stops at the first failure. limit <= 0
// means every pending record.
func (r *Reconciler) Reconcile(ctx context.Context, limit int) (int, error) {
	pending, err := r.ledger.Pending(ctx, limit)
	if err != nil {
		return 0, err
	}

	published := 0
	for _, rec := range pending {
		routingKey := rec.RoutingKey
		if routingKey == "" {
			routingKey = r.routingKey
		}

		logger := r.logger.With("id", rec.ID, "file_path", rec.SourcePath, "ordinal", rec.Ordinal)
		if err := publishMemory(ctx, logger, r.publisher, r.ledger, r.stats, r.retry, rec.Memory(), routingKey); err != nil {
			return published, err
		}
		published++
	}

	r.logger.Info("reconciled ledger", "pending", len(pending), "published", published)
	return published, nil
}

// Reconcile runs a Reconciler over the Orchestrator's ledger and publisher.
func (o *Orchestrator) Reconcile(ctx context.Context, limit int) (int, error) {
	r, err := NewReconciler(ReconcilerConfig{
		Ledger:     o.ledger,
		Publisher:  o.publisher,
		RoutingKey: o.routingKey,
		Retry:      o.publishRetry,
		Stats:      o.stats,
		Logger:     o.logger,
	})
	if err != nil {
		return 0, err
	}
	return r.Reconcile(ctx, limit)
}
