package docmemcmder

import (
	"context"
	"expvar"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/docmem/api"
	"github.com/papercomputeco/docmem/pkg/config"
	"github.com/papercomputeco/docmem/pkg/eventstream"
	"github.com/papercomputeco/docmem/pkg/ingest"
	"github.com/papercomputeco/docmem/pkg/pipeline"
	"github.com/papercomputeco/docmem/pkg/utils"
	"github.com/papercomputeco/docmem/pkg/worker"
)

type runCommander struct {
	debug bool
}

var publishStatsOnce sync.Once

// run builds every handle once, then consumes until SIGINT/SIGTERM or a
// fatal outcome.
func (c *runCommander) run(ctx context.Context, cmd *cobra.Command, path string) error {
	cfg, err := config.LoadForCommand(cmd, path, runFlags)
	if err != nil {
		return err
	}

	logger, logCloser, err := pipeline.NewLogger(cfg.Logger, c.debug, os.Stderr)
	if err != nil {
		return err
	}
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	chunks, err := pipeline.NewChunker(cfg.Chunker)
	if err != nil {
		return err
	}

	store, err := pipeline.NewStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	ledger, err := pipeline.NewLedger(ctx, cfg.Ledger, logger)
	if err != nil {
		return err
	}
	defer ledger.Close()

	b := pipeline.NewBroker(cfg.Broker, "docmem", logger)
	defer b.Close()

	prefetch := cfg.Broker.Prefetch
	if prefetch == 0 {
		prefetch = cfg.Ingest.Workers
	}
	source, err := b.Consumer(ctx, prefetch)
	if err != nil {
		return err
	}
	defer source.Close()

	producer, err := b.MemoriesProducer(ctx)
	if err != nil {
		return err
	}
	publisher := eventstream.NewBrokerPublisher(producer, logger)
	defer publisher.Close()

	storeRetry, publishRetry := pipeline.RetryPolicies(cfg.Ingest)
	stats := &ingest.Stats{}
	orchestrator, err := ingest.New(ingest.Config{
		Extractor:    pipeline.NewExtractor(logger),
		Chunker:      chunks,
		Store:        store,
		Publisher:    publisher,
		Ledger:       ledger,
		RoutingKey:   cfg.Broker.MemoriesRoutingKey,
		StoreRetry:   storeRetry,
		PublishRetry: publishRetry,
		Stats:        stats,
		Logger:       logger,
	})
	if err != nil {
		return err
	}

	pool, err := worker.NewPool(&worker.Config{
		Source:     source,
		Handler:    orchestrator,
		NumWorkers: uint(cfg.Ingest.Workers),
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	if cfg.Status.Listen != "" {
		publishStatsOnce.Do(func() {
			expvar.Publish("docmem", expvar.Func(func() any { return stats.Snapshot() }))
		})

		server := api.NewServer(api.Config{
			ListenAddr: cfg.Status.Listen,
			Checks: map[string]api.Check{
				"vector_store": func(ctx context.Context) error {
					_, err := store.Driver.Count(ctx)
					return err
				},
				"ledger": func(ctx context.Context) error {
					_, err := ledger.Pending(ctx, 1)
					return err
				},
			},
		}, stats, logger)

		go func() {
			if err := server.Run(); err != nil {
				logger.Error("status server failed", "error", err)
			}
		}()
		defer func() {
			if err := server.Shutdown(); err != nil {
				logger.Warn("status server shutdown", "error", err)
			}
		}()
	}

	logger.Info("consuming assimilation requests",
		"provider", cfg.Broker.Provider,
		"queue", cfg.Broker.AssimilateQueue,
		"exchange", cfg.Broker.MemoriesExchange,
		"workers", cfg.Ingest.Workers,
		"strategy", chunks.Strategy(),
		"ledger", cfg.Ledger.Provider,
		utils.BuildAttr(),
	)

	if err := pool.Run(ctx); err != nil {
		logger.Error("consumer stopped", "error", err, "kind", ingest.Classify(err))
		return fmt.Errorf("consuming %s: %w", cfg.Broker.AssimilateQueue, err)
	}

	logger.Info("consumer stopped", "stats", stats.Snapshot())
	return nil
}
