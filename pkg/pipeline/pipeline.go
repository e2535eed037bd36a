// Package pipeline assembles docmem components from a loaded configuration.
// Commands construct each handle once here and own its lifetime.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/papercomputeco/docmem/pkg/chunker"
	"github.com/papercomputeco/docmem/pkg/config"
	"github.com/papercomputeco/docmem/pkg/embeddings"
	"github.com/papercomputeco/docmem/pkg/embeddings/embeddingutils"
	"github.com/papercomputeco/docmem/pkg/extract"
	"github.com/papercomputeco/docmem/pkg/ingest"
	"github.com/papercomputeco/docmem/pkg/ledger"
	"github.com/papercomputeco/docmem/pkg/ledger/ledgerutils"
	"github.com/papercomputeco/docmem/pkg/logger"
	"github.com/papercomputeco/docmem/pkg/memory"
	"github.com/papercomputeco/docmem/pkg/vector"
	"github.com/papercomputeco/docmem/pkg/vector/vectorutils"
)

// NewLogger builds the process logger on w. When cfg.File is set every record
// is also appended to that file as JSON; the returned closer releases it.
func NewLogger(cfg config.LoggerConfig, debug bool, w *os.File) (*slog.Logger, io.Closer, error) {
	debug = debug || cfg.Debug

	opts := append(logger.FormatOptions(cfg.Format, w), logger.WithWriter(w), logger.WithDebug(debug))
	log := logger.New(opts...)
	if cfg.File == "" {
		return log, nopCloser{}, nil
	}

	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	fileLog := logger.New(logger.WithJSON(true), logger.WithWriter(f), logger.WithDebug(debug))
	return logger.Multi(log, fileLog), f, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewChunker maps the chunker section onto a chunker.Chunker.
func NewChunker(cfg config.ChunkerConfig) (*chunker.Chunker, error) {
	return chunker.New(chunker.Config{
		Strategy:      chunker.Strategy(cfg.Strategy),
		WindowSize:    cfg.WindowSize,
		WindowOverlap: cfg.WindowOverlap,
	})
}

// Store bundles the vector store with the handles behind it.
type Store struct {
	*memory.VectorStore

	Driver   vector.Driver
	Embedder embeddings.Embedder
}

// Close releases the driver and the embedder.
func (s *Store) Close() error {
	return errors.Join(s.Driver.Close(), s.Embedder.Close())
}

// NewStore opens the embedder and the collection-bound vector driver.
func NewStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Store, error) {
	embedder, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
		ProviderType: cfg.Embedding.Provider,
		TargetURL:    cfg.Embedding.Target,
		Model:        cfg.Embedding.Model,
		Dimensions:   cfg.Embedding.Dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	driver, err := vectorutils.NewVectorDriver(ctx, &vectorutils.NewVectorDriverOpts{
		ProviderType: cfg.VectorStore.Provider,
		Target:       cfg.VectorStore.Target,
		Collection:   cfg.VectorStore.Collection,
		Dimensions:   cfg.Embedding.Dimensions,
		Logger:       log,
	})
	if err != nil {
		_ = embedder.Close()
		return nil, fmt.Errorf("opening vector store: %w", err)
	}

	return &Store{
		VectorStore: memory.NewVectorStore(embedder, driver, log),
		Driver:      driver,
		Embedder:    embedder,
	}, nil
}

// NewLedger opens the configured delivery ledger.
func NewLedger(ctx context.Context, cfg config.LedgerConfig, log *slog.Logger) (ledger.Driver, error) {
	d, err := ledgerutils.NewLedgerDriver(ctx, &ledgerutils.NewLedgerDriverOpts{
		ProviderType: cfg.Provider,
		Target:       cfg.Target,
		Logger:       log,
	})
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}
	return d, nil
}

// NewExtractor returns the extension registry with every built-in format.
func NewExtractor(log *slog.Logger) extract.Extractor {
	return extract.NewRegistry(log)
}

// RetryPolicies derives the store and publish policies from the ingest section.
func RetryPolicies(cfg config.IngestConfig) (store, publish ingest.RetryPolicy) {
	store = ingest.RetryPolicy{
		Attempts: cfg.MaxAttempts,
		Delay:    cfg.RetryDelay,
		Timeout:  cfg.StoreTimeout,
	}
	publish = ingest.RetryPolicy{
		Attempts: cfg.MaxAttempts,
		Delay:    cfg.RetryDelay,
		Timeout:  cfg.PublishTimeout,
	}
	return store, publish
}
