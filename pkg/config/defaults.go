package config

import "time"

const (
	defaultBrokerProvider     = "amqp"
	defaultBrokerHost         = "localhost"
	defaultAssimilateQueue    = "assimilate_file"
	defaultMemoriesExchange   = "memories"
	defaultMemoriesRoutingKey = "memories.document"
	defaultConsumerGroup      = "docmem"

	defaultVectorProvider   = "sqlite"
	defaultVectorTarget     = "docmem-vectors.db"
	defaultVectorCollection = "documents"

	defaultEmbeddingProvider   = "ollama"
	defaultEmbeddingModel      = "embeddinggemma"
	defaultEmbeddingDimensions = 768
	defaultEmbeddingTarget     = "http://localhost:11434"

	defaultChunkerStrategy = "sentence"
	defaultWindowSize      = 1000
	defaultWindowOverlap   = 200

	defaultWorkers        = 1
	defaultStoreTimeout   = 30 * time.Second
	defaultPublishTimeout = 10 * time.Second
	defaultMaxAttempts    = 5
	defaultRetryDelay     = 500 * time.Millisecond

	defaultLedgerProvider = "inmemory"

	defaultLoggerFormat = "auto"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Broker: BrokerConfig{
			Provider:           defaultBrokerProvider,
			Host:               defaultBrokerHost,
			AssimilateQueue:    defaultAssimilateQueue,
			MemoriesExchange:   defaultMemoriesExchange,
			MemoriesRoutingKey: defaultMemoriesRoutingKey,
			ConsumerGroup:      defaultConsumerGroup,
		},
		VectorStore: VectorStoreConfig{
			Provider:   defaultVectorProvider,
			Target:     defaultVectorTarget,
			Collection: defaultVectorCollection,
		},
		Embedding: EmbeddingConfig{
			Provider:   defaultEmbeddingProvider,
			Target:     defaultEmbeddingTarget,
			Model:      defaultEmbeddingModel,
			Dimensions: defaultEmbeddingDimensions,
		},
		Chunker: ChunkerConfig{
			Strategy:      defaultChunkerStrategy,
			WindowSize:    defaultWindowSize,
			WindowOverlap: defaultWindowOverlap,
		},
		Ingest: IngestConfig{
			Workers:        defaultWorkers,
			StoreTimeout:   defaultStoreTimeout,
			PublishTimeout: defaultPublishTimeout,
			MaxAttempts:    defaultMaxAttempts,
			RetryDelay:     defaultRetryDelay,
		},
		Ledger: LedgerConfig{
			Provider: defaultLedgerProvider,
		},
		Logger: LoggerConfig{
			Format: defaultLoggerFormat,
		},
	}
}
