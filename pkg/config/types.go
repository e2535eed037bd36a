package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Config represents the docmem configuration file passed on the command line.
// The TOML layout uses sections for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Broker      BrokerConfig      `toml:"broker"`
	VectorStore VectorStoreConfig `toml:"vector_store"`
	Embedding   EmbeddingConfig   `toml:"embedding"`
	Chunker     ChunkerConfig     `toml:"chunker"`
	Ingest      IngestConfig      `toml:"ingest"`
	Ledger      LedgerConfig      `toml:"ledger"`
	Status      StatusConfig      `toml:"status"`
	Logger      LoggerConfig      `toml:"logger"`
}

// BrokerConfig holds message broker connection and topology names.
// Topology is provisioned elsewhere; docmem only checks that it exists.
type BrokerConfig struct {
	// Provider is the broker backend: "amqp" or "kafka".
	Provider string `toml:"provider,omitempty"`

	// URI is a full AMQP URI. When set it overrides Host, User, Password and VHost.
	URI      string `toml:"uri,omitempty"`
	Host     string `toml:"host,omitempty"`
	User     string `toml:"user,omitempty"`
	Password string `toml:"password,omitempty"`
	VHost    string `toml:"vhost,omitempty"`

	// Brokers lists kafka bootstrap addresses.
	Brokers []string `toml:"brokers,omitempty"`

	AssimilateQueue    string `toml:"assimilate_queue,omitempty"`
	MemoriesExchange   string `toml:"memories_exchange,omitempty"`
	MemoriesRoutingKey string `toml:"memories_routing_key,omitempty"`

	// ConsumerGroup is the kafka consumer group id.
	ConsumerGroup string `toml:"consumer_group,omitempty"`

	// Prefetch bounds unacknowledged deliveries. Zero means one per worker.
	Prefetch int `toml:"prefetch,omitempty"`
}

// VectorStoreConfig holds vector store settings.
type VectorStoreConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Collection string `toml:"collection,omitempty"`

	// DatabaseType is the legacy selector: 1 for in-memory, 2 for on-file.
	// It is only consulted when Provider is empty.
	DatabaseType int `toml:"database_type,omitempty"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Model      string `toml:"model,omitempty"`
	Dimensions uint   `toml:"dimensions,omitempty"`
}

// ChunkerConfig selects the segmentation strategy.
type ChunkerConfig struct {
	Strategy      string `toml:"strategy,omitempty"`
	WindowSize    int    `toml:"window_size,omitempty"`
	WindowOverlap int    `toml:"window_overlap,omitempty"`
}

// IngestConfig tunes the consumer loop.
type IngestConfig struct {
	Workers        int           `toml:"workers,omitempty"`
	StoreTimeout   time.Duration `toml:"store_timeout,omitempty"`
	PublishTimeout time.Duration `toml:"publish_timeout,omitempty"`
	MaxAttempts    int           `toml:"max_attempts,omitempty"`
	RetryDelay     time.Duration `toml:"retry_delay,omitempty"`
}

// LedgerConfig selects the delivery ledger backend.
type LedgerConfig struct {
	Provider string `toml:"provider,omitempty"`
	Target   string `toml:"target,omitempty"`
}

// StatusConfig holds the status server settings. An empty Listen disables it.
type StatusConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Debug  bool   `toml:"debug,omitempty"`
	Format string `toml:"format,omitempty"`

	// File additionally receives JSON records when set.
	File string `toml:"file,omitempty"`
}

// legacyConfig is the flat layout used by the first docmem deployments.
// Its fields are folded into the sectioned Config by applyLegacy.
type legacyConfig struct {
	Host               string `toml:"host"`
	User               string `toml:"user"`
	Password           string `toml:"password"`
	AssimilateFileMQ   string `toml:"assimilate_file_mq"`
	MemoriesExchange   string `toml:"memories_exchange"`
	MemoriesRoutingKey string `toml:"memories_routing_key"`
	DatabaseType       int    `toml:"database_type"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func intKey(name string, field func(c *Config) *int) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return strconv.Itoa(*field(c)) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = n
			return nil
		},
	}
}

func durationKey(name string, field func(c *Config) *time.Duration) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return field(c).String() },
		set: func(c *Config, v string) error {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = d
			return nil
		},
	}
}

// configKeys is the authoritative map of all keys that can be overridden from
// the environment or flags. Keys use dotted notation matching the TOML layout.
var configKeys = map[string]configKeyInfo{
	"broker.provider":             stringKey(func(c *Config) *string { return &c.Broker.Provider }),
	"broker.uri":                  stringKey(func(c *Config) *string { return &c.Broker.URI }),
	"broker.host":                 stringKey(func(c *Config) *string { return &c.Broker.Host }),
	"broker.user":                 stringKey(func(c *Config) *string { return &c.Broker.User }),
	"broker.password":             stringKey(func(c *Config) *string { return &c.Broker.Password }),
	"broker.vhost":                stringKey(func(c *Config) *string { return &c.Broker.VHost }),
	"broker.assimilate_queue":     stringKey(func(c *Config) *string { return &c.Broker.AssimilateQueue }),
	"broker.memories_exchange":    stringKey(func(c *Config) *string { return &c.Broker.MemoriesExchange }),
	"broker.memories_routing_key": stringKey(func(c *Config) *string { return &c.Broker.MemoriesRoutingKey }),
	"broker.consumer_group":       stringKey(func(c *Config) *string { return &c.Broker.ConsumerGroup }),
	"broker.prefetch":             intKey("broker.prefetch", func(c *Config) *int { return &c.Broker.Prefetch }),
	"broker.brokers": {
		get: func(c *Config) string { return strings.Join(c.Broker.Brokers, ",") },
		set: func(c *Config, v string) error {
			c.Broker.Brokers = nil
			for _, b := range strings.Split(v, ",") {
				if b = strings.TrimSpace(b); b != "" {
					c.Broker.Brokers = append(c.Broker.Brokers, b)
				}
			}
			return nil
		},
	},
	"vector_store.provider":   stringKey(func(c *Config) *string { return &c.VectorStore.Provider }),
	"vector_store.target":     stringKey(func(c *Config) *string { return &c.VectorStore.Target }),
	"vector_store.collection": stringKey(func(c *Config) *string { return &c.VectorStore.Collection }),
	"embedding.provider":      stringKey(func(c *Config) *string { return &c.Embedding.Provider }),
	"embedding.target":        stringKey(func(c *Config) *string { return &c.Embedding.Target }),
	"embedding.model":         stringKey(func(c *Config) *string { return &c.Embedding.Model }),
	"embedding.dimensions": {
		get: func(c *Config) string {
			if c.Embedding.Dimensions == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Embedding.Dimensions), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for embedding.dimensions: %w", err)
			}
			c.Embedding.Dimensions = uint(n)
			return nil
		},
	},
	"chunker.strategy":       stringKey(func(c *Config) *string { return &c.Chunker.Strategy }),
	"chunker.window_size":    intKey("chunker.window_size", func(c *Config) *int { return &c.Chunker.WindowSize }),
	"chunker.window_overlap": intKey("chunker.window_overlap", func(c *Config) *int { return &c.Chunker.WindowOverlap }),
	"ingest.workers":         intKey("ingest.workers", func(c *Config) *int { return &c.Ingest.Workers }),
	"ingest.max_attempts":    intKey("ingest.max_attempts", func(c *Config) *int { return &c.Ingest.MaxAttempts }),
	"ingest.store_timeout":   durationKey("ingest.store_timeout", func(c *Config) *time.Duration { return &c.Ingest.StoreTimeout }),
	"ingest.publish_timeout": durationKey("ingest.publish_timeout", func(c *Config) *time.Duration { return &c.Ingest.PublishTimeout }),
	"ingest.retry_delay":     durationKey("ingest.retry_delay", func(c *Config) *time.Duration { return &c.Ingest.RetryDelay }),
	"ledger.provider":        stringKey(func(c *Config) *string { return &c.Ledger.Provider }),
	"ledger.target":          stringKey(func(c *Config) *string { return &c.Ledger.Target }),
	"status.listen":          stringKey(func(c *Config) *string { return &c.Status.Listen }),
	"logger.format":          stringKey(func(c *Config) *string { return &c.Logger.Format }),
	"logger.file":            stringKey(func(c *Config) *string { return &c.Logger.File }),
	"logger.debug": {
		get: func(c *Config) string { return strconv.FormatBool(c.Logger.Debug) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for logger.debug: %w", err)
			}
			c.Logger.Debug = b
			return nil
		},
	},
}
