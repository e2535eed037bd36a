// Package config loads and validates the docmem configuration file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"
)

const (
	// v0 is the alpha version of the config
	v0 = 0

	// CurrentV is the currently supported version, points to v0
	CurrentV = v0
)

var (
	brokerProviders    = []string{"amqp", "kafka"}
	vectorProviders    = []string{"inmemory", "sqlite", "chroma", "qdrant"}
	embeddingProviders = []string{"ollama", "hash"}
	chunkerStrategies  = []string{"sentence", "paragraph", "window"}
	ledgerProviders    = []string{"inmemory", "sqlite", "libsql", "postgres", "badger"}
	loggerFormats      = []string{"auto", "pretty", "json", "text"}
)

// Load reads the TOML file at path, folds in the legacy flat layout, fills
// defaults, applies overrides from v (environment and bound flags, may be nil)
// and validates the result. Every failure is returned as *Error.
func Load(path string, v *viper.Viper) (*Config, error) {
	if path == "" {
		return nil, &Error{Problems: []string{"expected configuration file path as argument"}}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &Error{Path: path, Problems: []string{"file not found"}, Err: err}
		}
		return nil, &Error{Path: path, Problems: []string{"reading config"}, Err: err}
	}

	cfg, err := ParseConfigTOML(data)
	if err != nil {
		return nil, &Error{Path: path, Problems: []string{"failed to parse TOML file"}, Err: err}
	}

	if v != nil {
		if err := ApplyOverrides(v, cfg); err != nil {
			return nil, &Error{Path: path, Problems: []string{"applying overrides"}, Err: err}
		}
	}

	if err := cfg.Validate(); err != nil {
		var cerr *Error
		if errors.As(err, &cerr) {
			cerr.Path = path
		}
		return nil, err
	}

	return cfg, nil
}

// ParseConfigTOML parses raw TOML bytes into a Config with legacy fields and
// defaults applied. Returns an error if the version field is present and not
// equal to CurrentV.
func ParseConfigTOML(data []byte) (*Config, error) {
	cfg := &Config{}
	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("parsing config TOML: %w", err)
	}

	if cfg.Version != 0 && cfg.Version != CurrentV {
		return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentV)
	}

	legacy := &legacyConfig{}
	if _, err := toml.Decode(string(data), legacy); err != nil {
		return nil, fmt.Errorf("parsing legacy config fields: %w", err)
	}
	applyLegacy(cfg, legacy)
	applyDefaults(cfg)

	return cfg, nil
}

// EncodeTOML renders cfg as TOML.
func EncodeTOML(cfg *Config) ([]byte, error) {
	if cfg == nil {
		return nil, errors.New("cannot encode nil config")
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	return buf.Bytes(), nil
}

// applyLegacy copies flat top-level fields into their sections when the
// section does not set them itself.
func applyLegacy(cfg *Config, legacy *legacyConfig) {
	if cfg.Broker.Host == "" {
		cfg.Broker.Host = legacy.Host
	}
	if cfg.Broker.User == "" {
		cfg.Broker.User = legacy.User
	}
	if cfg.Broker.Password == "" {
		cfg.Broker.Password = legacy.Password
	}
	if cfg.Broker.AssimilateQueue == "" {
		cfg.Broker.AssimilateQueue = legacy.AssimilateFileMQ
	}
	if cfg.Broker.MemoriesExchange == "" {
		cfg.Broker.MemoriesExchange = legacy.MemoriesExchange
	}
	if cfg.Broker.MemoriesRoutingKey == "" {
		cfg.Broker.MemoriesRoutingKey = legacy.MemoriesRoutingKey
	}
	if cfg.VectorStore.DatabaseType == 0 {
		cfg.VectorStore.DatabaseType = legacy.DatabaseType
	}
}

// applyDefaults fills zero-value fields in cfg with values from NewDefaultConfig().
func applyDefaults(cfg *Config) {
	defaults := NewDefaultConfig()

	if cfg.Broker.Provider == "" {
		cfg.Broker.Provider = defaults.Broker.Provider
	}
	if cfg.Broker.Host == "" && cfg.Broker.URI == "" {
		cfg.Broker.Host = defaults.Broker.Host
	}
	if cfg.Broker.AssimilateQueue == "" {
		cfg.Broker.AssimilateQueue = defaults.Broker.AssimilateQueue
	}
	if cfg.Broker.MemoriesExchange == "" {
		cfg.Broker.MemoriesExchange = defaults.Broker.MemoriesExchange
	}
	if cfg.Broker.MemoriesRoutingKey == "" {
		cfg.Broker.MemoriesRoutingKey = defaults.Broker.MemoriesRoutingKey
	}
	if cfg.Broker.ConsumerGroup == "" {
		cfg.Broker.ConsumerGroup = defaults.Broker.ConsumerGroup
	}

	if cfg.VectorStore.Provider == "" {
		switch cfg.VectorStore.DatabaseType {
		case DatabaseTypeInMemory:
			cfg.VectorStore.Provider = "inmemory"
		case DatabaseTypeOnFile, 0:
			cfg.VectorStore.Provider = defaults.VectorStore.Provider
		}
	}
	if cfg.VectorStore.Provider == "sqlite" && cfg.VectorStore.Target == "" {
		cfg.VectorStore.Target = defaults.VectorStore.Target
	}
	if cfg.VectorStore.Collection == "" {
		cfg.VectorStore.Collection = defaults.VectorStore.Collection
	}

	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = defaults.Embedding.Provider
	}
	if cfg.Embedding.Provider == "ollama" {
		if cfg.Embedding.Target == "" {
			cfg.Embedding.Target = defaults.Embedding.Target
		}
		if cfg.Embedding.Model == "" {
			cfg.Embedding.Model = defaults.Embedding.Model
		}
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = defaults.Embedding.Dimensions
	}

	if cfg.Chunker.Strategy == "" {
		cfg.Chunker.Strategy = defaults.Chunker.Strategy
	}
	if cfg.Chunker.WindowSize == 0 {
		cfg.Chunker.WindowSize = defaults.Chunker.WindowSize
		if cfg.Chunker.WindowOverlap == 0 {
			cfg.Chunker.WindowOverlap = defaults.Chunker.WindowOverlap
		}
	}

	if cfg.Ingest.Workers == 0 {
		cfg.Ingest.Workers = defaults.Ingest.Workers
	}
	if cfg.Ingest.StoreTimeout == 0 {
		cfg.Ingest.StoreTimeout = defaults.Ingest.StoreTimeout
	}
	if cfg.Ingest.PublishTimeout == 0 {
		cfg.Ingest.PublishTimeout = defaults.Ingest.PublishTimeout
	}
	if cfg.Ingest.MaxAttempts == 0 {
		cfg.Ingest.MaxAttempts = defaults.Ingest.MaxAttempts
	}
	if cfg.Ingest.RetryDelay == 0 {
		cfg.Ingest.RetryDelay = defaults.Ingest.RetryDelay
	}

	if cfg.Ledger.Provider == "" {
		cfg.Ledger.Provider = defaults.Ledger.Provider
	}

	if cfg.Logger.Format == "" {
		cfg.Logger.Format = defaults.Logger.Format
	}
}

// Legacy database_type values.
const (
	DatabaseTypeInMemory = 1
	DatabaseTypeOnFile   = 2
)

// Validate checks cfg and returns an *Error listing every problem found.
func (c *Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	oneOf := func(key, value string, allowed []string) {
		if !slices.Contains(allowed, value) {
			add("%s: unsupported value %q (expected one of %s)", key, value, strings.Join(allowed, ", "))
		}
	}

	oneOf("broker.provider", c.Broker.Provider, brokerProviders)
	switch c.Broker.Provider {
	case "amqp":
		if c.Broker.URI == "" && c.Broker.Host == "" {
			add("broker.host: required when broker.uri is empty")
		}
	case "kafka":
		if len(c.Broker.Brokers) == 0 {
			add("broker.brokers: at least one broker address is required")
		}
	}
	if c.Broker.AssimilateQueue == "" {
		add("broker.assimilate_queue: required")
	}
	if c.Broker.MemoriesExchange == "" {
		add("broker.memories_exchange: required")
	}
	if c.Broker.Prefetch < 0 {
		add("broker.prefetch: must not be negative")
	}

	if c.VectorStore.DatabaseType != 0 &&
		c.VectorStore.DatabaseType != DatabaseTypeInMemory &&
		c.VectorStore.DatabaseType != DatabaseTypeOnFile {
		add("vector_store.database_type: unsupported value %d (expected 1 or 2)", c.VectorStore.DatabaseType)
	}
	oneOf("vector_store.provider", c.VectorStore.Provider, vectorProviders)
	if c.VectorStore.Provider != "inmemory" && c.VectorStore.Target == "" {
		add("vector_store.target: required for provider %q", c.VectorStore.Provider)
	}

	oneOf("embedding.provider", c.Embedding.Provider, embeddingProviders)
	if c.Embedding.Dimensions == 0 {
		add("embedding.dimensions: must be greater than 0")
	}

	oneOf("chunker.strategy", c.Chunker.Strategy, chunkerStrategies)
	if c.Chunker.Strategy == "window" {
		if c.Chunker.WindowSize <= 0 {
			add("chunker.window_size: must be greater than 0")
		}
		if c.Chunker.WindowOverlap < 0 || c.Chunker.WindowOverlap >= c.Chunker.WindowSize {
			add("chunker.window_overlap: must be in [0, window_size)")
		}
	}

	if c.Ingest.Workers < 1 {
		add("ingest.workers: must be at least 1")
	}
	if c.Ingest.MaxAttempts < 1 {
		add("ingest.max_attempts: must be at least 1")
	}
	if c.Ingest.StoreTimeout <= 0 {
		add("ingest.store_timeout: must be positive")
	}
	if c.Ingest.PublishTimeout <= 0 {
		add("ingest.publish_timeout: must be positive")
	}
	if c.Ingest.RetryDelay < 0 {
		add("ingest.retry_delay: must not be negative")
	}

	oneOf("ledger.provider", c.Ledger.Provider, ledgerProviders)
	if c.Ledger.Provider != "inmemory" && c.Ledger.Target == "" {
		add("ledger.target: required for provider %q", c.Ledger.Provider)
	}

	oneOf("logger.format", c.Logger.Format, loggerFormats)

	if len(problems) > 0 {
		return &Error{Problems: problems}
	}
	return nil
}

// AMQPURI returns the broker URI, building it from host and credentials when
// no explicit URI is configured.
func (b BrokerConfig) AMQPURI() string {
	if b.URI != "" {
		return b.URI
	}

	u := url.URL{
		Scheme: "amqp",
		Host:   b.Host,
		Path:   "/",
	}
	if b.User != "" {
		u.User = url.UserPassword(b.User, b.Password)
	}
	if b.VHost != "" && b.VHost != "/" {
		u.Path = "/" + b.VHost
	}
	return u.String()
}

// EffectivePrefetch returns the broker prefetch, defaulting to one
// unacknowledged delivery per worker.
func (c *Config) EffectivePrefetch() int {
	if c.Broker.Prefetch > 0 {
		return c.Broker.Prefetch
	}
	return c.Ingest.Workers
}
