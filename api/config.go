// Package api provides the HTTP status server for a running docmem consumer.
package api

import (
	"context"
	"time"
)

const defaultCheckTimeout = 2 * time.Second

// Check reports whether one dependency is usable.
type Check func(ctx context.Context) error

// Config is the status server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8081")
	ListenAddr string

	// Checks are run by /healthz, keyed by dependency name.
	Checks map[string]Check

	// CheckTimeout bounds each health check (defaults to 2s).
	CheckTimeout time.Duration
}
