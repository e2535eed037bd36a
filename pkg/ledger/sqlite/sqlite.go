// Package sqlite provides SQLite-backed ledger drivers.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"entgo.io/ent/dialect"
	_ "github.com/mattn/go-sqlite3"

	"github.com/papercomputeco/docmem/pkg/ledger/sqlledger"
)

// NewDriver opens the ledger at dbPath with github.com/mattn/go-sqlite3.
// dbPath can be a file path or ":memory:".
func NewDriver(ctx context.Context, dbPath string, logger *slog.Logger) (*sqlledger.Driver, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// a single connection keeps ":memory:" databases shared and serializes
	// writers
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return sqlledger.New(ctx, db, dialect.SQLite, logger)
}
