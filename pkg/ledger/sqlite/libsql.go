//go:build libsql

package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"entgo.io/ent/dialect"
	_ "github.com/tursodatabase/go-libsql"

	"github.com/papercomputeco/docmem/pkg/ledger/sqlledger"
)

// LibSQLAvailable reports whether this binary was built with libsql support.
const LibSQLAvailable = true

// NewLibSQLDriver opens the ledger with github.com/tursodatabase/go-libsql.
// target is a local path, a file: URL or a libsql:// URL.
func NewLibSQLDriver(ctx context.Context, target string, logger *slog.Logger) (*sqlledger.Driver, error) {
	dsn := target
	if !strings.Contains(dsn, "://") && !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}

	db, err := sql.Open("libsql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return sqlledger.New(ctx, db, dialect.SQLite, logger)
}
