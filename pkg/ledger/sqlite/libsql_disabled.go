//go:build !libsql

package sqlite

import (
	"context"
	"errors"
	"log/slog"

	"github.com/papercomputeco/docmem/pkg/ledger/sqlledger"
)

// LibSQLAvailable reports whether this binary was built with libsql support.
const LibSQLAvailable = false

// ErrLibSQLDisabled is returned when the binary was built without the libsql
// tag. go-libsql and go-sqlite3 both link a SQLite amalgamation, so only one
// can be present in a build.
var ErrLibSQLDisabled = errors.New("libsql ledger requires building with -tags libsql")

func NewLibSQLDriver(_ context.Context, _ string, _ *slog.Logger) (*sqlledger.Driver, error) {
	return nil, ErrLibSQLDisabled
}
