// Package ledgerutils builds a ledger.Driver from configuration.
package ledgerutils

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/papercomputeco/docmem/pkg/ledger"
	"github.com/papercomputeco/docmem/pkg/ledger/badger"
	"github.com/papercomputeco/docmem/pkg/ledger/inmemory"
	"github.com/papercomputeco/docmem/pkg/ledger/postgres"
	"github.com/papercomputeco/docmem/pkg/ledger/sqlite"
)

type NewLedgerDriverOpts struct {
	ProviderType string
	Target       string
	Logger       *slog.Logger
}

// NewLedgerDriver opens the ledger selected by ProviderType.
func NewLedgerDriver(ctx context.Context, o *NewLedgerDriverOpts) (ledger.Driver, error) {
	switch o.ProviderType {
	case "", "inmemory":
		return inmemory.NewDriver(), nil
	case "sqlite":
		return sqlite.NewDriver(ctx, o.Target, o.Logger)
	case "libsql":
		return sqlite.NewLibSQLDriver(ctx, o.Target, o.Logger)
	case "postgres":
		return postgres.NewDriver(ctx, o.Target, o.Logger)
	case "badger":
		return badger.NewDriver(o.Target, o.Logger)
	default:
		return nil, fmt.Errorf("unsupported ledger provider: %s", o.ProviderType)
	}
}
