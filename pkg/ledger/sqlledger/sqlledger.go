// Package sqlledger implements ledger.Driver on any database/sql database
// with queries built by ent's SQL builder, so one implementation serves the
// SQLite and PostgreSQL dialects.
package sqlledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/papercomputeco/docmem/pkg/ledger"
)

const table = "ledger_records"

var columns = []string{"id", "source_path", "ordinal", "content", "created_at", "routing_key", "state"}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS ledger_records (
		id TEXT PRIMARY KEY,
		source_path TEXT NOT NULL,
		ordinal INTEGER NOT NULL,
		content TEXT NOT NULL,
		created_at BIGINT NOT NULL,
		routing_key TEXT NOT NULL,
		state TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS ledger_records_pending ON ledger_records (state, created_at)`,
}

// Driver implements ledger.Driver over an ent SQL driver.
type Driver struct {
	drv     *entsql.Driver
	builder *entsql.DialectBuilder
	logger  *slog.Logger
}

// New wraps db for the given ent dialect and creates the schema. The driver
// owns db and closes it on Close.
func New(ctx context.Context, db *sql.DB, dialectName string, logger *slog.Logger) (*Driver, error) {
	switch dialectName {
	case dialect.SQLite, dialect.Postgres:
	default:
		return nil, fmt.Errorf("unsupported ledger dialect: %s", dialectName)
	}

	d := &Driver{
		drv:     entsql.OpenDB(dialectName, db),
		builder: entsql.Dialect(dialectName),
		logger:  logger,
	}

	for _, stmt := range schema {
		if err := d.drv.Exec(ctx, stmt, []any{}, nil); err != nil {
			d.drv.Close()
			return nil, fmt.Errorf("failed to create ledger schema: %w", err)
		}
	}
	return d, nil
}

func (d *Driver) MarkStored(ctx context.Context, r ledger.Record) error {
	query, args := d.builder.Insert(table).
		Columns(columns...).
		Values(r.ID, r.SourcePath, r.Ordinal, r.Content, r.CreatedAt.UTC().UnixNano(), r.RoutingKey, string(ledger.StateStored)).
		OnConflict(entsql.ConflictColumns("id"), entsql.DoNothing()).
		Query()

	if err := d.drv.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("failed to mark %s stored: %w", r.ID, err)
	}
	return nil
}

func (d *Driver) MarkPublished(ctx context.Context, id string) error {
	query, args := d.builder.Update(table).
		Set("state", string(ledger.StatePublished)).
		Where(entsql.EQ("id", id)).
		Query()

	var res sql.Result
	if err := d.drv.Exec(ctx, query, args, &res); err != nil {
		return fmt.Errorf("failed to mark %s published: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to mark %s published: %w", id, err)
	}
	if n == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

func (d *Driver) Get(ctx context.Context, id string) (ledger.Record, error) {
	query, args := d.builder.Select(columns...).
		From(entsql.Table(table)).
		Where(entsql.EQ("id", id)).
		Query()

	records, err := d.query(ctx, query, args)
	if err != nil {
		return ledger.Record{}, err
	}
	if len(records) == 0 {
		return ledger.Record{}, ledger.ErrNotFound
	}
	return records[0], nil
}

func (d *Driver) Pending(ctx context.Context, limit int) ([]ledger.Record, error) {
	sel := d.builder.Select(columns...).
		From(entsql.Table(table)).
		Where(entsql.EQ("state", string(ledger.StateStored))).
		OrderBy("created_at", "source_path", "ordinal")
	if limit > 0 {
		sel.Limit(limit)
	}

	query, args := sel.Query()
	return d.query(ctx, query, args)
}

func (d *Driver) query(ctx context.Context, query string, args []any) ([]ledger.Record, error) {
	var rows entsql.Rows
	if err := d.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("failed to query ledger: %w", err)
	}
	defer rows.Close()

	var out []ledger.Record
	for rows.Next() {
		var (
			r         ledger.Record
			createdAt int64
			state     string
		)
		if err := rows.Scan(&r.ID, &r.SourcePath, &r.Ordinal, &r.Content, &createdAt, &r.RoutingKey, &state); err != nil {
			return nil, fmt.Errorf("failed to scan ledger record: %w", err)
		}
		r.CreatedAt = time.Unix(0, createdAt).UTC()
		r.State = ledger.State(state)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to read ledger records: %w", err)
	}
	return out, nil
}

// Close closes the underlying database.
func (d *Driver) Close() error {
	return d.drv.Close()
}

var _ ledger.Driver = (*Driver)(nil)
