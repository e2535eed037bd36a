// Package badger provides an embedded ledger driver on BadgerDB.
//
// Records live under "rec/<id>". Every stored-but-unpublished record also has
// an index key "pend/<created_at>/<source_path>\x00<ordinal>/<id>" so Pending
// is a prefix scan in outbox order.
package badger

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/papercomputeco/docmem/pkg/ledger"
)

const (
	recordPrefix  = "rec/"
	pendingPrefix = "pend/"
)

// Driver implements ledger.Driver on a BadgerDB directory.
type Driver struct {
	db     *badger.DB
	logger *slog.Logger
}

// loggerAdapter adapts slog.Logger to badger.Logger.
type loggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*loggerAdapter)(nil)

func (l *loggerAdapter) Errorf(msg string, items ...any) {
	l.logger.Error(fmt.Sprintf(msg, items...))
}

func (l *loggerAdapter) Warningf(msg string, items ...any) {
	l.logger.Warn(fmt.Sprintf(msg, items...))
}

func (l *loggerAdapter) Infof(msg string, items ...any) {
	l.logger.Debug(fmt.Sprintf(msg, items...))
}

func (l *loggerAdapter) Debugf(msg string, items ...any) {
	l.logger.Debug(fmt.Sprintf(msg, items...))
}

// NewDriver opens the database in dir, creating the directory when missing.
// An empty dir opens an in-memory database.
func NewDriver(dir string, logger *slog.Logger) (*Driver, error) {
	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create ledger directory: %w", err)
		}
		opts = badger.DefaultOptions(dir)
	}
	opts.Logger = &loggerAdapter{logger: logger}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger ledger: %w", err)
	}
	return &Driver{db: db, logger: logger}, nil
}

type storedRecord struct {
	ID         string       `json:"id"`
	SourcePath string       `json:"source_path"`
	Ordinal    int          `json:"ordinal"`
	Content    string       `json:"content"`
	CreatedAt  time.Time    `json:"created_at"`
	RoutingKey string       `json:"routing_key"`
	State      ledger.State `json:"state"`
}

func recordKey(id string) []byte {
	return []byte(recordPrefix + id)
}

func pendingKey(r ledger.Record) []byte {
	key := make([]byte, 0, len(pendingPrefix)+8+len(r.SourcePath)+len(r.ID)+16)
	key = append(key, pendingPrefix...)
	key = binary.BigEndian.AppendUint64(key, uint64(r.CreatedAt.UnixNano()))
	key = append(key, '/')
	key = append(key, r.SourcePath...)
	key = append(key, 0)
	key = binary.BigEndian.AppendUint32(key, uint32(r.Ordinal))
	key = append(key, '/')
	key = append(key, r.ID...)
	return key
}

func (d *Driver) MarkStored(_ context.Context, r ledger.Record) error {
	return d.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(recordKey(r.ID))
		if err == nil {
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		r.State = ledger.StateStored
		r.CreatedAt = r.CreatedAt.UTC()
		val, err := json.Marshal(storedRecord(r))
		if err != nil {
			return err
		}
		if err := txn.Set(recordKey(r.ID), val); err != nil {
			return err
		}
		return txn.Set(pendingKey(r), []byte(r.ID))
	})
}

func (d *Driver) MarkPublished(_ context.Context, id string) error {
	return d.db.Update(func(txn *badger.Txn) error {
		r, err := getRecord(txn, id)
		if err != nil {
			return err
		}
		if r.State == ledger.StatePublished {
			return nil
		}

		r.State = ledger.StatePublished
		val, err := json.Marshal(storedRecord(r))
		if err != nil {
			return err
		}
		if err := txn.Set(recordKey(id), val); err != nil {
			return err
		}
		return txn.Delete(pendingKey(r))
	})
}

func getRecord(txn *badger.Txn, id string) (ledger.Record, error) {
	item, err := txn.Get(recordKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ledger.Record{}, ledger.ErrNotFound
	}
	if err != nil {
		return ledger.Record{}, err
	}

	var sr storedRecord
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &sr)
	})
	return ledger.Record(sr), err
}

func (d *Driver) Get(_ context.Context, id string) (ledger.Record, error) {
	var r ledger.Record
	err := d.db.View(func(txn *badger.Txn) error {
		var err error
		r, err = getRecord(txn, id)
		return err
	})
	return r, err
}

func (d *Driver) Pending(ctx context.Context, limit int) ([]ledger.Record, error) {
	var out []ledger.Record
	err := d.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(pendingPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var id string
			if err := it.Item().Value(func(val []byte) error {
				id = string(val)
				return nil
			}); err != nil {
				return err
			}

			r, err := getRecord(txn, id)
			if err != nil {
				return err
			}
			out = append(out, r)
			if limit > 0 && len(out) >= limit {
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (d *Driver) Close() error {
	return d.db.Close()
}

var _ ledger.Driver = (*Driver)(nil)
