package badger

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/poiesic/docent/storage"
)

const (
	// Sequences lease ordinals in blocks of this size.
	sequenceLease = 100

	conflictRetries = 5
)

// Backend owns the badger handle shared by the document, chunk and chat
// repositories.
type Backend struct {
	db     *badger.DB
	logger *slog.Logger
}

// slogAdapter routes badger's printf-style logging into slog.
type slogAdapter struct{ *slog.Logger }

var _ badger.Logger = slogAdapter{}

func (a slogAdapter) Errorf(format string, args ...any) { a.Error(fmt.Sprintf(format, args...)) }
func (a slogAdapter) Warningf(format string, args ...any) { a.Warn(fmt.Sprintf(format, args...)) }
func (a slogAdapter) Infof(format string, args ...any) { a.Debug(fmt.Sprintf(format, args...)) }
func (a slogAdapter) Debugf(format string, args ...any) { a.Debug(fmt.Sprintf(format, args...)) }

// OpenBackend opens the store in dir, creating it when needed. With inMemory
// set dir is ignored and nothing touches disk.
func OpenBackend(dir string, inMemory bool) (*Backend, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	if !inMemory {
		if err := ensureDir(dir); err != nil {
			return nil, err
		}
		opts = badger.DefaultOptions(dir)
	}

	logger := slog.Default().With("component", "badger")
	opts = opts.WithLogger(slogAdapter{logger}).WithCompression(options.None)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", dir, err)
	}
	return &Backend{db: db, logger: logger}, nil
}

func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	return nil
}

func (b *Backend) Close() error {
	return b.db.Close()
}

func (b *Backend) IsClosed() bool {
	return b.db.IsClosed()
}

// WithTx hands fn a transaction that is discarded afterwards. Write
// transactions must be committed by fn.
func (b *Backend) WithTx(fn func(tx *badger.Txn) error, isWrite bool) error {
	if b.db.IsClosed() {
		return storage.ErrStorageClosed
	}
	tx := b.db.NewTransaction(isWrite)
	defer tx.Discard()
	return fn(tx)
}

// Update commits fn's writes if fn returns nil. A commit that loses a
// conflict with a concurrent transaction reruns fn on a fresh snapshot, so
// fn must not keep state between calls.
func (b *Backend) Update(fn func(tx *badger.Txn) error) error {
	var err error
	for range conflictRetries {
		err = b.WithTx(func(tx *badger.Txn) error {
			if err := fn(tx); err != nil {
				return err
			}
			return tx.Commit()
		}, true)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		b.logger.Debug("transaction conflict, retrying")
	}
	return err
}

func (b *Backend) View(fn func(tx *badger.Txn) error) error {
	return b.WithTx(fn, false)
}

// NewWriteBatch is used for chunk bulk loads, which can exceed a single
// transaction.
func (b *Backend) NewWriteBatch() *badger.WriteBatch {
	return b.db.NewWriteBatch()
}

func (b *Backend) GetSequence(name string) (*badger.Sequence, error) {
	return b.db.GetSequence([]byte(name), sequenceLease)
}

// getValue returns nil, nil for a missing key.
func getValue(tx *badger.Txn, key []byte) ([]byte, error) {
	item, err := tx.Get(key)
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
		return nil, nil
	case err != nil:
		return nil, err
	}
	return item.ValueCopy(nil)
}

func deletePrefix(tx *badger.Txn, prefix []byte) error {
	it := tx.NewIterator(badger.IteratorOptions{Prefix: prefix})
	var keys [][]byte
	for it.Rewind(); it.Valid(); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	it.Close()

	for _, k := range keys {
		if err := tx.Delete(k); err != nil {
			return err
		}
	}
	return nil
}
