package store

import (
	"context"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/go-pkgz/lgr"
)

// BadgerConfig is the input configuration for the embedded badger storage.
type BadgerConfig struct {
	Dir        string `long:"dir" env:"DIR" default:"./data/badger" description:"badger database directory"`
	InMemory   bool   `long:"in-memory" env:"IN_MEMORY" description:"keep badger data in memory only"`
	SyncWrites bool   `long:"sync-writes" env:"SYNC_WRITES" description:"sync every write to disk"`
}

// BadgerKV is a KV on top of an embedded badger database. Keys are prefixed
// with the namespace: "codeshares:my-snippet".
type BadgerKV struct {
	db *badger.DB
}

// Fail if the struct does not match the KV interface.
var _ = KV(&BadgerKV{})

// NewBadgerKV opens (or creates) a badger database.
func NewBadgerKV(config BadgerConfig, l lgr.L) (*BadgerKV, error) {
	if l == nil {
		l = lgr.NoOp
	}
	dir := config.Dir
	if config.InMemory {
		dir = ""
	}
	opts := badger.DefaultOptions(dir).
		WithInMemory(config.InMemory).
		WithSyncWrites(config.SyncWrites).
		WithNumVersionsToKeep(1).
		WithLogger(badgerLogger{l: l})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("NewBadgerKV: failed to open badger db: %w", err)
	}
	return &BadgerKV{db: db}, nil
}

// NewBadgerStore returns a store.Interface that keeps shares in badger.
func NewBadgerStore(config BadgerConfig, l lgr.L) (*KVStore, error) {
	kv, err := NewBadgerKV(config, l)
	if err != nil {
		return nil, err
	}
	return NewKVStore(kv), nil
}

func badgerKey(ns, key string) []byte {
	return []byte(ns + ":" + key)
}

// Get reads a record.
func (b *BadgerKV) Get(_ context.Context, ns, key string) ([]byte, error) {
	var val []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(ns, key))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("badger.Get (%s/%s): %w", ns, key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("badger.Get (%s/%s): %w", ns, key, err)
	}
	return val, nil
}

// Put writes a record replacing the existing one.
func (b *BadgerKV) Put(_ context.Context, ns, key string, val []byte) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(badgerKey(ns, key), val)
	})
	if err != nil {
		return fmt.Errorf("badger.Put (%s/%s): %w", ns, key, err)
	}
	return nil
}

// Delete removes a record.
func (b *BadgerKV) Delete(_ context.Context, ns, key string) (bool, error) {
	found := false
	err := b.db.Update(func(txn *badger.Txn) error {
		k := badgerKey(ns, key)
		if _, err := txn.Get(k); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		found = true
		return txn.Delete(k)
	})
	if err != nil {
		return false, fmt.Errorf("badger.Delete (%s/%s): %w", ns, key, err)
	}
	return found, nil
}

// List reads all records of a namespace.
func (b *BadgerKV) List(_ context.Context, ns string) (map[string][]byte, error) {
	res := make(map[string][]byte)
	prefix := []byte(ns + ":")
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			res[string(item.Key()[len(prefix):])] = val
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("badger.List (%s): %w", ns, err)
	}
	return res, nil
}

// Close closes the database.
func (b *BadgerKV) Close() error {
	return b.db.Close()
}

// badgerLogger sends badger logs to lgr.
type badgerLogger struct {
	l lgr.L
}

func (b badgerLogger) Errorf(format string, args ...interface{}) {
	b.l.Logf("ERROR [badger] "+format, args...)
}

func (b badgerLogger) Warningf(format string, args ...interface{}) {
	b.l.Logf("WARN [badger] "+format, args...)
}

func (b badgerLogger) Infof(format string, args ...interface{}) {
	b.l.Logf("DEBUG [badger] "+format, args...)
}

func (b badgerLogger) Debugf(format string, args ...interface{}) {
	b.l.Logf("DEBUG [badger] "+format, args...)
}
