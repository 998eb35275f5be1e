package kv

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v3"
)

// BadgerStorage persists items in an embedded badger database
type BadgerStorage struct {
	db    *badger.DB
	quota int64
}

// NewBadgerStorage opens the badger directory at path. An empty path opens
// an in-memory database.
func NewBadgerStorage(path string, quota int64, logger Logger) (*BadgerStorage, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	if logger != nil {
		opts = opts.WithLogger(logger)
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger at %q: %w", path, err)
	}
	return &BadgerStorage{db: db, quota: quota}, nil
}

func (b *BadgerStorage) GetItem(ctx context.Context, key string) (string, bool, error) {
	var value []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get item %s: %w", key, err)
	}
	return string(value), true, nil
}

func (b *BadgerStorage) SetItem(ctx context.Context, key, value string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		if b.quota > 0 {
			used, err := usage(txn, key)
			if err != nil {
				return fmt.Errorf("failed to measure storage usage: %w", err)
			}
			if err := checkQuota(b.quota, used, key, value); err != nil {
				return err
			}
		}
		if err := txn.Set([]byte(key), []byte(value)); err != nil {
			return fmt.Errorf("failed to set item %s: %w", key, err)
		}
		return nil
	})
}

// usage sums key and value sizes of every item except skip
func usage(txn *badger.Txn, skip string) (int64, error) {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	var used int64
	for it.Rewind(); it.Valid(); it.Next() {
		item := it.Item()
		if string(item.Key()) == skip {
			continue
		}
		used += int64(len(item.Key())) + item.ValueSize()
	}
	return used, nil
}

func (b *BadgerStorage) RemoveItem(ctx context.Context, key string) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("failed to remove item %s: %w", key, err)
	}
	return nil
}

// Close flushes and closes the database
func (b *BadgerStorage) Close() error {
	return b.db.Close()
}
