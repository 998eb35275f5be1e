// Package store is the persistence layer: every collection is one JSON array
// under its own key in a kv.Storage area.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"siteadmin/internal/kv"
	"siteadmin/internal/logging"
	"siteadmin/internal/state"
)

// Persisted keys
const (
	KeyUsers    = "adminUsers"
	KeyChat     = "chatMessages"
	KeyFiles    = "sharedFiles"
	KeyActivity = "activityLog"
	KeyTheme    = "theme"
)

// Store owns durability for all collections
type Store struct {
	kv     kv.Storage
	logger *logging.Logger
}

// New wraps a storage area
func New(storage kv.Storage, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Store{kv: storage, logger: logger}
}

// Storage exposes the raw area for scalar values such as the theme
func (s *Store) Storage() kv.Storage {
	return s.kv
}

// Close closes the underlying storage
func (s *Store) Close() error {
	return s.kv.Close()
}

// Load reads the collection under key. It fails closed: a missing, unreadable
// or unparseable payload yields an empty collection and never an error.
func Load[T any](ctx context.Context, s *Store, key string) []T {
	raw, ok, err := s.kv.GetItem(ctx, key)
	if err != nil {
		s.logger.Warn("Failed to read %s, using empty collection: %v", key, err)
		return []T{}
	}
	if !ok {
		s.logger.Debug("No data stored under %s yet", key)
		return []T{}
	}

	var items []T
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		s.logger.Warn("%v: %s (%v), resetting to empty collection", state.ErrStorageCorrupt, key, err)
		return []T{}
	}
	if items == nil {
		return []T{}
	}
	return items
}

// LoadOrInit is Load for collections that must never be empty: when nothing
// usable is stored, init provides the seed which is saved immediately.
func LoadOrInit[T any](ctx context.Context, s *Store, key string, init func() []T) []T {
	items := Load[T](ctx, s, key)
	if len(items) > 0 {
		return items
	}

	items = init()
	s.logger.Warn("Collection %s empty or invalid, re-initializing with %d default entries", key, len(items))
	if err := Save(ctx, s, key, items); err != nil {
		s.logger.Error("Failed to persist defaults for %s: %v", key, err)
	}
	return items
}

// Save replaces the collection under key. A quota rejection is reported as
// state.ErrStorageQuotaExceeded.
func Save[T any](ctx context.Context, s *Store, key string, items []T) error {
	if items == nil {
		items = []T{}
	}

	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}

	if err := s.kv.SetItem(ctx, key, string(data)); err != nil {
		if errors.Is(err, kv.ErrQuotaExceeded) {
			return fmt.Errorf("%w: %s (%d entries, %d bytes)", state.ErrStorageQuotaExceeded, key, len(items), len(data))
		}
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

// SaveTruncated saves items and, if the storage is full, retries once with
// only the newest fallback entries. It returns what was actually persisted.
// When the retry also fails the write is dropped and logged.
func SaveTruncated[T any](ctx context.Context, s *Store, key string, items []T, fallback int) ([]T, error) {
	err := Save(ctx, s, key, items)
	if err == nil {
		return items, nil
	}
	if !errors.Is(err, state.ErrStorageQuotaExceeded) || fallback <= 0 || len(items) <= fallback {
		s.logger.Error("Dropped write to %s: %v", key, err)
		return nil, err
	}

	trimmed := KeepLast(items, fallback)
	s.logger.Warn("Storage full saving %s, retrying with newest %d of %d entries", key, len(trimmed), len(items))

	if err := Save(ctx, s, key, trimmed); err != nil {
		s.logger.Error("Dropped write to %s after truncation: %v", key, err)
		return nil, err
	}
	return trimmed, nil
}

// KeepLast returns a copy of the newest n items (FIFO eviction)
func KeepLast[T any](items []T, n int) []T {
	if n < 0 {
		n = 0
	}
	start := 0
	if len(items) > n {
		start = len(items) - n
	}
	out := make([]T, len(items)-start)
	copy(out, items[start:])
	return out
}
