// Package kv provides the key-value backends the state layer persists into.
// Every backend behaves like a browser storage area: string keys, string
// values, whole-value replacement and an optional byte quota.
package kv

import (
	"context"
	"errors"
	"fmt"
)

// ErrQuotaExceeded is returned by SetItem when the write would push the
// storage area past its quota. The previous value is left untouched.
var ErrQuotaExceeded = errors.New("kv: quota exceeded")

// Storage is a string key-value area
type Storage interface {
	// GetItem returns the value and whether the key exists
	GetItem(ctx context.Context, key string) (string, bool, error)
	SetItem(ctx context.Context, key, value string) error
	RemoveItem(ctx context.Context, key string) error
	Close() error
}

// Options configures NewStorage
type Options struct {
	Backend    string // "sqlite", "badger" or "memory"
	Path       string
	QuotaBytes int64 // 0 disables the quota
}

// Logger is the subset of logging.Logger the backends need
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warningf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// NewStorage opens the durable backend named in opts
func NewStorage(opts Options, logger Logger) (Storage, error) {
	switch opts.Backend {
	case "sqlite", "":
		return NewSQLiteStorage(opts.Path, opts.QuotaBytes)
	case "badger":
		return NewBadgerStorage(opts.Path, opts.QuotaBytes, logger)
	case "memory":
		return NewMemoryStorage(opts.QuotaBytes), nil
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", opts.Backend)
	}
}

// itemSize is what a key/value pair counts against the quota
func itemSize(key, value string) int64 {
	return int64(len(key) + len(value))
}

func checkQuota(quota, used int64, key, value string) error {
	if quota <= 0 {
		return nil
	}
	if need := used + itemSize(key, value); need > quota {
		return fmt.Errorf("%w: writing %q needs %d of %d bytes", ErrQuotaExceeded, key, need, quota)
	}
	return nil
}
