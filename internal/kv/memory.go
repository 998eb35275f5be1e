package kv

import (
	"context"
	"sync"
)

// MemoryStorage keeps items in process memory. It backs the volatile
// per-tab session area and the "memory" durable backend used in tests.
type MemoryStorage struct {
	mu    sync.RWMutex
	items map[string]string
	quota int64
}

// NewMemoryStorage creates an empty area; quota 0 means unlimited
func NewMemoryStorage(quota int64) *MemoryStorage {
	return &MemoryStorage{
		items: make(map[string]string),
		quota: quota,
	}
}

func (m *MemoryStorage) GetItem(ctx context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.items[key]
	return v, ok, nil
}

func (m *MemoryStorage) SetItem(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var used int64
	for k, v := range m.items {
		if k != key {
			used += itemSize(k, v)
		}
	}
	if err := checkQuota(m.quota, used, key, value); err != nil {
		return err
	}

	m.items[key] = value
	return nil
}

func (m *MemoryStorage) RemoveItem(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.items, key)
	m.mu.Unlock()
	return nil
}

// Clear drops every item, like closing the tab that owned the area
func (m *MemoryStorage) Clear() {
	m.mu.Lock()
	m.items = make(map[string]string)
	m.mu.Unlock()
}

func (m *MemoryStorage) Close() error {
	m.Clear()
	return nil
}
