package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Memory is a process-local Cache backed by go-cache. Expired entries are
// purged by go-cache's janitor every cleanupInterval.
type Memory struct {
	items *gocache.Cache
}

// NewMemory creates an in-memory cache.
func NewMemory(defaultTTL, cleanupInterval time.Duration) *Memory {
	return &Memory{items: gocache.New(defaultTTL, cleanupInterval)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, found := m.items.Get(key)
	if !found {
		return nil, false, nil
	}
	raw, ok := v.([]byte)
	return raw, ok, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.items.Set(key, value, ttl)
	return nil
}

// Len reports the number of stored entries, including not yet purged ones.
func (m *Memory) Len() int {
	return m.items.ItemCount()
}
