package cache

import (
	"context"
	"time"

	"github.com/i474232898/climate-trip-planner/internal/metrics"
)

// Metered counts hits and misses per key namespace.
type Metered struct {
	next Cache
}

func NewMetered(next Cache) *Metered {
	return &Metered{next: next}
}

func (m *Metered) Get(ctx context.Context, key string) ([]byte, bool, error) {
	raw, ok, err := m.next.Get(ctx, key)
	result := "miss"
	switch {
	case err != nil:
		result = "error"
	case ok:
		result = "hit"
	}
	metrics.CacheLookups.WithLabelValues(Namespace(key), result).Inc()
	return raw, ok, err
}

func (m *Metered) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return m.next.Set(ctx, key, value, ttl)
}
