package weather

import (
	"context"
	"time"

	"github.com/i474232898/climate-trip-planner/internal/cache"
)

// Fetcher retrieves forecasts for a coordinate pair and reduces them to daily
// summaries, caching the reduced result by (lat, lon).
type Fetcher struct {
	provider ForecastProvider
	cache    cache.Cache
	ttl      time.Duration
}

// NewFetcher creates a Fetcher. A ttl <= 0 uses cache.DefaultTTL.
func NewFetcher(provider ForecastProvider, c cache.Cache, ttl time.Duration) *Fetcher {
	if ttl <= 0 {
		ttl = cache.DefaultTTL
	}
	return &Fetcher{provider: provider, cache: c, ttl: ttl}
}

// FetchForecast returns the daily forecast for (lat, lon).
func (f *Fetcher) FetchForecast(ctx context.Context, lat, lon float64) ([]DailyForecast, error) {
	key := cache.Key("forecast", lat, lon)

	cached, ok, err := cache.GetJSON[[]DailyForecast](ctx, f.cache, key)
	if err != nil {
		return nil, err
	}
	if ok {
		return cached, nil
	}

	samples, err := f.provider.FetchForecast(ctx, lat, lon)
	if err != nil {
		return nil, err
	}

	daily := Reduce(samples)
	if err := cache.SetJSON(ctx, f.cache, key, daily, f.ttl); err != nil {
		return nil, err
	}
	return daily, nil
}
