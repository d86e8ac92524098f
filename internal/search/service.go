package search

import (
	"context"
	"errors"
	"sync"

	"github.com/i474232898/climate-trip-planner/internal/cities"
	"github.com/i474232898/climate-trip-planner/internal/weather"
)

// ErrNoCitiesFound is returned when the nearby-places upstream has no
// candidates for the requested page.
var ErrNoCitiesFound = errors.New("no cities found")

// NearbyFinder is satisfied by *cities.Finder.
type NearbyFinder interface {
	FetchNearby(ctx context.Context, lat, lon, radiusKm float64, startOffset, targetCount int) (cities.NearbyResult, error)
}

// ForecastFetcher is satisfied by *weather.Fetcher.
type ForecastFetcher interface {
	FetchForecast(ctx context.Context, lat, lon float64) ([]weather.DailyForecast, error)
}

// Service combines nearby cities with their forecasts and filters them by
// temperature.
type Service struct {
	finder      NearbyFinder
	forecasts   ForecastFetcher
	concurrency int
}

// NewService creates a Service. concurrency bounds the number of forecast
// requests in flight; values < 1 are treated as 1.
func NewService(finder NearbyFinder, forecasts ForecastFetcher, concurrency int) *Service {
	return &Service{
		finder:      finder,
		forecasts:   forecasts,
		concurrency: max(concurrency, 1),
	}
}

// NearbyByTemperature returns the cities around (q.Lat, q.Lon) whose whole
// forecast window stays within [q.MinTemp, q.MaxTemp].
func (s *Service) NearbyByTemperature(ctx context.Context, q Query) (Result, error) {
	nearby, err := s.finder.FetchNearby(ctx, q.Lat, q.Lon, q.RadiusKm, q.Offset, q.Limit)
	if err != nil {
		return Result{}, err
	}
	if len(nearby.Cities) == 0 {
		return Result{}, ErrNoCitiesFound
	}

	forecasts, err := s.fetchForecasts(ctx, nearby.Cities)
	if err != nil {
		return Result{}, err
	}

	matched := make([]CityForecast, 0, len(forecasts))
	for _, cf := range forecasts {
		if Matches(cf, q.MaxTemp, q.MinTemp) {
			matched = append(matched, cf)
		}
	}

	return Result{Metadata: nearby.Metadata, Cities: matched}, nil
}

// fetchForecasts fetches every candidate's forecast with at most
// s.concurrency requests in flight. The output follows the input order.
// The first error in candidate order is returned.
func (s *Service) fetchForecasts(ctx context.Context, candidates []cities.Candidate) ([]CityForecast, error) {
	var (
		wg   sync.WaitGroup
		sem  = make(chan struct{}, s.concurrency)
		out  = make([]CityForecast, len(candidates))
		errs = make([]error, len(candidates))
	)

	for i, c := range candidates {
		wg.Add(1)
		sem <- struct{}{}

		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			daily, err := s.forecasts.FetchForecast(ctx, c.Latitude, c.Longitude)
			if err != nil {
				errs[i] = err
				return
			}

			out[i] = CityForecast{
				Name:     c.Name,
				Region:   c.Region,
				Distance: c.Distance,
				Forecast: daily,
			}
		}()
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Matches reports whether every day of cf satisfies TempMax <= maxTemp and
// TempMin >= minTemp. A single day outside the range rejects the city.
func Matches(cf CityForecast, maxTemp, minTemp float64) bool {
	for _, d := range cf.Forecast {
		if d.TempMax > maxTemp || d.TempMin < minTemp {
			return false
		}
	}
	return true
}
