package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/climate-trip-planner/internal/cities"
	"github.com/i474232898/climate-trip-planner/internal/config"
	"github.com/i474232898/climate-trip-planner/internal/logging"
	"github.com/i474232898/climate-trip-planner/internal/weather"
)

// NearbyFinder is satisfied by *cities.Finder.
type NearbyFinder interface {
	FetchNearby(ctx context.Context, lat, lon, radiusKm float64, startOffset, targetCount int) (cities.NearbyResult, error)
}

// ForecastFetcher is satisfied by *weather.Fetcher.
type ForecastFetcher interface {
	FetchForecast(ctx context.Context, lat, lon float64) ([]weather.DailyForecast, error)
}

// Scheduler periodically warms the fingerprint cache for configured origins.
type Scheduler struct {
	scheduler *gocron.Scheduler
	finder    NearbyFinder
	forecasts ForecastFetcher
	origins   []config.Origin
	pageLimit int
	interval  time.Duration
}

// New creates a new Scheduler.
func New(origins []config.Origin, interval time.Duration, pageLimit int, finder NearbyFinder, forecasts ForecastFetcher) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		finder:    finder,
		forecasts: forecasts,
		origins:   origins,
		pageLimit: pageLimit,
		interval:  interval,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if len(s.origins) == 0 {
		logging.Info().Str("component", "scheduler").Msg("no warm origins configured; nothing to schedule")
		return nil
	}

	minutes := int(s.interval.Minutes())
	if minutes <= 0 {
		minutes = 30
	}

	_, err := s.scheduler.Every(minutes).Minutes().Do(func() {
		s.RunOnce(context.Background())
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// RunOnce warms every origin concurrently and waits for all of them.
// Returns the number of origins that failed.
func (s *Scheduler) RunOnce(ctx context.Context) int {
	logging.Info().Str("component", "scheduler").Int("origins", len(s.origins)).Msg("running cache warm-up job")

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed int
	)
	for _, o := range s.origins {
		wg.Add(1)
		go func() {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
			defer cancel()

			if err := s.warm(ctx, o); err != nil {
				logging.Warn().Err(err).
					Str("component", "scheduler").
					Float64("lat", o.Lat).
					Float64("lon", o.Lon).
					Float64("radius_km", o.RadiusKm).
					Msg("warm-up failed for origin")
				mu.Lock()
				failed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	logging.Info().Str("component", "scheduler").Int("failed", failed).Msg("completed cache warm-up job")
	return failed
}

func (s *Scheduler) warm(ctx context.Context, o config.Origin) error {
	nearby, err := s.finder.FetchNearby(ctx, o.Lat, o.Lon, o.RadiusKm, 0, s.pageLimit)
	if err != nil {
		return err
	}
	for _, c := range nearby.Cities {
		if _, err := s.forecasts.FetchForecast(ctx, c.Latitude, c.Longitude); err != nil {
			return err
		}
	}
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
