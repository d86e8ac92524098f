package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpapi "github.com/i474232898/climate-trip-planner/internal/api/http"
	"github.com/i474232898/climate-trip-planner/internal/cache"
	"github.com/i474232898/climate-trip-planner/internal/cities"
	"github.com/i474232898/climate-trip-planner/internal/config"
	"github.com/i474232898/climate-trip-planner/internal/itinerary"
	"github.com/i474232898/climate-trip-planner/internal/logging"
	"github.com/i474232898/climate-trip-planner/internal/providers"
	"github.com/i474232898/climate-trip-planner/internal/scheduler"
	"github.com/i474232898/climate-trip-planner/internal/search"
	"github.com/i474232898/climate-trip-planner/internal/weather"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load config")
	}

	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// Fingerprint cache shared by every component.
	store, closeStore := newCache(cfg)
	defer closeStore()

	// Upstreams, each behind its own circuit breaker.
	geodb := providers.NewGeoDBProvider(httpClient, cfg.GeoDBBaseURL, cfg.GeoDBLanguage, cfg.GeoDBRPS)
	forecastProvider := newForecastProvider(cfg, httpClient)
	gemini := providers.NewGeminiProvider(httpClient, cfg.GeminiBaseURL, cfg.GeminiAPIKey, cfg.GeminiModel)

	finder := cities.NewFinder(geodb, store, cfg.CacheTTL)
	forecasts := weather.NewFetcher(forecastProvider, store, cfg.CacheTTL)
	service := search.NewService(finder, forecasts, cfg.ForecastConcurrency)
	planner := itinerary.NewPlanner(gemini)

	// Scheduler that keeps popular origins warm.
	sched := scheduler.New(cfg.WarmOrigins, cfg.WarmInterval, cfg.PageLimit, finder, forecasts)
	if err := sched.Start(); err != nil {
		logging.Fatal().Err(err).Msg("failed to start scheduler")
	}
	defer sched.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "climate-trip-planner",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          60 * time.Second,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type,Authorization",
	}))

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":   "ok",
			"service":  "climate-trip-planner",
			"provider": forecastProvider.Name(),
			"cache":    cfg.CacheBackend,
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// API routes.
	httpapi.RegisterRoutes(app, httpapi.Deps{
		Search:      service,
		Planner:     planner,
		Cache:       store,
		CacheTTL:    cfg.CacheTTL,
		PageLimit:   cfg.PageLimit,
		MaxRadiusKm: cfg.MaxRadiusKm,
	})

	// Start server with graceful shutdown
	go func() {
		logging.Info().Str("port", cfg.Port).Msg("server starting")
		if err := app.Listen(":" + cfg.Port); err != nil {
			logging.Error().Err(err).Msg("fiber server stopped")
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("error during shutdown")
	}
}

// newCache builds the configured backend wrapped with lookup metrics.
// The returned func releases backend resources.
func newCache(cfg *config.AppConfig) (cache.Cache, func()) {
	if cfg.CacheBackend == "redis" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		r, err := cache.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logging.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("failed to connect to redis")
		}
		return cache.NewMetered(r), func() {
			if err := r.Close(); err != nil {
				logging.Warn().Err(err).Msg("error closing redis")
			}
		}
	}
	return cache.NewMetered(cache.NewMemory(cfg.CacheTTL, 10*time.Minute)), func() {}
}

func newForecastProvider(cfg *config.AppConfig, client *http.Client) weather.ForecastProvider {
	switch cfg.WeatherProvider {
	case "weatherapi":
		return providers.NewWeatherAPIProvider(client, cfg.WeatherAPIURL, cfg.WeatherAPIKey, cfg.ForecastDays)
	case "openmeteo":
		return providers.NewOpenMeteoProvider(client, cfg.OpenMeteoURL, cfg.ForecastDays)
	default:
		return providers.NewOpenWeatherProvider(client, cfg.OpenWeatherURL, cfg.OpenWeatherAPIKey, cfg.ForecastDays)
	}
}
