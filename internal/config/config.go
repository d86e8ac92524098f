package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/i474232898/climate-trip-planner/internal/common"
)

// Origin is a search center kept warm by the scheduler.
type Origin struct {
	Lat      float64
	Lon      float64
	RadiusKm float64
}

type AppConfig struct {
	Port        string
	HTTPTimeout time.Duration

	LogLevel  string
	LogFormat string

	// Fingerprint cache.
	CacheBackend  string // memory or redis
	CacheTTL      time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Nearby-places upstream.
	GeoDBBaseURL  string
	GeoDBLanguage string
	GeoDBRPS      float64

	// Weather upstream.
	WeatherProvider   string // openweather, weatherapi or openmeteo
	OpenWeatherURL    string
	OpenWeatherAPIKey string
	WeatherAPIURL     string
	WeatherAPIKey     string
	OpenMeteoURL      string
	ForecastDays      int

	// Search behaviour.
	ForecastConcurrency int
	PageLimit           int
	MaxRadiusKm         float64

	// Itinerary upstream.
	GeminiBaseURL string
	GeminiAPIKey  string
	GeminiModel   string

	// Cache warm-up.
	WarmOrigins  []Origin
	WarmInterval time.Duration
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}
	var err error

	cfg.Port = getenvDefault("PORT", "8080")
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "10s"); err != nil {
		return nil, err
	}

	cfg.LogLevel = getenvDefault("LOG_LEVEL", "info")
	cfg.LogFormat = getenvDefault("LOG_FORMAT", "json")

	cfg.CacheBackend = strings.ToLower(getenvDefault("CACHE_BACKEND", "memory"))
	if cfg.CacheBackend != "memory" && cfg.CacheBackend != "redis" {
		return nil, fmt.Errorf("invalid CACHE_BACKEND %q: want memory or redis", cfg.CacheBackend)
	}
	if cfg.CacheTTL, err = getenvDuration("CACHE_TTL", "1h"); err != nil {
		return nil, err
	}
	cfg.RedisAddr = getenvDefault("REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	cfg.RedisDB = getenvInt("REDIS_DB", 0)

	cfg.GeoDBBaseURL = getenvDefault("GEODB_BASE_URL", "http://geodb-free-service.wirefreethought.com/v1/geo")
	cfg.GeoDBLanguage = getenvDefault("GEODB_LANGUAGE", "pt-BR")
	if cfg.GeoDBRPS, err = getenvFloat("GEODB_RPS", 1); err != nil {
		return nil, err
	}

	cfg.WeatherProvider = strings.ToLower(getenvDefault("WEATHER_PROVIDER", "openweather"))
	switch cfg.WeatherProvider {
	case "openweather", "weatherapi", "openmeteo":
	default:
		return nil, fmt.Errorf("invalid WEATHER_PROVIDER %q", cfg.WeatherProvider)
	}
	cfg.OpenWeatherURL = getenvDefault("OPENWEATHER_BASE_URL", "https://api.openweathermap.org")
	cfg.OpenWeatherAPIKey = getenvDefault("OPENWEATHER_API_KEY", os.Getenv("CLIMATE_API_KEY"))
	cfg.WeatherAPIURL = getenvDefault("WEATHERAPI_BASE_URL", "https://api.weatherapi.com")
	cfg.WeatherAPIKey = os.Getenv("WEATHERAPI_API_KEY")
	cfg.OpenMeteoURL = getenvDefault("OPENMETEO_BASE_URL", "https://api.open-meteo.com")
	cfg.ForecastDays = getenvInt("FORECAST_DAYS", 5)

	cfg.ForecastConcurrency = getenvInt("FORECAST_CONCURRENCY", 4)
	cfg.PageLimit = getenvInt("PAGE_LIMIT", 10)
	if cfg.PageLimit <= 0 {
		return nil, fmt.Errorf("invalid PAGE_LIMIT: must be positive")
	}
	if cfg.MaxRadiusKm, err = getenvFloat("MAX_RADIUS_KM", 200); err != nil {
		return nil, err
	}

	cfg.GeminiBaseURL = getenvDefault("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta")
	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	cfg.GeminiModel = getenvDefault("GEMINI_MODEL", "gemini-1.5-pro")

	if cfg.WarmOrigins, err = parseOrigins(os.Getenv("WARM_ORIGINS")); err != nil {
		return nil, err
	}
	if cfg.WarmInterval, err = getenvDuration("WARM_INTERVAL", "30m"); err != nil {
		return nil, err
	}

	return cfg, nil
}

// parseOrigins parses "lat,lon,radius;lat,lon,radius".
func parseOrigins(s string) ([]Origin, error) {
	var origins []Origin
	for _, item := range strings.Split(s, ";") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}

		fields := strings.Split(item, ",")
		if len(fields) != 3 {
			return nil, fmt.Errorf("invalid WARM_ORIGINS entry %q: want lat,lon,radius", item)
		}

		var vals [3]float64
		for i, f := range fields {
			v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
			if err != nil {
				return nil, fmt.Errorf("invalid WARM_ORIGINS entry %q: %w", item, err)
			}
			vals[i] = v
		}
		// Same rounding the cities endpoint applies before keying.
		origins = append(origins, Origin{Lat: vals[0], Lon: vals[1], RadiusKm: common.RoundTo(vals[2], 2)})
	}
	return origins, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
