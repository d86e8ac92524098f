package weather

import (
	"context"
)

// ForecastProvider abstracts a multi-day forecast source
// (e.g. OpenWeatherMap, WeatherAPI, Open-Meteo). Temperatures are in Celsius.
type ForecastProvider interface {
	Name() string
	FetchForecast(ctx context.Context, lat, lon float64) ([]Sample, error)
}
