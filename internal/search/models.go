package search

import (
	"github.com/i474232898/climate-trip-planner/internal/cities"
	"github.com/i474232898/climate-trip-planner/internal/weather"
)

// Query is the input of NearbyByTemperature. Callers validate ranges
// (coordinates, MaxTemp >= MinTemp, radius bounds) before calling.
type Query struct {
	Lat      float64
	Lon      float64
	MaxTemp  float64
	MinTemp  float64
	RadiusKm float64
	Offset   int
	Limit    int
}

// CityForecast is a nearby city together with its daily forecast.
type CityForecast struct {
	Name     string                  `json:"name"`
	Region   string                  `json:"region"`
	Distance float64                 `json:"distance"`
	Forecast []weather.DailyForecast `json:"forecast"`
}

// Result holds the cities that passed the temperature filter. Metadata
// describes the candidates considered, not the survivors.
type Result struct {
	Metadata cities.PageMetadata `json:"metadata"`
	Cities   []CityForecast      `json:"cities"`
}
