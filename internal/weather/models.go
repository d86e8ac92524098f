package weather

import (
	"time"
)

// Condition represents a normalized high-level weather condition.
type Condition string

const (
	ConditionUnknown Condition = "unknown"
	ConditionClear   Condition = "clear"
	ConditionCloudy  Condition = "cloudy"
	ConditionRain    Condition = "rain"
	ConditionDrizzle Condition = "drizzle"
	ConditionSnow    Condition = "snow"
	ConditionStorm   Condition = "storm"
	ConditionMist    Condition = "mist"
)

// Sample is one timestamped forecast entry as reported by a provider
// (e.g. a 3-hour slot from OpenWeatherMap or an hourly value from Open-Meteo).
type Sample struct {
	Time      time.Time
	TempMax   float64
	TempMin   float64
	Condition Condition
}

// DailyForecast summarizes all samples of one calendar day.
type DailyForecast struct {
	Date    string  `json:"date"` // YYYY-MM-DD
	TempMax float64 `json:"temp_max"`
	TempMin float64 `json:"temp_min"`
	Rain    bool    `json:"rain"`
}
