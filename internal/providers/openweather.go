package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/climate-trip-planner/internal/weather"
)

// openWeatherSlotsPerDay is the number of 3-hour samples per day in the
// /forecast response.
const openWeatherSlotsPerDay = 8

// OpenWeatherProvider implements weather.ForecastProvider for the
// OpenWeatherMap 5 day / 3 hour forecast.
type OpenWeatherProvider struct {
	name    string
	apiKey  string
	baseURL string
	days    int
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
}

func NewOpenWeatherProvider(client *http.Client, baseURL, apiKey string, days int) *OpenWeatherProvider {
	return &OpenWeatherProvider{
		name:    "openweathermap",
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		days:    days,
		client:  client,
		circuit: newBreaker("openweather"),
	}
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

func (p *OpenWeatherProvider) FetchForecast(ctx context.Context, lat, lon float64) ([]weather.Sample, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("openweather api key is not configured")
	}

	values := url.Values{}
	values.Set("appid", p.apiKey)
	values.Set("units", "metric")
	values.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	values.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	// The endpoint covers five days; shorter windows are requested by slot count.
	if p.days > 0 && p.days < 5 {
		values.Set("cnt", strconv.Itoa(p.days*openWeatherSlotsPerDay))
	}

	u := fmt.Sprintf("%s/data/2.5/forecast?%s", p.baseURL, values.Encode())
	req, err := http.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := doRequest(ctx, p.client, p.circuit, p.name, req)
	if err != nil {
		return nil, err
	}

	var payload struct {
		List []struct {
			Dt   int64 `json:"dt"`
			Main struct {
				TempMin float64 `json:"temp_min"`
				TempMax float64 `json:"temp_max"`
			} `json:"main"`
			Weather []openWeatherCondition `json:"weather"`
			DtTxt   string                 `json:"dt_txt"`
		} `json:"list"`
	}

	if err := decodeBody(p.name, resp, &payload); err != nil {
		return nil, err
	}

	samples := make([]weather.Sample, 0, len(payload.List))
	for _, item := range payload.List {
		ts, err := time.Parse("2006-01-02 15:04:05", item.DtTxt)
		if err != nil {
			ts = time.Unix(item.Dt, 0).UTC()
		}

		samples = append(samples, weather.Sample{
			Time:      ts,
			TempMax:   item.Main.TempMax,
			TempMin:   item.Main.TempMin,
			Condition: mapOpenWeatherCondition(item.Weather),
		})
	}
	return samples, nil
}

type openWeatherCondition struct {
	Main string `json:"main"`
}

func mapOpenWeatherCondition(items []openWeatherCondition) weather.Condition {
	if len(items) == 0 {
		return weather.ConditionUnknown
	}
	switch items[0].Main {
	case "Clear":
		return weather.ConditionClear
	case "Clouds":
		return weather.ConditionCloudy
	case "Rain":
		return weather.ConditionRain
	case "Drizzle":
		return weather.ConditionDrizzle
	case "Snow":
		return weather.ConditionSnow
	case "Thunderstorm":
		return weather.ConditionStorm
	case "Mist", "Fog", "Haze":
		return weather.ConditionMist
	default:
		return weather.ConditionUnknown
	}
}
