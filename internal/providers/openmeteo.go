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

// OpenMeteoProvider implements weather.ForecastProvider for Open-Meteo.
// It needs no API key.
type OpenMeteoProvider struct {
	name    string
	baseURL string
	days    int
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
}

func NewOpenMeteoProvider(client *http.Client, baseURL string, days int) *OpenMeteoProvider {
	return &OpenMeteoProvider{
		name:    "openmeteo",
		baseURL: strings.TrimRight(baseURL, "/"),
		days:    days,
		client:  client,
		circuit: newBreaker("openmeteo"),
	}
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

func (p *OpenMeteoProvider) FetchForecast(ctx context.Context, lat, lon float64) ([]weather.Sample, error) {
	values := url.Values{}
	values.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	values.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	values.Set("hourly", "temperature_2m,weathercode")
	values.Set("forecast_days", strconv.Itoa(max(p.days, 1)))
	// Local time, so that samples group by the city's own calendar day.
	values.Set("timezone", "auto")

	u := fmt.Sprintf("%s/v1/forecast?%s", p.baseURL, values.Encode())
	req, err := http.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := doRequest(ctx, p.client, p.circuit, p.name, req)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Hourly struct {
			Time        []string  `json:"time"`
			Temperature []float64 `json:"temperature_2m"`
			WeatherCode []int     `json:"weathercode"`
		} `json:"hourly"`
	}

	if err := decodeBody(p.name, resp, &payload); err != nil {
		return nil, err
	}

	h := payload.Hourly
	if len(h.Temperature) != len(h.Time) {
		return nil, &UpstreamError{Upstream: p.name, Err: fmt.Errorf("hourly series length mismatch: %d times, %d temperatures", len(h.Time), len(h.Temperature))}
	}

	samples := make([]weather.Sample, 0, len(h.Time))
	for i, raw := range h.Time {
		ts, err := time.Parse("2006-01-02T15:04", raw)
		if err != nil {
			return nil, &UpstreamError{Upstream: p.name, Err: fmt.Errorf("parse time %q: %w", raw, err)}
		}

		cond := weather.ConditionUnknown
		if i < len(h.WeatherCode) {
			cond = mapOpenMeteoCondition(h.WeatherCode[i])
		}

		samples = append(samples, weather.Sample{
			Time:      ts,
			TempMax:   h.Temperature[i],
			TempMin:   h.Temperature[i],
			Condition: cond,
		})
	}
	return samples, nil
}

func mapOpenMeteoCondition(code int) weather.Condition {
	// Mapping based on Open-Meteo weather codes (simplified).
	switch {
	case code == 0:
		return weather.ConditionClear
	case code >= 1 && code <= 3:
		return weather.ConditionCloudy
	case code == 45 || code == 48:
		return weather.ConditionMist
	case (code >= 51 && code <= 67) || (code >= 80 && code <= 82):
		return weather.ConditionRain
	case (code >= 71 && code <= 77) || code == 85 || code == 86:
		return weather.ConditionSnow
	case code >= 95:
		return weather.ConditionStorm
	default:
		return weather.ConditionUnknown
	}
}
