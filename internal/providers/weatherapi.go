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

	"github.com/i474232898/climate-trip-planner/internal/common"
	"github.com/i474232898/climate-trip-planner/internal/weather"
)

// WeatherAPIProvider implements weather.ForecastProvider for WeatherAPI.com.
type WeatherAPIProvider struct {
	name    string
	apiKey  string
	baseURL string
	days    int
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
}

func NewWeatherAPIProvider(client *http.Client, baseURL, apiKey string, days int) *WeatherAPIProvider {
	return &WeatherAPIProvider{
		name:    "weatherapi",
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		days:    days,
		client:  client,
		circuit: newBreaker("weatherapi"),
	}
}

func (p *WeatherAPIProvider) Name() string {
	return p.name
}

func (p *WeatherAPIProvider) FetchForecast(ctx context.Context, lat, lon float64) ([]weather.Sample, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("weatherapi api key is not configured")
	}

	values := url.Values{}
	values.Set("key", p.apiKey)
	// WeatherAPI uses "q" for location; it accepts "lat,lon".
	values.Set("q", fmt.Sprintf("%s,%s",
		strconv.FormatFloat(lat, 'f', -1, 64),
		strconv.FormatFloat(lon, 'f', -1, 64)))
	values.Set("days", strconv.Itoa(max(p.days, 1)))

	u := fmt.Sprintf("%s/v1/forecast.json?%s", p.baseURL, values.Encode())
	req, err := http.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := doRequest(ctx, p.client, p.circuit, p.name, req)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Forecast struct {
			ForecastDay []struct {
				Hour []struct {
					Time      string  `json:"time"`
					TempC     float64 `json:"temp_c"`
					Condition struct {
						Text string `json:"text"`
					} `json:"condition"`
				} `json:"hour"`
			} `json:"forecastday"`
		} `json:"forecast"`
	}

	if err := decodeBody(p.name, resp, &payload); err != nil {
		return nil, err
	}

	var samples []weather.Sample
	for _, day := range payload.Forecast.ForecastDay {
		for _, h := range day.Hour {
			ts, err := time.Parse("2006-01-02 15:04", h.Time)
			if err != nil {
				return nil, &UpstreamError{Upstream: p.name, Err: fmt.Errorf("parse time %q: %w", h.Time, err)}
			}
			samples = append(samples, weather.Sample{
				Time:      ts,
				TempMax:   h.TempC,
				TempMin:   h.TempC,
				Condition: mapWeatherAPICondition(h.Condition.Text),
			})
		}
	}
	return samples, nil
}

func mapWeatherAPICondition(text string) weather.Condition {
	switch {
	case text == "":
		return weather.ConditionUnknown
	case common.HasAny(text, "rain", "shower", "drizzle"):
		return weather.ConditionRain
	case common.HasAny(text, "snow", "sleet", "blizzard"):
		return weather.ConditionSnow
	case common.HasAny(text, "thunder", "storm"):
		return weather.ConditionStorm
	case common.HasAny(text, "cloud", "overcast"):
		return weather.ConditionCloudy
	case common.HasAny(text, "mist", "fog"):
		return weather.ConditionMist
	case common.HasAny(text, "sunny", "clear"):
		return weather.ConditionClear
	default:
		return weather.ConditionUnknown
	}
}
