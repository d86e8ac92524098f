package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/i474232898/climate-trip-planner/internal/cities"
)

// geoDBMaxLimit is the largest page the free GeoDB service accepts.
const geoDBMaxLimit = 10

// GeoDBProvider implements cities.Source on top of the GeoDB Cities
// nearbyPlaces endpoint.
type GeoDBProvider struct {
	name     string
	baseURL  string
	language string
	client   *http.Client
	circuit  *gobreaker.CircuitBreaker
	limiter  *rate.Limiter
}

// NewGeoDBProvider creates a GeoDB client. rps caps the outgoing request rate;
// rps <= 0 disables the limit.
func NewGeoDBProvider(client *http.Client, baseURL, language string, rps float64) *GeoDBProvider {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}

	return &GeoDBProvider{
		name:     "geodb",
		baseURL:  strings.TrimRight(baseURL, "/"),
		language: language,
		client:   client,
		circuit:  newBreaker("geodb"),
		limiter:  rate.NewLimiter(limit, 1),
	}
}

func (p *GeoDBProvider) Name() string {
	return p.name
}

// NearbyPlaces fetches one page of cities around req.Lat/req.Lon.
// Limits above the service maximum are clamped; the caller advances its
// cursor by the number of records actually returned.
func (p *GeoDBProvider) NearbyPlaces(ctx context.Context, req cities.PageRequest) (cities.Page, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return cities.Page{}, err
	}

	limit := min(max(req.Limit, 1), geoDBMaxLimit)

	values := url.Values{}
	values.Set("radius", strconv.FormatFloat(req.RadiusKm, 'f', -1, 64))
	values.Set("limit", strconv.Itoa(limit))
	values.Set("offset", strconv.Itoa(req.Offset))
	values.Set("types", "CITY")
	values.Set("distanceUnit", "KM")
	if p.language != "" {
		values.Set("languageCode", p.language)
	}

	u := fmt.Sprintf("%s/locations/%s/nearbyPlaces?%s", p.baseURL, locationID(req.Lat, req.Lon), values.Encode())
	httpReq, err := http.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return cities.Page{}, err
	}

	resp, err := doRequest(ctx, p.client, p.circuit, p.name, httpReq)
	if err != nil {
		return cities.Page{}, err
	}

	var payload struct {
		Data []struct {
			Name      string  `json:"name"`
			Region    string  `json:"region"`
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
			Distance  float64 `json:"distance"`
		} `json:"data"`
		Metadata struct {
			CurrentOffset int `json:"currentOffset"`
			TotalCount    int `json:"totalCount"`
		} `json:"metadata"`
	}

	if err := decodeBody(p.name, resp, &payload); err != nil {
		return cities.Page{}, err
	}

	page := cities.Page{
		Results:    make([]cities.Candidate, 0, len(payload.Data)),
		TotalCount: payload.Metadata.TotalCount,
	}
	for _, d := range payload.Data {
		page.Results = append(page.Results, cities.Candidate{
			Name:      d.Name,
			Region:    d.Region,
			Latitude:  d.Latitude,
			Longitude: d.Longitude,
			Distance:  d.Distance,
		})
	}
	return page, nil
}

// locationID formats coordinates as an ISO-6709 location id, e.g. -23.5505-046.6333.
func locationID(lat, lon float64) string {
	return fmt.Sprintf("%+08.4f%+09.4f", lat, lon)
}
