package httpapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/climate-trip-planner/internal/cache"
	"github.com/i474232898/climate-trip-planner/internal/cities"
	"github.com/i474232898/climate-trip-planner/internal/providers"
	"github.com/i474232898/climate-trip-planner/internal/search"
	"github.com/i474232898/climate-trip-planner/internal/weather"
)

type round struct {
	res search.Result
	err error
}

type fakeSearcher struct {
	rounds  []round
	queries []search.Query
}

func (f *fakeSearcher) NearbyByTemperature(_ context.Context, q search.Query) (search.Result, error) {
	f.queries = append(f.queries, q)
	if len(f.queries) > len(f.rounds) {
		return search.Result{}, search.ErrNoCitiesFound
	}
	r := f.rounds[len(f.queries)-1]
	return r.res, r.err
}

type fakePlanner struct {
	got []search.CityForecast
}

func (f *fakePlanner) Plan(_ context.Context, cs []search.CityForecast) (string, error) {
	f.got = cs
	return "Dia 1: " + cs[0].Name, nil
}

func namedCities(prefix string, n int) []search.CityForecast {
	out := make([]search.CityForecast, n)
	for i := range out {
		out[i] = search.CityForecast{Name: fmt.Sprintf("%s-%d", prefix, i)}
	}
	return out
}

func newTestApp(s Searcher, p Planner) *fiber.App {
	app := fiber.New(fiber.Config{
		JSONEncoder: json.Marshal,
		JSONDecoder: json.Unmarshal,
	})
	RegisterRoutes(app, Deps{
		Search:      s,
		Planner:     p,
		Cache:       cache.NewMemory(time.Hour, time.Minute),
		PageLimit:   10,
		MaxRadiusKm: 200,
	})
	return app
}

func doGet(t *testing.T, app *fiber.App, target string) *http.Response {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, target, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return resp
}

func decodeResult(t *testing.T, resp *http.Response) search.Result {
	t.Helper()
	var out search.Result
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

// TestCitiesValidation verifies that the cities endpoint rejects malformed
// or out-of-range query parameters before calling the search service.
func TestCitiesValidation(t *testing.T) {
	cases := map[string]string{
		"missing lat":       "lon=-46.6&max_temp=30&min_temp=10&radius=100",
		"non numeric lon":   "lat=-23.5&lon=west&max_temp=30&min_temp=10&radius=100",
		"lat out of range":  "lat=91&lon=-46.6&max_temp=30&min_temp=10&radius=100",
		"lon out of range":  "lat=-23.5&lon=-181&max_temp=30&min_temp=10&radius=100",
		"max below min":     "lat=-23.5&lon=-46.6&max_temp=5&min_temp=10&radius=100",
		"radius too large":  "lat=-23.5&lon=-46.6&max_temp=30&min_temp=10&radius=250",
		"radius zero":       "lat=-23.5&lon=-46.6&max_temp=30&min_temp=10&radius=0",
		"negative offset":   "lat=-23.5&lon=-46.6&max_temp=30&min_temp=10&radius=100&offset=-1",
		"fractional offset": "lat=-23.5&lon=-46.6&max_temp=30&min_temp=10&radius=100&offset=1.5",
	}

	for name, query := range cases {
		t.Run(name, func(t *testing.T) {
			s := &fakeSearcher{}
			app := newTestApp(s, &fakePlanner{})

			resp := doGet(t, app, "/api/v1/cities?"+query)
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("expected status %d, got %d", http.StatusBadRequest, resp.StatusCode)
			}
			if len(s.queries) != 0 {
				t.Fatalf("expected no search calls, got %d", len(s.queries))
			}
		})
	}
}

func TestCitiesCollectsUntilPageIsFull(t *testing.T) {
	s := &fakeSearcher{rounds: []round{
		{res: search.Result{Metadata: cities.PageMetadata{NextOffset: 10, TotalCount: 40}, Cities: namedCities("a", 3)}},
		{res: search.Result{Metadata: cities.PageMetadata{NextOffset: 20, TotalCount: 40}, Cities: namedCities("b", 4)}},
		{res: search.Result{Metadata: cities.PageMetadata{NextOffset: 30, TotalCount: 40}, Cities: namedCities("c", 3)}},
	}}
	app := newTestApp(s, &fakePlanner{})

	resp := doGet(t, app, "/api/v1/cities?lat=-23.5&lon=-46.6&max_temp=30&min_temp=10&radius=100")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}
	got := decodeResult(t, resp)

	if len(got.Cities) != 10 {
		t.Fatalf("expected 10 cities, got %d", len(got.Cities))
	}
	if got.Metadata.NextOffset != 30 || got.Metadata.TotalCount != 40 {
		t.Fatalf("unexpected metadata %+v", got.Metadata)
	}

	wantOffsets := []int{0, 10, 20}
	wantLimits := []int{10, 7, 3}
	if len(s.queries) != len(wantOffsets) {
		t.Fatalf("expected %d search calls, got %d", len(wantOffsets), len(s.queries))
	}
	for i, q := range s.queries {
		if q.Offset != wantOffsets[i] || q.Limit != wantLimits[i] {
			t.Fatalf("call %d: expected offset %d limit %d, got offset %d limit %d",
				i, wantOffsets[i], wantLimits[i], q.Offset, q.Limit)
		}
	}
}

func TestCitiesStopsWhenPoolIsExhausted(t *testing.T) {
	s := &fakeSearcher{rounds: []round{
		{res: search.Result{Metadata: cities.PageMetadata{NextOffset: 10, TotalCount: 15}, Cities: namedCities("a", 2)}},
		{res: search.Result{Metadata: cities.PageMetadata{NextOffset: 15, TotalCount: 15}, Cities: namedCities("b", 1)}},
	}}
	app := newTestApp(s, &fakePlanner{})

	resp := doGet(t, app, "/api/v1/cities?lat=-23.5&lon=-46.6&max_temp=30&min_temp=10&radius=100&offset=5")
	got := decodeResult(t, resp)

	if len(got.Cities) != 3 {
		t.Fatalf("expected 3 cities, got %d", len(got.Cities))
	}
	if len(s.queries) != 2 || s.queries[0].Offset != 5 {
		t.Fatalf("unexpected search calls %+v", s.queries)
	}
}

func TestCitiesNoResultsAfterFirstRoundKeepsPartialPage(t *testing.T) {
	s := &fakeSearcher{rounds: []round{
		{res: search.Result{Metadata: cities.PageMetadata{NextOffset: 10, TotalCount: 50}, Cities: namedCities("a", 2)}},
		{err: search.ErrNoCitiesFound},
	}}
	app := newTestApp(s, &fakePlanner{})

	resp := doGet(t, app, "/api/v1/cities?lat=-23.5&lon=-46.6&max_temp=30&min_temp=10&radius=100")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}
	if got := decodeResult(t, resp); len(got.Cities) != 2 {
		t.Fatalf("expected 2 cities, got %d", len(got.Cities))
	}
}

func TestCitiesCachesResponse(t *testing.T) {
	s := &fakeSearcher{rounds: []round{
		{res: search.Result{Metadata: cities.PageMetadata{NextOffset: 10, TotalCount: 10}, Cities: namedCities("a", 1)}},
	}}
	app := newTestApp(s, &fakePlanner{})

	const target = "/api/v1/cities?lat=-23.5&lon=-46.6&max_temp=30&min_temp=10&radius=100.004"
	for i := 0; i < 2; i++ {
		resp := doGet(t, app, target)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("request %d: expected status 200, got %d", i, resp.StatusCode)
		}
	}
	// Radius is rounded to two decimals, so this is the same fingerprint.
	doGet(t, app, "/api/v1/cities?lat=-23.5&lon=-46.6&max_temp=30&min_temp=10&radius=100")

	if len(s.queries) != 1 {
		t.Fatalf("expected 1 search call, got %d", len(s.queries))
	}
	if s.queries[0].RadiusKm != 100 {
		t.Fatalf("expected rounded radius 100, got %v", s.queries[0].RadiusKm)
	}
}

type pagedSource struct {
	records []cities.Candidate
}

func (s *pagedSource) NearbyPlaces(_ context.Context, req cities.PageRequest) (cities.Page, error) {
	page := cities.Page{TotalCount: len(s.records)}
	if req.Offset < len(s.records) {
		page.Results = s.records[req.Offset:min(req.Offset+req.Limit, len(s.records))]
	}
	return page, nil
}

// hotBand returns 40°C for candidates placed at latitudes 5..9 and 20°C elsewhere.
type hotBand struct{}

func (hotBand) FetchForecast(_ context.Context, lat, _ float64) ([]weather.DailyForecast, error) {
	day := weather.DailyForecast{Date: "2024-03-01", TempMax: 20, TempMin: 15}
	if lat >= 5 && lat < 10 {
		day.TempMax = 40
	}
	return []weather.DailyForecast{day}, nil
}

func TestCitiesPageStaysWithinLimitWhenFinderCacheIsWarm(t *testing.T) {
	var records []cities.Candidate
	for i := 0; i < 40; i++ {
		records = append(records, cities.Candidate{Name: fmt.Sprintf("city-%02d", i), Region: "SP", Latitude: float64(i)})
	}
	mem := cache.NewMemory(time.Hour, time.Minute)
	finder := cities.NewFinder(&pagedSource{records: records}, mem, time.Hour)

	// Another caller already fetched a full page at offset 10.
	if _, err := finder.FetchNearby(context.Background(), -23.5, -46.6, 100, 10, 10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	app := fiber.New()
	RegisterRoutes(app, Deps{
		Search:      search.NewService(finder, hotBand{}, 2),
		Planner:     &fakePlanner{},
		Cache:       mem,
		PageLimit:   10,
		MaxRadiusKm: 200,
	})

	resp := doGet(t, app, "/api/v1/cities?lat=-23.5&lon=-46.6&max_temp=30&min_temp=10&radius=100")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}
	got := decodeResult(t, resp)

	// Round one keeps cities 0..4, round two asks for 5 more at offset 10.
	if len(got.Cities) != 10 {
		t.Fatalf("expected 10 cities, got %d", len(got.Cities))
	}
	if got.Metadata.NextOffset != 15 {
		t.Fatalf("expected nextOffset 15, got %d", got.Metadata.NextOffset)
	}
	if last := got.Cities[9].Name; last != "city-14" {
		t.Fatalf("expected last city city-14, got %s", last)
	}
}

func TestCitiesErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"no cities", search.ErrNoCitiesFound, http.StatusNotFound},
		{"breaker open", &providers.UpstreamError{Upstream: "geodb", Err: providers.ErrBreakerOpen}, http.StatusServiceUnavailable},
		{"upstream status", &providers.UpstreamError{Upstream: "openweather", StatusCode: 401, Err: io.ErrUnexpectedEOF}, http.StatusBadGateway},
		{"other", io.ErrClosedPipe, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newTestApp(&fakeSearcher{rounds: []round{{err: tc.err}}}, &fakePlanner{})
			resp := doGet(t, app, "/api/v1/cities?lat=-23.5&lon=-46.6&max_temp=30&min_temp=10&radius=100")
			if resp.StatusCode != tc.want {
				t.Fatalf("expected status %d, got %d", tc.want, resp.StatusCode)
			}
		})
	}
}

func postRecommendations(t *testing.T, app *fiber.App, body string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/recommendations", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return resp
}

func TestRecommendations(t *testing.T) {
	p := &fakePlanner{}
	app := newTestApp(&fakeSearcher{}, p)

	resp := postRecommendations(t, app, `{"cities":[{"name":"Campinas","region":"São Paulo","distance":80,"forecast":[]}]}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("expected text/plain, got %q", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "Dia 1: Campinas" {
		t.Fatalf("unexpected body %q", body)
	}
	if len(p.got) != 1 || p.got[0].Region != "São Paulo" {
		t.Fatalf("planner received %+v", p.got)
	}
}

func TestRecommendationsValidation(t *testing.T) {
	many, _ := json.Marshal(map[string]any{"cities": namedCities("x", 11)})

	cases := map[string]string{
		"malformed":    `{"cities":`,
		"missing":      `{}`,
		"empty":        `{"cities":[]}`,
		"more than 10": string(many),
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			p := &fakePlanner{}
			resp := postRecommendations(t, newTestApp(&fakeSearcher{}, p), body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("expected status %d, got %d", http.StatusBadRequest, resp.StatusCode)
			}
			if p.got != nil {
				t.Fatalf("planner should not be called")
			}
		})
	}
}
