package httpapi

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/climate-trip-planner/internal/cache"
	"github.com/i474232898/climate-trip-planner/internal/common"
	"github.com/i474232898/climate-trip-planner/internal/itinerary"
	"github.com/i474232898/climate-trip-planner/internal/logging"
	"github.com/i474232898/climate-trip-planner/internal/providers"
	"github.com/i474232898/climate-trip-planner/internal/search"
)

var validate = validator.New()

// Searcher is satisfied by *search.Service.
type Searcher interface {
	NearbyByTemperature(ctx context.Context, q search.Query) (search.Result, error)
}

// Planner is satisfied by *itinerary.Planner.
type Planner interface {
	Plan(ctx context.Context, cities []search.CityForecast) (string, error)
}

// Deps are the collaborators and limits used by the handlers.
type Deps struct {
	Search      Searcher
	Planner     Planner
	Cache       cache.Cache
	CacheTTL    time.Duration
	PageLimit   int
	MaxRadiusKm float64
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, deps Deps) {
	if deps.CacheTTL <= 0 {
		deps.CacheTTL = cache.DefaultTTL
	}
	if deps.PageLimit <= 0 {
		deps.PageLimit = 10
	}

	v1 := app.Group("/api/v1")

	v1.Get("/cities", func(c *fiber.Ctx) error {
		var q citiesQuery
		if err := q.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if q.Radius > deps.MaxRadiusKm {
			return fiber.NewError(fiber.StatusBadRequest,
				fmt.Sprintf("radius must be greater than 0 and at most %gkm", deps.MaxRadiusKm))
		}

		ctx := c.UserContext()
		key := cache.Key("cities", q.Lat, q.Lon, q.MaxTemp, q.MinTemp, q.Radius, q.Offset)

		cached, ok, err := cache.GetJSON[search.Result](ctx, deps.Cache, key)
		if err != nil {
			return toFiberError(err)
		}
		if ok {
			return c.JSON(cached)
		}

		result, err := collectPage(ctx, deps.Search, q.toQuery(), deps.PageLimit)
		if err != nil {
			return toFiberError(err)
		}

		if err := cache.SetJSON(ctx, deps.Cache, key, result, deps.CacheTTL); err != nil {
			logging.Warn().Err(err).Str("key", key).Msg("failed to cache cities response")
		}
		return c.JSON(result)
	})

	v1.Post("/recommendations", func(c *fiber.Ctx) error {
		var req recommendationRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		text, err := deps.Planner.Plan(c.UserContext(), req.Cities)
		if err != nil {
			return toFiberError(err)
		}

		c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
		return c.SendString(text)
	})
}

// collectPage keeps asking for the remaining quota until limit matches are
// collected or the candidate pool runs out. Running out of cities after the
// first round ends the loop with what was gathered.
func collectPage(ctx context.Context, s Searcher, q search.Query, limit int) (search.Result, error) {
	out := search.Result{Cities: []search.CityForecast{}}
	out.Metadata.NextOffset = q.Offset

	for round := 0; len(out.Cities) < limit; round++ {
		q.Offset = out.Metadata.NextOffset
		q.Limit = limit - len(out.Cities)

		res, err := s.NearbyByTemperature(ctx, q)
		if err != nil {
			if round > 0 && errors.Is(err, search.ErrNoCitiesFound) {
				break
			}
			return search.Result{}, err
		}

		out.Cities = append(out.Cities, res.Cities...)
		out.Metadata = res.Metadata
		if out.Metadata.Exhausted() || out.Metadata.NextOffset <= q.Offset {
			break
		}
	}
	return out, nil
}

func toFiberError(err error) error {
	var upstream *providers.UpstreamError
	switch {
	case errors.Is(err, search.ErrNoCitiesFound):
		return fiber.NewError(fiber.StatusNotFound, "no cities found for the requested area")
	case errors.Is(err, itinerary.ErrNoCities), errors.Is(err, itinerary.ErrTooManyCities):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, providers.ErrBreakerOpen):
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	case errors.As(err, &upstream):
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	default:
		logging.Error().Err(err).Msg("request failed")
		return fiber.NewError(fiber.StatusInternalServerError, "internal error")
	}
}

// citiesQuery holds query parameters for the cities endpoint.
type citiesQuery struct {
	Lat     float64 `validate:"gte=-90,lte=90"`
	Lon     float64 `validate:"gte=-180,lte=180"`
	MaxTemp float64 `validate:"gtefield=MinTemp"`
	MinTemp float64
	Radius  float64 `validate:"gt=0"`
	Offset  int     `validate:"gte=0"`
}

func (q *citiesQuery) bind(c *fiber.Ctx) error {
	floats := []struct {
		name string
		dst  *float64
	}{
		{"lat", &q.Lat},
		{"lon", &q.Lon},
		{"max_temp", &q.MaxTemp},
		{"min_temp", &q.MinTemp},
		{"radius", &q.Radius},
	}
	for _, f := range floats {
		raw := c.Query(f.name)
		if raw == "" {
			return fmt.Errorf("%s query parameter is required", f.name)
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%s must be a number", f.name)
		}
		*f.dst = v
	}
	q.Radius = common.RoundTo(q.Radius, 2)

	if raw := c.Query("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return errors.New("offset must be an integer")
		}
		q.Offset = n
	}
	return nil
}

func (q citiesQuery) toQuery() search.Query {
	return search.Query{
		Lat:      q.Lat,
		Lon:      q.Lon,
		MaxTemp:  q.MaxTemp,
		MinTemp:  q.MinTemp,
		RadiusKm: q.Radius,
		Offset:   q.Offset,
	}
}

type recommendationRequest struct {
	Cities []search.CityForecast `json:"cities" validate:"required,min=1,max=10"`
}
