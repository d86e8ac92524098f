// Package itinerary asks a text-generation upstream for a travel itinerary
// covering a list of cities and their forecasts.
package itinerary

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/i474232898/climate-trip-planner/internal/search"
)

// MaxCities is the largest city list accepted by Plan.
const MaxCities = 10

const promptHeader = "Gere um roteiro de viagem de 5 dias começando na primeira cidade do array JSON a seguir " +
	"e podendo conter as localidades restantes (considere também o clima de cada dia):\n "

var (
	ErrNoCities      = errors.New("at least one city is required")
	ErrTooManyCities = fmt.Errorf("at most %d cities are allowed", MaxCities)
)

// Generator produces text from a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Planner struct {
	gen Generator
}

func NewPlanner(gen Generator) *Planner {
	return &Planner{gen: gen}
}

// Plan builds the itinerary prompt for cities, starting at the first one,
// and returns the generated text.
func (p *Planner) Plan(ctx context.Context, cities []search.CityForecast) (string, error) {
	prompt, err := BuildPrompt(cities)
	if err != nil {
		return "", err
	}
	return p.gen.Generate(ctx, prompt)
}

// BuildPrompt renders the prompt sent to the generator.
func BuildPrompt(cities []search.CityForecast) (string, error) {
	switch {
	case len(cities) == 0:
		return "", ErrNoCities
	case len(cities) > MaxCities:
		return "", ErrTooManyCities
	}

	body, err := json.MarshalIndent(cities, "", "    ")
	if err != nil {
		return "", fmt.Errorf("encode cities: %w", err)
	}
	return promptHeader + string(body), nil
}
