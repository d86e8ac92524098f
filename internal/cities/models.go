package cities

import "context"

// Candidate is a city returned by the nearby-places upstream.
// Two candidates with the same Name and Region are the same city,
// whatever their coordinates or distance.
type Candidate struct {
	Name      string  `json:"name"`
	Region    string  `json:"region"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Distance  float64 `json:"distance"`
}

type identity struct {
	name   string
	region string
}

func (c Candidate) identity() identity {
	return identity{name: c.Name, region: c.Region}
}

// PageMetadata is the pagination cursor returned with every result set.
// TotalCount comes from the upstream; NextOffset addresses the next upstream page.
type PageMetadata struct {
	NextOffset int `json:"nextOffset"`
	TotalCount int `json:"totalCount"`
}

// Exhausted reports whether there is nothing left to page through.
func (m PageMetadata) Exhausted() bool {
	return m.NextOffset >= m.TotalCount
}

// NearbyResult is the deduplicated output of one FetchNearby call.
type NearbyResult struct {
	Metadata PageMetadata `json:"metadata"`
	Cities   []Candidate  `json:"cities"`
}

// PageRequest addresses one page of the nearby-places upstream.
type PageRequest struct {
	Lat      float64
	Lon      float64
	RadiusKm float64
	Limit    int
	Offset   int
}

// Page is one raw upstream page. An empty Results slice means the upstream is exhausted.
type Page struct {
	Results    []Candidate
	TotalCount int
}

// Source abstracts the nearby-places upstream (e.g. GeoDB Cities).
type Source interface {
	NearbyPlaces(ctx context.Context, req PageRequest) (Page, error)
}
