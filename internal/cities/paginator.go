package cities

import (
	"context"
	"time"

	"github.com/i474232898/climate-trip-planner/internal/cache"
)

// Finder pages through the nearby-places upstream until it has collected the
// requested number of distinct cities.
type Finder struct {
	source Source
	cache  cache.Cache
	ttl    time.Duration
}

// NewFinder creates a Finder. A ttl <= 0 uses cache.DefaultTTL.
func NewFinder(source Source, c cache.Cache, ttl time.Duration) *Finder {
	if ttl <= 0 {
		ttl = cache.DefaultTTL
	}
	return &Finder{source: source, cache: c, ttl: ttl}
}

// cachedNearby is the stored form of a FetchNearby result. Cursors[i] is the
// upstream offset just past the page that yielded Result.Cities[i], so a
// cached run can be cut down to a smaller target with a matching NextOffset.
// Drained marks a run that stopped on an empty page.
type cachedNearby struct {
	Result  NearbyResult `json:"result"`
	Cursors []int        `json:"cursors"`
	Drained bool         `json:"drained"`
}

// serve answers a request for targetCount cities from a cached run. It
// reports false when the run cannot stand in for a fresh one: it holds fewer
// cities than asked for and the upstream was not drained, or cutting it would
// drop cities from the middle of an upstream page.
func (c cachedNearby) serve(targetCount int) (NearbyResult, bool) {
	n := len(c.Result.Cities)
	switch {
	case targetCount <= 0:
		return NearbyResult{Metadata: c.Result.Metadata, Cities: []Candidate{}}, c.Drained || n == 0
	case n > targetCount:
		if c.Cursors[targetCount-1] == c.Cursors[targetCount] {
			return NearbyResult{}, false
		}
		return NearbyResult{
			Metadata: PageMetadata{NextOffset: c.Cursors[targetCount-1], TotalCount: c.Result.Metadata.TotalCount},
			Cities:   c.Result.Cities[:targetCount],
		}, true
	case n == targetCount || c.Drained:
		return c.Result, true
	default:
		return NearbyResult{}, false
	}
}

// FetchNearby returns up to targetCount distinct cities around (lat, lon),
// starting at startOffset in the upstream result set.
//
// Pages are requested one at a time, each sized to the number of cities still
// missing. The loop stops when targetCount is reached or the upstream returns
// an empty page.
//
// The returned NextOffset is startOffset plus the number of raw records the
// upstream returned, duplicates included, up to the page that completed the
// result. It is not a multiple of the requested page size: pass it back
// unchanged as the next startOffset.
//
// Results are cached by (lat, lon, radiusKm, startOffset). A cached run is
// reused for a different targetCount only when it can be cut at a page
// boundary or already covers the request; otherwise the upstream is paged
// again and the entry replaced. The result never holds more than targetCount
// cities.
func (f *Finder) FetchNearby(ctx context.Context, lat, lon, radiusKm float64, startOffset, targetCount int) (NearbyResult, error) {
	key := cache.Key("nearby", lat, lon, radiusKm, startOffset)

	cached, ok, err := cache.GetJSON[cachedNearby](ctx, f.cache, key)
	if err != nil {
		return NearbyResult{}, err
	}
	if ok && len(cached.Cursors) == len(cached.Result.Cities) {
		if res, hit := cached.serve(targetCount); hit {
			return res, nil
		}
	}

	var (
		acc     = make([]Candidate, 0, max(targetCount, 0))
		cursors = make([]int, 0, max(targetCount, 0))
		seen    = make(map[identity]struct{})
		offset  = startOffset
		total   int
		drained bool
	)

	for len(acc) < targetCount {
		page, err := f.source.NearbyPlaces(ctx, PageRequest{
			Lat:      lat,
			Lon:      lon,
			RadiusKm: radiusKm,
			Limit:    targetCount - len(acc),
			Offset:   offset,
		})
		if err != nil {
			return NearbyResult{}, err
		}
		total = page.TotalCount

		if len(page.Results) == 0 {
			drained = true
			break
		}

		// The cursor moves by the records the upstream returned, not by the
		// requested limit nor by the number of new cities kept.
		offset += len(page.Results)

		for _, c := range Dedup(page.Results) {
			id := c.identity()
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			acc = append(acc, c)
			cursors = append(cursors, offset)
		}
	}

	if len(acc) > targetCount {
		acc = acc[:targetCount]
		cursors = cursors[:targetCount]
	}

	entry := cachedNearby{
		Result: NearbyResult{
			Metadata: PageMetadata{NextOffset: offset, TotalCount: total},
			Cities:   acc,
		},
		Cursors: cursors,
		Drained: drained,
	}

	if err := cache.SetJSON(ctx, f.cache, key, entry, f.ttl); err != nil {
		return NearbyResult{}, err
	}
	return entry.Result, nil
}
