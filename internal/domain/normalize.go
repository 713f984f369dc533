package domain

import (
	"encoding/json"
	"fmt"
)

// Normalize decodes a GeoJSON summary payload into quakes, preserving feed
// order. A payload without a top-level "features" array fails with
// ErrMalformedFeed. Features without an id are dropped, and repeated ids keep
// their first occurrence so identifiers stay unique within one batch.
func Normalize(payload []byte) ([]Quake, error) {
	var fc featureCollection
	if err := json.Unmarshal(payload, &fc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFeed, err)
	}
	if fc.Features == nil {
		return nil, fmt.Errorf("%w: missing features collection", ErrMalformedFeed)
	}

	features := *fc.Features
	out := make([]Quake, 0, len(features))
	seen := make(map[string]struct{}, len(features))
	for i := range features {
		f := &features[i]
		if f.ID == "" {
			continue
		}
		if _, dup := seen[f.ID]; dup {
			continue
		}
		seen[f.ID] = struct{}{}
		out = append(out, normalizeFeature(f))
	}
	return out, nil
}

func normalizeFeature(f *feature) Quake {
	q := Quake{
		ID:          f.ID,
		Magnitude:   valueOrZero(f.Properties.Mag),
		Place:       UnknownPlace,
		PlaceSource: PlaceSourceUnknown,
		Time:        f.Properties.Time,
		URL:         f.Properties.URL,
		Title:       f.Properties.Title,
	}
	if f.Properties.Place != nil && *f.Properties.Place != "" {
		q.Place = *f.Properties.Place
		q.PlaceSource = PlaceSourceFeed
	}

	// Feed order is [lon, lat, depth].
	c := f.Geometry.Coordinates
	if len(c) >= 2 {
		q.Coordinates = Coordinates{Lat: valueOrZero(c[1]), Lon: valueOrZero(c[0])}
	}
	if len(c) >= 3 {
		q.Depth = valueOrZero(c[2])
	}
	return q
}

func valueOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
