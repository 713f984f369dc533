package domain

import (
	"context"
	"log/slog"
)

// EnrichPlaces fills in place labels the feed left empty by reverse geocoding
// the epicenter. Records that already carry a feed label are untouched. A nil
// geocoder or a failed lookup leaves the record as-is (graceful degradation).
func EnrichPlaces(ctx context.Context, quakes []Quake, geocoder Geocoder, logger *slog.Logger) []Quake {
	if geocoder == nil {
		return quakes
	}
	for i := range quakes {
		quakes[i] = enrichPlace(ctx, quakes[i], geocoder, logger)
	}
	return quakes
}

func enrichPlace(ctx context.Context, q Quake, geocoder Geocoder, logger *slog.Logger) Quake {
	if q.PlaceSource == PlaceSourceFeed {
		return q
	}
	if q.Coordinates.Lat == 0 && q.Coordinates.Lon == 0 {
		return q
	}

	result, err := geocoder.ReverseGeocode(ctx, q.Coordinates.Lat, q.Coordinates.Lon)
	if err != nil {
		logger.Warn("reverse geocoding failed",
			"quake_id", q.ID,
			"lat", q.Coordinates.Lat,
			"lon", q.Coordinates.Lon,
			"error", err,
		)
		return q
	}
	if result.FormattedAddress == "" {
		return q
	}

	q.Place = result.FormattedAddress
	q.PlaceSource = PlaceSourceReverse
	return q
}
