package domain

import "time"

// UnknownPlace is the location label used when the feed omits one and no
// geocoder could supply it.
const UnknownPlace = "Unknown location"

// Place sources recorded on Quake.PlaceSource.
const (
	PlaceSourceFeed    = "feed"
	PlaceSourceReverse = "reverse"
	PlaceSourceUnknown = "unknown"
)

// Coordinates is a WGS-84 latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Quake is the normalized form of one feed feature.
type Quake struct {
	ID          string      `json:"id"`
	Magnitude   float64     `json:"magnitude"`
	Place       string      `json:"place"`
	PlaceSource string      `json:"place_source,omitempty"`
	Time        int64       `json:"time"` // epoch millis, as supplied by the feed
	Depth       float64     `json:"depth"`
	Coordinates Coordinates `json:"coordinates"`
	URL         string      `json:"url,omitempty"`
	Title       string      `json:"title,omitempty"`

	// IsNew is computed by the novelty tracker for the current cycle only.
	IsNew bool `json:"is_new"`
}

// OccurredAt returns the origin time as a UTC time.Time.
func (q Quake) OccurredAt() time.Time {
	return time.UnixMilli(q.Time).UTC()
}

// DisplayTitle prefers the feed title and falls back to the place label.
func (q Quake) DisplayTitle() string {
	if q.Title != "" {
		return q.Title
	}
	return q.Place
}

// Significant reports whether the event is large enough to alert on.
func (q Quake) Significant() bool {
	return q.Magnitude >= SignificantMagnitude
}

// Feed wire types. Pointer fields distinguish null from zero.

type featureCollection struct {
	Features *[]feature `json:"features"`
}

type feature struct {
	ID         string     `json:"id"`
	Properties properties `json:"properties"`
	Geometry   geometry   `json:"geometry"`
}

type properties struct {
	Mag   *float64 `json:"mag"`
	Place *string  `json:"place"`
	Time  int64    `json:"time"`
	URL   string   `json:"url"`
	Title string   `json:"title"`
}

type geometry struct {
	Coordinates []*float64 `json:"coordinates"` // [lon, lat, depth]
}
