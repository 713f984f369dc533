package view

import (
	"fmt"

	"github.com/couchcryptid/quake-monitor-service/internal/domain"
)

// List affordances shown in place of items.
const (
	EmptyMessage = "No earthquakes found"
	ErrorMessage = "Failed to load earthquake data"
)

// boundsPadding expands the fitted bounds by 10% on each side.
const boundsPadding = 0.1

// nearTolerance is the coordinate match window, in degrees, for LocateNear.
const nearTolerance = 0.001

// ListItem is one row of the list view.
type ListItem struct {
	ID             string                `json:"id"`
	Title          string                `json:"title"`
	Place          string                `json:"place"`
	Magnitude      float64               `json:"magnitude"`
	MagnitudeLabel string                `json:"magnitude_label"`
	Class          domain.MagnitudeClass `json:"class"`
	Badge          string                `json:"badge"`
	Depth          float64               `json:"depth"`
	DepthLabel     string                `json:"depth_label"`
	Time           int64                 `json:"time"`
	RelativeTime   string                `json:"relative_time"`
	Date           string                `json:"date"`
	URL            string                `json:"url,omitempty"`
	IsNew          bool                  `json:"is_new"`
}

// Marker is the desired map marker for one record. Two markers with the
// same ID but different fields are treated as a replacement.
type Marker struct {
	ID          string             `json:"id"`
	Coordinates domain.Coordinates `json:"coordinates"`
	Magnitude   float64            `json:"magnitude"`
	Depth       float64            `json:"depth"`
	Title       string             `json:"title"`
	Place       string             `json:"place"`
	Time        int64              `json:"time"`
	URL         string             `json:"url,omitempty"`
	Style       domain.Style       `json:"style"`
}

// Bounds is a lat/lon bounding box.
type Bounds struct {
	South float64 `json:"south"`
	West  float64 `json:"west"`
	North float64 `json:"north"`
	East  float64 `json:"east"`
}

// Pad grows the box by ratio of its height and width on every side.
func (b Bounds) Pad(ratio float64) Bounds {
	dLat := (b.North - b.South) * ratio
	dLon := (b.East - b.West) * ratio
	return Bounds{
		South: b.South - dLat,
		West:  b.West - dLon,
		North: b.North + dLat,
		East:  b.East + dLon,
	}
}

// Frame is one rendered view: either items with markers, or an affordance.
type Frame struct {
	Items   []ListItem `json:"items"`
	Markers []Marker   `json:"markers"`
	Bounds  *Bounds    `json:"bounds,omitempty"`
	Empty   string     `json:"empty,omitempty"`
	Error   string     `json:"error,omitempty"`
}

// Focus is the result of locating a record in the current frame.
type Focus struct {
	Index  int    `json:"index"`
	Marker Marker `json:"marker"`
}

// NewFrame derives the list and marker set for seq without touching any
// map.
func NewFrame(seq []domain.Quake) Frame {
	f := Frame{
		Items:   make([]ListItem, 0, len(seq)),
		Markers: make([]Marker, 0, len(seq)),
	}
	for _, q := range seq {
		f.Items = append(f.Items, listItem(q))
		f.Markers = append(f.Markers, marker(q))
	}
	f.Bounds = boundsOf(f.Markers)
	if len(seq) == 0 {
		f.Empty = EmptyMessage
	}
	return f
}

func listItem(q domain.Quake) ListItem {
	style := domain.StyleFor(q.Magnitude)
	return ListItem{
		ID:             q.ID,
		Title:          q.DisplayTitle(),
		Place:          q.Place,
		Magnitude:      q.Magnitude,
		MagnitudeLabel: fmt.Sprintf("%.1f", q.Magnitude),
		Class:          style.Class,
		Badge:          style.Color,
		Depth:          q.Depth,
		DepthLabel:     domain.FormatDepth(q.Depth),
		Time:           q.Time,
		RelativeTime:   domain.RelativeTime(q.Time),
		Date:           domain.FormatDate(q.Time),
		URL:            q.URL,
		IsNew:          q.IsNew,
	}
}

func marker(q domain.Quake) Marker {
	return Marker{
		ID:          q.ID,
		Coordinates: q.Coordinates,
		Magnitude:   q.Magnitude,
		Depth:       q.Depth,
		Title:       q.DisplayTitle(),
		Place:       q.Place,
		Time:        q.Time,
		URL:         q.URL,
		Style:       domain.StyleFor(q.Magnitude),
	}
}

func boundsOf(markers []Marker) *Bounds {
	if len(markers) == 0 {
		return nil
	}
	b := Bounds{
		South: markers[0].Coordinates.Lat,
		North: markers[0].Coordinates.Lat,
		West:  markers[0].Coordinates.Lon,
		East:  markers[0].Coordinates.Lon,
	}
	for _, m := range markers[1:] {
		b.South = min(b.South, m.Coordinates.Lat)
		b.North = max(b.North, m.Coordinates.Lat)
		b.West = min(b.West, m.Coordinates.Lon)
		b.East = max(b.East, m.Coordinates.Lon)
	}
	padded := b.Pad(boundsPadding)
	return &padded
}
