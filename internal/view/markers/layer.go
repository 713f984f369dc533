// Package markers holds the server-side copy of the browser map's marker
// layer and serves it as GeoJSON.
package markers

import (
	"fmt"
	"sync"

	"github.com/couchcryptid/quake-monitor-service/internal/domain"
	"github.com/couchcryptid/quake-monitor-service/internal/view"
)

// Layer is an in-memory view.MarkerMap. Writes come from the synchronizer;
// reads come from HTTP handlers.
type Layer struct {
	mu      sync.RWMutex
	order   []string
	markers map[string]view.Marker
	bounds  *view.Bounds
	adds    int
	removes int
}

// NewLayer returns an empty layer.
func NewLayer() *Layer {
	return &Layer{markers: make(map[string]view.Marker)}
}

// Add places a marker. Adding an identifier twice replaces the first marker.
func (l *Layer) Add(m view.Marker) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.markers[m.ID]; !ok {
		l.order = append(l.order, m.ID)
	}
	l.markers[m.ID] = m
	l.adds++
}

// Remove drops a marker; unknown identifiers are ignored.
func (l *Layer) Remove(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.markers[id]; !ok {
		return
	}
	delete(l.markers, id)
	for i, v := range l.order {
		if v == id {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
	l.removes++
}

// FitBounds records the viewport the map should show. nil clears it.
func (l *Layer) FitBounds(b *view.Bounds) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if b == nil {
		l.bounds = nil
		return
	}
	fit := *b
	l.bounds = &fit
}

// Reorder arranges the markers to follow ids. Identifiers not on the layer
// are skipped; markers missing from ids keep their relative order at the end.
func (l *Layer) Reorder(ids []string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	order := make([]string, 0, len(l.order))
	placed := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := l.markers[id]; ok && !placed[id] {
			order = append(order, id)
			placed[id] = true
		}
	}
	for _, id := range l.order {
		if !placed[id] {
			order = append(order, id)
		}
	}
	l.order = order
}

// Len returns the number of markers on the layer.
func (l *Layer) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.markers)
}

// Ops returns the cumulative add and remove counts.
func (l *Layer) Ops() (adds, removes int) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.adds, l.removes
}

// Markers returns the markers in display order.
func (l *Layer) Markers() []view.Marker {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]view.Marker, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, l.markers[id])
	}
	return out
}

// FeatureCollection is the GeoJSON document served to the map.
type FeatureCollection struct {
	Type     string       `json:"type"`
	Features []Feature    `json:"features"`
	Bounds   *view.Bounds `json:"bounds,omitempty"`
	Empty    string       `json:"empty,omitempty"`
}

// Feature is one GeoJSON point feature.
type Feature struct {
	Type       string         `json:"type"`
	ID         string         `json:"id"`
	Geometry   Point          `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

// Point is a GeoJSON point in [lon, lat] order.
type Point struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

// GeoJSON renders the layer in display order, including the last fitted
// bounds.
func (l *Layer) GeoJSON() FeatureCollection {
	l.mu.RLock()
	defer l.mu.RUnlock()

	fc := FeatureCollection{Type: "FeatureCollection", Features: make([]Feature, 0, len(l.order))}
	if l.bounds != nil {
		b := *l.bounds
		fc.Bounds = &b
	}
	if len(l.order) == 0 {
		fc.Empty = view.EmptyMessage
	}
	for _, id := range l.order {
		m := l.markers[id]
		fc.Features = append(fc.Features, Feature{
			Type: "Feature",
			ID:   m.ID,
			Geometry: Point{
				Type:        "Point",
				Coordinates: [2]float64{m.Coordinates.Lon, m.Coordinates.Lat},
			},
			Properties: map[string]any{
				"title":     m.Title,
				"place":     m.Place,
				"magnitude": m.Magnitude,
				"depth":     m.Depth,
				"time":      m.Time,
				"url":       m.URL,
				"popup":     popup(m),
				"radius":    m.Style.Radius,
				"color":     m.Style.Fill,
				"class":     m.Style.Class,
			},
		})
	}
	return fc
}

func popup(m view.Marker) string {
	return fmt.Sprintf("M%.1f %s\n%s\n%s", m.Magnitude, m.Place, domain.FormatDepth(m.Depth), domain.FormatDate(m.Time))
}
