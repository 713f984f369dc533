package view

import (
	"math"
	"sort"

	"github.com/couchcryptid/quake-monitor-service/internal/domain"
)

// MarkerMap is the map widget the synchronizer drives.
type MarkerMap interface {
	Add(m Marker)
	Remove(id string)
	// FitBounds sets the viewport; nil means there is nothing to show.
	FitBounds(b *Bounds)
}

// orderedMap is implemented by maps that keep their markers in sequence
// order.
type orderedMap interface {
	Reorder(ids []string)
}

// Synchronizer derives the list and the map from one view sequence and
// keeps the map's marker set equal to it. It is not safe for concurrent
// use; callers serialize access.
type Synchronizer struct {
	m        MarkerMap
	rendered map[string]Marker
	frame    Frame
}

// NewSynchronizer returns a Synchronizer that has rendered nothing yet.
func NewSynchronizer(m MarkerMap) *Synchronizer {
	return &Synchronizer{
		m:        m,
		rendered: make(map[string]Marker),
		frame:    Frame{Items: []ListItem{}, Markers: []Marker{}},
	}
}

// Render replaces the list and reconciles the map against seq. Exactly one
// marker per record remains afterwards.
func (s *Synchronizer) Render(seq []domain.Quake) Frame {
	f := NewFrame(seq)
	s.reconcile(f.Markers)
	if o, ok := s.m.(orderedMap); ok {
		ids := make([]string, len(f.Markers))
		for i, m := range f.Markers {
			ids[i] = m.ID
		}
		o.Reorder(ids)
	}
	s.m.FitBounds(f.Bounds)
	s.frame = f
	return f
}

// RenderError shows the failure affordance in the list and leaves the map
// as it was.
func (s *Synchronizer) RenderError() Frame {
	f := Frame{
		Items:   []ListItem{},
		Markers: s.frame.Markers,
		Bounds:  s.frame.Bounds,
		Error:   ErrorMessage,
	}
	s.frame = f
	return f
}

// Frame returns the most recent frame.
func (s *Synchronizer) Frame() Frame {
	return s.frame
}

// Locate finds the list position and marker for a record identifier.
func (s *Synchronizer) Locate(id string) (Focus, bool) {
	for i, m := range s.frame.Markers {
		if m.ID == id {
			return Focus{Index: i, Marker: m}, true
		}
	}
	return Focus{}, false
}

// LocateNear matches by coordinates when no identifier is available.
func (s *Synchronizer) LocateNear(lat, lon float64) (Focus, bool) {
	for i, m := range s.frame.Markers {
		if math.Abs(m.Coordinates.Lat-lat) <= nearTolerance && math.Abs(m.Coordinates.Lon-lon) <= nearTolerance {
			return Focus{Index: i, Marker: m}, true
		}
	}
	return Focus{}, false
}

// reconcile removes stale or changed markers, then adds missing ones.
func (s *Synchronizer) reconcile(desired []Marker) {
	want := make(map[string]Marker, len(desired))
	for _, m := range desired {
		want[m.ID] = m
	}

	var stale []string
	for id, have := range s.rendered {
		if m, ok := want[id]; !ok || m != have {
			stale = append(stale, id)
		}
	}
	sort.Strings(stale)
	for _, id := range stale {
		s.m.Remove(id)
		delete(s.rendered, id)
	}

	for _, m := range desired {
		if _, ok := s.rendered[m.ID]; ok {
			continue
		}
		s.m.Add(m)
		s.rendered[m.ID] = m
	}
}
