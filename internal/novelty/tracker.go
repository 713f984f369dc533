// Package novelty tracks which quake identifiers have been observed.
package novelty

import "github.com/couchcryptid/quake-monitor-service/internal/domain"

// Tracker is a grow-only set of observed quake identifiers. It is owned by a
// single mutator and is not safe for concurrent use.
type Tracker struct {
	seen map[string]struct{}
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{seen: make(map[string]struct{})}
}

// Diff returns a copy of quakes with IsNew set for identifiers the tracker has
// not observed. It does not record anything; call Commit with the same batch
// afterwards.
func (t *Tracker) Diff(quakes []domain.Quake) []domain.Quake {
	out := make([]domain.Quake, len(quakes))
	for i, q := range quakes {
		_, ok := t.seen[q.ID]
		q.IsNew = !ok
		out[i] = q
	}
	return out
}

// Commit records every identifier in quakes. Known identifiers are a no-op.
func (t *Tracker) Commit(quakes []domain.Quake) {
	for _, q := range quakes {
		t.seen[q.ID] = struct{}{}
	}
}

// Seen reports whether id has been committed.
func (t *Tracker) Seen(id string) bool {
	_, ok := t.seen[id]
	return ok
}

// Len returns the number of committed identifiers.
func (t *Tracker) Len() int { return len(t.seen) }

// Empty reports whether nothing has been committed yet.
func (t *Tracker) Empty() bool { return len(t.seen) == 0 }
