package domain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// DepthBand restricts results to a hypocenter depth range.
type DepthBand string

const (
	DepthAll          DepthBand = "all"
	DepthShallow      DepthBand = "shallow"
	DepthIntermediate DepthBand = "intermediate"
	DepthDeep         DepthBand = "deep"
)

// Depth band boundaries in km.
const (
	shallowMaxDepth      = 70.0
	intermediateMaxDepth = 300.0
)

// SortKey selects the ordering of the filtered result.
type SortKey string

const (
	SortTimeDesc      SortKey = "time-desc"
	SortTimeAsc       SortKey = "time-asc"
	SortMagnitudeDesc SortKey = "magnitude-desc"
	SortMagnitudeAsc  SortKey = "magnitude-asc"
	SortDepthDesc     SortKey = "depth-desc"
	SortDepthAsc      SortKey = "depth-asc"
)

// Criteria is the user-selected filter and sort.
type Criteria struct {
	MinMagnitude float64   `json:"min_magnitude"`
	Depth        DepthBand `json:"depth"`
	Search       string    `json:"search"`
	Sort         SortKey   `json:"sort"`
}

// DefaultCriteria matches everything, newest first.
func DefaultCriteria() Criteria {
	return Criteria{Depth: DepthAll, Sort: SortTimeDesc}
}

// ParseCriteria builds Criteria from user-supplied strings. Unknown depth
// bands fall back to all and unknown sorts to time-desc; an unparsable
// magnitude is an error.
func ParseCriteria(minMagnitude, depth, search, sortKey string) (Criteria, error) {
	c := DefaultCriteria()

	if s := strings.TrimSpace(minMagnitude); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Criteria{}, fmt.Errorf("invalid min magnitude %q: %w", minMagnitude, err)
		}
		c.MinMagnitude = v
	}
	c.Depth = normalizeDepthBand(DepthBand(strings.ToLower(strings.TrimSpace(depth))))
	c.Search = search
	c.Sort = normalizeSortKey(SortKey(strings.ToLower(strings.TrimSpace(sortKey))))
	return c, nil
}

// Normalized returns c with unknown enum values replaced by their defaults.
func (c Criteria) Normalized() Criteria {
	c.Depth = normalizeDepthBand(c.Depth)
	c.Sort = normalizeSortKey(c.Sort)
	return c
}

func normalizeDepthBand(b DepthBand) DepthBand {
	switch b {
	case DepthShallow, DepthIntermediate, DepthDeep:
		return b
	default:
		return DepthAll
	}
}

func normalizeSortKey(k SortKey) SortKey {
	switch k {
	case SortTimeDesc, SortTimeAsc, SortMagnitudeDesc, SortMagnitudeAsc, SortDepthDesc, SortDepthAsc:
		return k
	default:
		return SortTimeDesc
	}
}

// InBand reports whether depth (km) falls in the band.
func (b DepthBand) InBand(depth float64) bool {
	switch b {
	case DepthShallow:
		return depth <= shallowMaxDepth
	case DepthIntermediate:
		return depth > shallowMaxDepth && depth <= intermediateMaxDepth
	case DepthDeep:
		return depth > intermediateMaxDepth
	default:
		return true
	}
}

// Matches applies the filter predicate to a single quake.
func (c Criteria) Matches(q Quake) bool {
	if q.Magnitude < c.MinMagnitude {
		return false
	}
	if !c.Depth.InBand(q.Depth) {
		return false
	}
	needle := strings.ToLower(strings.TrimSpace(c.Search))
	if needle != "" && !strings.Contains(strings.ToLower(q.Place), needle) {
		return false
	}
	return true
}

// Select filters and sorts all by c. The input is not modified; equal keys
// keep their input order.
func Select(all []Quake, c Criteria) []Quake {
	c = c.Normalized()

	out := make([]Quake, 0, len(all))
	for _, q := range all {
		if c.Matches(q) {
			out = append(out, q)
		}
	}

	less := lessFunc(c.Sort)
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func lessFunc(k SortKey) func(a, b Quake) bool {
	switch k {
	case SortTimeAsc:
		return func(a, b Quake) bool { return a.Time < b.Time }
	case SortMagnitudeDesc:
		return func(a, b Quake) bool { return a.Magnitude > b.Magnitude }
	case SortMagnitudeAsc:
		return func(a, b Quake) bool { return a.Magnitude < b.Magnitude }
	case SortDepthDesc:
		return func(a, b Quake) bool { return a.Depth > b.Depth }
	case SortDepthAsc:
		return func(a, b Quake) bool { return a.Depth < b.Depth }
	default:
		return func(a, b Quake) bool { return a.Time > b.Time }
	}
}
