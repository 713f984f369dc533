package domain

import (
	"fmt"
	"strings"
)

// TimeRange selects which summary feed to poll.
type TimeRange string

const (
	RangeHour  TimeRange = "hour"
	RangeDay   TimeRange = "day"
	RangeWeek  TimeRange = "week"
	RangeMonth TimeRange = "month"
	RangeAll   TimeRange = "all"
)

// ParseTimeRange validates a user-supplied range name.
func ParseTimeRange(s string) (TimeRange, error) {
	r := TimeRange(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown time range %q", s)
	}
	return r, nil
}

// FeedName returns the summary feed file for the range. The feed has no
// all-time document, so "all" reads the month feed.
func (r TimeRange) FeedName() string {
	switch r {
	case RangeHour:
		return "all_hour.geojson"
	case RangeWeek:
		return "all_week.geojson"
	case RangeMonth, RangeAll:
		return "all_month.geojson"
	default:
		return "all_day.geojson"
	}
}

// Valid reports whether r is one of the known ranges.
func (r TimeRange) Valid() bool {
	switch r {
	case RangeHour, RangeDay, RangeWeek, RangeMonth, RangeAll:
		return true
	}
	return false
}
