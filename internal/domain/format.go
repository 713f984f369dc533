package domain

import (
	"fmt"
	"time"
)

// RelativeTime renders an event time the way the list shows it: "Just now",
// "12m ago", "3h ago", or a clock time for events older than a day.
func RelativeTime(epochMillis int64) string {
	t := time.UnixMilli(epochMillis).UTC()
	minutes := int(clock.Now().Sub(t) / time.Minute)

	switch {
	case minutes < 1:
		return "Just now"
	case minutes < 60:
		return fmt.Sprintf("%dm ago", minutes)
	case minutes < 24*60:
		return fmt.Sprintf("%dh ago", minutes/60)
	default:
		return t.Format("15:04")
	}
}

// FormatDate renders the calendar date of an event time.
func FormatDate(epochMillis int64) string {
	return time.UnixMilli(epochMillis).UTC().Format("2006-01-02")
}

// FormatDepth renders a depth label; a zero depth is reported as unknown.
func FormatDepth(depth float64) string {
	if depth == 0 {
		return "Depth unknown"
	}
	return fmt.Sprintf("%.1f km deep", depth)
}
