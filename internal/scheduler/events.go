package scheduler

import "github.com/couchcryptid/quake-monitor-service/internal/domain"

// Event is one of the closed set of signals the scheduler reacts to.
type Event interface {
	trigger() string
}

// ManualRefresh is an explicit user request for a cycle.
type ManualRefresh struct{}

// TimeRangeChanged selects a different feed window. The range is applied
// even when the accompanying cycle request is coalesced.
type TimeRangeChanged struct {
	Range domain.TimeRange
}

// TimerTick is emitted by the periodic timer.
type TimerTick struct{}

// VisibilityResumed reports that the page became visible again.
type VisibilityResumed struct{}

// VisibilityHidden reports that the page was hidden.
type VisibilityHidden struct{}

// NetworkRestored reports that connectivity came back.
type NetworkRestored struct{}

// NetworkLost reports that connectivity dropped.
type NetworkLost struct{}

type startup struct{}

func (ManualRefresh) trigger() string     { return "manual" }
func (TimeRangeChanged) trigger() string  { return "time_range" }
func (TimerTick) trigger() string         { return "timer" }
func (VisibilityResumed) trigger() string { return "visibility_resumed" }
func (VisibilityHidden) trigger() string  { return "visibility_hidden" }
func (NetworkRestored) trigger() string   { return "network_restored" }
func (NetworkLost) trigger() string       { return "network_lost" }
func (startup) trigger() string           { return "startup" }
