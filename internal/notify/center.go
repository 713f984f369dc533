package notify

import (
	"context"
	"sync"

	"github.com/jonboulle/clockwork"
)

// Center keeps the active alerts shown to the user. Transient alerts drop
// out once their expiry passes; persistent ones stay until dismissed.
type Center struct {
	mu     sync.Mutex
	clock  clockwork.Clock
	alerts []Alert
}

// NewCenter creates an empty Center. A nil clock uses the real clock.
func NewCenter(clock clockwork.Clock) *Center {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Center{clock: clock}
}

func (c *Center) Name() string { return "center" }

// Deliver adds an alert, replacing any active alert with the same tag.
func (c *Center) Deliver(_ context.Context, a Alert) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.alerts {
		if c.alerts[i].Tag == a.Tag {
			c.alerts[i] = a
			return nil
		}
	}
	c.alerts = append(c.alerts, a)
	return nil
}

// Active returns unexpired alerts, oldest first.
func (c *Center) Active() []Alert {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prune()
	out := make([]Alert, len(c.alerts))
	copy(out, c.alerts)
	return out
}

// Dismiss closes an alert. It reports false for unknown or expired ids.
func (c *Center) Dismiss(id string) bool {
	_, ok := c.take(id)
	return ok
}

// Select closes an alert and returns the record it points at.
func (c *Center) Select(id string) (string, bool) {
	a, ok := c.take(id)
	if !ok {
		return "", false
	}
	return a.QuakeID, true
}

func (c *Center) take(id string) (Alert, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prune()
	for i, a := range c.alerts {
		if a.ID == id {
			c.alerts = append(c.alerts[:i], c.alerts[i+1:]...)
			return a, true
		}
	}
	return Alert{}, false
}

func (c *Center) prune() {
	now := c.clock.Now()
	kept := c.alerts[:0]
	for _, a := range c.alerts {
		if !a.Expired(now) {
			kept = append(kept, a)
		}
	}
	c.alerts = kept
}
