package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/couchcryptid/quake-monitor-service/internal/domain"
	"github.com/google/uuid"
)

// autoDismissAfter is how long a transient alert stays active.
const autoDismissAfter = 10 * time.Second

// Alert is one raised notification for a significant new event.
type Alert struct {
	ID         string     `json:"id"`
	Tag        string     `json:"tag"`
	Title      string     `json:"title"`
	Body       string     `json:"body"`
	QuakeID    string     `json:"quake_id"`
	Magnitude  float64    `json:"magnitude"`
	Place      string     `json:"place"`
	Persistent bool       `json:"persistent"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

// Severity labels the alert for downstream consumers.
func (a Alert) Severity() string {
	if a.Persistent {
		return "persistent"
	}
	return "transient"
}

// Expired reports whether a transient alert has passed its expiry.
func (a Alert) Expired(now time.Time) bool {
	return a.ExpiresAt != nil && !now.Before(*a.ExpiresAt)
}

// Sink delivers alerts somewhere: the in-memory center, a broker, etc.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, a Alert) error
}

func newAlert(q domain.Quake, now time.Time) Alert {
	a := Alert{
		ID:         uuid.NewString(),
		Tag:        "earthquake-" + q.ID,
		Title:      fmt.Sprintf("Magnitude %.1f Earthquake", q.Magnitude),
		Body:       q.Place + "\n" + domain.RelativeTime(q.Time),
		QuakeID:    q.ID,
		Magnitude:  q.Magnitude,
		Place:      q.Place,
		Persistent: q.Magnitude >= domain.PersistentAlertMagnitude,
		CreatedAt:  now,
	}
	if !a.Persistent {
		exp := now.Add(autoDismissAfter)
		a.ExpiresAt = &exp
	}
	return a
}
