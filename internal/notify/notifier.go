// Package notify decides which new events raise alerts and manages the
// user's notification preference.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/couchcryptid/quake-monitor-service/internal/domain"
	"github.com/couchcryptid/quake-monitor-service/internal/observability"
	"github.com/jonboulle/clockwork"
)

// PreferenceKey is the single persisted preference.
const PreferenceKey = "earthquakeNotifications"

// Permission is the notification permission reported by the client.
type Permission string

const (
	PermissionDefault     Permission = "default"
	PermissionGranted     Permission = "granted"
	PermissionDenied      Permission = "denied"
	PermissionUnsupported Permission = "unsupported"
)

// ParsePermission validates a reported permission value.
func ParsePermission(s string) (Permission, error) {
	p := Permission(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case PermissionDefault, PermissionGranted, PermissionDenied, PermissionUnsupported:
		return p, nil
	default:
		return "", fmt.Errorf("unknown notification permission %q", s)
	}
}

// Affordance is what the notification toggle shows.
type Affordance string

const (
	AffordanceEnabled      Affordance = "enabled"
	AffordanceDisabled     Affordance = "disabled"
	AffordanceDenied       Affordance = "denied"
	AffordanceNotSupported Affordance = "not-supported"
)

// PreferenceStore persists boolean preferences.
type PreferenceStore interface {
	GetBool(ctx context.Context, key string) (value, found bool, err error)
	SetBool(ctx context.Context, key string, value bool) error
}

// State is the notifier's externally visible state.
type State struct {
	Enabled    bool       `json:"enabled"`
	Permission Permission `json:"permission"`
	Affordance Affordance `json:"affordance"`
}

// Notifier raises alerts for significant new events when the user has
// enabled them and the permission is granted.
type Notifier struct {
	mu         sync.Mutex
	enabled    bool
	permission Permission

	store   PreferenceStore
	sinks   []Sink
	clock   clockwork.Clock
	metrics *observability.Metrics
	logger  *slog.Logger
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithClock sets the clock used for alert timestamps.
func WithClock(c clockwork.Clock) Option {
	return func(n *Notifier) { n.clock = c }
}

// New creates a Notifier, disabled until Load reads the stored preference.
func New(store PreferenceStore, permission Permission, sinks []Sink, metrics *observability.Metrics, logger *slog.Logger, opts ...Option) *Notifier {
	n := &Notifier{
		permission: permission,
		store:      store,
		sinks:      sinks,
		clock:      clockwork.NewRealClock(),
		metrics:    metrics,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Load enables alerts iff the stored preference is true and permission is
// granted.
func (n *Notifier) Load(ctx context.Context) error {
	stored, found, err := n.store.GetBool(ctx, PreferenceKey)
	if err != nil {
		return fmt.Errorf("load notification preference: %w", err)
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	n.setEnabled(found && stored && n.permission == PermissionGranted)
	n.logger.Info("notification preference loaded",
		"stored", stored,
		"found", found,
		"permission", string(n.permission),
		"enabled", n.enabled,
	)
	return nil
}

// State returns the current state.
func (n *Notifier) State() State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state()
}

// Toggle flips the preference when permission allows it. With permission
// still at default the toggle reports denied, as an unanswered request
// would.
func (n *Notifier) Toggle(ctx context.Context) State {
	n.mu.Lock()
	defer n.mu.Unlock()

	switch n.permission {
	case PermissionUnsupported, PermissionDenied:
		return n.state()
	case PermissionDefault:
		st := n.state()
		st.Affordance = AffordanceDenied
		return st
	}

	n.setEnabled(!n.enabled)
	if err := n.store.SetBool(ctx, PreferenceKey, n.enabled); err != nil {
		n.logger.Warn("persist notification preference failed", "error", err, "enabled", n.enabled)
	}
	return n.state()
}

// SetPermission records a permission reported by the client. Losing the
// grant disables alerts without touching the stored preference.
func (n *Notifier) SetPermission(p Permission) State {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.permission = p
	if p != PermissionGranted {
		n.setEnabled(false)
	}
	return n.state()
}

// Notify raises one alert per new significant record. The first
// population of the tracker never alerts.
func (n *Notifier) Notify(ctx context.Context, diffed []domain.Quake, firstPopulation bool) []Alert {
	n.mu.Lock()
	active := n.enabled && n.permission == PermissionGranted
	n.mu.Unlock()

	if !active || firstPopulation {
		return nil
	}

	now := n.clock.Now()
	var alerts []Alert
	for _, q := range diffed {
		if !q.IsNew || !q.Significant() {
			continue
		}
		a := newAlert(q, now)
		n.deliver(ctx, a)
		alerts = append(alerts, a)
	}
	return alerts
}

func (n *Notifier) deliver(ctx context.Context, a Alert) {
	n.metrics.Alerts.WithLabelValues(a.Severity()).Inc()
	for _, s := range n.sinks {
		if err := s.Deliver(ctx, a); err != nil {
			n.metrics.AlertSinkErrors.WithLabelValues(s.Name()).Inc()
			n.logger.Error("deliver alert failed",
				"sink", s.Name(),
				"quake_id", a.QuakeID,
				"error", err,
			)
		}
	}
	n.logger.Info("alert raised", "quake_id", a.QuakeID, "magnitude", a.Magnitude, "severity", a.Severity())
}

func (n *Notifier) setEnabled(v bool) {
	n.enabled = v
	if v {
		n.metrics.NotificationsOn.Set(1)
	} else {
		n.metrics.NotificationsOn.Set(0)
	}
}

func (n *Notifier) state() State {
	st := State{Enabled: n.enabled, Permission: n.permission}
	switch {
	case n.permission == PermissionUnsupported:
		st.Affordance = AffordanceNotSupported
	case n.enabled:
		st.Affordance = AffordanceEnabled
	case n.permission == PermissionDenied:
		st.Affordance = AffordanceDenied
	default:
		st.Affordance = AffordanceDisabled
	}
	return st
}
