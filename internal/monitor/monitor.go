// Package monitor owns the application state: the current record set, the
// novelty tracker, the active criteria and the rendered view.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/quake-monitor-service/internal/domain"
	"github.com/couchcryptid/quake-monitor-service/internal/notify"
	"github.com/couchcryptid/quake-monitor-service/internal/novelty"
	"github.com/couchcryptid/quake-monitor-service/internal/observability"
	"github.com/couchcryptid/quake-monitor-service/internal/view"
	"github.com/jonboulle/clockwork"
)

var (
	// ErrNotFound is returned when a record is not in the current view.
	ErrNotFound = errors.New("record not in current view")
	// ErrAlertNotFound is returned for unknown or expired alert ids.
	ErrAlertNotFound = errors.New("alert not found")
)

// Status values reported in a Snapshot.
const (
	StatusLoading = "loading"
	StatusSuccess = "success"
	StatusError   = "error"
)

const (
	messageLoading = "Loading earthquake data..."
	messageFailed  = "Failed to load data"
	messageOffline = "You are offline"
)

// Snapshot is an immutable copy of the view handed to readers.
type Snapshot struct {
	Status      string          `json:"status"`
	Message     string          `json:"message"`
	LastUpdated *time.Time      `json:"last_updated,omitempty"`
	Criteria    domain.Criteria `json:"criteria"`
	Total       int             `json:"total"`
	Visible     int             `json:"visible"`
	NewCount    int             `json:"new_count"`
	Frame       view.Frame      `json:"frame"`
}

// Monitor implements scheduler.Reconciler. Mutations are serialized by mu;
// readers use the atomically published snapshot.
type Monitor struct {
	mu          sync.Mutex
	records     []domain.Quake
	tracker     *novelty.Tracker
	criteria    domain.Criteria
	status      string
	message     string
	lastUpdated *time.Time
	newCount    int

	sync     *view.Synchronizer
	notifier *notify.Notifier
	alerts   *notify.Center
	clock    clockwork.Clock
	metrics  *observability.Metrics
	logger   *slog.Logger

	ready atomic.Bool
	snap  atomic.Pointer[Snapshot]
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithClock sets the clock used for last-updated timestamps.
func WithClock(c clockwork.Clock) Option {
	return func(m *Monitor) { m.clock = c }
}

// WithCriteria sets the initial criteria.
func WithCriteria(c domain.Criteria) Option {
	return func(m *Monitor) { m.criteria = c.Normalized() }
}

// New creates a Monitor that renders into mm. alerts may be nil when the
// alert center is not exposed.
func New(mm view.MarkerMap, notifier *notify.Notifier, alerts *notify.Center, metrics *observability.Metrics, logger *slog.Logger, opts ...Option) *Monitor {
	m := &Monitor{
		tracker:  novelty.NewTracker(),
		criteria: domain.DefaultCriteria(),
		status:   StatusLoading,
		message:  messageLoading,
		sync:     view.NewSynchronizer(mm),
		notifier: notifier,
		alerts:   alerts,
		clock:    clockwork.NewRealClock(),
		metrics:  metrics,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.publish(m.sync.Frame())
	return m
}

// Reconcile applies a successful fetch: diff against the tracker, commit,
// re-select and render, then raise alerts. Alerts are delivered after the
// lock is released so a slow sink does not hold up readers.
func (m *Monitor) Reconcile(ctx context.Context, quakes []domain.Quake) {
	diffed, firstPopulation := m.apply(quakes)
	if m.notifier != nil {
		m.notifier.Notify(ctx, diffed, firstPopulation)
	}
}

func (m *Monitor) apply(quakes []domain.Quake) ([]domain.Quake, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	firstPopulation := m.tracker.Empty()
	diffed := m.tracker.Diff(quakes)

	newCount := 0
	for _, q := range diffed {
		if q.IsNew {
			newCount++
		}
	}
	m.tracker.Commit(diffed)

	now := m.clock.Now()
	m.records = diffed
	m.newCount = newCount
	m.lastUpdated = &now
	m.status = StatusSuccess
	m.message = fmt.Sprintf("Loaded %d earthquakes", len(diffed))

	m.metrics.RecordsFetched.Set(float64(len(diffed)))
	m.metrics.TrackedIDs.Set(float64(m.tracker.Len()))
	if !firstPopulation {
		m.metrics.NewRecords.Add(float64(newCount))
	}

	m.render()
	m.ready.Store(true)
	m.logger.Info("records reconciled",
		"records", len(diffed),
		"new", newCount,
		"first_population", firstPopulation,
		"tracked", m.tracker.Len(),
	)
	return diffed, firstPopulation
}

// Fail shows the failure affordance. Records, tracker and map are kept.
func (m *Monitor) Fail(_ context.Context, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.status = StatusError
	m.message = messageFailed
	m.publish(m.sync.RenderError())
	m.logger.Debug("failure rendered", "outcome", domain.ClassifyFetchError(err))
}

// SetOffline reports lost connectivity in the status line.
func (m *Monitor) SetOffline() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = StatusError
	m.message = messageOffline
	m.publish(m.sync.Frame())
}

// SetCriteria replaces the criteria and re-renders from the retained
// records.
func (m *Monitor) SetCriteria(c domain.Criteria) Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.criteria = c.Normalized()
	m.render()
	return *m.snap.Load()
}

// Preview selects and renders the retained records under c without
// changing the active criteria or the map.
func (m *Monitor) Preview(c domain.Criteria) Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	c = c.Normalized()
	frame := view.NewFrame(domain.Select(m.records, c))
	snap := *m.snap.Load()
	snap.Criteria = c
	snap.Visible = len(frame.Items)
	snap.Frame = frame
	return snap
}

// Criteria returns the active criteria.
func (m *Monitor) Criteria() domain.Criteria {
	return m.Snapshot().Criteria
}

// Snapshot returns the current view.
func (m *Monitor) Snapshot() Snapshot {
	return *m.snap.Load()
}

// Locate finds a record in the current view by identifier.
func (m *Monitor) Locate(id string) (view.Focus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.sync.Locate(id)
	if !ok {
		return view.Focus{}, fmt.Errorf("locate %s: %w", id, ErrNotFound)
	}
	return f, nil
}

// LocateNear finds a record in the current view by coordinates.
func (m *Monitor) LocateNear(lat, lon float64) (view.Focus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.sync.LocateNear(lat, lon)
	if !ok {
		return view.Focus{}, fmt.Errorf("locate %.3f,%.3f: %w", lat, lon, ErrNotFound)
	}
	return f, nil
}

// SelectAlert closes an alert and focuses the record it refers to.
func (m *Monitor) SelectAlert(alertID string) (view.Focus, error) {
	if m.alerts == nil {
		return view.Focus{}, ErrAlertNotFound
	}
	quakeID, ok := m.alerts.Select(alertID)
	if !ok {
		return view.Focus{}, ErrAlertNotFound
	}
	return m.Locate(quakeID)
}

// CheckReadiness reports ready once a cycle has succeeded.
func (m *Monitor) CheckReadiness(_ context.Context) error {
	if !m.ready.Load() {
		return errors.New("no successful refresh cycle yet")
	}
	return nil
}

// render must be called with mu held.
func (m *Monitor) render() {
	seq := domain.Select(m.records, m.criteria)
	frame := m.sync.Render(seq)
	m.metrics.RecordsVisible.Set(float64(len(seq)))
	m.publish(frame)
}

// publish must be called with mu held, except from New.
func (m *Monitor) publish(frame view.Frame) {
	m.snap.Store(&Snapshot{
		Status:      m.status,
		Message:     m.message,
		LastUpdated: m.lastUpdated,
		Criteria:    m.criteria,
		Total:       len(m.records),
		Visible:     len(frame.Items),
		NewCount:    m.newCount,
		Frame:       frame,
	})
}
