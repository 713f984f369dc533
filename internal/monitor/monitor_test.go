package monitor_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/quake-monitor-service/internal/domain"
	"github.com/couchcryptid/quake-monitor-service/internal/monitor"
	"github.com/couchcryptid/quake-monitor-service/internal/notify"
	"github.com/couchcryptid/quake-monitor-service/internal/observability"
	"github.com/couchcryptid/quake-monitor-service/internal/view"
	"github.com/couchcryptid/quake-monitor-service/internal/view/markers"
	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore map[string]bool

func (m memStore) GetBool(_ context.Context, key string) (bool, bool, error) {
	v, ok := m[key]
	return v, ok, nil
}

func (m memStore) SetBool(_ context.Context, key string, v bool) error {
	m[key] = v
	return nil
}

var now = time.Date(2024, 4, 26, 15, 10, 0, 0, time.UTC)

type fixture struct {
	mon     *monitor.Monitor
	layer   *markers.Layer
	center  *notify.Center
	metrics *observability.Metrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clk := clockwork.NewFakeClockAt(now)
	metrics := observability.NewMetricsForTesting()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	center := notify.NewCenter(clk)
	n := notify.New(memStore{notify.PreferenceKey: true}, notify.PermissionGranted,
		[]notify.Sink{center}, metrics, logger, notify.WithClock(clk))
	require.NoError(t, n.Load(context.Background()))

	layer := markers.NewLayer()
	mon := monitor.New(layer, n, center, metrics, logger, monitor.WithClock(clk))
	return &fixture{mon: mon, layer: layer, center: center, metrics: metrics}
}

func q(id string, mag, depth float64, place string) domain.Quake {
	return domain.Quake{
		ID:          id,
		Magnitude:   mag,
		Depth:       depth,
		Place:       place,
		Time:        now.Add(-time.Hour).UnixMilli(),
		Coordinates: domain.Coordinates{Lat: mag, Lon: depth},
	}
}

func ids(items []view.ListItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

func TestMonitor_InitialSnapshotIsLoading(t *testing.T) {
	f := newFixture(t)
	snap := f.mon.Snapshot()
	assert.Equal(t, monitor.StatusLoading, snap.Status)
	assert.Nil(t, snap.LastUpdated)
	assert.Error(t, f.mon.CheckReadiness(context.Background()))
}

func TestMonitor_FirstPopulationThenNewEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.mon.Reconcile(ctx, []domain.Quake{q("a", 6.1, 10, "Alaska"), q("b", 2.0, 5, "Nevada")})
	snap := f.mon.Snapshot()
	assert.Equal(t, monitor.StatusSuccess, snap.Status)
	assert.Equal(t, "Loaded 2 earthquakes", snap.Message)
	assert.Equal(t, 2, snap.NewCount)
	assert.Empty(t, f.center.Active(), "first population never alerts")
	require.NoError(t, f.mon.CheckReadiness(ctx))

	f.mon.Reconcile(ctx, []domain.Quake{q("a", 6.1, 10, "Alaska"), q("b", 2.0, 5, "Nevada"), q("c", 5.2, 33, "Chile")})
	snap = f.mon.Snapshot()
	assert.Equal(t, 1, snap.NewCount)
	assert.Equal(t, 3, f.layer.Len())

	active := f.center.Active()
	require.Len(t, active, 1)
	assert.Equal(t, "c", active[0].QuakeID)
	assert.True(t, active[0].Persistent)
	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.NewRecords), 1e-9)

	for _, it := range snap.Frame.Items {
		assert.Equal(t, it.ID == "c", it.IsNew, it.ID)
	}
}

func TestMonitor_FailKeepsRecordsAndMap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.mon.Reconcile(ctx, []domain.Quake{q("a", 3, 10, "Alaska")})

	f.mon.Fail(ctx, &domain.NetworkError{URL: "http://feed", Err: errors.New("dial tcp: refused")})
	snap := f.mon.Snapshot()
	assert.Equal(t, monitor.StatusError, snap.Status)
	assert.Equal(t, "Failed to load data", snap.Message)
	assert.Equal(t, view.ErrorMessage, snap.Frame.Error)
	assert.Equal(t, 1, snap.Total)
	assert.Equal(t, 1, f.layer.Len())

	// Criteria changes still work from the retained records.
	snap = f.mon.SetCriteria(domain.DefaultCriteria())
	assert.Equal(t, []string{"a"}, ids(snap.Frame.Items))
}

func TestMonitor_SetCriteriaReselects(t *testing.T) {
	f := newFixture(t)
	f.mon.Reconcile(context.Background(), []domain.Quake{
		q("a", 4.0, 10, "Southern Alaska"),
		q("b", 2.5, 100, "Fiji"),
		q("c", 5.5, 400, "Alaska Peninsula"),
	})

	snap := f.mon.SetCriteria(domain.Criteria{MinMagnitude: 3, Search: "ALASKA", Sort: domain.SortMagnitudeDesc})
	assert.Empty(t, cmp.Diff([]string{"c", "a"}, ids(snap.Frame.Items)))
	assert.Equal(t, domain.DepthAll, snap.Criteria.Depth)
	assert.Equal(t, 2, f.layer.Len())

	snap = f.mon.SetCriteria(domain.Criteria{MinMagnitude: 9})
	assert.Equal(t, view.EmptyMessage, snap.Frame.Empty)
	assert.Zero(t, f.layer.Len())
	assert.Equal(t, 3, snap.Total)
}

func TestMonitor_Locate(t *testing.T) {
	f := newFixture(t)
	f.mon.Reconcile(context.Background(), []domain.Quake{q("a", 4.0, 10, "x"), q("b", 3.0, 20, "y")})

	focus, err := f.mon.Locate("b")
	require.NoError(t, err)
	assert.Equal(t, "b", focus.Marker.ID)

	_, err = f.mon.Locate("zz")
	assert.ErrorIs(t, err, monitor.ErrNotFound)

	focus, err = f.mon.LocateNear(4.0005, 10)
	require.NoError(t, err)
	assert.Equal(t, "a", focus.Marker.ID)
}

func TestMonitor_SelectAlertFocusesRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.mon.Reconcile(ctx, []domain.Quake{q("a", 1, 1, "x")})
	f.mon.Reconcile(ctx, []domain.Quake{q("a", 1, 1, "x"), q("big", 6.5, 30, "Japan")})

	active := f.center.Active()
	require.Len(t, active, 1)

	focus, err := f.mon.SelectAlert(active[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "big", focus.Marker.ID)
	assert.Empty(t, f.center.Active())

	_, err = f.mon.SelectAlert(active[0].ID)
	assert.ErrorIs(t, err, monitor.ErrAlertNotFound)
}

func TestMonitor_SetOffline(t *testing.T) {
	f := newFixture(t)
	f.mon.SetOffline()
	snap := f.mon.Snapshot()
	assert.Equal(t, monitor.StatusError, snap.Status)
	assert.Equal(t, "You are offline", snap.Message)
}

// gateSink blocks every delivery until released.
type gateSink struct {
	entered chan string
	release chan struct{}
}

func (s *gateSink) Name() string { return "gate" }

func (s *gateSink) Deliver(ctx context.Context, a notify.Alert) error {
	s.entered <- a.QuakeID
	select {
	case <-s.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestMonitor_SlowSinkDoesNotBlockReaders(t *testing.T) {
	clk := clockwork.NewFakeClockAt(now)
	metrics := observability.NewMetricsForTesting()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sink := &gateSink{entered: make(chan string, 4), release: make(chan struct{})}

	n := notify.New(memStore{notify.PreferenceKey: true}, notify.PermissionGranted,
		[]notify.Sink{sink}, metrics, logger, notify.WithClock(clk))
	require.NoError(t, n.Load(context.Background()))
	mon := monitor.New(markers.NewLayer(), n, nil, metrics, logger, monitor.WithClock(clk))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	mon.Reconcile(ctx, []domain.Quake{q("a", 1, 1, "x")})

	done := make(chan struct{})
	go func() {
		defer close(done)
		mon.Reconcile(ctx, []domain.Quake{q("a", 1, 1, "x"), q("b", 6.1, 10, "Japan"), q("c", 5.4, 20, "Chile")})
	}()

	select {
	case <-sink.entered:
	case <-ctx.Done():
		t.Fatal("alert was never delivered")
	}

	// The sink is blocked; the new view is already published and readable.
	located := make(chan error, 1)
	go func() {
		_, err := mon.Locate("b")
		located <- err
	}()
	select {
	case err := <-located:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Locate blocked behind alert delivery")
	}
	assert.Equal(t, 3, mon.Snapshot().Total)
	snap := mon.SetCriteria(domain.Criteria{MinMagnitude: 5})
	assert.Equal(t, []string{"b", "c"}, ids(snap.Frame.Items))

	close(sink.release)
	<-done
}

func TestMonitor_PreviewLeavesCriteriaAndMap(t *testing.T) {
	f := newFixture(t)
	f.mon.Reconcile(context.Background(), []domain.Quake{
		q("a", 4.0, 10, "Southern Alaska"),
		q("b", 2.5, 100, "Fiji"),
		q("c", 5.5, 400, "Alaska Peninsula"),
	})

	preview := f.mon.Preview(domain.Criteria{Depth: domain.DepthDeep})
	assert.Equal(t, []string{"c"}, ids(preview.Frame.Items))
	assert.Equal(t, 1, preview.Visible)
	assert.Equal(t, domain.SortTimeDesc, preview.Criteria.Sort)

	snap := f.mon.Snapshot()
	assert.Equal(t, domain.DefaultCriteria(), snap.Criteria)
	assert.Len(t, snap.Frame.Items, 3)
	assert.Equal(t, 3, f.layer.Len())

	empty := f.mon.Preview(domain.Criteria{MinMagnitude: 9})
	assert.Equal(t, view.EmptyMessage, empty.Frame.Empty)
	assert.Equal(t, 3, f.layer.Len())
}
