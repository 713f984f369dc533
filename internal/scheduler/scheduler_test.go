package scheduler_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/couchcryptid/quake-monitor-service/internal/domain"
	"github.com/couchcryptid/quake-monitor-service/internal/observability"
	"github.com/couchcryptid/quake-monitor-service/internal/scheduler"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const interval = 5 * time.Minute

// --- mocks ---

// gatedFetcher records each call and, when gated, blocks until released.
type gatedFetcher struct {
	mu     sync.Mutex
	calls  []domain.TimeRange
	gated  bool
	gate   chan struct{}
	quakes []domain.Quake
	err    error
}

func newGatedFetcher(gated bool) *gatedFetcher {
	return &gatedFetcher{gated: gated, gate: make(chan struct{})}
}

func (f *gatedFetcher) Fetch(ctx context.Context, r domain.TimeRange) ([]domain.Quake, error) {
	f.mu.Lock()
	f.calls = append(f.calls, r)
	gated, quakes, err := f.gated, f.quakes, f.err
	f.mu.Unlock()

	if gated {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return quakes, err
}

func (f *gatedFetcher) release() { f.gate <- struct{}{} }

func (f *gatedFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *gatedFetcher) lastRange() domain.TimeRange {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

type recordingReconciler struct {
	mu         sync.Mutex
	reconciled [][]domain.Quake
	failures   []error
}

func (r *recordingReconciler) Reconcile(_ context.Context, quakes []domain.Quake) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reconciled = append(r.reconciled, quakes)
}

func (r *recordingReconciler) Fail(_ context.Context, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, err)
}

func (r *recordingReconciler) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.reconciled), len(r.failures)
}

type harness struct {
	sched   *scheduler.Scheduler
	fetcher *gatedFetcher
	recon   *recordingReconciler
	clock   *clockwork.FakeClock
	metrics *observability.Metrics
	ctx     context.Context
}

func start(t *testing.T, f *gatedFetcher) *harness {
	t.Helper()
	h := &harness{
		fetcher: f,
		recon:   &recordingReconciler{},
		clock:   clockwork.NewFakeClock(),
		metrics: observability.NewMetricsForTesting(),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h.sched = scheduler.New(f, h.recon, interval, domain.RangeDay, h.metrics, logger, scheduler.WithClock(h.clock))

	ctx, cancel := context.WithCancel(context.Background())
	h.ctx = ctx
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = h.sched.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return h
}

func (h *harness) dispatch(t *testing.T, ev scheduler.Event) {
	t.Helper()
	require.NoError(t, h.sched.Dispatch(h.ctx, ev))
}

func (h *harness) waitIdle(t *testing.T) {
	t.Helper()
	require.Eventually(t, func() bool {
		return h.sched.Status().State == "idle"
	}, time.Second, 5*time.Millisecond)
}

// --- tests ---

func TestScheduler_StartupCycle(t *testing.T) {
	f := newGatedFetcher(false)
	f.quakes = []domain.Quake{{ID: "a"}, {ID: "b"}}
	h := start(t, f)

	require.Eventually(t, func() bool {
		n, _ := h.recon.counts()
		return n == 1
	}, time.Second, 5*time.Millisecond)

	h.waitIdle(t)
	st := h.sched.Status()
	assert.True(t, st.TimerActive)
	assert.NotNil(t, st.LastCompleted)
	assert.Equal(t, 1, st.Cycles)
	assert.Equal(t, domain.RangeDay, f.lastRange())
	assert.InDelta(t, 1, testutil.ToFloat64(h.metrics.Cycles.WithLabelValues("success")), 1e-9)
}

func TestScheduler_TimerTickRunsCycle(t *testing.T) {
	h := start(t, newGatedFetcher(false))
	h.waitIdle(t)
	require.Eventually(t, func() bool { return h.fetcher.callCount() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, h.clock.BlockUntilContext(h.ctx, 1))
	h.clock.Advance(interval)

	require.Eventually(t, func() bool { return h.fetcher.callCount() == 2 }, time.Second, 5*time.Millisecond)
}

func TestScheduler_TriggersWhileFetchingAreCoalesced(t *testing.T) {
	f := newGatedFetcher(true)
	h := start(t, f)
	require.Eventually(t, func() bool { return f.callCount() == 1 }, time.Second, 5*time.Millisecond)

	h.dispatch(t, scheduler.TimeRangeChanged{Range: domain.RangeWeek})
	h.dispatch(t, scheduler.ManualRefresh{})

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(h.metrics.TriggersIgnored.WithLabelValues("manual")) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, f.callCount(), "no second fetch while one is in flight")
	assert.Equal(t, domain.RangeWeek, h.sched.Status().TimeRange, "range applies even when coalesced")

	f.release()
	h.waitIdle(t)

	h.dispatch(t, scheduler.ManualRefresh{})
	require.Eventually(t, func() bool { return f.callCount() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, domain.RangeWeek, f.lastRange())
	f.release()
}

func TestScheduler_OfflineSuspendsAndRestoreFiresOnce(t *testing.T) {
	f := newGatedFetcher(false)
	h := start(t, f)
	require.Eventually(t, func() bool { return f.callCount() == 1 }, time.Second, 5*time.Millisecond)
	h.waitIdle(t)

	h.dispatch(t, scheduler.NetworkLost{})
	require.Eventually(t, func() bool {
		st := h.sched.Status()
		return !st.Online && !st.TimerActive
	}, time.Second, 5*time.Millisecond)

	h.clock.Advance(3 * interval)
	assert.Never(t, func() bool { return f.callCount() > 1 }, 100*time.Millisecond, 10*time.Millisecond)

	h.dispatch(t, scheduler.NetworkRestored{})
	require.Eventually(t, func() bool { return f.callCount() == 2 }, time.Second, 5*time.Millisecond)
	h.waitIdle(t)
	assert.Never(t, func() bool { return f.callCount() > 2 }, 100*time.Millisecond, 10*time.Millisecond)
	assert.True(t, h.sched.Status().TimerActive)
}

func TestScheduler_VisibilityHiddenStopsTimer(t *testing.T) {
	f := newGatedFetcher(false)
	h := start(t, f)
	require.Eventually(t, func() bool { return f.callCount() == 1 }, time.Second, 5*time.Millisecond)
	h.waitIdle(t)

	h.dispatch(t, scheduler.VisibilityHidden{})
	require.Eventually(t, func() bool { return !h.sched.Status().TimerActive }, time.Second, 5*time.Millisecond)

	h.clock.Advance(2 * interval)
	assert.Never(t, func() bool { return f.callCount() > 1 }, 100*time.Millisecond, 10*time.Millisecond)

	h.dispatch(t, scheduler.VisibilityResumed{})
	require.Eventually(t, func() bool { return f.callCount() == 2 }, time.Second, 5*time.Millisecond)
	assert.True(t, h.sched.Status().Visible)
}

func TestScheduler_ResumeWhileOfflineFetchesOnce(t *testing.T) {
	f := newGatedFetcher(false)
	h := start(t, f)
	require.Eventually(t, func() bool { return f.callCount() == 1 }, time.Second, 5*time.Millisecond)
	h.waitIdle(t)

	h.dispatch(t, scheduler.NetworkLost{})
	h.dispatch(t, scheduler.VisibilityHidden{})
	h.dispatch(t, scheduler.VisibilityResumed{})

	require.Eventually(t, func() bool { return f.callCount() == 2 }, time.Second, 5*time.Millisecond)
	h.waitIdle(t)
	st := h.sched.Status()
	assert.True(t, st.Visible)
	assert.False(t, st.Online)
	assert.False(t, st.TimerActive, "the timer stays off while offline")

	h.clock.Advance(2 * interval)
	assert.Never(t, func() bool { return f.callCount() > 2 }, 100*time.Millisecond, 10*time.Millisecond)
}

func TestScheduler_FailureIsReportedAndTimerContinues(t *testing.T) {
	f := newGatedFetcher(false)
	f.err = &domain.HTTPError{URL: "http://feed", StatusCode: 503}
	h := start(t, f)

	require.Eventually(t, func() bool {
		_, failed := h.recon.counts()
		return failed == 1
	}, time.Second, 5*time.Millisecond)
	h.waitIdle(t)

	st := h.sched.Status()
	assert.Equal(t, domain.FailureHTTP, st.LastFailure)
	assert.Nil(t, st.LastCompleted)
	assert.True(t, st.TimerActive)
	assert.InDelta(t, 1, testutil.ToFloat64(h.metrics.Cycles.WithLabelValues(domain.FailureHTTP)), 1e-9)

	require.NoError(t, h.clock.BlockUntilContext(h.ctx, 1))
	h.clock.Advance(interval)
	require.Eventually(t, func() bool { return f.callCount() == 2 }, time.Second, 5*time.Millisecond)
}

func TestScheduler_DispatchHonorsContext(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := scheduler.New(newGatedFetcher(false), &recordingReconciler{}, interval, domain.RangeDay,
		observability.NewMetricsForTesting(), logger)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Run is not started, so the queue eventually fills.
	var err error
	for range 32 {
		if err = s.Dispatch(ctx, scheduler.ManualRefresh{}); err != nil {
			break
		}
	}
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "idle", s.Status().State)
}
