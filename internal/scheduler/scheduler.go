package scheduler

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/quake-monitor-service/internal/domain"
	"github.com/couchcryptid/quake-monitor-service/internal/observability"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// Fetcher retrieves the normalized record set for a time range.
type Fetcher interface {
	Fetch(ctx context.Context, r domain.TimeRange) ([]domain.Quake, error)
}

// Reconciler consumes cycle outcomes. It is only ever called from the
// scheduler's event loop.
type Reconciler interface {
	Reconcile(ctx context.Context, quakes []domain.Quake)
	Fail(ctx context.Context, err error)
}

// State is the scheduler's fetch state.
type State int

const (
	Idle State = iota
	Fetching
)

func (s State) String() string {
	if s == Fetching {
		return "fetching"
	}
	return "idle"
}

// Status is a point-in-time copy of the scheduler state.
type Status struct {
	State         string           `json:"state"`
	TimerActive   bool             `json:"timer_active"`
	Visible       bool             `json:"visible"`
	Online        bool             `json:"online"`
	TimeRange     domain.TimeRange `json:"time_range"`
	Interval      string           `json:"interval"`
	CycleID       string           `json:"cycle_id,omitempty"`
	Cycles        int              `json:"cycles"`
	LastCompleted *time.Time       `json:"last_completed,omitempty"`
	LastFailure   string           `json:"last_failure,omitempty"`
}

type result struct {
	cycleID string
	quakes  []domain.Quake
	err     error
}

// Scheduler decides when refresh cycles run. All state below the channels
// is owned by the Run goroutine.
type Scheduler struct {
	fetcher    Fetcher
	reconciler Reconciler
	clock      clockwork.Clock
	interval   time.Duration
	metrics    *observability.Metrics
	logger     *slog.Logger

	events  chan Event
	results chan result
	status  atomic.Pointer[Status]

	state         State
	visible       bool
	online        bool
	timeRange     domain.TimeRange
	ticker        clockwork.Ticker
	cycleID       string
	cycleStart    time.Time
	cycles        int
	lastCompleted *time.Time
	lastFailure   string
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces the real clock, typically with a clockwork.FakeClock in tests.
func WithClock(c clockwork.Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// New creates a Scheduler that starts visible and online.
func New(f Fetcher, r Reconciler, interval time.Duration, initial domain.TimeRange, metrics *observability.Metrics, logger *slog.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		fetcher:    f,
		reconciler: r,
		clock:      clockwork.NewRealClock(),
		interval:   interval,
		metrics:    metrics,
		logger:     logger,
		events:     make(chan Event, 16),
		// At most one fetch is in flight, so a buffer of one lets the
		// fetch goroutine exit even after Run has returned.
		results:   make(chan result, 1),
		visible:   true,
		online:    true,
		timeRange: initial,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.publish()
	return s
}

// Dispatch queues an event for the loop. It blocks only while the queue is
// full and returns ctx.Err() if ctx ends first.
func (s *Scheduler) Dispatch(ctx context.Context, ev Event) error {
	select {
	case s.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status returns the most recently published scheduler state.
func (s *Scheduler) Status() Status {
	return *s.status.Load()
}

// Run starts the timer, forces an initial cycle and processes events until
// ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("scheduler started",
		"interval", s.interval.String(),
		"time_range", string(s.timeRange),
	)
	s.syncTimer()
	defer s.stopTimer()

	s.request(ctx, startup{})

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopping", "reason", ctx.Err())
			return nil
		case ev := <-s.events:
			s.handle(ctx, ev)
		case <-s.tick():
			s.handle(ctx, TimerTick{})
		case res := <-s.results:
			s.complete(ctx, res)
		}
		s.publish()
	}
}

func (s *Scheduler) handle(ctx context.Context, ev Event) {
	s.metrics.Triggers.WithLabelValues(ev.trigger()).Inc()

	switch e := ev.(type) {
	case ManualRefresh, TimerTick:
		s.request(ctx, ev)
	case TimeRangeChanged:
		if e.Range.Valid() {
			s.timeRange = e.Range
		}
		s.request(ctx, ev)
	case VisibilityHidden:
		s.visible = false
		s.syncTimer()
	case VisibilityResumed:
		s.visible = true
		s.syncTimer()
		s.request(ctx, ev)
	case NetworkLost:
		s.online = false
		s.syncTimer()
	case NetworkRestored:
		s.online = true
		s.syncTimer()
		s.request(ctx, ev)
	}
}

// request starts a cycle unless one is already in flight.
func (s *Scheduler) request(ctx context.Context, ev Event) {
	if s.state == Fetching {
		s.metrics.TriggersIgnored.WithLabelValues(ev.trigger()).Inc()
		s.logger.Debug("trigger coalesced", "trigger", ev.trigger(), "cycle_id", s.cycleID)
		return
	}

	s.state = Fetching
	s.cycleID = uuid.NewString()
	s.cycleStart = s.clock.Now()
	s.cycles++
	s.metrics.SchedulerFetch.Set(1)

	id, rng := s.cycleID, s.timeRange
	s.logger.Debug("cycle started", "trigger", ev.trigger(), "cycle_id", id, "time_range", string(rng))

	go func() {
		quakes, err := s.fetcher.Fetch(ctx, rng)
		s.results <- result{cycleID: id, quakes: quakes, err: err}
	}()
}

func (s *Scheduler) complete(ctx context.Context, res result) {
	s.state = Idle
	s.metrics.SchedulerFetch.Set(0)
	s.metrics.CycleDuration.Observe(s.clock.Since(s.cycleStart).Seconds())

	if res.err != nil {
		if ctx.Err() != nil {
			return
		}
		outcome := domain.ClassifyFetchError(res.err)
		s.metrics.Cycles.WithLabelValues(outcome).Inc()
		s.lastFailure = outcome
		if outcome == domain.FailureMalformed {
			s.logger.Error("feed payload malformed", "cycle_id", res.cycleID, "error", res.err)
		} else {
			s.logger.Warn("cycle failed", "cycle_id", res.cycleID, "outcome", outcome, "error", res.err)
		}
		s.reconciler.Fail(ctx, res.err)
		return
	}

	now := s.clock.Now()
	s.lastCompleted = &now
	s.lastFailure = ""
	s.metrics.Cycles.WithLabelValues("success").Inc()
	s.logger.Info("cycle complete", "cycle_id", res.cycleID, "records", len(res.quakes))
	s.reconciler.Reconcile(ctx, res.quakes)
}

// syncTimer runs the periodic timer exactly while visible and online.
func (s *Scheduler) syncTimer() {
	if s.visible && s.online {
		if s.ticker == nil && s.interval > 0 {
			s.ticker = s.clock.NewTicker(s.interval)
			s.metrics.SchedulerTimerOn.Set(1)
		}
		return
	}
	s.stopTimer()
}

func (s *Scheduler) stopTimer() {
	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
		s.metrics.SchedulerTimerOn.Set(0)
	}
}

func (s *Scheduler) tick() <-chan time.Time {
	if s.ticker == nil {
		return nil
	}
	return s.ticker.Chan()
}

func (s *Scheduler) publish() {
	st := &Status{
		State:         s.state.String(),
		TimerActive:   s.ticker != nil,
		Visible:       s.visible,
		Online:        s.online,
		TimeRange:     s.timeRange,
		Interval:      s.interval.String(),
		Cycles:        s.cycles,
		LastCompleted: s.lastCompleted,
		LastFailure:   s.lastFailure,
	}
	if s.state == Fetching {
		st.CycleID = s.cycleID
	}
	s.status.Store(st)
}
