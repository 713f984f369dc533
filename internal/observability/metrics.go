package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "quakemon"

// Metrics holds the Prometheus counters, histograms, and gauges for the monitor.
type Metrics struct {
	// Refresh cycles.
	Cycles           *prometheus.CounterVec // labels: outcome={success,network,http,malformed,unknown}
	CycleDuration    prometheus.Histogram
	Triggers         *prometheus.CounterVec // labels: trigger
	TriggersIgnored  *prometheus.CounterVec // labels: trigger
	SchedulerFetch   prometheus.Gauge
	SchedulerTimerOn prometheus.Gauge

	// Feed client.
	FeedRequests        *prometheus.CounterVec // labels: outcome={success,error}
	FeedRequestDuration prometheus.Histogram

	// Record set.
	RecordsFetched prometheus.Gauge
	RecordsVisible prometheus.Gauge
	NewRecords     prometheus.Counter
	TrackedIDs     prometheus.Gauge

	// Alerts.
	Alerts          *prometheus.CounterVec // labels: kind={persistent,transient}
	AlertSinkErrors *prometheus.CounterVec // labels: sink
	NotificationsOn prometheus.Gauge

	// Geocoding.
	GeocodeRequests    *prometheus.CounterVec // labels: outcome={success,error,empty}
	GeocodeCache       *prometheus.CounterVec // labels: result={hit,miss}
	GeocodeAPIDuration prometheus.Histogram
}

// NewMetrics creates and registers all monitor metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid "already
// registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		Cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Completed refresh cycles by outcome.",
		}, []string{"outcome"}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Duration of a fetch-normalize-diff-render cycle.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		Triggers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "triggers_total",
			Help:      "Scheduler events received by kind.",
		}, []string{"trigger"}),
		TriggersIgnored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "triggers_coalesced_total",
			Help:      "Refresh triggers ignored because a cycle was already in flight.",
		}, []string{"trigger"}),
		SchedulerFetch: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scheduler_fetching",
			Help:      "1 while a fetch is in flight, 0 when idle.",
		}),
		SchedulerTimerOn: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scheduler_timer_active",
			Help:      "1 while the periodic refresh timer runs, 0 when suspended.",
		}),
		FeedRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_requests_total",
			Help:      "Feed HTTP requests by outcome.",
		}, []string{"outcome"}),
		FeedRequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "feed_request_duration_seconds",
			Help:      "Feed HTTP request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		RecordsFetched: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "records_fetched",
			Help:      "Records in the most recent successful fetch.",
		}),
		RecordsVisible: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "records_visible",
			Help:      "Records in the current filtered view.",
		}),
		NewRecords: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "new_records_total",
			Help:      "Records flagged as new across all cycles.",
		}),
		TrackedIDs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tracked_ids",
			Help:      "Identifiers held by the novelty tracker.",
		}),
		Alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_total",
			Help:      "Alerts raised by kind.",
		}, []string{"kind"}),
		AlertSinkErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alert_sink_errors_total",
			Help:      "Alert deliveries that failed by sink.",
		}, []string{"sink"}),
		NotificationsOn: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "notifications_enabled",
			Help:      "1 when alerts are enabled, 0 otherwise.",
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      "Reverse geocoding API requests by outcome.",
		}, []string{"outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_total",
			Help:      "Reverse geocoding cache lookups by result.",
		}, []string{"result"}),
		GeocodeAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "geocode_api_duration_seconds",
			Help:      "Mapbox API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.Cycles,
		m.CycleDuration,
		m.Triggers,
		m.TriggersIgnored,
		m.SchedulerFetch,
		m.SchedulerTimerOn,
		m.FeedRequests,
		m.FeedRequestDuration,
		m.RecordsFetched,
		m.RecordsVisible,
		m.NewRecords,
		m.TrackedIDs,
		m.Alerts,
		m.AlertSinkErrors,
		m.NotificationsOn,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
	}
}
