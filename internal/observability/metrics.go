package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the map front-end.
type Metrics struct {
	RefreshCycles    *prometheus.CounterVec // labels: outcome={success,error}
	FetchDuration    prometheus.Histogram
	MarkersDisplayed prometheus.Gauge
	StaleSnapshots   prometheus.Counter
	SchedulerRunning prometheus.Gauge

	Submissions          *prometheus.CounterVec // labels: outcome={created,rejected,error,invalid}
	StatsLoads           *prometheus.CounterVec // labels: outcome={success,empty,error}
	HourlyLoads          *prometheus.CounterVec // labels: outcome={success,empty,error}
	CertificateDownloads *prometheus.CounterVec // labels: outcome={success,invalid,error}

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec   // labels: provider={mapbox,google}, outcome={success,error,empty}
	GeocodeCache       *prometheus.CounterVec   // labels: result={hit,miss}
	GeocodeAPIDuration *prometheus.HistogramVec // labels: provider

	SnapshotsPublished *prometheus.CounterVec // labels: outcome={success,error}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RefreshCycles,
		m.FetchDuration,
		m.MarkersDisplayed,
		m.StaleSnapshots,
		m.SchedulerRunning,
		m.Submissions,
		m.StatsLoads,
		m.HourlyLoads,
		m.CertificateDownloads,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
		m.SnapshotsPublished,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RefreshCycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "incident_map",
			Name:      "refresh_cycles_total",
			Help:      "Fetch-and-reconcile cycles by outcome.",
		}, []string{"outcome"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "incident_map",
			Name:      "report_fetch_duration_seconds",
			Help:      "Duration of the report list request.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		MarkersDisplayed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "incident_map",
			Name:      "markers_displayed",
			Help:      "Markers currently on the map.",
		}),
		StaleSnapshots: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "incident_map",
			Name:      "stale_snapshots_total",
			Help:      "Snapshots applied after a newer cycle had already been applied.",
		}),
		SchedulerRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "incident_map",
			Name:      "scheduler_running",
			Help:      "1 when the refresh scheduler is active, 0 when shut down.",
		}),
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "incident_map",
			Name:      "report_submissions_total",
			Help:      "Report submissions by outcome.",
		}, []string{"outcome"}),
		StatsLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "incident_map",
			Name:      "stats_loads_total",
			Help:      "Statistics panel loads by outcome.",
		}, []string{"outcome"}),
		HourlyLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "incident_map",
			Name:      "hourly_loads_total",
			Help:      "Hourly distribution panel loads by outcome.",
		}, []string{"outcome"}),
		CertificateDownloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "incident_map",
			Name:      "certificate_downloads_total",
			Help:      "Zone certificate downloads by outcome.",
		}, []string{"outcome"}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "incident_map",
			Name:      "geocode_requests_total",
			Help:      "Reverse geocoding API requests by provider and outcome.",
		}, []string{"provider", "outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "incident_map",
			Name:      "geocode_cache_total",
			Help:      "Reverse geocoding cache lookups by result.",
		}, []string{"result"}),
		GeocodeAPIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "incident_map",
			Name:      "geocode_api_duration_seconds",
			Help:      "Reverse geocoding API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"provider"}),
		SnapshotsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "incident_map",
			Name:      "snapshots_published_total",
			Help:      "Snapshots written to Kafka by outcome.",
		}, []string{"outcome"}),
	}
}
