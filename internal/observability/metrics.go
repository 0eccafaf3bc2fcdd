package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "firms"

// Metrics holds the Prometheus counters, histograms, and gauges for the fire data service.
type Metrics struct {
	FetchRequests      *prometheus.CounterVec   // labels: source, outcome={success,empty,validation,auth,network,superseded,error}
	FetchDuration      *prometheus.HistogramVec // labels: source
	DetectionsReturned prometheus.Histogram
	RowsDropped        prometheus.Counter
	Truncations        prometheus.Counter

	// FIRMS upstream metrics.
	UpstreamRequests *prometheus.CounterVec // labels: outcome={success,auth,network}
	UpstreamRetries  prometheus.Counter
	PayloadCache     *prometheus.CounterVec // labels: result={hit,miss,error}

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec // labels: method={reverse}, outcome={success,error,empty}
	GeocodeCache       *prometheus.CounterVec // labels: method={reverse}, result={hit,miss}
	GeocodeAPIDuration *prometheus.HistogramVec
	GeocodeEnabled     prometheus.Gauge

	RiskRequests   *prometheus.CounterVec // labels: outcome={parsed,unparsed,error}
	RiskDuration   prometheus.Histogram
	SessionsActive prometheus.Gauge
	Published      *prometheus.CounterVec // labels: outcome={success,error}
}

func newMetrics() *Metrics {
	return &Metrics{
		FetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_requests_total",
			Help:      "Fetch operations by satellite source and outcome.",
		}, []string{"source", "outcome"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "End-to-end duration of a fetch, including every FIRMS window.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"source"}),
		DetectionsReturned: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "detections_returned",
			Help:      "Detections returned per fetch after capping.",
			Buckets:   []float64{0, 1, 10, 50, 100, 250, 500, 1000, 2000},
		}),
		RowsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_dropped_total",
			Help:      "Malformed CSV rows skipped while parsing FIRMS payloads.",
		}),
		Truncations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "truncations_total",
			Help:      "Fetches whose result exceeded the display limit.",
		}),
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "FIRMS area API requests by outcome.",
		}, []string{"outcome"}),
		UpstreamRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_retries_total",
			Help:      "FIRMS requests retried after a network failure.",
		}),
		PayloadCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payload_cache_total",
			Help:      "FIRMS payload cache lookups by result.",
		}, []string{"result"}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      "Geocoding API requests by method and outcome.",
		}, []string{"method", "outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by method and result.",
		}, []string{"method", "result"}),
		GeocodeAPIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "geocode_api_duration_seconds",
			Help:      "Mapbox API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"method"}),
		GeocodeEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "geocode_enabled",
			Help:      "1 when reverse geocoding is enabled, 0 otherwise.",
		}),
		RiskRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "risk_requests_total",
			Help:      "Risk assessments by outcome.",
		}, []string{"outcome"}),
		RiskDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "risk_duration_seconds",
			Help:      "Risk model round-trip latency.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Live sessions holding an API key.",
		}),
		Published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "published_detections_total",
			Help:      "Detections written to Kafka by outcome.",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.FetchRequests,
		m.FetchDuration,
		m.DetectionsReturned,
		m.RowsDropped,
		m.Truncations,
		m.UpstreamRequests,
		m.UpstreamRetries,
		m.PayloadCache,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
		m.GeocodeEnabled,
		m.RiskRequests,
		m.RiskDuration,
		m.SessionsActive,
		m.Published,
	}
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics registered on a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	m := newMetrics()
	prometheus.NewRegistry().MustRegister(m.collectors()...)
	return m
}
