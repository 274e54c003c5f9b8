package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the mission pipeline.
type Metrics struct {
	// Fetch metrics.
	DatasetsFetched prometheus.Counter
	FetchDuration   prometheus.Histogram

	// Table metrics.
	TableBuilds      prometheus.Counter
	TableLoads       prometheus.Counter
	TableDistricts   prometheus.Gauge
	TableYears       prometheus.Gauge
	TableUnresolved  prometheus.Gauge
	BuildDuration    prometheus.Histogram
	RecordsPublished prometheus.Counter

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec   // labels: provider={nominatim,mapbox}, outcome={success,error,empty}
	GeocodeAPIDuration *prometheus.HistogramVec // labels: provider
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.DatasetsFetched,
		m.FetchDuration,
		m.TableBuilds,
		m.TableLoads,
		m.TableDistricts,
		m.TableYears,
		m.TableUnresolved,
		m.BuildDuration,
		m.RecordsPublished,
		m.GeocodeRequests,
		m.GeocodeAPIDuration,
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
		DatasetsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bf_missions",
			Name:      "datasets_fetched_total",
			Help:      "Yearly datasets downloaded from the open-data repository.",
		}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "bf_missions",
			Name:      "fetch_duration_seconds",
			Help:      "Duration of a single yearly dataset request.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		TableBuilds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bf_missions",
			Name:      "table_builds_total",
			Help:      "Full fetch-aggregate-geocode runs.",
		}),
		TableLoads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bf_missions",
			Name:      "table_loads_total",
			Help:      "Tables read back from the persisted file instead of rebuilt.",
		}),
		TableDistricts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "bf_missions",
			Name:      "table_districts",
			Help:      "Canonical districts in the current table.",
		}),
		TableYears: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "bf_missions",
			Name:      "table_years",
			Help:      "Year columns in the current table.",
		}),
		TableUnresolved: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "bf_missions",
			Name:      "table_unresolved_districts",
			Help:      "Districts of the current table without coordinates.",
		}),
		BuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "bf_missions",
			Name:      "build_duration_seconds",
			Help:      "Duration of a complete table build.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		RecordsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bf_missions",
			Name:      "records_published_total",
			Help:      "District records written to the sink topic.",
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bf_missions",
			Name:      "geocode_requests_total",
			Help:      "Geocoding API requests by provider and outcome.",
		}, []string{"provider", "outcome"}),
		GeocodeAPIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bf_missions",
			Name:      "geocode_api_duration_seconds",
			Help:      "Geocoding API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"provider"}),
	}
}
