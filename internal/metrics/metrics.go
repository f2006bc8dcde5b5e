package metrics

import (
	"net/http"
	"time"

	"candleservice/internal/aggregator"
	"candleservice/internal/index"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the candle service.
type Metrics struct {
	QueriesTotal *prometheus.CounterVec // labels: resolution
	QueryDur     prometheus.Histogram

	IndexRows    prometheus.Gauge
	IndexSkipped prometheus.Gauge
	IndexCodes   prometheus.Gauge
	IndexBuckets prometheus.Gauge

	BuildsTotal *prometheus.CounterVec // labels: result=published|discarded
	BuildDur    prometheus.Histogram

	gatherer prometheus.Gatherer
}

// New registers all metrics with reg. A nil reg uses a fresh private
// registry, which keeps tests independent of the global one.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{
		QueriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "candle_queries_total",
			Help: "Candle queries served, by how the window was resolved",
		}, []string{"resolution"}),
		QueryDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "candle_query_duration_seconds",
			Help:    "Candle aggregation latency",
			Buckets: []float64{0.000001, 0.000005, 0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005},
		}),

		IndexRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "candle_index_rows",
			Help: "Ticks held by the current index snapshot",
		}),
		IndexSkipped: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "candle_index_skipped_rows",
			Help: "Rows rejected while building the current snapshot",
		}),
		IndexCodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "candle_index_codes",
			Help: "Distinct instrument codes in the current snapshot",
		}),
		IndexBuckets: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "candle_index_buckets",
			Help: "Distinct (code, hour) buckets in the current snapshot",
		}),

		BuildsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "candle_index_builds_total",
			Help: "Index builds, by whether the result was published",
		}, []string{"result"}),
		BuildDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "candle_index_build_duration_seconds",
			Help:    "Time to read the tick source and build the index",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
		}),

		gatherer: reg,
	}

	reg.MustRegister(
		m.QueriesTotal,
		m.QueryDur,
		m.IndexRows,
		m.IndexSkipped,
		m.IndexCodes,
		m.IndexBuckets,
		m.BuildsTotal,
		m.BuildDur,
	)

	return m
}

// ObserveQuery records one candle query.
func (m *Metrics) ObserveQuery(res aggregator.Resolution, d time.Duration) {
	m.QueriesTotal.WithLabelValues(string(res)).Inc()
	m.QueryDur.Observe(d.Seconds())
}

// ObserveBuild records one index build and, when published, the gauges of
// the new snapshot.
func (m *Metrics) ObserveBuild(st index.Stats, d time.Duration, published bool) {
	m.BuildDur.Observe(d.Seconds())
	if !published {
		m.BuildsTotal.WithLabelValues("discarded").Inc()
		return
	}
	m.BuildsTotal.WithLabelValues("published").Inc()
	m.IndexRows.Set(float64(st.IndexedRows))
	m.IndexSkipped.Set(float64(st.SkippedRows))
	m.IndexCodes.Set(float64(st.Codes))
	m.IndexBuckets.Set(float64(st.Buckets))
}

// Handler serves the Prometheus exposition of the registry passed to New.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
