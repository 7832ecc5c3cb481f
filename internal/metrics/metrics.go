package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	runsTotal      *prometheus.CounterVec
	rowsTotal      *prometheus.CounterVec
	rowErrorsTotal *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	inFlight       prometheus.Gauge
}

var metricsSingleton = sync.OnceValue(func() *metrics {
	return &metrics{
		runsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roster_import",
			Name:      "runs_total",
			Help:      "Total number of import runs by entity and outcome.",
		}, []string{"entity", "outcome"}),
		rowsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roster_import",
			Name:      "rows_total",
			Help:      "Total number of data rows read from uploaded files.",
		}, []string{"entity"}),
		rowErrorsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roster_import",
			Name:      "row_errors_total",
			Help:      "Total number of row errors reported, by error code.",
		}, []string{"entity", "code"}),
		duration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "roster_import",
			Name:      "duration_seconds",
			Help:      "Latency distribution of import runs.",
			Buckets: []float64{
				0.01, 0.05, 0.1,
				0.25, 0.5, 1,
				2.5, 5, 10, 30, 60,
			},
		}, []string{"entity", "outcome"}),
		inFlight: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "roster_import",
			Name:      "in_flight",
			Help:      "Current number of imports holding a processing slot.",
		}),
	}
})

func getMetrics() *metrics {
	return metricsSingleton()
}

// RecordRun records a finished import run
func RecordRun(entity, outcome string, rows int, took time.Duration) {
	m := getMetrics()
	m.runsTotal.WithLabelValues(entity, outcome).Inc()
	m.rowsTotal.WithLabelValues(entity).Add(float64(rows))
	m.duration.WithLabelValues(entity, outcome).Observe(took.Seconds())
}

// RecordRowError counts one reported row error
func RecordRowError(entity, code string) {
	getMetrics().rowErrorsTotal.WithLabelValues(entity, code).Inc()
}

// ImportStarted and ImportFinished track imports holding a slot
func ImportStarted() {
	getMetrics().inFlight.Inc()
}

func ImportFinished() {
	getMetrics().inFlight.Dec()
}
