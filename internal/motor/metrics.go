package motor

import "github.com/prometheus/client_golang/prometheus"

// Prometheus metrics for analytics runs.
var (
	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "greenergy_motor_runs_total",
			Help: "Analytics runs by outcome (ok, busy, insufficient_data, compute_diverged, persist_failed).",
		},
		[]string{"outcome"},
	)
	runDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "greenergy_motor_run_duration_seconds",
			Help:    "Duration of successful analytics runs.",
			Buckets: prometheus.DefBuckets,
		},
	)
	resultsPersisted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "greenergy_motor_results_persisted_total",
			Help: "Derived results persisted by kind.",
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(runsTotal, runDuration, resultsPersisted)
}
