package ingest

import "github.com/prometheus/client_golang/prometheus"

// Prometheus metrics for the ingest pipeline.
var (
	fetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "greenergy_ingest_fetches_total",
			Help: "Total upstream fetch attempts by metric and result.",
		},
		[]string{"metric", "result"},
	)
	rowsInserted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "greenergy_ingest_rows_inserted_total",
			Help: "Raw readings inserted, excluding duplicates skipped.",
		},
		[]string{"metric", "source"},
	)
	rowsSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "greenergy_ingest_rows_skipped_total",
			Help: "Raw readings skipped because their natural key already existed.",
		},
		[]string{"metric", "source"},
	)
)

func init() {
	prometheus.MustRegister(fetchesTotal, rowsInserted, rowsSkipped)
}
