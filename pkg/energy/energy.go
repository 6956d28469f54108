// Package energy provides the shared domain types for GreenEnergy Insights:
// raw time-series readings ingested from external providers and the derived
// results produced by the analytics engine.
package energy

import (
	"fmt"
	"time"
)

// Reading sources.
const (
	SourceREE       = "ree"
	SourceSynthetic = "synthetic"
)

// Derived result kinds.
const (
	KindPrediction  = "prediction"
	KindAnomalyFlag = "anomaly_flag"
)

// Metric names ingested from the REE indicator API.
const (
	MetricPrice  = "price"  // indicator 1001, PVPC price
	MetricDemand = "demand" // indicator 600, real demand
)

// RawReading is one immutable time-series data point. Readings are unique
// per (metric_name, source_timestamp, source) and never updated or deleted
// by normal operation.
type RawReading struct {
	MetricName      string    `json:"metric_name"`
	SourceTimestamp time.Time `json:"source_timestamp"`
	Value           float64   `json:"value"`
	Source          string    `json:"source"`
	IngestedAt      time.Time `json:"ingested_at,omitempty"`
}

// Key returns the natural uniqueness key of the reading.
func (r RawReading) Key() string {
	return fmt.Sprintf("%s|%s|%s", r.MetricName, r.SourceTimestamp.UTC().Format(time.RFC3339), r.Source)
}

// DerivedResult is one output of an analytics run: a forward prediction or
// an anomaly flag. Results are append-only; later runs supersede earlier
// rows without mutating them, so model drift stays auditable.
type DerivedResult struct {
	ID              string    `json:"id"`
	MetricName      string    `json:"metric_name"`
	Kind            string    `json:"kind"` // "prediction" or "anomaly_flag"
	Value           float64   `json:"value"`
	Confidence      *float64  `json:"confidence,omitempty"`
	Detail          string    `json:"detail,omitempty"`
	TargetTimestamp time.Time `json:"target_timestamp"`
	ComputedAt      time.Time `json:"computed_at"`
}

// TimeRange bounds a fetch or query window. A zero From or To leaves that
// side unbounded.
type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// IsZero reports whether both bounds are unset.
func (t TimeRange) IsZero() bool {
	return t.From.IsZero() && t.To.IsZero()
}

// ReadingStats summarizes the stored raw readings.
type ReadingStats struct {
	TotalRecords int       `json:"total_records"`
	FirstRecord  time.Time `json:"first_record,omitempty"`
	LastRecord   time.Time `json:"last_record,omitempty"`
	DaysCovered  int       `json:"days_covered"`
}

// ResultStats summarizes the stored derived results.
type ResultStats struct {
	TotalResults int            `json:"total_results"`
	ByKind       map[string]int `json:"by_kind"`
	LastComputed time.Time      `json:"last_computed,omitempty"`
}

// ModelMetric records one strategy's in-sample fit quality for a single
// metric of an analytics run. Rows are append-only so model performance
// stays comparable across runs. MAPE and SMAPE are nil when their
// denominator is zero for every sample.
type ModelMetric struct {
	ID         string    `json:"id"`
	Strategy   string    `json:"strategy"`
	MetricName string    `json:"metric_name"`
	MAPE       *float64  `json:"mape"`
	SMAPE      *float64  `json:"smape"`
	RMSE       float64   `json:"rmse"`
	MAE        float64   `json:"mae"`
	R2         float64   `json:"r2"`
	NSamples   int       `json:"n_samples"`
	ComputedAt time.Time `json:"computed_at"`
}

// AnomalyStats summarizes the stored anomaly flags.
type AnomalyStats struct {
	TotalAnomalies  int            `json:"total_anomalies"`
	BySeverity      map[string]int `json:"by_severity"`
	CriticalLast24h int            `json:"critical_last_24h"`
	LastUpdate      time.Time      `json:"last_update"`
}

// PredictionStats summarizes the stored predictions.
type PredictionStats struct {
	TotalPredictions int            `json:"total_predictions"`
	ByMetric         map[string]int `json:"by_metric"`
	LastPrediction   time.Time      `json:"last_prediction,omitempty"`
}
