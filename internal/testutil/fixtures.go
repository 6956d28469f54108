// Package testutil provides shared test fixtures.
package testutil

import (
	"time"

	"github.com/google/uuid"

	"github.com/sablalpz/GreenEnergy-Insights/pkg/energy"
)

// NewReading returns a RawReading with sensible defaults, suitable for test
// fixtures. Override individual fields through options.
func NewReading(opts ...func(*energy.RawReading)) energy.RawReading {
	r := energy.RawReading{
		MetricName:      energy.MetricPrice,
		SourceTimestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Value:           120.5,
		Source:          energy.SourceSynthetic,
		IngestedAt:      time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// WithMetric sets the reading's metric name.
func WithMetric(name string) func(*energy.RawReading) {
	return func(r *energy.RawReading) { r.MetricName = name }
}

// WithTimestamp sets the reading's source timestamp.
func WithTimestamp(t time.Time) func(*energy.RawReading) {
	return func(r *energy.RawReading) { r.SourceTimestamp = t }
}

// WithValue sets the reading's value.
func WithValue(v float64) func(*energy.RawReading) {
	return func(r *energy.RawReading) { r.Value = v }
}

// WithSource sets the reading's source tag.
func WithSource(s string) func(*energy.RawReading) {
	return func(r *energy.RawReading) { r.Source = s }
}

// HourlySeries generates n hourly readings starting at start, with values
// produced by fn(i). Handy for building regression inputs.
func HourlySeries(metric string, start time.Time, n int, fn func(i int) float64) []energy.RawReading {
	series := make([]energy.RawReading, n)
	for i := 0; i < n; i++ {
		series[i] = NewReading(
			WithMetric(metric),
			WithTimestamp(start.Add(time.Duration(i)*time.Hour)),
			WithValue(fn(i)),
		)
	}
	return series
}

// NewResult returns a DerivedResult with sensible defaults.
func NewResult(opts ...func(*energy.DerivedResult)) energy.DerivedResult {
	res := energy.DerivedResult{
		ID:              uuid.NewString(),
		MetricName:      energy.MetricPrice,
		Kind:            energy.KindPrediction,
		Value:           130.0,
		Detail:          "test",
		TargetTimestamp: time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC),
		ComputedAt:      time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	for _, opt := range opts {
		opt(&res)
	}
	return res
}

// WithKind sets the result kind.
func WithKind(kind string) func(*energy.DerivedResult) {
	return func(r *energy.DerivedResult) { r.Kind = kind }
}
