package motor

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sablalpz/GreenEnergy-Insights/internal/testutil"
	"github.com/sablalpz/GreenEnergy-Insights/pkg/energy"
)

func trendStrategy() *TrendStrategy {
	return &TrendStrategy{
		ZScoreThreshold: 3.0,
		Horizon:         3 * time.Hour,
		Step:            time.Hour,
	}
}

func TestTrendStrategy_PredictionsFollowTrend(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	// Perfectly linear: value = 100 + 2*hour.
	series := testutil.HourlySeries(energy.MetricPrice, start, 48, func(i int) float64 {
		return 100 + 2*float64(i)
	})
	asOf := series[len(series)-1].SourceTimestamp

	results, err := trendStrategy().Compute(energy.MetricPrice, series, asOf)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	var predictions []energy.DerivedResult
	for _, r := range results {
		if r.Kind == energy.KindPrediction {
			predictions = append(predictions, r)
		} else {
			t.Errorf("unexpected %s on a perfectly linear series: %+v", r.Kind, r)
		}
	}
	if len(predictions) != 3 {
		t.Fatalf("predictions = %d, want 3 (one per hourly step)", len(predictions))
	}

	for k, p := range predictions {
		wantValue := 100 + 2*float64(47+k+1)
		if diff := p.Value - wantValue; diff > 1e-6 || diff < -1e-6 {
			t.Errorf("prediction %d value = %v, want %v", k, p.Value, wantValue)
		}
		wantTarget := asOf.Add(time.Duration(k+1) * time.Hour)
		if !p.TargetTimestamp.Equal(wantTarget) {
			t.Errorf("prediction %d target = %v, want %v", k, p.TargetTimestamp, wantTarget)
		}
		if p.Confidence == nil || *p.Confidence < 0.999 {
			t.Errorf("prediction %d confidence = %v, want ~1 for a perfect fit", k, p.Confidence)
		}
		if !p.ComputedAt.Equal(asOf) {
			t.Errorf("prediction %d ComputedAt = %v, want %v", k, p.ComputedAt, asOf)
		}
	}
}

func TestTrendStrategy_SpikeFlaggedAsAnomaly(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	spikeIdx := 24
	series := testutil.HourlySeries(energy.MetricPrice, start, 48, func(i int) float64 {
		if i == spikeIdx {
			return 250
		}
		return 100
	})
	asOf := series[len(series)-1].SourceTimestamp

	results, err := trendStrategy().Compute(energy.MetricPrice, series, asOf)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	var anomalies []energy.DerivedResult
	for _, r := range results {
		if r.Kind == energy.KindAnomalyFlag {
			anomalies = append(anomalies, r)
		}
	}
	if len(anomalies) != 1 {
		t.Fatalf("anomalies = %d, want exactly the spike", len(anomalies))
	}

	a := anomalies[0]
	if !a.TargetTimestamp.Equal(series[spikeIdx].SourceTimestamp) {
		t.Errorf("anomaly target = %v, want %v", a.TargetTimestamp, series[spikeIdx].SourceTimestamp)
	}
	if a.Value != 250 {
		t.Errorf("anomaly value = %v, want 250", a.Value)
	}
	if a.Confidence != nil {
		t.Errorf("anomaly confidence = %v, want nil", *a.Confidence)
	}
	if !strings.Contains(a.Detail, "severity=critical") {
		t.Errorf("Detail = %q, want severity=critical", a.Detail)
	}
	if !strings.Contains(a.Detail, "zscore=") {
		t.Errorf("Detail = %q, want a zscore", a.Detail)
	}
}

func TestTrendStrategy_TooFewReadings(t *testing.T) {
	series := []energy.RawReading{testutil.NewReading()}

	_, err := trendStrategy().Compute(energy.MetricPrice, series, time.Now().UTC())
	var ae *AnalyticsError
	if !errors.As(err, &ae) {
		t.Fatalf("expected AnalyticsError, got %v", err)
	}
	if ae.Kind != KindInsufficientData {
		t.Errorf("Kind = %q, want %q", ae.Kind, KindInsufficientData)
	}
}

func TestTrendStrategy_DegenerateTimeAxis(t *testing.T) {
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	series := []energy.RawReading{
		testutil.NewReading(testutil.WithTimestamp(ts), testutil.WithValue(100)),
		testutil.NewReading(testutil.WithTimestamp(ts), testutil.WithValue(200)),
	}

	_, err := trendStrategy().Compute(energy.MetricPrice, series, ts)
	var ae *AnalyticsError
	if !errors.As(err, &ae) {
		t.Fatalf("expected AnalyticsError, got %v", err)
	}
	if ae.Kind != KindComputeDiverged {
		t.Errorf("Kind = %q, want %q", ae.Kind, KindComputeDiverged)
	}
}

func TestTrendStrategy_Deterministic(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	series := testutil.HourlySeries(energy.MetricPrice, start, 30, func(i int) float64 {
		return 100 + float64(i%7)*3
	})
	asOf := series[len(series)-1].SourceTimestamp

	s := trendStrategy()
	a, err := s.Compute(energy.MetricPrice, series, asOf)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	b, err := s.Compute(energy.MetricPrice, series, asOf)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	if len(a) != len(b) {
		t.Fatalf("result counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].Value != b[i].Value || a[i].Detail != b[i].Detail {
			t.Errorf("results differ at index %d: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestTrendStrategy_EvaluateScoresFit(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	series := testutil.HourlySeries(energy.MetricPrice, start, 48, func(i int) float64 {
		return 100 + 2*float64(i)
	})
	asOf := series[len(series)-1].SourceTimestamp

	mm, err := trendStrategy().Evaluate(energy.MetricPrice, series, asOf)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	if mm.Strategy != "linear_trend" {
		t.Errorf("Strategy = %q, want linear_trend", mm.Strategy)
	}
	if mm.MetricName != energy.MetricPrice {
		t.Errorf("MetricName = %q", mm.MetricName)
	}
	if mm.NSamples != 48 {
		t.Errorf("NSamples = %d, want 48", mm.NSamples)
	}
	if !mm.ComputedAt.Equal(asOf) {
		t.Errorf("ComputedAt = %v, want %v", mm.ComputedAt, asOf)
	}
	// A perfectly linear series fits exactly.
	if mm.R2 < 0.999 {
		t.Errorf("R2 = %v, want ~1", mm.R2)
	}
	if mm.MAE > 1e-6 || mm.RMSE > 1e-6 {
		t.Errorf("MAE = %v, RMSE = %v, want ~0", mm.MAE, mm.RMSE)
	}
	if mm.MAPE == nil || *mm.MAPE > 1e-6 {
		t.Errorf("MAPE = %v, want ~0", mm.MAPE)
	}
	if mm.SMAPE == nil || *mm.SMAPE > 1e-6 {
		t.Errorf("SMAPE = %v, want ~0", mm.SMAPE)
	}
}

func TestTrendStrategy_EvaluateNoisySeriesImperfectFit(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	series := testutil.HourlySeries(energy.MetricPrice, start, 48, func(i int) float64 {
		if i%2 == 0 {
			return 100 + 2*float64(i) + 10
		}
		return 100 + 2*float64(i) - 10
	})
	asOf := series[len(series)-1].SourceTimestamp

	mm, err := trendStrategy().Evaluate(energy.MetricPrice, series, asOf)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if mm.MAE < 5 {
		t.Errorf("MAE = %v, want noticeable error on a noisy series", mm.MAE)
	}
	if mm.RMSE+1e-9 < mm.MAE {
		t.Errorf("RMSE = %v < MAE = %v", mm.RMSE, mm.MAE)
	}
	if mm.R2 >= 1 || mm.R2 <= 0 {
		t.Errorf("R2 = %v, want within (0, 1)", mm.R2)
	}
}

func TestTrendStrategy_EvaluateInsufficientSeries(t *testing.T) {
	series := []energy.RawReading{testutil.NewReading()}

	_, err := trendStrategy().Evaluate(energy.MetricPrice, series, time.Now().UTC())
	var ae *AnalyticsError
	if !errors.As(err, &ae) {
		t.Fatalf("expected AnalyticsError, got %v", err)
	}
	if ae.Kind != KindInsufficientData {
		t.Errorf("Kind = %q, want %q", ae.Kind, KindInsufficientData)
	}
}
