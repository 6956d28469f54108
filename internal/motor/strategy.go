package motor

import (
	"fmt"
	"math"
	"time"

	"github.com/sablalpz/GreenEnergy-Insights/internal/motor/anomaly"
	"github.com/sablalpz/GreenEnergy-Insights/internal/motor/forecast"
	"github.com/sablalpz/GreenEnergy-Insights/pkg/energy"
)

// Strategy computes derived results from a chronological series of readings.
// Implementations must be pure: same series and asOf, same output. The
// runner owns loading, persistence, and ID assignment.
type Strategy interface {
	Name() string
	Compute(metric string, series []energy.RawReading, asOf time.Time) ([]energy.DerivedResult, error)
}

// Evaluator is an optional Strategy extension. Strategies that can score
// their own in-sample fit report one ModelMetric per computed metric; the
// runner persists them alongside the run's results so model performance
// stays comparable across runs.
type Evaluator interface {
	Evaluate(metric string, series []energy.RawReading, asOf time.Time) (energy.ModelMetric, error)
}

// TrendStrategy is the default analytics strategy: a least-squares linear
// trend produces hourly predictions over the horizon (confidence = R²), and
// a z-score over the trend residuals flags anomalous readings.
type TrendStrategy struct {
	ZScoreThreshold float64
	Horizon         time.Duration
	Step            time.Duration
}

// NewTrendStrategy builds the default strategy from module config.
func NewTrendStrategy(cfg MotorConfig) *TrendStrategy {
	return &TrendStrategy{
		ZScoreThreshold: cfg.ZScoreThreshold,
		Horizon:         cfg.ForecastHorizon,
		Step:            cfg.ForecastStep,
	}
}

// Name implements Strategy.
func (s *TrendStrategy) Name() string { return "linear_trend" }

// Compute implements Strategy.
func (s *TrendStrategy) Compute(metric string, series []energy.RawReading, asOf time.Time) ([]energy.DerivedResult, error) {
	if len(series) < 2 {
		return nil, &AnalyticsError{
			Kind: KindInsufficientData,
			Err:  fmt.Errorf("metric %s: %d readings", metric, len(series)),
		}
	}

	base := series[0].SourceTimestamp
	times := make([]float64, len(series))
	values := make([]float64, len(series))
	for i, r := range series {
		times[i] = r.SourceTimestamp.Sub(base).Hours()
		values[i] = r.Value
	}

	fit := forecast.LeastSquares(times, values)
	if fit == nil {
		return nil, &AnalyticsError{
			Kind: KindComputeDiverged,
			Err:  fmt.Errorf("metric %s: degenerate time axis", metric),
		}
	}

	var results []energy.DerivedResult

	// Predictions across the horizon, one per step.
	confidence := fit.RSquared
	for offset := s.Step; offset <= s.Horizon; offset += s.Step {
		target := asOf.Add(offset)
		predicted := fit.At(target.Sub(base).Hours())
		if !isFinite(predicted) {
			return nil, &AnalyticsError{
				Kind: KindComputeDiverged,
				Err:  fmt.Errorf("metric %s: non-finite prediction at %s", metric, target.Format(time.RFC3339)),
			}
		}
		results = append(results, energy.DerivedResult{
			MetricName:      metric,
			Kind:            energy.KindPrediction,
			Value:           predicted,
			Confidence:      &confidence,
			Detail:          fmt.Sprintf("linear_trend slope=%.4f/h r2=%.3f", fit.Slope, fit.RSquared),
			TargetTimestamp: target,
			ComputedAt:      asOf,
		})
	}

	// Anomaly flags: z-score over residuals from the fitted trend.
	residuals := make([]float64, len(series))
	for i := range series {
		residuals[i] = values[i] - fit.At(times[i])
	}
	mean, stdDev := anomaly.MeanStdDev(residuals)
	if !isFinite(mean) || !isFinite(stdDev) {
		return nil, &AnalyticsError{
			Kind: KindComputeDiverged,
			Err:  fmt.Errorf("metric %s: non-finite residual statistics", metric),
		}
	}

	for i, r := range series {
		check := anomaly.ZScoreCheck(residuals[i], mean, stdDev, s.ZScoreThreshold)
		if !check.IsAnomaly {
			continue
		}
		z := check.ZScore
		results = append(results, energy.DerivedResult{
			MetricName:      metric,
			Kind:            energy.KindAnomalyFlag,
			Value:           r.Value,
			Confidence:      nil,
			Detail:          fmt.Sprintf("zscore=%.2f severity=%s expected=%.2f", z, check.Severity, fit.At(times[i])),
			TargetTimestamp: r.SourceTimestamp,
			ComputedAt:      asOf,
		})
	}

	return results, nil
}

// Evaluate implements Evaluator: fit quality of the linear trend against
// its own input series (MAE, RMSE, R², MAPE, SMAPE). MAPE skips zero
// actuals and SMAPE skips zero denominators; either is nil when no sample
// qualifies.
func (s *TrendStrategy) Evaluate(metric string, series []energy.RawReading, asOf time.Time) (energy.ModelMetric, error) {
	if len(series) < 2 {
		return energy.ModelMetric{}, &AnalyticsError{
			Kind: KindInsufficientData,
			Err:  fmt.Errorf("metric %s: %d readings", metric, len(series)),
		}
	}

	base := series[0].SourceTimestamp
	times := make([]float64, len(series))
	values := make([]float64, len(series))
	for i, r := range series {
		times[i] = r.SourceTimestamp.Sub(base).Hours()
		values[i] = r.Value
	}

	fit := forecast.LeastSquares(times, values)
	if fit == nil {
		return energy.ModelMetric{}, &AnalyticsError{
			Kind: KindComputeDiverged,
			Err:  fmt.Errorf("metric %s: degenerate time axis", metric),
		}
	}

	var sumAbs, sumSq float64
	var mapeSum, smapeSum float64
	var mapeN, smapeN int
	for i := range series {
		predicted := fit.At(times[i])
		diff := values[i] - predicted
		sumAbs += math.Abs(diff)
		sumSq += diff * diff
		if values[i] != 0 {
			mapeSum += math.Abs(diff / values[i])
			mapeN++
		}
		if denom := math.Abs(values[i]) + math.Abs(predicted); denom != 0 {
			smapeSum += 2 * math.Abs(diff) / denom
			smapeN++
		}
	}

	n := float64(len(series))
	mm := energy.ModelMetric{
		Strategy:   s.Name(),
		MetricName: metric,
		MAE:        sumAbs / n,
		RMSE:       math.Sqrt(sumSq / n),
		R2:         fit.RSquared,
		NSamples:   len(series),
		ComputedAt: asOf,
	}
	if mapeN > 0 {
		mape := mapeSum / float64(mapeN) * 100
		mm.MAPE = &mape
	}
	if smapeN > 0 {
		smape := smapeSum / float64(smapeN) * 100
		mm.SMAPE = &smape
	}

	if !isFinite(mm.MAE) || !isFinite(mm.RMSE) || !isFinite(mm.R2) {
		return energy.ModelMetric{}, &AnalyticsError{
			Kind: KindComputeDiverged,
			Err:  fmt.Errorf("metric %s: non-finite fit metrics", metric),
		}
	}
	return mm, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
