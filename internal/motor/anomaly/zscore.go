// Package anomaly provides statistical anomaly checks.
package anomaly

import "math"

// Severity levels for detected anomalies.
const (
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// ZScoreResult contains the result of a Z-score check.
type ZScoreResult struct {
	IsAnomaly bool
	ZScore    float64
	Severity  string
}

// ZScoreCheck evaluates whether a value is anomalous given a baseline mean
// and standard deviation. threshold is the minimum |z-score| to flag.
// Severity mapping:
//   - warning: |z| >= threshold and |z| < threshold+1
//   - critical: |z| >= threshold+1
func ZScoreCheck(value, mean, stdDev, threshold float64) ZScoreResult {
	if stdDev <= 0 {
		return ZScoreResult{}
	}
	z := (value - mean) / stdDev
	absZ := math.Abs(z)

	if absZ < threshold {
		return ZScoreResult{ZScore: z}
	}

	severity := SeverityWarning
	if absZ >= threshold+1 {
		severity = SeverityCritical
	}

	return ZScoreResult{
		IsAnomaly: true,
		ZScore:    z,
		Severity:  severity,
	}
}

// MeanStdDev computes the mean and population standard deviation of values.
func MeanStdDev(values []float64) (mean, stdDev float64) {
	n := len(values)
	if n == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean = sum / float64(n)

	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return mean, math.Sqrt(ss / float64(n))
}
