// Package forecast provides least-squares trend fitting for time series.
package forecast

import "time"

// Fit is a fitted linear trend over a time series.
type Fit struct {
	Slope     float64 // Rate of change per hour
	Intercept float64 // Value at t=0
	RSquared  float64 // Coefficient of determination (0-1)
}

// LeastSquares fits a line through (times, values) pairs. times should be in
// hours relative to some epoch. Returns nil if fewer than 2 points are given
// or every timestamp is identical.
func LeastSquares(times, values []float64) *Fit {
	n := len(times)
	if n < 2 || len(values) != n {
		return nil
	}

	var sumX, sumY float64
	for i := 0; i < n; i++ {
		sumX += times[i]
		sumY += values[i]
	}
	meanX := sumX / float64(n)
	meanY := sumY / float64(n)

	var ssXY, ssXX, ssYY float64
	for i := 0; i < n; i++ {
		dx := times[i] - meanX
		dy := values[i] - meanY
		ssXY += dx * dy
		ssXX += dx * dx
		ssYY += dy * dy
	}

	if ssXX == 0 {
		return nil
	}

	slope := ssXY / ssXX
	intercept := meanY - slope*meanX

	var rSquared float64
	if ssYY > 0 {
		rSquared = (ssXY * ssXY) / (ssXX * ssYY)
	}

	return &Fit{Slope: slope, Intercept: intercept, RSquared: rSquared}
}

// At evaluates the fitted line at t (hours relative to the fit epoch).
func (f *Fit) At(t float64) float64 {
	return f.Slope*t + f.Intercept
}

// TimeToHours converts timestamps to hours relative to base.
func TimeToHours(timestamps []time.Time, base time.Time) []float64 {
	hours := make([]float64, len(timestamps))
	for i, t := range timestamps {
		hours[i] = t.Sub(base).Hours()
	}
	return hours
}
