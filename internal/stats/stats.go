// Package stats holds the small numeric helpers used by the clock estimator
// and the client diagnostics.
package stats

import "math"

// Sample is one (x, y) observation.
type Sample struct {
	X float64
	Y float64
}

// LinearRegression is the line y = Alpha + Beta·x.
type LinearRegression struct {
	Alpha float64
	Beta  float64
}

// Eval returns the fitted y at x.
func (l LinearRegression) Eval(x float64) float64 {
	return l.Alpha + l.Beta*x
}

// LinearRegressionWithBeta fits a line with a fixed slope. Only the intercept
// is estimated: alpha = mean(y) - beta·mean(x). Without samples the intercept
// is zero.
func LinearRegressionWithBeta(beta float64, samples []Sample) LinearRegression {
	if len(samples) == 0 {
		return LinearRegression{Beta: beta}
	}
	var sumX, sumY float64
	for _, s := range samples {
		sumX += s.X
		sumY += s.Y
	}
	n := float64(len(samples))
	return LinearRegression{Alpha: sumY/n - beta*sumX/n, Beta: beta}
}

// Mean returns the arithmetic mean, or zero for no values.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev returns the population standard deviation, or zero for no values.
func StdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := Mean(values)
	var acc float64
	for _, v := range values {
		d := v - mean
		acc += d * d
	}
	return math.Sqrt(acc / float64(len(values)))
}
