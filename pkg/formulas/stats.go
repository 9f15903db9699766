// Package formulas holds the numeric building blocks shared by the
// environment, the rollout runner and the reward shaping: return compounding,
// drawdown, volatility and Sharpe ratio.
package formulas

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Epsilon guards every division by a price, peak, volatility or weight sum.
const Epsilon = 1e-9

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// PopStdDev returns the population standard deviation (denominator n).
// Rolling risk metrics use the population form so a single sample yields 0.
func PopStdDev(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	_, std := stat.PopMeanStdDev(data, nil)
	return std
}

// MeanStdDev returns the mean and the population standard deviation.
func MeanStdDev(data []float64) (mean, std float64) {
	if len(data) == 0 {
		return 0, 0
	}
	return stat.PopMeanStdDev(data, nil)
}

// AnnualizedVolatility scales per-period population volatility by sqrt(periodsPerYear).
func AnnualizedVolatility(returns []float64, periodsPerYear float64) float64 {
	if len(returns) == 0 || periodsPerYear <= 0 {
		return 0
	}
	return PopStdDev(returns) * math.Sqrt(periodsPerYear)
}

// Clip bounds v to [lo, hi].
func Clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// IsFinite reports whether v is neither NaN nor ±Inf.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// AllFinite reports whether every element of data is finite.
func AllFinite(data []float64) bool {
	for _, v := range data {
		if !IsFinite(v) {
			return false
		}
	}
	return true
}
