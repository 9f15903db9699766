package formulas

import "math"

// CompoundReturn converts a per-step return into the return over periods
// steps: (1+r)^periods - 1.
//
// A step that wipes out more than the whole position (1+r < 0) falls back to
// linear scaling so that odd and even exponents cannot flip its sign.
func CompoundReturn(r float64, periods int) float64 {
	if periods <= 1 {
		return r
	}
	base := 1 + r
	if base < 0 {
		return r * float64(periods)
	}
	return math.Pow(base, float64(periods)) - 1
}

// CalculateReturns converts prices to simple returns.
// Returns[i] = (Price[i+1] - Price[i]) / (Price[i] + Epsilon)
func CalculateReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return []float64{}
	}

	returns := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		returns[i-1] = (prices[i] - prices[i-1]) / (prices[i-1] + Epsilon)
	}
	return returns
}

// CumulativeGrowth returns the running product of (1+r) for each step.
func CumulativeGrowth(returns []float64) []float64 {
	growth := make([]float64, len(returns))
	acc := 1.0
	for i, r := range returns {
		acc *= 1 + r
		growth[i] = acc
	}
	return growth
}
