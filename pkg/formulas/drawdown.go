package formulas

// MaxDrawdown calculates the maximum drawdown of a value series.
//
// Drawdown Formula:
//
//	Drawdown = (Peak Value - Current Value) / Peak Value
//	Max Drawdown = Maximum of all drawdowns
//
// Returned as a positive fraction (0.25 = 25% below the running peak).
// Fewer than two values yield 0.
func MaxDrawdown(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}

	maxDrawdown := 0.0
	peak := values[0]
	for _, v := range values {
		if v > peak {
			peak = v
		}
		drawdown := (peak - v) / (peak + Epsilon)
		if drawdown > maxDrawdown {
			maxDrawdown = drawdown
		}
	}
	return maxDrawdown
}

// MaxDrawdownFromReturns compounds per-step returns into a growth curve and
// returns its maximum drawdown. The curve starts from the first compounded
// value, so a loss on the very first step is not a drawdown.
func MaxDrawdownFromReturns(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}

	maxDrawdown := 0.0
	cumulative := 1.0
	peak := 0.0
	for i, r := range returns {
		cumulative *= 1 + r
		if i == 0 || cumulative > peak {
			peak = cumulative
		}
		drawdown := (peak - cumulative) / (peak + Epsilon)
		if drawdown > maxDrawdown {
			maxDrawdown = drawdown
		}
	}
	return maxDrawdown
}
