package formulas

import "math"

// StdFloor is the volatility below which a Sharpe ratio is reported as 0.
const StdFloor = 1e-9

// SharpeRatio calculates the annualized Sharpe ratio of per-step returns.
//
//	Sharpe = (mean(returns) - riskFreePerStep) / std(returns) × sqrt(periodsPerYear)
//
// The population standard deviation is used. Fewer than two returns, or a
// volatility below StdFloor, yield exactly 0.
func SharpeRatio(returns []float64, riskFreePerStep, periodsPerYear float64) float64 {
	if len(returns) < 2 {
		return 0
	}

	mean, std := MeanStdDev(returns)
	if std < StdFloor || math.IsNaN(std) {
		return 0
	}

	perStep := (mean - riskFreePerStep) / std
	if periodsPerYear <= 0 {
		return perStep
	}
	return perStep * math.Sqrt(periodsPerYear)
}

// RiskFreePerStep de-annualizes a yearly risk-free rate.
func RiskFreePerStep(annualRate, periodsPerYear float64) float64 {
	if periodsPerYear <= 0 {
		return 0
	}
	return annualRate / periodsPerYear
}
