package config

import (
	"fmt"
	"math"

	"github.com/aristath/deepfolio/pkg/formulas"
)

// EnvConfig holds the portfolio environment and reward-shaping parameters.
type EnvConfig struct {
	InitialBalance     float64
	WindowSize         int
	TransactionCostPct float64
	RewardWindowSize   int

	// RiskFreeRatePerStep overrides the value derived from RiskFreeRateAnnual when set.
	RiskFreeRateAnnual  float64
	RiskFreeRatePerStep *float64

	StepsPerDay        int // 24 for hourly bars
	TradingDaysPerYear int

	TargetDailyReturn     float64
	DrawdownPenaltyWeight float64
	VolPenaltyWeight      float64
	RewardScale           float64
	RewardClipMin         float64
	RewardClipMax         float64
}

// DefaultEnvConfig returns defaults tuned for hourly crypto bars.
func DefaultEnvConfig() EnvConfig {
	return EnvConfig{
		InitialBalance:        100000,
		WindowSize:            60,
		TransactionCostPct:    0.001,
		RewardWindowSize:      240,
		RiskFreeRateAnnual:    0.02,
		StepsPerDay:           24,
		TradingDaysPerYear:    252,
		TargetDailyReturn:     0.01,
		DrawdownPenaltyWeight: 5.0,
		VolPenaltyWeight:      1.0,
		RewardScale:           1.0,
		RewardClipMin:         -10,
		RewardClipMax:         10,
	}
}

// StepsPerYear is the annualization factor for per-step statistics.
func (c EnvConfig) StepsPerYear() float64 {
	return float64(c.StepsPerDay * c.TradingDaysPerYear)
}

// RiskFreePerStep returns the explicit per-step rate, or the annual rate
// divided evenly over StepsPerYear.
func (c EnvConfig) RiskFreePerStep() float64 {
	if c.RiskFreeRatePerStep != nil {
		return *c.RiskFreeRatePerStep
	}
	return formulas.RiskFreePerStep(c.RiskFreeRateAnnual, c.StepsPerYear())
}

// WarmupSamples is the history length below which the dense early reward is used.
func (c EnvConfig) WarmupSamples() int {
	return max(10, c.RewardWindowSize/10)
}

// Validate checks ranges. The transaction cost bound keeps portfolio value
// strictly positive for any normalized action.
func (c EnvConfig) Validate() error {
	if !(c.InitialBalance > 0) || math.IsInf(c.InitialBalance, 0) {
		return fmt.Errorf("%w: initial_balance must be a positive finite number, got %v", ErrInvalidConfig, c.InitialBalance)
	}
	if c.WindowSize < 1 {
		return fmt.Errorf("%w: window_size must be >= 1, got %d", ErrInvalidConfig, c.WindowSize)
	}
	if c.TransactionCostPct < 0 || c.TransactionCostPct >= 0.5 {
		return fmt.Errorf("%w: transaction_cost_pct must be in [0,0.5), got %v", ErrInvalidConfig, c.TransactionCostPct)
	}
	if c.RewardWindowSize < 2 {
		return fmt.Errorf("%w: reward_window_size must be >= 2, got %d", ErrInvalidConfig, c.RewardWindowSize)
	}
	if c.StepsPerDay < 1 {
		return fmt.Errorf("%w: steps_per_day must be >= 1, got %d", ErrInvalidConfig, c.StepsPerDay)
	}
	if c.TradingDaysPerYear < 1 {
		return fmt.Errorf("%w: trading_days_per_year must be >= 1, got %d", ErrInvalidConfig, c.TradingDaysPerYear)
	}
	if c.RewardClipMin >= c.RewardClipMax {
		return fmt.Errorf("%w: reward clip range [%v,%v] is empty", ErrInvalidConfig, c.RewardClipMin, c.RewardClipMax)
	}
	if c.RiskFreeRatePerStep != nil && math.IsNaN(*c.RiskFreeRatePerStep) {
		return fmt.Errorf("%w: risk_free_rate_per_step is NaN", ErrInvalidConfig)
	}
	for name, v := range map[string]float64{
		"target_daily_return":     c.TargetDailyReturn,
		"drawdown_penalty_weight": c.DrawdownPenaltyWeight,
		"vol_penalty_weight":      c.VolPenaltyWeight,
		"reward_scale":            c.RewardScale,
		"risk_free_rate_annual":   c.RiskFreeRateAnnual,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s must be finite", ErrInvalidConfig, name)
		}
	}
	return nil
}
