package environment

import (
	"math"

	"github.com/aristath/deepfolio/internal/config"
	"github.com/aristath/deepfolio/pkg/formulas"
)

// RewardShaper turns per-step portfolio returns into a bounded training signal.
type RewardShaper struct {
	cfg       config.EnvConfig
	rfPerStep float64
}

// NewRewardShaper captures cfg. The risk-free rate is resolved once.
func NewRewardShaper(cfg config.EnvConfig) *RewardShaper {
	return &RewardShaper{cfg: cfg, rfPerStep: cfg.RiskFreePerStep()}
}

// Reward scores stepReturn against the rolling history (oldest first,
// stepReturn already included).
//
// While the history is shorter than the warm-up length the reward is the
// scaled daily-equivalent return clipped to [-1, 1]. Afterwards it is
//
//	scale × (daily − target − dd_weight·max_drawdown − vol_weight·volatility)
//
// The result is always clipped to [RewardClipMin, RewardClipMax].
func (s *RewardShaper) Reward(stepReturn float64, history []float64) float64 {
	daily := formulas.CompoundReturn(stepReturn, s.cfg.StepsPerDay)

	var reward float64
	if len(history) < s.cfg.WarmupSamples() {
		reward = formulas.Clip(daily*s.cfg.RewardScale, -1, 1)
	} else {
		drawdown := formulas.MaxDrawdownFromReturns(history)
		vol := formulas.PopStdDev(history)
		raw := daily - s.cfg.TargetDailyReturn
		reward = s.cfg.RewardScale * (raw - s.cfg.DrawdownPenaltyWeight*drawdown - s.cfg.VolPenaltyWeight*vol)
	}

	if math.IsNaN(reward) {
		return s.cfg.RewardClipMin
	}
	return formulas.Clip(reward, s.cfg.RewardClipMin, s.cfg.RewardClipMax)
}

// Sharpe is the annualized rolling Sharpe ratio reported in Info. It stays 0
// until the history holds at least half of capacity.
func (s *RewardShaper) Sharpe(history []float64, capacity int) float64 {
	if len(history) < 2 || float64(len(history)) < float64(capacity)/2 {
		return 0
	}
	return formulas.SharpeRatio(history, s.rfPerStep, s.cfg.StepsPerYear())
}
