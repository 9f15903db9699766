package environment

import (
	"math"
	"testing"

	"github.com/aristath/deepfolio/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestRewardShaper_WarmupUsesClippedDailyReturn(t *testing.T) {
	cfg := config.DefaultEnvConfig()
	s := NewRewardShaper(cfg)

	r := 0.001
	want := math.Pow(1+r, 24) - 1
	assert.InDelta(t, want, s.Reward(r, []float64{r}), 1e-12)

	// Daily-equivalent of +10%/step is far above 1 and gets clipped.
	assert.Equal(t, 1.0, s.Reward(0.1, []float64{0.1}))
	assert.Equal(t, -1.0, s.Reward(-0.1, []float64{-0.1}))
}

func TestRewardShaper_PenalizedAfterWarmup(t *testing.T) {
	cfg := config.DefaultEnvConfig()
	cfg.RewardWindowSize = 20 // warm-up = 10
	s := NewRewardShaper(cfg)

	history := []float64{0.01, -0.02, 0.005, 0.0, -0.01, 0.02, 0.01, -0.005, 0.0, 0.003}
	r := history[len(history)-1]

	daily := math.Pow(1+r, 24) - 1
	growth, peak, dd := 1.0, 1.0, 0.0
	for _, h := range history {
		growth *= 1 + h
		peak = math.Max(peak, growth)
		dd = math.Max(dd, (peak-growth)/(peak+1e-9))
	}
	var mean, variance float64
	for _, h := range history {
		mean += h
	}
	mean /= float64(len(history))
	for _, h := range history {
		variance += (h - mean) * (h - mean)
	}
	vol := math.Sqrt(variance / float64(len(history)))

	want := daily - 0.01 - 5*dd - vol
	assert.InDelta(t, want, s.Reward(r, history), 1e-9)
}

func TestRewardShaper_ClipsToConfiguredRange(t *testing.T) {
	cfg := config.DefaultEnvConfig()
	cfg.RewardWindowSize = 20
	cfg.RewardScale = 1000
	cfg.RewardClipMin, cfg.RewardClipMax = -2, 3
	s := NewRewardShaper(cfg)

	up := make([]float64, 12)
	down := make([]float64, 12)
	for i := range up {
		up[i] = 0.05
		down[i] = -0.05
	}
	assert.Equal(t, 3.0, s.Reward(0.05, up))
	assert.Equal(t, -2.0, s.Reward(-0.05, down))
	assert.Equal(t, -2.0, s.Reward(math.NaN(), []float64{math.NaN()}))
}

func TestRewardShaper_Sharpe(t *testing.T) {
	cfg := config.DefaultEnvConfig()
	s := NewRewardShaper(cfg)

	assert.Equal(t, 0.0, s.Sharpe(nil, 10))
	assert.Equal(t, 0.0, s.Sharpe([]float64{0.01, 0.02, 0.03, 0.01}, 10), "below half capacity")
	assert.Equal(t, 0.0, s.Sharpe([]float64{0.01, 0.01, 0.01, 0.01, 0.01}, 10), "zero variance")

	history := []float64{0.01, 0.02, -0.01, 0.015, 0.0}
	got := s.Sharpe(history, 10)
	assert.NotZero(t, got)
	assert.Greater(t, got, 0.0)
}
