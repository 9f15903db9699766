package rollout

import (
	"fmt"

	"github.com/aristath/deepfolio/internal/config"
	"github.com/aristath/deepfolio/internal/environment"
	"github.com/aristath/deepfolio/internal/market"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

// Jobs builds n jobs over one shared read-only table. Each job gets its own
// Env; seeds are baseSeed, baseSeed+1, ...
func Jobs(table *market.Table, cfg config.EnvConfig, policy Policy, n int, baseSeed uint64, log zerolog.Logger) ([]Job, error) {
	if n < 1 {
		return nil, fmt.Errorf("rollout: need at least one episode, got %d", n)
	}
	jobs := make([]Job, n)
	for i := range jobs {
		env, err := environment.New(table, cfg, log)
		if err != nil {
			return nil, err
		}
		jobs[i] = Job{Env: env, Policy: policy, Seed: baseSeed + uint64(i)}
	}
	return jobs, nil
}

// Summary aggregates a batch of episodes.
type Summary struct {
	Episodes       int     `json:"episodes"`
	MeanReward     float64 `json:"mean_reward"`
	MeanFinalValue float64 `json:"mean_final_value"`
	MeanSharpe     float64 `json:"mean_sharpe"`
	WorstDrawdown  float64 `json:"worst_drawdown"`
	BestEpisodeID  string  `json:"best_episode_id"`
	BestFinalValue float64 `json:"best_final_value"`
	TotalSteps     int     `json:"total_steps"`
}

// Summarize reduces episodes to a Summary. An empty batch yields the zero value.
func Summarize(episodes []*Episode) Summary {
	episodes = lo.Compact(episodes)
	if len(episodes) == 0 {
		return Summary{}
	}
	best := lo.MaxBy(episodes, func(a, b *Episode) bool { return a.FinalValue > b.FinalValue })
	return Summary{
		Episodes:       len(episodes),
		MeanReward:     lo.MeanBy(episodes, func(e *Episode) float64 { return e.TotalReward }),
		MeanFinalValue: lo.MeanBy(episodes, func(e *Episode) float64 { return e.FinalValue }),
		MeanSharpe:     lo.MeanBy(episodes, func(e *Episode) float64 { return e.Sharpe }),
		WorstDrawdown:  lo.Max(lo.Map(episodes, func(e *Episode, _ int) float64 { return e.MaxDrawdown })),
		BestEpisodeID:  best.ID,
		BestFinalValue: best.FinalValue,
		TotalSteps:     lo.SumBy(episodes, func(e *Episode) int { return e.Steps }),
	}
}
