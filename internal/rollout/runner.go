package rollout

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/deepfolio/internal/environment"
	"github.com/aristath/deepfolio/pkg/formulas"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

// Episode summarizes one full pass through an environment.
type Episode struct {
	ID          string           `json:"id" msgpack:"id"`
	Policy      string           `json:"policy" msgpack:"policy"`
	Seed        uint64           `json:"seed" msgpack:"seed"`
	Steps       int              `json:"steps" msgpack:"steps"`
	TotalReward float64          `json:"total_reward" msgpack:"total_reward"`
	FinalValue  float64          `json:"final_value" msgpack:"final_value"`
	TotalReturn float64          `json:"total_return" msgpack:"total_return"`
	Sharpe      float64          `json:"sharpe" msgpack:"sharpe"`
	MaxDrawdown float64          `json:"max_drawdown" msgpack:"max_drawdown"`
	FinalInfo   environment.Info `json:"final_info" msgpack:"final_info"`
	StartedAt   time.Time        `json:"started_at" msgpack:"started_at"`
	Duration    time.Duration    `json:"duration_ns" msgpack:"duration_ns"`

	// Per-step trajectory; kept out of API responses.
	Rewards []float64 `json:"-" msgpack:"rewards"`
	Values  []float64 `json:"-" msgpack:"values"`
}

// Job is one episode to run in RunParallel. Each job needs its own Env.
type Job struct {
	Env    *environment.Env
	Policy Policy
	Seed   uint64
}

// Runner steps environments to termination.
type Runner struct {
	log      zerolog.Logger
	metrics  *Metrics
	recorder Recorder
	workers  int
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithMetrics exports episode statistics to m.
func WithMetrics(m *Metrics) RunnerOption {
	return func(r *Runner) { r.metrics = m }
}

// WithRecorder persists every finished episode.
func WithRecorder(rec Recorder) RunnerOption {
	return func(r *Runner) { r.recorder = rec }
}

// WithWorkers bounds RunParallel concurrency. Values below 1 mean 1.
func WithWorkers(n int) RunnerOption {
	return func(r *Runner) { r.workers = max(1, n) }
}

// NewRunner creates a runner.
func NewRunner(log zerolog.Logger, opts ...RunnerOption) *Runner {
	r := &Runner{
		log:     log.With().Str("component", "rollout").Logger(),
		workers: 1,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunEpisode resets env with seed and steps it with policy until the episode
// terminates. Cancellation is checked between steps.
func (r *Runner) RunEpisode(ctx context.Context, env *environment.Env, policy Policy, seed uint64) (*Episode, error) {
	r.metrics.started()
	defer r.metrics.finished()

	ep, err := r.run(ctx, env, policy, seed)
	if err != nil {
		r.metrics.failed(policy.Name())
		return nil, err
	}

	r.metrics.observe(ep)
	if r.recorder != nil {
		if err := r.recorder.Record(ep); err != nil {
			return ep, err
		}
	}

	r.log.Info().
		Str("episode_id", ep.ID).
		Str("policy", ep.Policy).
		Int("steps", ep.Steps).
		Float64("total_reward", ep.TotalReward).
		Float64("final_value", ep.FinalValue).
		Float64("sharpe", ep.Sharpe).
		Float64("max_drawdown", ep.MaxDrawdown).
		Dur("duration", ep.Duration).
		Msg("Episode completed")

	return ep, nil
}

func (r *Runner) run(ctx context.Context, env *environment.Env, policy Policy, seed uint64) (*Episode, error) {
	start := time.Now()
	obs, info, err := env.Reset(seed)
	if err != nil {
		return nil, fmt.Errorf("failed to reset environment: %w", err)
	}

	cfg := env.Config()
	ep := &Episode{
		ID:        uuid.New().String(),
		Policy:    policy.Name(),
		Seed:      seed,
		StartedAt: start.UTC(),
		Rewards:   make([]float64, 0, env.TotalSteps()),
		Values:    make([]float64, 0, env.TotalSteps()+1),
	}
	ep.Values = append(ep.Values, info.PortfolioValue)
	stepReturns := make([]float64, 0, env.TotalSteps())

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		action, err := policy.Act(obs, info)
		if err != nil {
			return nil, fmt.Errorf("policy %s failed at step %d: %w", policy.Name(), info.Step, err)
		}
		res, err := env.Step(action)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", info.Step, err)
		}

		obs, info = res.Observation, res.Info
		ep.Rewards = append(ep.Rewards, res.Reward)
		ep.Values = append(ep.Values, info.PortfolioValue)
		stepReturns = append(stepReturns, info.LastReturn)

		if res.Terminated || res.Truncated {
			break
		}
	}

	ep.Steps = info.Step
	ep.TotalReward = lo.Sum(ep.Rewards)
	ep.FinalValue = info.PortfolioValue
	ep.TotalReturn = info.PortfolioValue/cfg.InitialBalance - 1
	ep.Sharpe = formulas.SharpeRatio(stepReturns, cfg.RiskFreePerStep(), cfg.StepsPerYear())
	ep.MaxDrawdown = formulas.MaxDrawdown(ep.Values)
	ep.FinalInfo = info
	ep.Duration = time.Since(start)
	return ep, nil
}

// RunParallel runs jobs on up to the configured number of workers. Results
// are in job order. The first failure cancels the remaining jobs.
func (r *Runner) RunParallel(ctx context.Context, jobs []Job) ([]*Episode, error) {
	episodes := make([]*Episode, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for i, job := range jobs {
		g.Go(func() error {
			ep, err := r.RunEpisode(gctx, job.Env, job.Policy, job.Seed)
			if err != nil {
				return fmt.Errorf("job %d: %w", i, err)
			}
			episodes[i] = ep
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return episodes, nil
}
