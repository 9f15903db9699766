package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aristath/deepfolio/internal/config"
	"github.com/aristath/deepfolio/internal/market"
	"github.com/aristath/deepfolio/internal/rollout"
	"github.com/rs/zerolog"
)

// TableLoader produces the feature table a rollout runs over.
type TableLoader func(ctx context.Context) (*market.Table, error)

// RolloutJob periodically runs a batch of episodes over a freshly loaded table.
type RolloutJob struct {
	log     zerolog.Logger
	load    TableLoader
	runner  *rollout.Runner
	env     config.EnvConfig
	network config.NetworkConfig
	cfg     config.RolloutConfig
	timeout time.Duration

	mu       sync.Mutex
	nextSeed uint64
	last     *rollout.Summary
}

// NewRolloutJob creates a new RolloutJob
func NewRolloutJob(
	load TableLoader,
	runner *rollout.Runner,
	env config.EnvConfig,
	network config.NetworkConfig,
	cfg config.RolloutConfig,
) *RolloutJob {
	return &RolloutJob{
		log:     zerolog.Nop(),
		load:    load,
		runner:  runner,
		env:     env,
		network: network,
		cfg:     cfg,
		timeout: 30 * time.Minute,
	}
}

// SetLogger sets the logger for the job
func (j *RolloutJob) SetLogger(log zerolog.Logger) {
	j.log = log.With().Str("job", j.Name()).Logger()
}

// SetTimeout bounds a single run.
func (j *RolloutJob) SetTimeout(d time.Duration) {
	j.timeout = d
}

// Name returns the job name
func (j *RolloutJob) Name() string {
	return "rollout"
}

// Run executes the rollout job
func (j *RolloutJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	table, err := j.load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load feature table: %w", err)
	}

	policy, err := rollout.NewPolicy(j.cfg.Policy, table.NumAssets(), j.env.WindowSize, table.FeaturesPerAsset(), j.network, j.log)
	if err != nil {
		return err
	}

	j.mu.Lock()
	seed := j.nextSeed
	j.nextSeed += uint64(j.cfg.Episodes)
	j.mu.Unlock()

	jobs, err := rollout.Jobs(table, j.env, policy, j.cfg.Episodes, seed, j.log)
	if err != nil {
		return err
	}
	episodes, err := j.runner.RunParallel(ctx, jobs)
	if err != nil {
		return err
	}

	summary := rollout.Summarize(episodes)
	j.mu.Lock()
	j.last = &summary
	j.mu.Unlock()

	j.log.Info().
		Int("episodes", summary.Episodes).
		Float64("mean_reward", summary.MeanReward).
		Float64("mean_final_value", summary.MeanFinalValue).
		Float64("mean_sharpe", summary.MeanSharpe).
		Msg("Scheduled rollout completed")
	return nil
}

// LastSummary returns the summary of the most recent successful run.
func (j *RolloutJob) LastSummary() (rollout.Summary, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.last == nil {
		return rollout.Summary{}, false
	}
	return *j.last, true
}
