package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aristath/deepfolio/internal/config"
	"github.com/aristath/deepfolio/internal/market"
	"github.com/aristath/deepfolio/internal/rollout"
	testingpkg "github.com/aristath/deepfolio/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	runs atomic.Int32
	err  error
}

func (j *countingJob) Name() string { return "counting" }

func (j *countingJob) Run() error {
	j.runs.Add(1)
	return j.err
}

func TestScheduler_AddJobRejectsBadSchedule(t *testing.T) {
	s := New(zerolog.Nop())
	assert.Error(t, s.AddJob("not a schedule", &countingJob{}))
	assert.Equal(t, 0, s.Entries())
}

func TestScheduler_RunsRegisteredJob(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{err: errors.New("failures are logged, not fatal")}
	require.NoError(t, s.AddJob("@every 1s", job))
	assert.Equal(t, 1, s.Entries())

	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool { return job.runs.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
}

func TestScheduler_RunNow(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{err: errors.New("boom")}

	assert.EqualError(t, s.RunNow(job), "boom")
	assert.Equal(t, int32(1), job.runs.Load())
}

func TestScheduler_SkipsOverlappingRuns(t *testing.T) {
	s := New(zerolog.Nop())
	assert.True(t, s.acquire("rollout"))
	assert.False(t, s.acquire("rollout"))
	assert.True(t, s.acquire("other"))
	s.release("rollout")
	assert.True(t, s.acquire("rollout"))
}

func testTable(t *testing.T) *market.Table {
	return testingpkg.NewCloseTable(t, market.AssetSet{"a", "b"}, 40, testingpkg.TrendAndWave)
}

func newRolloutJob(t *testing.T, load TableLoader) *RolloutJob {
	env := config.DefaultEnvConfig()
	env.WindowSize = 5
	env.RewardWindowSize = 10

	cfg := config.DefaultRolloutConfig()
	cfg.Assets = []string{"a", "b"}
	cfg.Policy = rollout.PolicyUniform
	cfg.Episodes = 3

	job := NewRolloutJob(load, rollout.NewRunner(zerolog.Nop(), rollout.WithWorkers(2)), env, config.DefaultNetworkConfig(), cfg)
	job.SetLogger(zerolog.Nop())
	return job
}

func TestRolloutJob_Run(t *testing.T) {
	table := testTable(t)
	job := newRolloutJob(t, func(context.Context) (*market.Table, error) { return table, nil })
	assert.Equal(t, "rollout", job.Name())

	_, ok := job.LastSummary()
	assert.False(t, ok)

	require.NoError(t, job.Run())
	summary, ok := job.LastSummary()
	require.True(t, ok)
	assert.Equal(t, 3, summary.Episodes)
	assert.Equal(t, 3*(40-5-1), summary.TotalSteps)
	assert.NotEmpty(t, summary.BestEpisodeID)

	require.NoError(t, job.Run())
	assert.Equal(t, uint64(6), job.nextSeed)
}

func TestRolloutJob_LoaderError(t *testing.T) {
	job := newRolloutJob(t, func(context.Context) (*market.Table, error) {
		return nil, market.ErrInsufficientData
	})

	err := job.Run()
	assert.ErrorIs(t, err, market.ErrInsufficientData)
	_, ok := job.LastSummary()
	assert.False(t, ok)
}

func TestCheckHistoryDBJob(t *testing.T) {
	db := testingpkg.NewTestDB(t, "history")

	job := NewCheckHistoryDBJob(db)
	assert.Equal(t, "check_history_db", job.Name())
	assert.NoError(t, job.Run())

	assert.NoError(t, NewCheckHistoryDBJob(nil).Run())
}
