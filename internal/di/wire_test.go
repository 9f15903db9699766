package di

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/deepfolio/internal/config"
	"github.com/aristath/deepfolio/internal/market"
	"github.com/aristath/deepfolio/internal/rollout"
	testingpkg "github.com/aristath/deepfolio/internal/testing"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	network := config.DefaultNetworkConfig()
	network.NumAssets = 2
	network.SequenceLength = 8
	network.CNNFilters1 = 4
	network.CNNFilters2 = 4
	network.LSTMUnits1 = 4
	network.LSTMUnits2 = 4
	network.AttentionHeads = 2
	network.DenseUnits1 = 8
	network.LatentDim = 4

	env := config.DefaultEnvConfig()
	env.WindowSize = 8
	env.RewardWindowSize = 16

	ro := config.DefaultRolloutConfig()
	ro.Assets = []string{"eth", "btc"}
	ro.Policy = rollout.PolicyUniform
	ro.Episodes = 2
	ro.Workers = 2

	cfg := &config.Config{
		DataDir:       dir,
		HistoryDBPath: filepath.Join(dir, "history.db"),
		Network:       network,
		Env:           env,
		Rollout:       ro,
		Server:        config.ServerConfig{Port: 8010},
	}
	require.NoError(t, cfg.Validate())
	return cfg
}

func seedBars(t *testing.T, repo *market.BarRepository, symbol string, n int, base float64) {
	t.Helper()
	_, err := repo.Upsert(context.Background(), testingpkg.NewBarFixtures(symbol, n, base))
	require.NoError(t, err)
}

func TestWire(t *testing.T) {
	cfg := testConfig(t)
	container, jobs, err := Wire(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Close() })

	assert.NotNil(t, container.HistoryDB)
	assert.NotNil(t, container.BarRepo)
	assert.NotNil(t, container.Registry)
	assert.NotNil(t, container.Metrics)
	assert.NotNil(t, container.Encoder)
	assert.NotNil(t, container.Runner)
	assert.NotNil(t, container.Tables)
	assert.Nil(t, container.Recorder)

	// Only the integrity check is scheduled when no rollout schedule is set.
	assert.Equal(t, 1, container.Scheduler.Entries())
	assert.Len(t, jobs.All(), 2)
	assert.Equal(t, "rollout", jobs.Rollout.Name())
	assert.Equal(t, "check_history_db", jobs.CheckHistoryDB.Name())
	assert.NoError(t, jobs.CheckHistoryDB.Run())
}

func TestWire_RolloutFromHistory(t *testing.T) {
	cfg := testConfig(t)
	cfg.Rollout.Schedule = "@every 1h"
	cfg.Rollout.RecordPath = filepath.Join(cfg.DataDir, "episodes.msgpack")

	container, jobs, err := Wire(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Close() })
	assert.Equal(t, 2, container.Scheduler.Entries())
	require.NotNil(t, container.Recorder)

	// Empty history cannot produce a table.
	_, err = container.Tables(context.Background())
	assert.ErrorIs(t, err, market.ErrInsufficientData)

	seedBars(t, container.BarRepo, "eth", 150, 2000)
	seedBars(t, container.BarRepo, "btc", 150, 40000)

	table, err := container.Tables(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, table.NumAssets())
	assert.Equal(t, market.NumAssetFeatures, table.FeaturesPerAsset())
	assert.Equal(t, 150-market.FeatureLookback, table.Len())

	require.NoError(t, jobs.Rollout.Run())
	summary, ok := jobs.Rollout.LastSummary()
	require.True(t, ok)
	assert.Equal(t, 2, summary.Episodes)
	assert.Equal(t, 2*(table.Len()-cfg.Env.WindowSize-1), summary.TotalSteps)

	require.NoError(t, container.Recorder.Close())
	container.Recorder = nil
	episodes, err := rollout.ReadEpisodesFile(cfg.Rollout.RecordPath)
	require.NoError(t, err)
	assert.Len(t, episodes, 2)
}

func TestWire_BadDatabasePath(t *testing.T) {
	cfg := testConfig(t)
	blocker := filepath.Join(cfg.DataDir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("not a directory"), 0o644))
	cfg.HistoryDBPath = filepath.Join(blocker, "history.db")

	_, _, err := Wire(cfg, zerolog.Nop())
	assert.Error(t, err)
}

func TestRegisterJobs_BadSchedule(t *testing.T) {
	cfg := testConfig(t)
	container, err := InitializeDatabases(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Close() })
	require.NoError(t, InitializeServices(container, cfg, zerolog.Nop()))

	cfg.Rollout.Schedule = "whenever"
	_, err = RegisterJobs(container, cfg, zerolog.Nop())
	assert.Error(t, err)

	_, err = RegisterJobs(nil, cfg, zerolog.Nop())
	assert.Error(t, err)
}
