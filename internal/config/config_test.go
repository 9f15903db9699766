package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DEEPFOLIO_DATA_DIR", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, filepath.IsAbs(cfg.DataDir))
	assert.Equal(t, filepath.Join(cfg.DataDir, "history.db"), cfg.HistoryDBPath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 8010, cfg.Server.Port)
	assert.Equal(t, []string{"eth", "btc", "ada", "sol"}, cfg.Rollout.Assets)
	assert.Equal(t, 4, cfg.Network.NumAssets)
	assert.Equal(t, cfg.Network.SequenceLength, cfg.Env.WindowSize)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("DEEPFOLIO_DATA_DIR", t.TempDir())
	t.Setenv("DEEPFOLIO_ASSETS", "btc, eth ,")
	t.Setenv("DEEPFOLIO_WINDOW_SIZE", "20")
	t.Setenv("DEEPFOLIO_REWARD_WINDOW", "50")
	t.Setenv("DEEPFOLIO_OUTPUT_LATENT", "false")
	t.Setenv("DEEPFOLIO_RISK_FREE_RATE_PER_STEP", "0.0001")
	t.Setenv("DEEPFOLIO_PORT", "9000")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"btc", "eth"}, cfg.Rollout.Assets)
	assert.Equal(t, 2, cfg.Network.NumAssets)
	assert.Equal(t, 20, cfg.Network.SequenceLength)
	assert.Equal(t, 20, cfg.Env.WindowSize)
	assert.Equal(t, 50, cfg.Env.RewardWindowSize)
	assert.False(t, cfg.Network.OutputLatentFeatures)
	require.NotNil(t, cfg.Env.RiskFreeRatePerStep)
	assert.InDelta(t, 0.0001, cfg.Env.RiskFreePerStep(), 1e-12)
	assert.Equal(t, 9000, cfg.Server.Port)
}

func TestLoad_InvalidValueFails(t *testing.T) {
	t.Setenv("DEEPFOLIO_DATA_DIR", t.TempDir())
	t.Setenv("DEEPFOLIO_MHA_KEY_DIM_DIVISOR", "0")

	_, err := Load()
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestGetEnvHelpers_FallBackOnGarbage(t *testing.T) {
	t.Setenv("X_INT", "abc")
	t.Setenv("X_FLOAT", "nope")
	t.Setenv("X_BOOL", "maybe")

	assert.Equal(t, 7, getEnvAsInt("X_INT", 7))
	assert.Equal(t, 1.5, getEnvAsFloat("X_FLOAT", 1.5))
	assert.True(t, getEnvAsBool("X_BOOL", true))
	assert.Equal(t, []string{"a"}, getEnvAsList("X_MISSING", []string{"a"}))
}

func TestNetworkConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultNetworkConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*NetworkConfig)
	}{
		{"zero assets", func(c *NetworkConfig) { c.NumAssets = 0 }},
		{"zero features", func(c *NetworkConfig) { c.NumFeaturesPerAsset = 0 }},
		{"negative divisor", func(c *NetworkConfig) { c.KeyDimDivisor = -1 }},
		{"zero divisor", func(c *NetworkConfig) { c.KeyDimDivisor = 0 }},
		{"dropout one", func(c *NetworkConfig) { c.Dropout = 1 }},
		{"negative final dropout", func(c *NetworkConfig) { c.FinalDropout = -0.1 }},
		{"sentiment without width", func(c *NetworkConfig) { c.UseSentimentAnalysis = true; c.SentimentDim = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultNetworkConfig()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestNetworkConfig_TotalFeatures(t *testing.T) {
	cfg := DefaultNetworkConfig()
	cfg.NumAssets = 4
	cfg.NumFeaturesPerAsset = 26
	assert.Equal(t, 104, cfg.TotalFeatures())
}

func TestEnvConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultEnvConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*EnvConfig)
	}{
		{"zero balance", func(c *EnvConfig) { c.InitialBalance = 0 }},
		{"zero window", func(c *EnvConfig) { c.WindowSize = 0 }},
		{"cost too high", func(c *EnvConfig) { c.TransactionCostPct = 0.5 }},
		{"negative cost", func(c *EnvConfig) { c.TransactionCostPct = -0.01 }},
		{"tiny reward window", func(c *EnvConfig) { c.RewardWindowSize = 1 }},
		{"empty clip range", func(c *EnvConfig) { c.RewardClipMin = 1; c.RewardClipMax = 1 }},
		{"zero steps per day", func(c *EnvConfig) { c.StepsPerDay = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultEnvConfig()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestEnvConfig_Derived(t *testing.T) {
	cfg := DefaultEnvConfig()
	assert.Equal(t, float64(24*252), cfg.StepsPerYear())
	assert.Equal(t, 24, cfg.WarmupSamples())

	cfg.RewardWindowSize = 50
	assert.Equal(t, 10, cfg.WarmupSamples())

	cfg.RiskFreeRateAnnual = 0
	assert.Equal(t, 0.0, cfg.RiskFreePerStep())

	cfg.RiskFreeRateAnnual = 0.02
	assert.InDelta(t, 0.02/6048, cfg.RiskFreePerStep(), 1e-15)
}

func TestRolloutConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultRolloutConfig().Validate())

	cfg := DefaultRolloutConfig()
	cfg.Assets = []string{"btc", "btc"}
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg = DefaultRolloutConfig()
	cfg.Policy = "random"
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg = DefaultRolloutConfig()
	cfg.Workers = 0
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
}
