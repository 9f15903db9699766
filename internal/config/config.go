// Package config provides configuration management functionality.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/aristath/deepfolio/internal/utils"
	"github.com/joho/godotenv"
)

// ErrInvalidConfig is wrapped by every validation failure in this package.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds application configuration
type Config struct {
	DataDir       string // Base directory for databases and recorded episodes (always absolute)
	HistoryDBPath string // SQLite file holding OHLCV bars
	LogLevel      string
	PrettyLogs    bool
	Network       NetworkConfig
	Env           EnvConfig
	Rollout       RolloutConfig
	Server        ServerConfig
}

// RolloutConfig controls how episodes are collected.
type RolloutConfig struct {
	Assets     []string // Ordered asset set; defines slicing everywhere
	Episodes   int      // Episodes per rollout request
	Workers    int      // Independent environments stepped concurrently
	Policy     string   // encoder, uniform or constant
	RecordPath string   // Optional msgpack file for recorded episodes
	Schedule   string   // Cron spec for the periodic rollout job; empty disables it
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port    int
	DevMode bool
}

// DefaultRolloutConfig returns the rollout defaults.
func DefaultRolloutConfig() RolloutConfig {
	return RolloutConfig{
		Assets:   []string{"eth", "btc", "ada", "sol"},
		Episodes: 1,
		Workers:  1,
		Policy:   "encoder",
	}
}

// Validate checks the rollout settings.
func (c RolloutConfig) Validate() error {
	if len(c.Assets) == 0 {
		return fmt.Errorf("%w: rollout needs at least one asset", ErrInvalidConfig)
	}
	seen := make(map[string]struct{}, len(c.Assets))
	for _, a := range c.Assets {
		if a == "" {
			return fmt.Errorf("%w: empty asset identifier", ErrInvalidConfig)
		}
		if _, dup := seen[a]; dup {
			return fmt.Errorf("%w: duplicate asset %q", ErrInvalidConfig, a)
		}
		seen[a] = struct{}{}
	}
	if c.Episodes < 1 {
		return fmt.Errorf("%w: episodes must be >= 1, got %d", ErrInvalidConfig, c.Episodes)
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers must be >= 1, got %d", ErrInvalidConfig, c.Workers)
	}
	switch c.Policy {
	case "encoder", "uniform", "constant":
	default:
		return fmt.Errorf("%w: unknown policy %q", ErrInvalidConfig, c.Policy)
	}
	return nil
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("DEEPFOLIO_DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	rollout := DefaultRolloutConfig()
	rollout.Assets = getEnvAsList("DEEPFOLIO_ASSETS", rollout.Assets)
	rollout.Episodes = getEnvAsInt("DEEPFOLIO_EPISODES", rollout.Episodes)
	rollout.Workers = getEnvAsInt("DEEPFOLIO_WORKERS", rollout.Workers)
	rollout.Policy = getEnv("DEEPFOLIO_POLICY", rollout.Policy)
	rollout.RecordPath = getEnv("DEEPFOLIO_RECORD_PATH", "")
	rollout.Schedule = getEnv("DEEPFOLIO_ROLLOUT_SCHEDULE", "")

	network := DefaultNetworkConfig()
	network.NumAssets = len(rollout.Assets)
	network.SequenceLength = getEnvAsInt("DEEPFOLIO_WINDOW_SIZE", network.SequenceLength)
	network.NumFeaturesPerAsset = getEnvAsInt("DEEPFOLIO_FEATURES_PER_ASSET", network.NumFeaturesPerAsset)
	network.CNNFilters1 = getEnvAsInt("DEEPFOLIO_CNN_FILTERS1", network.CNNFilters1)
	network.CNNFilters2 = getEnvAsInt("DEEPFOLIO_CNN_FILTERS2", network.CNNFilters2)
	network.LSTMUnits1 = getEnvAsInt("DEEPFOLIO_LSTM_UNITS1", network.LSTMUnits1)
	network.LSTMUnits2 = getEnvAsInt("DEEPFOLIO_LSTM_UNITS2", network.LSTMUnits2)
	network.Dropout = getEnvAsFloat("DEEPFOLIO_DROPOUT", network.Dropout)
	network.AttentionHeads = getEnvAsInt("DEEPFOLIO_MHA_HEADS", network.AttentionHeads)
	network.KeyDimDivisor = getEnvAsInt("DEEPFOLIO_MHA_KEY_DIM_DIVISOR", network.KeyDimDivisor)
	network.DenseUnits1 = getEnvAsInt("DEEPFOLIO_DENSE_UNITS1", network.DenseUnits1)
	network.LatentDim = getEnvAsInt("DEEPFOLIO_LATENT_DIM", network.LatentDim)
	network.FinalDropout = getEnvAsFloat("DEEPFOLIO_FINAL_DROPOUT", network.FinalDropout)
	network.OutputLatentFeatures = getEnvAsBool("DEEPFOLIO_OUTPUT_LATENT", network.OutputLatentFeatures)
	network.UseSentimentAnalysis = getEnvAsBool("DEEPFOLIO_USE_SENTIMENT", network.UseSentimentAnalysis)
	network.Seed = uint64(getEnvAsInt("DEEPFOLIO_SEED", int(network.Seed)))

	env := DefaultEnvConfig()
	env.WindowSize = network.SequenceLength
	env.InitialBalance = getEnvAsFloat("DEEPFOLIO_INITIAL_BALANCE", env.InitialBalance)
	env.TransactionCostPct = getEnvAsFloat("DEEPFOLIO_TRANSACTION_COST_PCT", env.TransactionCostPct)
	env.RewardWindowSize = getEnvAsInt("DEEPFOLIO_REWARD_WINDOW", env.RewardWindowSize)
	env.RiskFreeRateAnnual = getEnvAsFloat("DEEPFOLIO_RISK_FREE_RATE_ANNUAL", env.RiskFreeRateAnnual)
	env.StepsPerDay = getEnvAsInt("DEEPFOLIO_STEPS_PER_DAY", env.StepsPerDay)
	env.TradingDaysPerYear = getEnvAsInt("DEEPFOLIO_TRADING_DAYS_PER_YEAR", env.TradingDaysPerYear)
	env.TargetDailyReturn = getEnvAsFloat("DEEPFOLIO_REWARD_TARGET_DAILY", env.TargetDailyReturn)
	env.DrawdownPenaltyWeight = getEnvAsFloat("DEEPFOLIO_REWARD_DRAWDOWN_PENALTY", env.DrawdownPenaltyWeight)
	env.VolPenaltyWeight = getEnvAsFloat("DEEPFOLIO_REWARD_VOL_PENALTY", env.VolPenaltyWeight)
	env.RewardScale = getEnvAsFloat("DEEPFOLIO_REWARD_SCALE", env.RewardScale)
	if v := os.Getenv("DEEPFOLIO_RISK_FREE_RATE_PER_STEP"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			env.RiskFreeRatePerStep = &f
		}
	}

	cfg := &Config{
		DataDir:       absDataDir,
		HistoryDBPath: getEnv("DEEPFOLIO_HISTORY_DB", filepath.Join(absDataDir, "history.db")),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		PrettyLogs:    getEnvAsBool("LOG_PRETTY", true),
		Network:       network,
		Env:           env,
		Rollout:       rollout,
		Server: ServerConfig{
			Port:    getEnvAsInt("DEEPFOLIO_PORT", 8010),
			DevMode: getEnvAsBool("DEV_MODE", false),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks every sub-configuration and their cross-constraints.
func (c *Config) Validate() error {
	if err := c.Rollout.Validate(); err != nil {
		return err
	}
	if err := c.Network.Validate(); err != nil {
		return err
	}
	if err := c.Env.Validate(); err != nil {
		return err
	}
	if c.Network.NumAssets != len(c.Rollout.Assets) {
		return fmt.Errorf("%w: network expects %d assets, asset set has %d",
			ErrInvalidConfig, c.Network.NumAssets, len(c.Rollout.Assets))
	}
	if c.Network.SequenceLength != c.Env.WindowSize {
		return fmt.Errorf("%w: network sequence length %d differs from environment window %d",
			ErrInvalidConfig, c.Network.SequenceLength, c.Env.WindowSize)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: invalid port %d", ErrInvalidConfig, c.Server.Port)
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	if values := utils.ParseCSV(os.Getenv(key)); len(values) > 0 {
		return values
	}
	return defaultValue
}
