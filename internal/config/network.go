package config

import "fmt"

// NetworkConfig describes the shape of the feature-extraction network.
// It is passed by value into every constructor that needs it.
type NetworkConfig struct {
	NumAssets           int
	SequenceLength      int
	NumFeaturesPerAsset int

	CNNFilters1 int
	CNNFilters2 int
	KernelSize  int

	LSTMUnits1 int
	LSTMUnits2 int
	Dropout    float64

	AttentionHeads int
	KeyDimDivisor  int

	DenseUnits1  int
	LatentDim    int
	FinalDropout float64

	OutputLatentFeatures bool
	UseSentimentAnalysis bool
	SentimentDim         int

	Seed uint64
}

// DefaultNetworkConfig returns the reference network topology.
func DefaultNetworkConfig() NetworkConfig {
	return NetworkConfig{
		NumAssets:            4,
		SequenceLength:       60,
		NumFeaturesPerAsset:  18,
		CNNFilters1:          32,
		CNNFilters2:          64,
		KernelSize:           3,
		LSTMUnits1:           64,
		LSTMUnits2:           32,
		Dropout:              0.2,
		AttentionHeads:       4,
		KeyDimDivisor:        2,
		DenseUnits1:          128,
		LatentDim:            32,
		FinalDropout:         0.2,
		OutputLatentFeatures: true,
		UseSentimentAnalysis: false,
		SentimentDim:         3,
		Seed:                 42,
	}
}

// TotalFeatures is the flattened per-timestep width seen by the network.
func (c NetworkConfig) TotalFeatures() int {
	return c.NumAssets * c.NumFeaturesPerAsset
}

// Validate rejects shapes the network cannot be built with.
func (c NetworkConfig) Validate() error {
	positive := []struct {
		name  string
		value int
	}{
		{"num_assets", c.NumAssets},
		{"sequence_length", c.SequenceLength},
		{"num_features_per_asset", c.NumFeaturesPerAsset},
		{"cnn_filters1", c.CNNFilters1},
		{"cnn_filters2", c.CNNFilters2},
		{"kernel_size", c.KernelSize},
		{"lstm_units1", c.LSTMUnits1},
		{"lstm_units2", c.LSTMUnits2},
		{"attention_heads", c.AttentionHeads},
		{"dense_units1", c.DenseUnits1},
		{"latent_dim", c.LatentDim},
	}
	for _, p := range positive {
		if p.value <= 0 {
			return fmt.Errorf("%w: %s must be > 0, got %d", ErrInvalidConfig, p.name, p.value)
		}
	}
	if c.KeyDimDivisor <= 0 {
		return fmt.Errorf("%w: key_dim_divisor must be > 0, got %d", ErrInvalidConfig, c.KeyDimDivisor)
	}
	if c.Dropout < 0 || c.Dropout >= 1 {
		return fmt.Errorf("%w: dropout must be in [0,1), got %v", ErrInvalidConfig, c.Dropout)
	}
	if c.FinalDropout < 0 || c.FinalDropout >= 1 {
		return fmt.Errorf("%w: final_dropout must be in [0,1), got %v", ErrInvalidConfig, c.FinalDropout)
	}
	if c.UseSentimentAnalysis && c.SentimentDim <= 0 {
		return fmt.Errorf("%w: sentiment_dim must be > 0 when sentiment is enabled", ErrInvalidConfig)
	}
	return nil
}
