package encoder

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/aristath/deepfolio/internal/config"
	"github.com/aristath/deepfolio/internal/nn"
	"github.com/aristath/deepfolio/internal/utils"
	"github.com/aristath/deepfolio/pkg/formulas"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
)

// backbone is everything up to and including the latent projection.
type backbone struct {
	cfg config.NetworkConfig
	rng *rand.Rand // used only during construction
	log zerolog.Logger

	asset  *AssetEncoder
	agg    *Aggregator
	dense1 *nn.Dense
	dense2 *nn.Dense
}

func newBackbone(cfg config.NetworkConfig, variant string, opts []Option) (*backbone, error) {
	o := options{seed: cfg.Seed, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	rng := nn.NewRand(o.seed)
	log := o.log.With().Str("component", "encoder").Str("variant", variant).Logger()

	asset := NewAssetEncoder(cfg, rng)
	agg := NewAggregator(rng, asset.OutputDim(), cfg.AttentionHeads, cfg.KeyDimDivisor, log)

	headIn := asset.OutputDim()
	if cfg.UseSentimentAnalysis {
		headIn += cfg.SentimentDim
	}

	b := &backbone{
		cfg:    cfg,
		rng:    rng,
		log:    log,
		asset:  asset,
		agg:    agg,
		dense1: nn.NewDense(rng, headIn, cfg.DenseUnits1, nn.ReLU),
		dense2: nn.NewDense(rng, cfg.DenseUnits1, cfg.LatentDim, nn.ReLU),
	}

	log.Info().
		Int("num_assets", cfg.NumAssets).
		Int("sequence_length", cfg.SequenceLength).
		Int("features_per_asset", cfg.NumFeaturesPerAsset).
		Int("key_dim", agg.KeyDim()).
		Int("params", b.NumParams()).
		Msg("Feature encoder initialized")

	return b, nil
}

func (b *backbone) latent(in Input, mode nn.Mode) (*mat.Dense, error) {
	if err := b.validate(in); err != nil {
		return nil, err
	}
	timer := utils.NewTimer("encoder_forward", b.log).WithSlowThreshold(time.Second)
	defer timer.Stop()

	cfg := b.cfg
	out := mat.NewDense(len(in.Observations), cfg.LatentDim, nil)
	embeddings := mat.NewDense(cfg.NumAssets, b.asset.OutputDim(), nil)

	for i, obs := range in.Observations {
		for a := 0; a < cfg.NumAssets; a++ {
			lo := a * cfg.NumFeaturesPerAsset
			window := obs.Slice(0, cfg.SequenceLength, lo, lo+cfg.NumFeaturesPerAsset)
			emb, err := b.asset.Forward(window, mode)
			if err != nil {
				return nil, err
			}
			embeddings.SetRow(a, emb)
		}

		pooled := b.agg.Forward(embeddings, mode)
		if cfg.UseSentimentAnalysis {
			sentiment := make([]float64, cfg.SentimentDim)
			if in.Sentiment != nil {
				copy(sentiment, in.Sentiment[i])
			}
			pooled = append(pooled, sentiment...)
		}

		h := b.dense1.Forward(mat.NewDense(1, len(pooled), pooled))
		mode.Dropout(h, cfg.FinalDropout)
		h = b.dense2.Forward(h)
		mode.Dropout(h, cfg.FinalDropout)
		out.SetRow(i, h.RawRowView(0))
	}
	return out, nil
}

func (b *backbone) validate(in Input) error {
	cfg := b.cfg
	if len(in.Observations) == 0 {
		return fmt.Errorf("%w: empty batch", ErrShapeMismatch)
	}
	for i, obs := range in.Observations {
		if obs == nil {
			return fmt.Errorf("%w: observation %d is nil", ErrShapeMismatch, i)
		}
		r, c := obs.Dims()
		if r != cfg.SequenceLength || c != cfg.TotalFeatures() {
			return fmt.Errorf("%w: observation %d is %dx%d, want %dx%d",
				ErrShapeMismatch, i, r, c, cfg.SequenceLength, cfg.TotalFeatures())
		}
		for t := 0; t < r; t++ {
			if !formulas.AllFinite(obs.RawRowView(t)) {
				return fmt.Errorf("%w: observation %d has a non-finite value at timestep %d",
					ErrInvalidObservation, i, t)
			}
		}
	}

	if in.Sentiment == nil {
		return nil
	}
	if !cfg.UseSentimentAnalysis {
		return fmt.Errorf("%w: sentiment supplied but sentiment analysis is disabled", ErrShapeMismatch)
	}
	if len(in.Sentiment) != len(in.Observations) {
		return fmt.Errorf("%w: %d sentiment vectors for %d observations",
			ErrShapeMismatch, len(in.Sentiment), len(in.Observations))
	}
	for i, s := range in.Sentiment {
		if len(s) != cfg.SentimentDim {
			return fmt.Errorf("%w: sentiment %d has width %d, want %d",
				ErrShapeMismatch, i, len(s), cfg.SentimentDim)
		}
		if !formulas.AllFinite(s) {
			return fmt.Errorf("%w: sentiment %d has a non-finite value", ErrInvalidObservation, i)
		}
	}
	return nil
}

// Config returns the network configuration.
func (b *backbone) Config() config.NetworkConfig { return b.cfg }

// Warnings returns construction-time warnings such as the key dim fallback.
func (b *backbone) Warnings() []string { return b.agg.Warnings() }

// KeyDim is the effective attention key width.
func (b *backbone) KeyDim() int { return b.agg.KeyDim() }

// NumParams counts trainable weights up to the latent layer.
func (b *backbone) NumParams() int {
	return b.asset.NumParams() + b.agg.NumParams() + b.dense1.NumParams() + b.dense2.NumParams()
}
