// Package encoder turns observation windows into either a latent feature
// vector or a portfolio allocation.
package encoder

import (
	"errors"

	"github.com/aristath/deepfolio/internal/config"
	"github.com/aristath/deepfolio/internal/nn"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrShapeMismatch is returned when an input does not match the configured network shape.
	ErrShapeMismatch = errors.New("encoder: shape mismatch")
	// ErrInvalidObservation is returned when an input contains NaN or Inf.
	ErrInvalidObservation = errors.New("encoder: invalid observation")
)

// Input is one batch. Observations are (sequence_length × num_assets·num_features_per_asset)
// windows laid out asset-major, as produced by the portfolio environment.
// Sentiment is optional; when the network expects it and it is nil, zeros are used.
type Input struct {
	Observations []*mat.Dense
	Sentiment    [][]float64
}

// FeatureEncoder is implemented by LatentEncoder and AllocationEncoder.
// Implementations are safe for concurrent use in inference mode.
type FeatureEncoder interface {
	// Forward returns a (batch × OutputDim) matrix.
	Forward(in Input, mode nn.Mode) (*mat.Dense, error)
	// Encode runs Forward in inference mode without sentiment input.
	Encode(observations ...*mat.Dense) (*mat.Dense, error)
	OutputDim() int
	Config() config.NetworkConfig
	Warnings() []string
	NumParams() int
}

// Option configures encoder construction.
type Option func(*options)

type options struct {
	seed    uint64
	hasSeed bool
	log     zerolog.Logger
}

// WithSeed overrides the configured initialization seed.
func WithSeed(seed uint64) Option {
	return func(o *options) {
		o.seed = seed
		o.hasSeed = true
	}
}

// WithLogger attaches a logger; the default discards output.
func WithLogger(log zerolog.Logger) Option {
	return func(o *options) { o.log = log }
}

// New builds the variant selected by cfg.OutputLatentFeatures.
func New(cfg config.NetworkConfig, opts ...Option) (FeatureEncoder, error) {
	if cfg.OutputLatentFeatures {
		return NewLatentEncoder(cfg, opts...)
	}
	return NewAllocationEncoder(cfg, opts...)
}

// LatentEncoder outputs a latent_dim-wide vector per observation,
// independent of the number of assets.
type LatentEncoder struct {
	*backbone
}

// NewLatentEncoder builds the latent variant.
func NewLatentEncoder(cfg config.NetworkConfig, opts ...Option) (*LatentEncoder, error) {
	b, err := newBackbone(cfg, "latent", opts)
	if err != nil {
		return nil, err
	}
	return &LatentEncoder{backbone: b}, nil
}

// Forward implements FeatureEncoder.
func (e *LatentEncoder) Forward(in Input, mode nn.Mode) (*mat.Dense, error) {
	return e.latent(in, mode)
}

// Encode implements FeatureEncoder.
func (e *LatentEncoder) Encode(observations ...*mat.Dense) (*mat.Dense, error) {
	return e.Forward(Input{Observations: observations}, nn.Inference())
}

// OutputDim implements FeatureEncoder.
func (e *LatentEncoder) OutputDim() int { return e.cfg.LatentDim }

// AllocationEncoder outputs a softmax allocation over the asset set.
type AllocationEncoder struct {
	*backbone
	allocation *nn.Dense
}

// NewAllocationEncoder builds the allocation variant.
func NewAllocationEncoder(cfg config.NetworkConfig, opts ...Option) (*AllocationEncoder, error) {
	b, err := newBackbone(cfg, "allocation", opts)
	if err != nil {
		return nil, err
	}
	return &AllocationEncoder{
		backbone:   b,
		allocation: nn.NewDense(b.rng, cfg.LatentDim, cfg.NumAssets, nil),
	}, nil
}

// Forward implements FeatureEncoder. Every output row is a probability simplex.
func (e *AllocationEncoder) Forward(in Input, mode nn.Mode) (*mat.Dense, error) {
	latent, err := e.latent(in, mode)
	if err != nil {
		return nil, err
	}
	out := e.allocation.Forward(latent)
	nn.SoftmaxRows(out)
	return out, nil
}

// Encode implements FeatureEncoder.
func (e *AllocationEncoder) Encode(observations ...*mat.Dense) (*mat.Dense, error) {
	return e.Forward(Input{Observations: observations}, nn.Inference())
}

// Allocate encodes a single observation and returns its weights.
func (e *AllocationEncoder) Allocate(observation *mat.Dense) ([]float64, error) {
	out, err := e.Encode(observation)
	if err != nil {
		return nil, err
	}
	return mat.Row(nil, 0, out), nil
}

// OutputDim implements FeatureEncoder.
func (e *AllocationEncoder) OutputDim() int { return e.cfg.NumAssets }

// NumParams implements FeatureEncoder.
func (e *AllocationEncoder) NumParams() int {
	return e.backbone.NumParams() + e.allocation.NumParams()
}
