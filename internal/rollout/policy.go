// Package rollout drives portfolio environments with allocation policies,
// collects episode summaries, records them and exports metrics.
package rollout

import (
	"errors"
	"fmt"

	"github.com/aristath/deepfolio/internal/config"
	"github.com/aristath/deepfolio/internal/encoder"
	"github.com/aristath/deepfolio/internal/environment"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
)

// ErrUnknownPolicy is returned by NewPolicy for an unrecognized kind.
var ErrUnknownPolicy = errors.New("rollout: unknown policy")

// Policy names accepted by NewPolicy.
const (
	PolicyEncoder  = "encoder"
	PolicyUniform  = "uniform"
	PolicyConstant = "constant"
)

// Policy maps an observation to an action. Implementations must be safe for
// concurrent use; RunParallel shares one Policy across workers.
type Policy interface {
	Name() string
	Act(observation *mat.Dense, info environment.Info) ([]float64, error)
}

// UniformPolicy always allocates equally.
type UniformPolicy struct {
	numAssets int
}

// NewUniformPolicy creates a uniform policy over numAssets assets.
func NewUniformPolicy(numAssets int) *UniformPolicy {
	return &UniformPolicy{numAssets: numAssets}
}

// Name implements Policy.
func (p *UniformPolicy) Name() string { return PolicyUniform }

// Act implements Policy.
func (p *UniformPolicy) Act(*mat.Dense, environment.Info) ([]float64, error) {
	w := make([]float64, p.numAssets)
	for i := range w {
		w[i] = 1 / float64(p.numAssets)
	}
	return w, nil
}

// ConstantPolicy replays a fixed action on every step.
type ConstantPolicy struct {
	weights []float64
}

// NewConstantPolicy copies weights. The environment normalizes them.
func NewConstantPolicy(weights []float64) *ConstantPolicy {
	return &ConstantPolicy{weights: append([]float64(nil), weights...)}
}

// Name implements Policy.
func (p *ConstantPolicy) Name() string { return PolicyConstant }

// Act implements Policy.
func (p *ConstantPolicy) Act(*mat.Dense, environment.Info) ([]float64, error) {
	return append([]float64(nil), p.weights...), nil
}

// EncoderPolicy allocates with the softmax head of an AllocationEncoder.
type EncoderPolicy struct {
	enc *encoder.AllocationEncoder
}

// NewEncoderPolicy wraps enc.
func NewEncoderPolicy(enc *encoder.AllocationEncoder) *EncoderPolicy {
	return &EncoderPolicy{enc: enc}
}

// Name implements Policy.
func (p *EncoderPolicy) Name() string { return PolicyEncoder }

// Act implements Policy.
func (p *EncoderPolicy) Act(observation *mat.Dense, _ environment.Info) ([]float64, error) {
	return p.enc.Allocate(observation)
}

// Encoder returns the wrapped network.
func (p *EncoderPolicy) Encoder() *encoder.AllocationEncoder { return p.enc }

// NewPolicy builds the policy named kind for an environment with the given
// shape. For the encoder policy, network supplies the layer sizes; its asset
// count, sequence length and feature width are taken from the environment.
func NewPolicy(kind string, numAssets, windowSize, featuresPerAsset int, network config.NetworkConfig, log zerolog.Logger) (Policy, error) {
	switch kind {
	case PolicyUniform:
		return NewUniformPolicy(numAssets), nil
	case PolicyConstant:
		// Everything in the first asset of the set.
		w := make([]float64, numAssets)
		w[0] = 1
		return NewConstantPolicy(w), nil
	case PolicyEncoder:
		network.NumAssets = numAssets
		network.SequenceLength = windowSize
		network.NumFeaturesPerAsset = featuresPerAsset
		network.OutputLatentFeatures = false
		enc, err := encoder.NewAllocationEncoder(network, encoder.WithLogger(log))
		if err != nil {
			return nil, fmt.Errorf("failed to build encoder policy: %w", err)
		}
		return NewEncoderPolicy(enc), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, kind)
	}
}
