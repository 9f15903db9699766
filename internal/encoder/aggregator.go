package encoder

import (
	"fmt"
	"math/rand/v2"

	"github.com/aristath/deepfolio/internal/nn"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
)

// AttentionDropout is the dropout rate applied to attention scores in training mode.
const AttentionDropout = 0.1

// Aggregator lets every asset embedding attend to the others, adds the
// residual, normalizes and mean-pools across assets.
type Aggregator struct {
	mha      *nn.MultiHeadAttention
	norm     *nn.LayerNorm
	keyDim   int
	warnings []string
}

// NewAggregator derives the per-head key width as width/divisor. When that
// rounds down to zero it falls back to the full width and records a warning.
// divisor must be positive.
func NewAggregator(rng *rand.Rand, width, heads, divisor int, log zerolog.Logger) *Aggregator {
	keyDim := width / divisor
	var warnings []string
	if keyDim == 0 {
		keyDim = width
		msg := fmt.Sprintf("embedding width %d too small for key dim divisor %d; using key dim %d",
			width, divisor, keyDim)
		warnings = append(warnings, msg)
		log.Warn().
			Int("embedding_dim", width).
			Int("key_dim_divisor", divisor).
			Int("key_dim", keyDim).
			Msg("Attention key dim fallback")
	}

	return &Aggregator{
		mha:      nn.NewMultiHeadAttention(rng, width, heads, keyDim, AttentionDropout),
		norm:     nn.NewLayerNorm(width),
		keyDim:   keyDim,
		warnings: warnings,
	}
}

// Forward pools (num_assets × width) embeddings into one width-wide vector.
func (a *Aggregator) Forward(embeddings *mat.Dense, mode nn.Mode) []float64 {
	attended := a.mha.Forward(embeddings, mode)
	attended.Add(attended, embeddings)
	return nn.MeanRows(a.norm.Forward(attended))
}

// KeyDim is the effective per-head key width.
func (a *Aggregator) KeyDim() int { return a.keyDim }

// Warnings returns construction-time warnings.
func (a *Aggregator) Warnings() []string {
	return append([]string(nil), a.warnings...)
}

// NumParams counts trainable weights.
func (a *Aggregator) NumParams() int {
	return a.mha.NumParams() + a.norm.NumParams()
}
