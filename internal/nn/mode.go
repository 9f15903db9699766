package nn

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
)

// Mode selects whether stochastic layers are active.
//
// A training Mode owns its generator and must not be shared between
// goroutines. The inference Mode is stateless.
type Mode struct {
	training bool
	rng      *rand.Rand
}

// Inference disables dropout.
func Inference() Mode { return Mode{} }

// Training enables dropout driven by rng.
func Training(rng *rand.Rand) Mode {
	return Mode{training: true, rng: rng}
}

// IsTraining reports whether dropout is active.
func (m Mode) IsTraining() bool { return m.training && m.rng != nil }

// Dropout zeroes each element of x with probability rate and scales the
// survivors by 1/(1-rate). It is a no-op in inference mode.
func (m Mode) Dropout(x *mat.Dense, rate float64) {
	if !m.IsTraining() || rate <= 0 {
		return
	}
	keep := 1 / (1 - rate)
	x.Apply(func(_, _ int, v float64) float64 {
		if m.rng.Float64() < rate {
			return 0
		}
		return v * keep
	}, x)
}
