package nn

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
)

// Dense is a fully connected layer: act(x·W + b).
type Dense struct {
	W   *mat.Dense // in × out
	B   []float64
	Act Activation
}

// NewDense creates a Glorot-initialized layer with zero bias.
func NewDense(rng *rand.Rand, in, out int, act Activation) *Dense {
	return &Dense{
		W:   GlorotUniform(rng, in, out, in, out),
		B:   make([]float64, out),
		Act: act,
	}
}

// Forward maps (rows × in) to (rows × out).
func (d *Dense) Forward(x mat.Matrix) *mat.Dense {
	out := affine(x, d.W, d.B)
	activate(out, d.Act)
	return out
}

// Out returns the output width.
func (d *Dense) Out() int {
	_, c := d.W.Dims()
	return c
}

// NumParams counts trainable weights.
func (d *Dense) NumParams() int {
	r, c := d.W.Dims()
	return r*c + len(d.B)
}
