package nn

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
)

// Conv1D is a stride-1 temporal convolution with "same" padding: the
// output has as many timesteps as the input.
type Conv1D struct {
	Kernel int
	In     int
	W      *mat.Dense // (Kernel·In) × Filters
	B      []float64
	Act    Activation
}

// NewConv1D creates a Glorot-initialized convolution.
func NewConv1D(rng *rand.Rand, in, filters, kernel int, act Activation) *Conv1D {
	return &Conv1D{
		Kernel: kernel,
		In:     in,
		W:      GlorotUniform(rng, kernel*in, filters, kernel*in, kernel*filters),
		B:      make([]float64, filters),
		Act:    act,
	}
}

// Forward maps (T × In) to (T × Filters). The window is unrolled into a
// (T × Kernel·In) patch matrix so the convolution is a single product.
func (c *Conv1D) Forward(x mat.Matrix) *mat.Dense {
	t, in := x.Dims()
	padLeft := (c.Kernel - 1) / 2

	patches := mat.NewDense(t, c.Kernel*in, nil)
	for i := 0; i < t; i++ {
		row := patches.RawRowView(i)
		for k := 0; k < c.Kernel; k++ {
			src := i + k - padLeft
			if src < 0 || src >= t {
				continue
			}
			for f := 0; f < in; f++ {
				row[k*in+f] = x.At(src, f)
			}
		}
	}

	out := affine(patches, c.W, c.B)
	activate(out, c.Act)
	return out
}

// Filters returns the number of output channels.
func (c *Conv1D) Filters() int { return len(c.B) }

// NumParams counts trainable weights.
func (c *Conv1D) NumParams() int {
	r, k := c.W.Dims()
	return r*k + len(c.B)
}
