// Package nn implements the forward pass of the small set of layers the
// feature encoder is built from, on top of gonum matrices.
//
// Every layer takes a (rows × features) matrix and returns a freshly
// allocated result; weights are never mutated after construction, so a
// layer may be shared by concurrent callers running in inference mode.
// Shape mismatches panic the same way gonum does.
package nn

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Activation is applied element-wise. A nil Activation is linear.
type Activation func(float64) float64

// ReLU is max(0, x).
func ReLU(x float64) float64 {
	if x < 0 {
		return 0
	}
	return x
}

// Sigmoid is the logistic function.
func Sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// affine returns x·w + b, with b broadcast across rows.
func affine(x mat.Matrix, w *mat.Dense, b []float64) *mat.Dense {
	var out mat.Dense
	out.Mul(x, w)
	r, _ := out.Dims()
	for i := 0; i < r; i++ {
		floats.Add(out.RawRowView(i), b)
	}
	return &out
}

func activate(m *mat.Dense, act Activation) {
	if act == nil {
		return
	}
	m.Apply(func(_, _ int, v float64) float64 { return act(v) }, m)
}

// SoftmaxRows normalizes every row of m in place into a probability vector.
func SoftmaxRows(m *mat.Dense) {
	r, _ := m.Dims()
	for i := 0; i < r; i++ {
		Softmax(m.RawRowView(i))
	}
}

// Softmax normalizes v in place. The maximum is subtracted first so large
// logits cannot overflow.
func Softmax(v []float64) {
	if len(v) == 0 {
		return
	}
	hi := floats.Max(v)
	for i := range v {
		v[i] = math.Exp(v[i] - hi)
	}
	floats.Scale(1/floats.Sum(v), v)
}

// MeanRows averages m over its rows, returning one value per column.
func MeanRows(m mat.Matrix) []float64 {
	r, c := m.Dims()
	out := make([]float64, c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out[j] += m.At(i, j)
		}
	}
	floats.Scale(1/float64(r), out)
	return out
}
