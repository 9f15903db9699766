package nn

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
)

// LSTM is a single recurrent layer with gates laid out as
// [input | forget | cell | output] along the 4·Units axis.
type LSTM struct {
	Units int
	Wx    *mat.Dense // in × 4·Units
	Wh    *mat.Dense // Units × 4·Units
	B     []float64
}

// NewLSTM uses Glorot init for input weights, orthogonal recurrent weights
// and a forget-gate bias of one.
func NewLSTM(rng *rand.Rand, in, units int) *LSTM {
	b := make([]float64, 4*units)
	copy(b[units:2*units], constant(units, 1))
	return &LSTM{
		Units: units,
		Wx:    GlorotUniform(rng, in, 4*units, in, 4*units),
		Wh:    Orthogonal(rng, units, 4*units),
		B:     b,
	}
}

// Sequence returns every hidden state, (T × Units).
func (l *LSTM) Sequence(x mat.Matrix) *mat.Dense {
	t, _ := x.Dims()
	out := mat.NewDense(t, l.Units, nil)
	l.run(x, func(step int, h []float64) {
		out.SetRow(step, h)
	})
	return out
}

// Final returns only the last hidden state as a (1 × Units) matrix.
func (l *LSTM) Final(x mat.Matrix) *mat.Dense {
	last := make([]float64, l.Units)
	l.run(x, func(_ int, h []float64) {
		copy(last, h)
	})
	return mat.NewDense(1, l.Units, last)
}

func (l *LSTM) run(x mat.Matrix, emit func(step int, h []float64)) {
	u := l.Units
	t, _ := x.Dims()

	var xw mat.Dense
	xw.Mul(x, l.Wx)

	h := make([]float64, u)
	c := make([]float64, u)
	z := make([]float64, 4*u)

	for s := 0; s < t; s++ {
		copy(z, xw.RawRowView(s))
		for j := range z {
			z[j] += l.B[j]
		}
		for k := 0; k < u; k++ {
			if h[k] == 0 {
				continue
			}
			hk := h[k]
			for j, w := range l.Wh.RawRowView(k) {
				z[j] += hk * w
			}
		}
		for k := 0; k < u; k++ {
			in := Sigmoid(z[k])
			forget := Sigmoid(z[u+k])
			cand := math.Tanh(z[2*u+k])
			out := Sigmoid(z[3*u+k])
			c[k] = forget*c[k] + in*cand
			h[k] = out * math.Tanh(c[k])
		}
		emit(s, h)
	}
}

// NumParams counts trainable weights.
func (l *LSTM) NumParams() int {
	r, c := l.Wx.Dims()
	return r*c + l.Units*4*l.Units + len(l.B)
}
