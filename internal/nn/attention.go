package nn

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
)

// MultiHeadAttention is scaled dot-product attention with Heads parallel
// projections of width KeyDim, projected back to the model width.
type MultiHeadAttention struct {
	Heads   int
	KeyDim  int
	Dropout float64 // applied to attention scores in training mode

	Wq, Wk, Wv *mat.Dense // model × Heads·KeyDim
	Bq, Bk, Bv []float64
	Wo         *mat.Dense // Heads·KeyDim × model
	Bo         []float64
}

// NewMultiHeadAttention creates Glorot-initialized projections.
func NewMultiHeadAttention(rng *rand.Rand, model, heads, keyDim int, dropout float64) *MultiHeadAttention {
	proj := heads * keyDim
	return &MultiHeadAttention{
		Heads:   heads,
		KeyDim:  keyDim,
		Dropout: dropout,
		Wq:      GlorotUniform(rng, model, proj, model, proj),
		Wk:      GlorotUniform(rng, model, proj, model, proj),
		Wv:      GlorotUniform(rng, model, proj, model, proj),
		Bq:      make([]float64, proj),
		Bk:      make([]float64, proj),
		Bv:      make([]float64, proj),
		Wo:      GlorotUniform(rng, proj, model, proj, model),
		Bo:      make([]float64, model),
	}
}

// Forward runs self-attention: query, key and value are all x (n × model).
func (a *MultiHeadAttention) Forward(x mat.Matrix, mode Mode) *mat.Dense {
	n, _ := x.Dims()
	q := affine(x, a.Wq, a.Bq)
	k := affine(x, a.Wk, a.Bk)
	v := affine(x, a.Wv, a.Bv)

	scale := 1 / math.Sqrt(float64(a.KeyDim))
	concat := mat.NewDense(n, a.Heads*a.KeyDim, nil)
	for h := 0; h < a.Heads; h++ {
		lo, hi := h*a.KeyDim, (h+1)*a.KeyDim
		qh := q.Slice(0, n, lo, hi)
		kh := k.Slice(0, n, lo, hi)
		vh := v.Slice(0, n, lo, hi)

		var scores mat.Dense
		scores.Mul(qh, kh.T())
		scores.Scale(scale, &scores)
		SoftmaxRows(&scores)
		mode.Dropout(&scores, a.Dropout)

		var ctx mat.Dense
		ctx.Mul(&scores, vh)
		concat.Slice(0, n, lo, hi).(*mat.Dense).Copy(&ctx)
	}
	return affine(concat, a.Wo, a.Bo)
}

// NumParams counts trainable weights.
func (a *MultiHeadAttention) NumParams() int {
	r, c := a.Wq.Dims()
	return 4*r*c + 3*len(a.Bq) + len(a.Bo)
}
