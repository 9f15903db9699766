package nn

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
)

// NewRand returns a deterministic generator for weight initialization and
// training-mode dropout.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// GlorotUniform fills a rows×cols matrix from U(-l, l), l = sqrt(6/(fanIn+fanOut)).
func GlorotUniform(rng *rand.Rand, rows, cols, fanIn, fanOut int) *mat.Dense {
	limit := math.Sqrt(6 / float64(fanIn+fanOut))
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = (rng.Float64()*2 - 1) * limit
	}
	return mat.NewDense(rows, cols, data)
}

// Orthogonal returns a rows×cols matrix with orthonormal rows or columns
// (whichever is shorter), taken from the Q factor of a Gaussian matrix.
func Orthogonal(rng *rand.Rand, rows, cols int) *mat.Dense {
	tall, short := rows, cols
	if cols > rows {
		tall, short = cols, rows
	}
	data := make([]float64, tall*short)
	for i := range data {
		data[i] = rng.NormFloat64()
	}
	var qr mat.QR
	qr.Factorize(mat.NewDense(tall, short, data))
	var q mat.Dense
	qr.QTo(&q)

	basis := q.Slice(0, tall, 0, short)
	if rows >= cols {
		return mat.DenseCopyOf(basis)
	}
	return mat.DenseCopyOf(basis.T())
}

func constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}
