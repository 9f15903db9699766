package nn

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// LayerNormEpsilon is the variance floor used by NewLayerNorm.
const LayerNormEpsilon = 1e-6

// LayerNorm normalizes each row to zero mean and unit variance, then
// applies a per-feature gain and offset.
type LayerNorm struct {
	Gamma []float64
	Beta  []float64
	Eps   float64
}

// NewLayerNorm starts with unit gain and zero offset.
func NewLayerNorm(width int) *LayerNorm {
	return &LayerNorm{
		Gamma: constant(width, 1),
		Beta:  make([]float64, width),
		Eps:   LayerNormEpsilon,
	}
}

// Forward returns a normalized copy of x.
func (n *LayerNorm) Forward(x mat.Matrix) *mat.Dense {
	out := mat.DenseCopyOf(x)
	r, _ := out.Dims()
	for i := 0; i < r; i++ {
		row := out.RawRowView(i)
		mean, std := stat.PopMeanStdDev(row, nil)
		inv := 1 / math.Sqrt(std*std+n.Eps)
		for j := range row {
			row[j] = (row[j]-mean)*inv*n.Gamma[j] + n.Beta[j]
		}
	}
	return out
}

// NumParams counts trainable weights.
func (n *LayerNorm) NumParams() int { return len(n.Gamma) + len(n.Beta) }
