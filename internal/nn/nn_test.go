package nn

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

func randomMatrix(seed uint64, r, c int) *mat.Dense {
	rng := NewRand(seed)
	data := make([]float64, r*c)
	for i := range data {
		data[i] = rng.NormFloat64()
	}
	return mat.NewDense(r, c, data)
}

func TestSoftmax_SumsToOne(t *testing.T) {
	v := []float64{1000, 1001, 999}
	Softmax(v)

	assert.InDelta(t, 1.0, floats.Sum(v), 1e-12)
	for _, p := range v {
		assert.False(t, math.IsNaN(p))
		assert.GreaterOrEqual(t, p, 0.0)
	}
	assert.Greater(t, v[1], v[0])
}

func TestMeanRows(t *testing.T) {
	m := mat.NewDense(2, 3, []float64{1, 2, 3, 3, 4, 5})
	assert.Equal(t, []float64{2, 3, 4}, MeanRows(m))
}

func TestDense_ForwardShapeAndBias(t *testing.T) {
	d := NewDense(NewRand(1), 3, 5, ReLU)
	for i := range d.B {
		d.B[i] = 0.5
	}
	out := d.Forward(mat.NewDense(2, 3, nil))

	r, c := out.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 5, c)
	assert.Equal(t, 0.5, out.At(1, 4))
	assert.Equal(t, 3*5+5, d.NumParams())
}

func TestConv1D_SamePaddingKeepsLength(t *testing.T) {
	c := NewConv1D(NewRand(2), 4, 8, 3, ReLU)
	out := c.Forward(randomMatrix(3, 10, 4))

	r, k := out.Dims()
	assert.Equal(t, 10, r)
	assert.Equal(t, 8, k)
	assert.Equal(t, 8, c.Filters())
	for _, v := range out.RawMatrix().Data {
		assert.GreaterOrEqual(t, v, 0.0)
	}
}

func TestConv1D_IdentityKernel(t *testing.T) {
	// A kernel that copies the centre tap reproduces the input.
	c := &Conv1D{Kernel: 3, In: 1, W: mat.NewDense(3, 1, []float64{0, 1, 0}), B: []float64{0}}
	x := mat.NewDense(4, 1, []float64{1, 2, 3, 4})

	out := c.Forward(x)
	assert.True(t, mat.Equal(x, out))
}

func TestConv1D_EdgesAreZeroPadded(t *testing.T) {
	c := &Conv1D{Kernel: 3, In: 1, W: mat.NewDense(3, 1, []float64{1, 1, 1}), B: []float64{0}}
	out := c.Forward(mat.NewDense(3, 1, []float64{1, 2, 3}))

	assert.Equal(t, []float64{3, 6, 5}, out.RawMatrix().Data)
}

func TestLSTM_SequenceAndFinalAgree(t *testing.T) {
	l := NewLSTM(NewRand(4), 6, 5)
	x := randomMatrix(5, 7, 6)

	seq := l.Sequence(x)
	final := l.Final(x)

	r, c := seq.Dims()
	require.Equal(t, 7, r)
	require.Equal(t, 5, c)
	assert.Equal(t, seq.RawRowView(6), final.RawRowView(0))
	for _, v := range seq.RawMatrix().Data {
		assert.Less(t, math.Abs(v), 1.0)
	}
}

func TestLSTM_ZeroInputZeroBiasGivesZeroState(t *testing.T) {
	l := NewLSTM(NewRand(6), 2, 3)
	for i := range l.B {
		l.B[i] = 0
	}
	final := l.Final(mat.NewDense(4, 2, nil))
	for _, v := range final.RawRowView(0) {
		assert.Equal(t, 0.0, v)
	}
}

func TestOrthogonal(t *testing.T) {
	w := Orthogonal(NewRand(7), 4, 12)
	r, c := w.Dims()
	require.Equal(t, 4, r)
	require.Equal(t, 12, c)

	var gram mat.Dense
	gram.Mul(w, w.T())
	assert.True(t, mat.EqualApprox(&gram, eye(4), 1e-9))
}

func eye(n int) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}

func TestLayerNorm_NormalizesRows(t *testing.T) {
	n := NewLayerNorm(4)
	out := n.Forward(mat.NewDense(2, 4, []float64{1, 2, 3, 4, 10, 10, 10, 10}))

	row := out.RawRowView(0)
	assert.InDelta(t, 0.0, floats.Sum(row), 1e-9)
	assert.Greater(t, row[3], row[0])

	// A constant row collapses to beta.
	for _, v := range out.RawRowView(1) {
		assert.InDelta(t, 0.0, v, 1e-9)
	}
}

func TestMultiHeadAttention_Shape(t *testing.T) {
	a := NewMultiHeadAttention(NewRand(8), 32, 4, 16, 0.1)
	out := a.Forward(randomMatrix(9, 4, 32), Inference())

	r, c := out.Dims()
	assert.Equal(t, 4, r)
	assert.Equal(t, 32, c)
	assert.Equal(t, 4*32*64+3*64+32, a.NumParams())
}

func TestMultiHeadAttention_PermutationEquivariant(t *testing.T) {
	a := NewMultiHeadAttention(NewRand(10), 8, 2, 4, 0)
	x := randomMatrix(11, 3, 8)

	swapped := mat.NewDense(3, 8, nil)
	swapped.SetRow(0, x.RawRowView(1))
	swapped.SetRow(1, x.RawRowView(0))
	swapped.SetRow(2, x.RawRowView(2))

	out := a.Forward(x, Inference())
	outSwapped := a.Forward(swapped, Inference())

	assert.InDeltaSlice(t, out.RawRowView(0), outSwapped.RawRowView(1), 1e-12)
	assert.InDeltaSlice(t, out.RawRowView(2), outSwapped.RawRowView(2), 1e-12)
}

func TestDropout_InferenceIsIdentity(t *testing.T) {
	x := randomMatrix(12, 5, 5)
	before := mat.DenseCopyOf(x)

	Inference().Dropout(x, 0.5)
	assert.True(t, mat.Equal(before, x))
	assert.False(t, Inference().IsTraining())
}

func TestDropout_TrainingZeroesAndScales(t *testing.T) {
	x := mat.NewDense(20, 20, constant(400, 1))
	mode := Training(NewRand(13))
	require.True(t, mode.IsTraining())

	mode.Dropout(x, 0.5)

	zeros := 0
	for _, v := range x.RawMatrix().Data {
		if v == 0 {
			zeros++
			continue
		}
		assert.Equal(t, 2.0, v)
	}
	assert.Greater(t, zeros, 100)
	assert.Less(t, zeros, 300)
}

func TestGlorotUniform_WithinLimit(t *testing.T) {
	w := GlorotUniform(NewRand(14), 10, 20, 10, 20)
	limit := math.Sqrt(6.0 / 30.0)
	for _, v := range w.RawMatrix().Data {
		assert.LessOrEqual(t, math.Abs(v), limit)
	}
}
