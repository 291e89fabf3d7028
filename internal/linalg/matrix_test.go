package linalg

import (
	"testing"

	"github.com/c2h5oh/datasize"
	"github.com/chewxy/math32"
	"github.com/gorgonia/dbn/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"
)

func mat(rows, cols int, data ...float32) *tensor.Dense {
	return tensor.New(tensor.WithShape(rows, cols), tensor.WithBacking(data))
}

func TestAlloc(t *testing.T) {
	m, err := Alloc(3, 4)
	require.NoError(t, err)
	assert.Equal(t, []float32(make([]float32, 12)), Data(m))

	_, err = Alloc(0, 4)
	assert.True(t, errs.IsConfig(err))

	old := MaxBytes
	MaxBytes = 1 * datasize.KB
	defer func() { MaxBytes = old }()
	_, err = Alloc(1024, 1024)
	assert.True(t, errs.IsResource(err), "got %v", err)
}

func TestProducts(t *testing.T) {
	a := mat(2, 3,
		1, 2, 3,
		4, 5, 6)
	b := mat(3, 2,
		7, 8,
		9, 10,
		11, 12)

	ab, _ := Alloc(2, 2)
	require.NoError(t, Mul(ab, a, b))
	assert.Equal(t, []float32{58, 64, 139, 154}, Data(ab))

	// aᵀ·a is 3x3
	ata, _ := Alloc(3, 3)
	require.NoError(t, MulTransA(ata, a, a))
	assert.Equal(t, []float32{
		17, 22, 27,
		22, 29, 36,
		27, 36, 45}, Data(ata))

	// a·aᵀ is 2x2
	aat, _ := Alloc(2, 2)
	require.NoError(t, MulTransB(aat, a, a))
	assert.Equal(t, []float32{14, 32, 32, 77}, Data(aat))

	// the operands keep their layout
	assert.Equal(t, []int{2, 3}, []int(a.Shape()))
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6}, Data(a))
}

func TestProductsOfColumns(t *testing.T) {
	// batch size 1: every operand is a column
	x := mat(3, 1, 1, 2, 3)
	y := mat(2, 1, 4, 5)

	outer, _ := Alloc(2, 3)
	require.NoError(t, MulTransB(outer, y, x))
	assert.Equal(t, []float32{4, 8, 12, 5, 10, 15}, Data(outer))

	down, _ := Alloc(3, 1)
	require.NoError(t, MulTransA(down, outer, y))
	assert.Equal(t, []float32{41, 82, 123}, Data(down))
}

func TestProductsOverwriteNaN(t *testing.T) {
	nan := math32.NaN()
	a := mat(2, 2, 1, 2, 3, 4)

	for name, f := range map[string]func(dst *tensor.Dense) error{
		"Mul":       func(dst *tensor.Dense) error { return Mul(dst, a, a) },
		"MulTransA": func(dst *tensor.Dense) error { return MulTransA(dst, a, a) },
		"MulTransB": func(dst *tensor.Dense) error { return MulTransB(dst, a, a) },
	} {
		t.Run(name, func(t *testing.T) {
			dst := mat(2, 2, nan, nan, nan, nan)
			require.NoError(t, f(dst))
			assert.True(t, Finite(dst), "%v", Data(dst))
		})
	}

	means := tensor.New(tensor.WithShape(2), tensor.WithBacking([]float32{nan, nan}))
	require.NoError(t, RowMeans(means, a, 1, 0))
	assert.Equal(t, []float32{1.5, 3.5}, Data(means))
}

func TestScaledDiff(t *testing.T) {
	dst := mat(1, 3, 4, 6, 8)
	require.NoError(t, ScaledDiff(dst, mat(1, 3, 2, 2, 2), 0.5))
	assert.Equal(t, []float32{1, 2, 3}, Data(dst))
	assert.True(t, errs.IsConfig(ScaledDiff(dst, mat(3, 1, 0, 0, 0), 1)))
}

func TestProductShapeMismatch(t *testing.T) {
	a := mat(2, 3, 1, 2, 3, 4, 5, 6)
	dst, _ := Alloc(2, 2)
	assert.True(t, errs.IsConfig(Mul(dst, a, a)))
	assert.True(t, errs.IsConfig(MulTransA(dst, a, a)))
	bad, _ := Alloc(3, 3)
	assert.True(t, errs.IsConfig(MulTransB(bad, a, a)))
}

func TestBroadcastAndReduce(t *testing.T) {
	m := mat(2, 3,
		1, 2, 3,
		4, 5, 6)
	v := tensor.New(tensor.WithShape(2), tensor.WithBacking([]float32{10, -1}))
	require.NoError(t, AddColumn(m, v))
	assert.Equal(t, []float32{11, 12, 13, 3, 4, 5}, Data(m))

	means, _ := Vector(2)
	require.NoError(t, RowMeans(means, m, 1, 0))
	assert.Equal(t, []float32{12, 4}, Data(means))
	require.NoError(t, RowMeans(means, m, -1, 1))
	assert.Equal(t, []float32{0, 0}, Data(means))

	min, max := MinMax(m)
	assert.Equal(t, float32(3), min)
	assert.Equal(t, float32(13), max)
}

func TestGatherAndTranspose(t *testing.T) {
	src := mat(2, 4,
		0, 1, 2, 3,
		4, 5, 6, 7)
	dst, _ := Alloc(2, 2)
	require.NoError(t, Gather(dst, src, []int{3, 1}))
	assert.Equal(t, []float32{3, 1, 7, 5}, Data(dst))
	assert.True(t, errs.IsConfig(Gather(dst, src, []int{4, 0})))

	tr, err := Transpose(src)
	require.NoError(t, err)
	assert.Equal(t, []int{4, 2}, []int(tr.Shape()))
	assert.Equal(t, []float32{0, 4, 1, 5, 2, 6, 3, 7}, Data(tr))
}

func TestFinite(t *testing.T) {
	assert.True(t, Finite(mat(1, 2, 1, -1)))
	assert.False(t, Finite(mat(1, 2, 1, math32.NaN())))
	assert.False(t, Finite(mat(1, 2, math32.Inf(-1), 0)))
}

func TestScratchPool(t *testing.T) {
	m := Borrow(3, 5)
	r, c := Dims(m)
	assert.Equal(t, 3, r)
	assert.Equal(t, 5, c)
	Return(m)
	Return(nil)
}
