package layer

import (
	"math"
	"testing"

	"github.com/chewxy/math32"
	"github.com/gorgonia/dbn/errs"
	"github.com/gorgonia/dbn/internal/linalg"
	"github.com/gorgonia/dbn/internal/workpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"
)

var extremes = []float32{-1e4, -100, -20, -1, 0, 1, 20, 100, 1e4, -3, 3, 0.5}

func mat(rows, cols int, data ...float32) *tensor.Dense {
	return tensor.New(tensor.WithShape(rows, cols), tensor.WithBacking(data))
}

func fill(l Layer, vals []float32) {
	d := linalg.Data(l.Activations())
	for i := range d {
		d[i] = vals[i%len(vals)]
	}
}

func TestNew(t *testing.T) {
	for k := Binary; k < MAXKIND; k++ {
		l, err := New(k, 5, WithBatchSize(3), WithSeed(1))
		require.NoError(t, err, "%v", k)
		assert.Equal(t, k, l.Kind())
		assert.Equal(t, 5, l.Nodes())
		assert.Equal(t, 3, l.BatchSize())
		for _, m := range []*tensor.Dense{l.Activations(), l.Expectations(), l.Samples()} {
			r, c := linalg.Dims(m)
			assert.Equal(t, 5, r)
			assert.Equal(t, 3, c)
		}
	}

	_, err := New(MAXKIND, 5)
	assert.True(t, errs.IsConfig(err))
	_, err = New(Binary, 0)
	assert.True(t, errs.IsConfig(err))
	_, err = New(Gaussian, 2, WithVariance(-1))
	assert.True(t, errs.IsConfig(err))
}

func TestParseKind(t *testing.T) {
	for k := Binary; k < MAXKIND; k++ {
		got, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
	got, err := ParseKind("ReLU")
	require.NoError(t, err)
	assert.Equal(t, RectifiedLinear, got)

	_, err = ParseKind("softmax")
	assert.True(t, errs.IsConfig(err))
	assert.False(t, MAXKIND.IsValid())
}

func TestExpectationRanges(t *testing.T) {
	pool := workpool.New(2)
	defer pool.Close()

	// 16 rows so that the pooled path fans out
	for k := Binary; k < MAXKIND; k++ {
		l, err := New(k, 16, WithBatchSize(3), WithSeed(7), WithPool(pool))
		require.NoError(t, err)
		fill(l, extremes)
		l.Expect()

		act := linalg.Data(l.Activations())
		for i, e := range linalg.Data(l.Expectations()) {
			assert.False(t, math32.IsNaN(e) || math32.IsInf(e, 0), "%v: expectation of %v is %v", k, act[i], e)
			switch k {
			case Binary:
				assert.True(t, e > 0 && e < 1, "binary expectation of %v is %v", act[i], e)
			case RectifiedLinear:
				assert.True(t, e > 0, "relu expectation of %v is %v", act[i], e)
			case Gaussian:
				assert.Equal(t, act[i], e)
			}
		}
	}
}

func TestTransformMatchesExpect(t *testing.T) {
	for k := Binary; k < MAXKIND; k++ {
		l, err := New(k, 4, WithBatchSize(3), WithSeed(7))
		require.NoError(t, err)
		fill(l, extremes)
		l.Expect()

		m := linalg.Clone(l.Activations())
		l.Transform(m)
		assert.Equal(t, linalg.Data(l.Expectations()), linalg.Data(m), "%v", k)
	}
}

func TestSamples(t *testing.T) {
	t.Run("relu", func(t *testing.T) {
		l, err := NewReLU(32, WithBatchSize(8), WithSeed(3))
		require.NoError(t, err)
		fill(l, extremes[1:8])
		l.Expect()
		for i := 0; i < 20; i++ {
			l.Sample()
			for _, s := range linalg.Data(l.Samples()) {
				assert.True(t, s >= 0, "relu sample %v", s)
				assert.False(t, math32.IsNaN(s))
			}
		}
	})

	t.Run("binary", func(t *testing.T) {
		l, err := NewBinary(32, WithBatchSize(8), WithSeed(3))
		require.NoError(t, err)
		fill(l, []float32{-100, 100})
		l.Expect()
		l.Sample()
		for i, s := range linalg.Data(l.Samples()) {
			// the clamped probabilities are 1e-7 away from the extremes
			if i%2 == 0 {
				assert.Equal(t, float32(0), s)
			} else {
				assert.Equal(t, float32(1), s)
			}
		}
	})

	t.Run("gaussian", func(t *testing.T) {
		l, err := NewGaussian(50, WithBatchSize(40), WithSeed(3), WithVariance(4))
		require.NoError(t, err)
		assert.Equal(t, float32(4), l.Variance())
		l.Expect()
		l.Sample()
		var ss float32
		d := linalg.Data(l.Samples())
		for _, s := range d {
			ss += s * s
		}
		// 2000 draws from N(0, 2²)
		assert.InDelta(t, 4, ss/float32(len(d)), 0.5)
	})
}

func TestSameSeedSameSamples(t *testing.T) {
	draw := func() []float32 {
		l, err := NewReLU(8, WithBatchSize(4), WithSeed(42))
		require.NoError(t, err)
		fill(l, extremes)
		l.Expect()
		l.Sample()
		return append([]float32(nil), linalg.Data(l.Samples())...)
	}
	assert.Equal(t, draw(), draw())
}

func TestFreeEnergy(t *testing.T) {
	b, _ := NewBinary(2, WithBatchSize(2))
	copy(linalg.Data(b.Activations()), []float32{0, 0, 0, 0})
	fe, err := b.FreeEnergy()
	require.NoError(t, err)
	assert.InDelta(t, -2*math32.Log(2), fe, 1e-6)

	g, _ := NewGaussian(2, WithBatchSize(1), WithVariance(2))
	copy(linalg.Data(g.Activations()), []float32{1, 3})
	fe, err = g.FreeEnergy()
	require.NoError(t, err)
	assert.Equal(t, float32(-10), fe)

	r, _ := NewReLU(2)
	_, err = r.FreeEnergy()
	assert.Equal(t, ErrNoFreeEnergy, err)
}

func TestShapeInput(t *testing.T) {
	t.Run("relu", func(t *testing.T) {
		l, _ := NewReLU(2)
		m := mat(2, 3,
			-4, 0, 2,
			6, 1, -1)
		a, err := l.ShapeInput(m)
		require.NoError(t, err)
		assert.Equal(t, Affine{Offset: -4, Scale: 10}, a)
		min, max := linalg.MinMax(m)
		assert.Equal(t, float32(0), min)
		assert.Equal(t, float32(1), max)

		before := append([]float32(nil), linalg.Data(m)...)
		_, err = l.ShapeInput(m)
		require.NoError(t, err)
		assert.Equal(t, before, linalg.Data(m), "shaping twice must not change the data")

		_, err = l.ShapeInput(mat(1, 3, 5, 5, 5))
		assert.True(t, errs.IsConfig(err))
		_, err = l.ShapeInput(mat(1, 2, 1, math32.Inf(1)))
		assert.True(t, errs.IsConfig(err))
	})

	t.Run("relu wide range", func(t *testing.T) {
		// max - min does not fit a float32
		l, _ := NewReLU(1)
		m := mat(1, 3, -3e38, 0, 3e38)
		_, err := l.ShapeInput(m)
		require.NoError(t, err)
		assert.True(t, linalg.Finite(m), "%v", linalg.Data(m))
		assert.Equal(t, []float32{0, 0.5, 1}, linalg.Data(m))
	})

	t.Run("binary", func(t *testing.T) {
		l, _ := NewBinary(2)
		a, err := l.ShapeInput(mat(1, 3, 0, 0.5, 1))
		assert.NoError(t, err)
		assert.Equal(t, Identity, a)
		_, err = l.ShapeInput(mat(1, 3, 0, 2, 1))
		assert.True(t, errs.IsConfig(err))
		_, err = l.ShapeInput(mat(1, 2, 0, math32.NaN()))
		assert.True(t, errs.IsConfig(err))
		assert.True(t, errs.IsConfig(l.ApplyShape(mat(1, 2, 0, 2), Identity)))
	})

	t.Run("gaussian", func(t *testing.T) {
		l, _ := NewGaussian(2)
		m := mat(2, 2,
			1, 3,
			5, 7)
		a, err := l.ShapeInput(m)
		require.NoError(t, err)
		assert.InDelta(t, 4, a.Offset, 1e-12)
		assert.InDelta(t, math.Sqrt(5), a.Scale, 1e-12)
		var sum, ss float32
		for _, v := range linalg.Data(m) {
			sum += v
			ss += v * v
		}
		assert.InDelta(t, 0, sum/4, 1e-6)
		assert.InDelta(t, 1, ss/4, 1e-5)
		_, err = l.ShapeInput(mat(1, 2, 3, 3))
		assert.True(t, errs.IsConfig(err))
	})
}

func TestApplyShape(t *testing.T) {
	l, _ := NewReLU(1)
	m := mat(1, 3, 0, 5, 15)
	require.NoError(t, l.ApplyShape(m, Affine{Offset: 5, Scale: 10}))
	assert.Equal(t, []float32{-0.5, 0, 1}, linalg.Data(m))

	// overflow leaves the data untouched
	big := mat(1, 2, 1, 1e30)
	assert.True(t, errs.IsConfig(l.ApplyShape(big, Affine{Scale: 1e-30})))
	assert.Equal(t, []float32{1, 1e30}, linalg.Data(big))

	assert.True(t, errs.IsConfig(l.ApplyShape(m, Affine{})), "zero scale")
	assert.True(t, errs.IsConfig(l.ApplyShape(mat(1, 1, math32.NaN()), Identity)))
}

func TestReconstructionCost(t *testing.T) {
	l, _ := NewBinary(2, WithBatchSize(2))
	a := mat(2, 2, 0.1, 0.2, 0.3, 0.4)
	c, err := l.ReconstructionCost(a, a)
	require.NoError(t, err)
	assert.Equal(t, float32(0), c)

	b := mat(2, 2, 1.1, 0.2, 0.3, 2.4)
	c, err = l.ReconstructionCost(a, b)
	require.NoError(t, err)
	// (1 + 4) / 2 columns
	assert.InDelta(t, 2.5, c, 1e-5)
	assert.Equal(t, c, l.Cost())

	_, err = l.ReconstructionCost(a, mat(1, 4, 0, 0, 0, 0))
	assert.True(t, errs.IsConfig(err))
}

func TestSetBatchSize(t *testing.T) {
	l, _ := NewGaussian(3)
	require.NoError(t, l.SetBatchSize(5))
	_, c := linalg.Dims(l.Samples())
	assert.Equal(t, 5, c)
	assert.True(t, errs.IsConfig(l.SetBatchSize(0)))
}
