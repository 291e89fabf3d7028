package dataset

import (
	"sort"
	"testing"

	"github.com/gorgonia/dbn/errs"
	"github.com/gorgonia/dbn/internal/linalg"
	"github.com/gorgonia/dbn/layer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromExamples(t *testing.T) {
	d, err := FromExamples([][]float32{
		{1, 2, 3},
		{4, 5, 6},
	}, [][]float32{
		{7, 8, 9},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, d.Nodes())
	assert.Equal(t, 2, d.Samples())
	assert.True(t, d.HasTest())
	assert.Equal(t, []float32{1, 4, 2, 5, 3, 6}, linalg.Data(d.Train))
	assert.Equal(t, []float32{7, 8, 9}, linalg.Data(d.Test))

	_, err = FromExamples([][]float32{{1, 2}, {3}}, nil)
	assert.True(t, errs.IsConfig(err))
	_, err = FromExamples([][]float32{{1, 2}}, [][]float32{{1, 2, 3}})
	assert.True(t, errs.IsConfig(err))
	_, err = FromExamples(nil, nil)
	assert.True(t, errs.IsConfig(err))
}

func TestShape(t *testing.T) {
	d, err := FromExamples([][]float32{{0, 10}, {5, 20}}, nil)
	require.NoError(t, err)
	l, err := layer.NewReLU(2)
	require.NoError(t, err)
	a, err := d.Shape(l)
	require.NoError(t, err)
	assert.Equal(t, layer.Affine{Offset: 0, Scale: 20}, a)
	assert.Equal(t, []float32{0, 0.25, 0.5, 1}, linalg.Data(d.Train))

	small, _ := layer.NewReLU(3)
	_, err = d.Shape(small)
	assert.True(t, errs.IsConfig(err))
}

func TestShapeUsesTrainingScaleForTest(t *testing.T) {
	// a constant test split is fine: it is not fitted on its own
	d, err := FromExamples([][]float32{{0, 10}, {5, 20}}, [][]float32{{10, 10}, {10, 10}})
	require.NoError(t, err)
	l, _ := layer.NewReLU(2)
	_, err = d.Shape(l)
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.5, 0.5, 0.5}, linalg.Data(d.Test))

	// values beyond the training range stay beyond [0,1]
	d, err = FromExamples([][]float32{{0, 10}, {5, 20}}, [][]float32{{-20, 40}})
	require.NoError(t, err)
	_, err = d.Shape(l)
	require.NoError(t, err)
	assert.Equal(t, []float32{-1, 2}, linalg.Data(d.Test))

	// binary test data is still checked
	d, err = FromExamples([][]float32{{0, 1}}, [][]float32{{0, 2}})
	require.NoError(t, err)
	b, _ := layer.NewBinary(2)
	_, err = d.Shape(b)
	assert.True(t, errs.IsConfig(err))
}

func TestBatcher(t *testing.T) {
	examples := make([][]float32, 7)
	for i := range examples {
		examples[i] = []float32{float32(i), float32(-i)}
	}
	d, err := FromExamples(examples, nil)
	require.NoError(t, err)

	_, err = NewBatcher(d.Train, 8, 1, false)
	assert.True(t, errs.IsConfig(err))

	for _, shuffle := range []bool{false, true} {
		b, err := NewBatcher(d.Train, 3, 1, shuffle)
		require.NoError(t, err)
		assert.Equal(t, 2, b.Len())

		dst, _ := linalg.Alloc(2, 3)
		for pass := 0; pass < 2; pass++ {
			var seen []int
			for {
				ok, err := b.Next(dst)
				require.NoError(t, err)
				if !ok {
					break
				}
				row := linalg.Data(dst)
				for j := 0; j < 3; j++ {
					assert.Equal(t, row[j], -row[3+j], "columns must stay intact")
					seen = append(seen, int(row[j]))
				}
			}
			// the partial trailing batch is dropped
			assert.Len(t, seen, 6)
			sort.Ints(seen)
			for i := 1; i < len(seen); i++ {
				assert.NotEqual(t, seen[i-1], seen[i], "sample repeated within a pass")
			}
			if !shuffle {
				assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, seen)
			}
			b.Reset()
		}
	}
}

func TestBatcherSameSeed(t *testing.T) {
	examples := make([][]float32, 20)
	for i := range examples {
		examples[i] = []float32{float32(i)}
	}
	d, _ := FromExamples(examples, nil)
	run := func() []float32 {
		b, err := NewBatcher(d.Train, 5, 99, true)
		require.NoError(t, err)
		var out []float32
		dst, _ := linalg.Alloc(1, 5)
		for ok, _ := b.Next(dst); ok; ok, _ = b.Next(dst) {
			out = append(out, linalg.Data(dst)...)
		}
		return out
	}
	assert.Equal(t, run(), run())
}
