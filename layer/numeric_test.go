package layer

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
)

func TestSoftplus(t *testing.T) {
	cases := []struct {
		x, want float32
	}{
		{0, math32.Log(2)},
		{1, 1.3132616},
		{-1, 0.31326166},
		{100, 100},
		{-100, math32.Exp(-100)},
	}
	for _, c := range cases {
		got := softplus(c.x)
		assert.InDelta(t, c.want, got, 1e-5, "softplus(%v)", c.x)
		assert.False(t, math32.IsInf(got, 0) || math32.IsNaN(got), "softplus(%v) = %v", c.x, got)
	}
}

func TestSigmoidStable(t *testing.T) {
	for _, x := range []float32{-1e4, -88, -1, 0, 1, 88, 1e4} {
		s := sigmoid(x)
		assert.False(t, math32.IsNaN(s), "sigmoid(%v)", x)
		assert.True(t, s >= 0 && s <= 1, "sigmoid(%v) = %v", x, s)
	}
	assert.Equal(t, float32(0.5), sigmoid(0))
}

func TestProbabilityIsOpen(t *testing.T) {
	for _, x := range []float32{-1e4, -50, 50, 1e4} {
		p := probability(x)
		assert.True(t, p > 0 && p < 1, "probability(%v) = %v", x, p)
	}
}

func TestRectifiedMeanPositive(t *testing.T) {
	for _, x := range []float32{-1e4, -200, -20, 0, 20} {
		assert.True(t, rectifiedMean(x) > 0, "rectifiedMean(%v)", x)
	}
}
