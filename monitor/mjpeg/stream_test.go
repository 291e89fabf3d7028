package mjpeg

import (
	"testing"

	"github.com/gorgonia/dbn/monitor"
	"github.com/gorgonia/dbn/rbm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"
)

var _ monitor.Sink = &Stream{}

func TestStreamFollowsFocus(t *testing.T) {
	rec := monitor.New()
	s := New(rec, 2)
	rec.AddSink(s)

	w := tensor.New(tensor.WithShape(2, 3), tensor.WithBacking([]float32{0, 1, 2, 3, 4, 5}))
	rec.Record(rbm.Stats{Connection: 0, Weights: w})
	rec.Record(rbm.Stats{Connection: 1, Weights: w})
	rec.Record(rbm.Stats{Connection: 0})
	assert.Equal(t, 1, s.Frames())

	rec.MoveUp()
	rec.Record(rbm.Stats{Connection: 1, Weights: w})
	assert.Equal(t, 2, s.Frames())
	assert.NotContains(t, rec.Log(), "mjpeg")
	require.NoError(t, s.Flush())
}
