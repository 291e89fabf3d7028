package layer

import (
	"math"

	"github.com/chewxy/math32"
	"github.com/gorgonia/dbn/errs"
	"github.com/gorgonia/dbn/internal/linalg"
	"gorgonia.org/tensor"
)

// GaussianLayer is a layer of linear units with fixed variance.
type GaussianLayer struct {
	*base
	variance float32
	stddev   float32
}

// NewGaussian creates a layer of nodes Gaussian units. Use WithVariance to
// change the unit variance.
func NewGaussian(nodes int, opts ...Opt) (*GaussianLayer, error) {
	b, conf, err := newBase(Gaussian, nodes, opts)
	if err != nil {
		return nil, err
	}
	return &GaussianLayer{
		base:     b,
		variance: conf.variance,
		stddev:   math32.Sqrt(conf.variance),
	}, nil
}

// Variance returns the fixed variance of the units.
func (l *GaussianLayer) Variance() float32 { return l.variance }

func (l *GaussianLayer) Expect() { l.expect(identity) }

// Transform is the identity.
func (l *GaussianLayer) Transform(m *tensor.Dense) {}

func (l *GaussianLayer) Sample() {
	exp := linalg.Data(l.exp)
	samp := linalg.Data(l.samp)
	for i, e := range exp {
		samp[i] = l.gaussian(e, l.stddev)
	}
}

// FreeEnergy returns -Σ variance·a²/2, averaged over the batch.
func (l *GaussianLayer) FreeEnergy() (float32, error) {
	var sum float32
	for _, a := range linalg.Data(l.act) {
		sum -= l.variance * a * a / 2
	}
	return sum / float32(l.batch), nil
}

// ShapeInput standardises m to zero mean and unit variance over all entries.
func (l *GaussianLayer) ShapeInput(m *tensor.Dense) (Affine, error) {
	d := linalg.Data(m)
	if len(d) == 0 {
		return Identity, errs.Configf("cannot shape an empty matrix")
	}
	if !linalg.Finite(m) {
		return Identity, errs.Configf("gaussian input contains non-finite values")
	}
	n := float64(len(d))
	var mean, ss float64
	for _, v := range d {
		mean += float64(v)
	}
	mean /= n
	for _, v := range d {
		x := float64(v) - mean
		ss += x * x
	}
	std := math.Sqrt(ss / n)
	if std == 0 {
		return Identity, errs.Configf("gaussian input has zero variance")
	}
	a := Affine{Offset: mean, Scale: std}
	return a, a.Apply(m)
}
