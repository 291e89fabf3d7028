package layer

import (
	"github.com/chewxy/math32"
	"github.com/gorgonia/dbn/errs"
	"github.com/gorgonia/dbn/internal/linalg"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// ErrNoFreeEnergy is returned by layers whose free energy has no closed form.
var ErrNoFreeEnergy = errors.New("free energy is not available for this unit kind")

// ReLULayer is a layer of noisy rectified linear units.
type ReLULayer struct {
	*base
}

// NewReLU creates a layer of nodes rectified linear units.
func NewReLU(nodes int, opts ...Opt) (*ReLULayer, error) {
	b, _, err := newBase(RectifiedLinear, nodes, opts)
	if err != nil {
		return nil, err
	}
	return &ReLULayer{b}, nil
}

// Expect computes softplus of the activations. The result is strictly
// positive even where exp underflows.
func (l *ReLULayer) Expect() { l.expect(rectifiedMean) }

func (l *ReLULayer) Transform(m *tensor.Dense) { l.transform(m, rectifiedMean) }

// Sample adds noise with standard deviation sigmoid(e) to each expectation
// and rectifies the result.
func (l *ReLULayer) Sample() {
	exp := linalg.Data(l.exp)
	samp := linalg.Data(l.samp)
	for i, e := range exp {
		samp[i] = math32.Max(0, e+l.gaussian(0, sigmoid(e)))
	}
}

func (l *ReLULayer) FreeEnergy() (float32, error) { return 0, ErrNoFreeEnergy }

// ShapeInput rescales m so that its smallest entry is 0 and its largest is 1.
// The range is taken in float64, so it cannot overflow.
func (l *ReLULayer) ShapeInput(m *tensor.Dense) (Affine, error) {
	if !linalg.Finite(m) {
		return Identity, errs.Configf("rectified linear input contains non-finite values")
	}
	min, max := linalg.MinMax(m)
	if max == min {
		return Identity, errs.Configf("rectified linear input is constant (%v)", min)
	}
	a := Affine{Offset: float64(min), Scale: float64(max) - float64(min)}
	return a, a.Apply(m)
}
