package layer

import (
	"github.com/gorgonia/dbn/errs"
	"github.com/gorgonia/dbn/internal/linalg"
	"gorgonia.org/tensor"
)

// BinaryLayer is a layer of Bernoulli units.
type BinaryLayer struct {
	*base
}

// NewBinary creates a layer of nodes Bernoulli units.
func NewBinary(nodes int, opts ...Opt) (*BinaryLayer, error) {
	b, _, err := newBase(Binary, nodes, opts)
	if err != nil {
		return nil, err
	}
	return &BinaryLayer{b}, nil
}

// Expect computes the clamped logistic of the activations.
func (l *BinaryLayer) Expect() { l.expect(probability) }

func (l *BinaryLayer) Transform(m *tensor.Dense) { l.transform(m, probability) }

// Sample draws each unit on or off with its expected probability.
func (l *BinaryLayer) Sample() {
	exp := linalg.Data(l.exp)
	samp := linalg.Data(l.samp)
	for i, p := range exp {
		if l.bern.Bernoulli_P(float64(p)) {
			samp[i] = 1
		} else {
			samp[i] = 0
		}
	}
}

// FreeEnergy returns -Σ softplus(a), averaged over the batch.
func (l *BinaryLayer) FreeEnergy() (float32, error) {
	var sum float32
	for _, a := range linalg.Data(l.act) {
		sum -= softplus(a)
	}
	return sum / float32(l.batch), nil
}

// ShapeInput checks that every value is a probability. Data is left as is.
func (l *BinaryLayer) ShapeInput(m *tensor.Dense) (Affine, error) {
	return Identity, checkProbabilities(m)
}

// ApplyShape replays a on m and checks that every result is a probability.
func (l *BinaryLayer) ApplyShape(m *tensor.Dense, a Affine) error {
	if err := l.base.ApplyShape(m, a); err != nil {
		return err
	}
	return checkProbabilities(m)
}

func checkProbabilities(m *tensor.Dense) error {
	for i, v := range linalg.Data(m) {
		if !(v >= 0 && v <= 1) {
			return errs.Configf("binary input %d is %v, want a value in [0,1]", i, v)
		}
	}
	return nil
}
