// Package dataset holds the training and held-out matrices a network is
// trained on. Both are laid out nodes × samples: one column per example.
package dataset

import (
	"github.com/gorgonia/dbn/errs"
	"github.com/gorgonia/dbn/internal/linalg"
	"github.com/gorgonia/dbn/layer"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// DataSet is a training split and an optional test split with the same
// number of rows.
type DataSet struct {
	Train *tensor.Dense
	Test  *tensor.Dense
}

// New wraps existing matrices. test may be nil.
func New(train, test *tensor.Dense) (*DataSet, error) {
	if train == nil {
		return nil, errs.Configf("a dataset needs a training split")
	}
	for _, m := range []*tensor.Dense{train, test} {
		if m == nil {
			continue
		}
		if !linalg.IsFloat32(m) || len(m.Shape()) != 2 {
			return nil, errs.Configf("dataset matrices must be 2D float32, got %v of %v", m.Shape(), m.Dtype())
		}
	}
	if test != nil {
		tr, _ := linalg.Dims(train)
		te, _ := linalg.Dims(test)
		if tr != te {
			return nil, errs.Configf("train has %d nodes but test has %d", tr, te)
		}
	}
	return &DataSet{Train: train, Test: test}, nil
}

// FromExamples builds a dataset from example rows, one slice per sample.
// Every example must have the same length. test may be empty.
func FromExamples(train, test [][]float32) (*DataSet, error) {
	tr, err := columns(train)
	if err != nil {
		return nil, errors.WithMessage(err, "train")
	}
	var te *tensor.Dense
	if len(test) > 0 {
		if te, err = columns(test); err != nil {
			return nil, errors.WithMessage(err, "test")
		}
	}
	return New(tr, te)
}

func columns(examples [][]float32) (*tensor.Dense, error) {
	if len(examples) == 0 {
		return nil, errs.Configf("no examples")
	}
	nodes := len(examples[0])
	rows, err := linalg.Alloc(len(examples), nodes)
	if err != nil {
		return nil, err
	}
	d := linalg.Data(rows)
	for j, ex := range examples {
		if len(ex) != nodes {
			return nil, errs.Configf("example %d has %d values, expected %d", j, len(ex), nodes)
		}
		copy(d[j*nodes:], ex)
	}
	return linalg.Transpose(rows)
}

// Nodes is the number of values in one example.
func (d *DataSet) Nodes() int {
	r, _ := linalg.Dims(d.Train)
	return r
}

// Samples is the number of training examples.
func (d *DataSet) Samples() int {
	_, c := linalg.Dims(d.Train)
	return c
}

// HasTest reports whether the dataset has a held-out split.
func (d *DataSet) HasTest() bool { return d.Test != nil }

// Shape preprocesses both splits in place with the input layer's shaping
// rule. The transform is fitted on the training split only and replayed on
// the test split, so both end up on the same scale.
func (d *DataSet) Shape(l layer.Layer) (layer.Affine, error) {
	if l.Nodes() != d.Nodes() {
		return layer.Identity, errs.Configf("input layer has %d nodes, data has %d", l.Nodes(), d.Nodes())
	}
	a, err := l.ShapeInput(d.Train)
	if err != nil {
		return a, errors.WithMessage(err, "shaping train")
	}
	if d.Test != nil {
		if err := l.ApplyShape(d.Test, a); err != nil {
			return a, errors.WithMessage(err, "shaping test")
		}
	}
	return a, nil
}
