package dbn

import (
	"bytes"
	"encoding/gob"
	"os"

	"github.com/gorgonia/dbn/errs"
	"github.com/gorgonia/dbn/layer"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// GobEncode writes the topology and the input transform, followed by the
// weights and biases of every connection. Momentum is not saved.
func (d *DBN) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(d.topology()); err != nil {
		return nil, err
	}
	if err := enc.Encode(d.input); err != nil {
		return nil, err
	}
	for _, c := range d.conns {
		for _, m := range []*tensor.Dense{c.Weights(), c.VisibleBias(), c.HiddenBias()} {
			if err := enc.Encode(m); err != nil {
				return nil, err
			}
		}
	}
	return buf.Bytes(), nil
}

// GobDecode restores weights written by GobEncode into a network that has
// already been created with the same topology.
func (d *DBN) GobDecode(p []byte) error {
	dec := gob.NewDecoder(bytes.NewBuffer(p))
	var topo []LayerConf
	if err := dec.Decode(&topo); err != nil {
		return errors.WithStack(err)
	}
	if !sameTopology(topo, d.topology()) {
		return errs.Configf("checkpoint topology %v does not match network %v", topo, d.topology())
	}
	var input layer.Affine
	if err := dec.Decode(&input); err != nil {
		return errors.Wrap(err, "input transform")
	}
	for i, c := range d.conns {
		var w, vb, hb tensor.Dense
		for _, m := range []*tensor.Dense{&w, &vb, &hb} {
			if err := dec.Decode(m); err != nil {
				return errors.Wrapf(err, "connection %d", i)
			}
		}
		if err := c.SetParams(&w, &vb, &hb); err != nil {
			return errors.WithMessage(err, "restoring checkpoint")
		}
	}
	d.input = input
	return nil
}

func (d *DBN) topology() []LayerConf {
	retVal := make([]LayerConf, len(d.layers))
	for i, l := range d.layers {
		retVal[i] = LayerConf{Kind: l.Kind(), Nodes: l.Nodes()}
	}
	return retVal
}

func sameTopology(a, b []LayerConf) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Kind != b[i].Kind || a[i].Nodes != b[i].Nodes {
			return false
		}
	}
	return true
}

// Save writes a checkpoint to filename.
func (d *DBN) Save(filename string) error {
	f, err := os.OpenFile(filename, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return errors.WithStack(err)
	}
	defer f.Close()

	enc := gob.NewEncoder(f)
	if err = enc.Encode(d); err != nil {
		return errors.WithStack(err)
	}
	return f.Sync()
}

// Load restores a checkpoint written by Save.
func (d *DBN) Load(filename string) error {
	f, err := os.Open(filename)
	if err != nil {
		return errors.WithStack(err)
	}
	defer f.Close()

	dec := gob.NewDecoder(f)
	return dec.Decode(d)
}
