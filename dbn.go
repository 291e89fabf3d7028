// Package dbn assembles layers and connections into a deep belief network
// and trains it greedily, one connection at a time, with contrastive
// divergence.
package dbn

import (
	"bytes"
	"context"
	"fmt"
	"log"

	"github.com/c2h5oh/datasize"
	"github.com/gorgonia/dbn/dataset"
	"github.com/gorgonia/dbn/errs"
	"github.com/gorgonia/dbn/internal/logbuf"
	"github.com/gorgonia/dbn/internal/workpool"
	"github.com/gorgonia/dbn/layer"
	"github.com/gorgonia/dbn/rbm"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// DBN is a stack of layers joined by connections. Layer i is the visible
// layer of connection i and the hidden layer of connection i-1.
type DBN struct {
	Config

	layers  []layer.Layer
	conns   []*rbm.Connection
	teacher *rbm.CD
	pool    *workpool.Pool

	buf    logbuf.Buffer
	logger *log.Logger

	input layer.Affine
}

// New allocates a network. All random state is derived from conf.Seed.
func New(conf Config) (*DBN, error) {
	if !conf.IsValid() {
		return nil, errs.Configf("invalid network configuration %+v", conf)
	}
	d := &DBN{Config: conf, input: layer.Identity}
	d.logger = log.New(&d.buf, "", log.Ltime)
	if conf.Workers != 1 {
		d.pool = workpool.New(conf.Workers)
	}

	var err error
	if d.teacher, err = rbm.New(conf.Train); err != nil {
		d.Close()
		return nil, err
	}
	for i, lc := range conf.Layers {
		opts := []layer.Opt{
			layer.WithBatchSize(conf.Train.BatchSize),
			layer.WithSeed(conf.Seed + int64(100*i)),
			layer.WithPool(d.pool),
		}
		if lc.Variance > 0 {
			opts = append(opts, layer.WithVariance(lc.Variance))
		}
		l, err := layer.New(lc.Kind, lc.Nodes, opts...)
		if err != nil {
			d.Close()
			return nil, errors.WithMessage(err, fmt.Sprintf("layer %d", i))
		}
		d.layers = append(d.layers, l)
	}
	for i := 0; i+1 < len(d.layers); i++ {
		c, err := rbm.NewConnection(d.layers[i], d.layers[i+1],
			rbm.WithIndex(i),
			rbm.WithSeed(conf.Seed+int64(100*i+50)),
			rbm.WithInitScale(conf.InitScale),
			rbm.WithPool(d.pool),
		)
		if err != nil {
			d.Close()
			return nil, errors.WithMessage(err, fmt.Sprintf("connection %d", i))
		}
		d.conns = append(d.conns, c)
	}
	return d, nil
}

func (d *DBN) Layers() []layer.Layer          { return d.layers }
func (d *DBN) Connections() []*rbm.Connection { return d.conns }
func (d *DBN) Teacher() *rbm.CD               { return d.teacher }
func (d *DBN) Log() string                    { return d.buf.String() }

// InputShape is the transform Learn fitted on the training data. Apply it to
// raw data before calling Up.
func (d *DBN) InputShape() layer.Affine { return d.input }

// Learn shapes data with the bottom layer and then trains every connection
// in turn, bottom up. Connection i is trained on the expectations of layer i
// given the data. A stop request ends training of the whole stack.
func (d *DBN) Learn(ctx context.Context, data *dataset.DataSet, mon rbm.Monitor) error {
	a, err := data.Shape(d.layers[0])
	if err != nil {
		return err
	}
	d.input = a
	d.logger.Printf("input shaped with %+v", a)
	input := data
	for i, c := range d.conns {
		if i > 0 {
			if input, err = d.lift(i, input); err != nil {
				return errors.WithMessage(err, fmt.Sprintf("preparing input of connection %d", i))
			}
		}
		d.logger.Printf("training connection %d: %v", i, c)
		if err := d.teacher.Train(ctx, c, input, mon); err != nil {
			return errors.WithMessage(err, fmt.Sprintf("training connection %d", i))
		}
		if d.teacher.Stopped() {
			d.logger.Printf("stopped during connection %d", i)
			return nil
		}
	}
	return nil
}

// lift maps the input of connection i-1 to the input of connection i.
func (d *DBN) lift(i int, in *dataset.DataSet) (*dataset.DataSet, error) {
	train, err := d.step(i-1, in.Train)
	if err != nil {
		return nil, err
	}
	var test *tensor.Dense
	if in.Test != nil {
		if test, err = d.step(i-1, in.Test); err != nil {
			return nil, err
		}
	}
	return dataset.New(train, test)
}

func (d *DBN) step(i int, x *tensor.Dense) (*tensor.Dense, error) {
	h, err := d.conns[i].Up(x)
	if err != nil {
		return nil, err
	}
	d.layers[i+1].Transform(h)
	return h, nil
}

// Up returns the expectations of layer depth for the columns of x, which
// must already be shaped like the training data. Depth 0 returns a copy of x.
func (d *DBN) Up(x *tensor.Dense, depth int) (*tensor.Dense, error) {
	if depth < 0 || depth >= len(d.layers) {
		return nil, errs.Configf("depth %d out of range [0, %d)", depth, len(d.layers))
	}
	cur := x.Clone().(*tensor.Dense)
	for i := 0; i < depth; i++ {
		next, err := d.step(i, cur)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

// Close stops the worker pool.
func (d *DBN) Close() error { return d.pool.Close() }

// Bytes is the memory held by the network's matrices.
func (d *DBN) Bytes() datasize.ByteSize {
	const f32 = 4
	var n int
	for _, l := range d.layers {
		n += 3 * l.Nodes() * l.BatchSize()
	}
	for _, c := range d.conns {
		v, h := c.Visible().Nodes(), c.Hidden().Nodes()
		// parameters, momentum and gradient
		n += 3 * (h*v + h + v)
	}
	return datasize.ByteSize(n * f32)
}

func (d *DBN) String() string {
	var buf bytes.Buffer
	for i, l := range d.layers {
		if i > 0 {
			buf.WriteString(" → ")
		}
		fmt.Fprintf(&buf, "%v(%d)", l.Kind(), l.Nodes())
	}
	fmt.Fprintf(&buf, " [%s]", d.Bytes().HumanReadable())
	return buf.String()
}
