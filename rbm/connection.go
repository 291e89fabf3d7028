package rbm

import (
	"fmt"
	"time"

	"github.com/gorgonia/dbn/errs"
	"github.com/gorgonia/dbn/internal/linalg"
	"github.com/gorgonia/dbn/internal/workpool"
	"github.com/gorgonia/dbn/layer"
	rng "github.com/leesper/go_rng"
	"gorgonia.org/tensor"
	"gorgonia.org/vecf32"
)

// Gradient is the CD estimate of the log-likelihood gradient of one
// connection. Weights is hidden × visible.
type Gradient struct {
	Weights *tensor.Dense
	Visible *tensor.Dense
	Hidden  *tensor.Dense
}

// Finite reports whether every component is free of NaN and Inf.
func (g *Gradient) Finite() bool {
	return linalg.Finite(g.Weights) && linalg.Finite(g.Visible) && linalg.Finite(g.Hidden)
}

func newGradient(hidden, visible int) (*Gradient, error) {
	w, err := linalg.Alloc(hidden, visible)
	if err != nil {
		return nil, err
	}
	vb, err := linalg.Vector(visible)
	if err != nil {
		return nil, err
	}
	hb, err := linalg.Vector(hidden)
	if err != nil {
		return nil, err
	}
	return &Gradient{Weights: w, Visible: vb, Hidden: hb}, nil
}

type connConfig struct {
	index int
	seed  int64
	scale float32
	pool  *workpool.Pool
}

// ConnOpt configures a Connection.
type ConnOpt func(*connConfig)

// WithIndex records the position of the connection in its stack. It is
// reported in Stats.
func WithIndex(i int) ConnOpt { return func(c *connConfig) { c.index = i } }

// WithSeed seeds the weight initialisation.
func WithSeed(seed int64) ConnOpt { return func(c *connConfig) { c.seed = seed } }

// WithInitScale sets the standard deviation of the initial weights. The default is 0.01.
func WithInitScale(s float32) ConnOpt { return func(c *connConfig) { c.scale = s } }

// WithPool runs the parameter updates on a worker pool.
func WithPool(p *workpool.Pool) ConnOpt { return func(c *connConfig) { c.pool = p } }

// Connection is the weighted, fully connected link between a visible and a
// hidden layer. It does not own the layers.
type Connection struct {
	index           int
	visible, hidden layer.Layer

	w, vb, hb    *tensor.Dense
	dw, dvb, dhb *tensor.Dense // momentum

	grad *Gradient
	pool *workpool.Pool
}

// NewConnection creates a connection between visible and hidden, with small
// random weights and zero biases.
func NewConnection(visible, hidden layer.Layer, opts ...ConnOpt) (*Connection, error) {
	if visible == nil || hidden == nil {
		return nil, errs.Configf("a connection needs two layers")
	}
	conf := connConfig{
		seed:  time.Now().UnixNano(),
		scale: 0.01,
	}
	for _, opt := range opts {
		opt(&conf)
	}
	if conf.scale < 0 {
		return nil, errs.Configf("initial weight scale must not be negative, got %v", conf.scale)
	}

	h, v := hidden.Nodes(), visible.Nodes()
	c := &Connection{
		index:   conf.index,
		visible: visible,
		hidden:  hidden,
		pool:    conf.pool,
	}
	var err error
	if c.grad, err = newGradient(h, v); err != nil {
		return nil, err
	}
	if c.dw, c.dvb, c.dhb, err = allocParams(h, v); err != nil {
		return nil, err
	}
	if c.w, c.vb, c.hb, err = allocParams(h, v); err != nil {
		return nil, err
	}

	g := rng.NewGaussianGenerator(conf.seed)
	w := linalg.Data(c.w)
	for i := range w {
		w[i] = float32(g.Gaussian(0, float64(conf.scale)))
	}
	return c, nil
}

func allocParams(h, v int) (w, vb, hb *tensor.Dense, err error) {
	g, err := newGradient(h, v)
	if err != nil {
		return nil, nil, nil, err
	}
	return g.Weights, g.Visible, g.Hidden, nil
}

func (c *Connection) Index() int                 { return c.index }
func (c *Connection) Visible() layer.Layer       { return c.visible }
func (c *Connection) Hidden() layer.Layer        { return c.hidden }
func (c *Connection) Weights() *tensor.Dense     { return c.w }
func (c *Connection) VisibleBias() *tensor.Dense { return c.vb }
func (c *Connection) HiddenBias() *tensor.Dense  { return c.hb }
func (c *Connection) Velocity() *tensor.Dense    { return c.dw }
func (c *Connection) Pool() *workpool.Pool       { return c.pool }

func (c *Connection) String() string {
	return fmt.Sprintf("%v(%d) → %v(%d)", c.visible.Kind(), c.visible.Nodes(), c.hidden.Kind(), c.hidden.Nodes())
}

func (c *Connection) checkBatch() error {
	if vb, hb := c.visible.BatchSize(), c.hidden.BatchSize(); vb != hb {
		return errs.Configf("visible batch size %d does not match hidden batch size %d", vb, hb)
	}
	return nil
}

// PropagateUp sets the hidden activations to W · visible samples + hidden bias.
func (c *Connection) PropagateUp() error {
	if err := c.checkBatch(); err != nil {
		return err
	}
	act := c.hidden.Activations()
	if err := linalg.Mul(act, c.w, c.visible.Samples()); err != nil {
		return err
	}
	return linalg.AddColumn(act, c.hb)
}

// PropagateDown sets the visible activations to Wᵀ · hidden samples + visible bias.
func (c *Connection) PropagateDown() error {
	if err := c.checkBatch(); err != nil {
		return err
	}
	act := c.visible.Activations()
	if err := linalg.MulTransA(act, c.w, c.hidden.Samples()); err != nil {
		return err
	}
	return linalg.AddColumn(act, c.vb)
}

// ComputeGradient fills the connection's gradient buffer with
//
//	dW  = (posH · posVᵀ - negH · negVᵀ) / batch
//	dvb = mean(posV - negV)
//	dhb = mean(posH - negH)
//
// and returns it. The buffer is reused by the next call.
func (c *Connection) ComputeGradient(posV, posH, negV, negH *tensor.Dense) (*Gradient, error) {
	if !linalg.SameShape(posV, negV) || !linalg.SameShape(posH, negH) {
		return nil, errs.Configf("phase shapes differ: visible %v/%v, hidden %v/%v", posV.Shape(), negV.Shape(), posH.Shape(), negH.Shape())
	}
	_, n := linalg.Dims(posV)
	g := c.grad
	if err := linalg.MulTransB(g.Weights, posH, posV); err != nil {
		return nil, err
	}
	h, v := linalg.Dims(g.Weights)
	neg := linalg.Borrow(h, v)
	defer linalg.Return(neg)
	if err := linalg.MulTransB(neg, negH, negV); err != nil {
		return nil, err
	}
	if err := linalg.ScaledDiff(g.Weights, neg, 1/float32(n)); err != nil {
		return nil, err
	}
	if err := linalg.RowMeans(g.Visible, posV, 1, 0); err != nil {
		return nil, err
	}
	if err := linalg.RowMeans(g.Visible, negV, -1, 1); err != nil {
		return nil, err
	}
	if err := linalg.RowMeans(g.Hidden, posH, 1, 0); err != nil {
		return nil, err
	}
	if err := linalg.RowMeans(g.Hidden, negH, -1, 1); err != nil {
		return nil, err
	}
	return g, nil
}

// Decay subtracts lambda·W from the weight gradient. Biases are not decayed.
func (c *Connection) Decay(g *Gradient, lambda float32) {
	if lambda == 0 {
		return
	}
	_, cols := linalg.Dims(c.w)
	gw, w := linalg.Data(g.Weights), linalg.Data(c.w)
	c.pool.Rows(c.hidden.Nodes(), func(lo, hi int) {
		for i := lo * cols; i < hi*cols; i++ {
			gw[i] -= lambda * w[i]
		}
	})
}

// ApplyUpdate moves the parameters along g:
//
//	step = momentum·step + rate·g
//	W   += step
func (c *Connection) ApplyUpdate(g *Gradient, rate, momentum float32) error {
	if !linalg.SameShape(g.Weights, c.w) || !linalg.SameShape(g.Visible, c.vb) || !linalg.SameShape(g.Hidden, c.hb) {
		return errs.Configf("gradient shape %v does not match weights %v", g.Weights.Shape(), c.w.Shape())
	}
	c.step(c.w, c.dw, g.Weights, rate, momentum)
	c.step(c.vb, c.dvb, g.Visible, rate, momentum)
	c.step(c.hb, c.dhb, g.Hidden, rate, momentum)
	return nil
}

// step updates param one row chunk per worker. A bias vector is a column.
func (c *Connection) step(param, velocity, grad *tensor.Dense, rate, momentum float32) {
	rows, cols := linalg.Dims(param)
	p, v, g := linalg.Data(param), linalg.Data(velocity), linalg.Data(grad)
	c.pool.Rows(rows, func(lo, hi int) {
		lo, hi = lo*cols, hi*cols
		vv := v[lo:hi]
		vecf32.Scale(vv, momentum)
		for i, gi := range g[lo:hi] {
			vv[i] += rate * gi
		}
		vecf32.Add(p[lo:hi], vv)
	})
}

// Up computes W · x + hidden bias for any number of columns of x. The result
// is a freshly allocated matrix of hidden activations; the hidden layer's own
// buffers are not touched.
func (c *Connection) Up(x *tensor.Dense) (*tensor.Dense, error) {
	rows, cols := linalg.Dims(x)
	if rows != c.visible.Nodes() {
		return nil, errs.Configf("input has %d rows, visible layer has %d nodes", rows, c.visible.Nodes())
	}
	retVal, err := linalg.Alloc(c.hidden.Nodes(), cols)
	if err != nil {
		return nil, err
	}
	if err = linalg.Mul(retVal, c.w, x); err != nil {
		return nil, err
	}
	if err = linalg.AddColumn(retVal, c.hb); err != nil {
		return nil, err
	}
	return retVal, nil
}

// SetParams copies w, vb and hb into the connection and clears the momentum
// and the gradient buffer.
func (c *Connection) SetParams(w, vb, hb *tensor.Dense) error {
	if !linalg.SameShape(w, c.w) {
		return errs.Configf("weights %v do not fit a %v connection", w.Shape(), c.w.Shape())
	}
	if !linalg.SameShape(vb, c.vb) || !linalg.SameShape(hb, c.hb) {
		return errs.Configf("biases %v, %v do not fit a %v connection", vb.Shape(), hb.Shape(), c.w.Shape())
	}
	for _, p := range [][2]*tensor.Dense{{c.w, w}, {c.vb, vb}, {c.hb, hb}} {
		if err := linalg.Copy(p[0], p[1]); err != nil {
			return err
		}
	}
	for _, m := range []*tensor.Dense{c.dw, c.dvb, c.dhb, c.grad.Weights, c.grad.Visible, c.grad.Hidden} {
		m.Zero()
	}
	return nil
}
