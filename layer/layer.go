// Package layer implements the stochastic unit layers of a deep belief
// network.
//
// A layer owns three nodes × batch matrices that are overwritten in place on
// every Gibbs step: the activations (the inputs to the units), the
// expectations (the deterministic mean of each unit's distribution given its
// activation) and the samples (a stochastic draw from that distribution).
// Expect must always run before Sample, because samples are drawn from the
// expectations and not from the raw activations.
//
// The unit law is chosen by Kind:
//
//	Binary           expectation sigmoid(a)     sample Bernoulli(e)
//	Gaussian         expectation a              sample N(e, variance)
//	RectifiedLinear  expectation softplus(a)    sample max(0, e + N(0, sigmoid(e)))
package layer

import (
	"time"

	"github.com/gorgonia/dbn/errs"
	"github.com/gorgonia/dbn/internal/linalg"
	"github.com/gorgonia/dbn/internal/workpool"
	rng "github.com/leesper/go_rng"
	"gorgonia.org/tensor"
)

// Teacher is the view of the training algorithm that a layer may consult in
// its Update hook.
type Teacher interface {
	Rate() float32
}

// Layer is a set of stochastic units of one Kind.
type Layer interface {
	Kind() Kind
	Nodes() int
	BatchSize() int

	// SetBatchSize reallocates the layer matrices for a new batch size. It
	// must not be called while a batch is being processed.
	SetBatchSize(n int) error

	Activations() *tensor.Dense
	Expectations() *tensor.Dense
	Samples() *tensor.Dense

	// Expect recomputes the expectations from the activations.
	Expect()

	// Transform applies the expectation nonlinearity to m in place.
	Transform(m *tensor.Dense)

	// Sample draws new samples from the expectations.
	Sample()

	// Update is called by the teacher once a batch has been processed.
	Update(t Teacher)

	// FreeEnergy returns this layer's additive term of the free energy,
	// averaged over the batch, computed from the current activations.
	FreeEnergy() (float32, error)

	// ShapeInput preprocesses a raw nodes × samples data matrix in place
	// and returns the transform it applied.
	ShapeInput(m *tensor.Dense) (Affine, error)

	// ApplyShape replays a transform returned by ShapeInput on m and checks
	// that the result is valid input for the layer.
	ApplyShape(m *tensor.Dense, a Affine) error

	// ReconstructionCost returns the summed squared error between data and
	// model divided by the number of columns, and stores it in the layer.
	ReconstructionCost(data, model *tensor.Dense) (float32, error)

	// Cost returns the last value computed by ReconstructionCost.
	Cost() float32
}

type config struct {
	batch    int
	seed     int64
	variance float32
	pool     *workpool.Pool
}

// Opt configures a layer.
type Opt func(*config)

// WithBatchSize sets the number of columns of the layer matrices. The default is 1.
func WithBatchSize(n int) Opt { return func(c *config) { c.batch = n } }

// WithSeed seeds the layer's random number generators.
func WithSeed(seed int64) Opt { return func(c *config) { c.seed = seed } }

// WithVariance sets the fixed variance of Gaussian units. The default is 1.
func WithVariance(v float32) Opt { return func(c *config) { c.variance = v } }

// WithPool runs the elementwise transforms on a worker pool.
func WithPool(p *workpool.Pool) Opt { return func(c *config) { c.pool = p } }

// New creates a layer of the given kind.
func New(kind Kind, nodes int, opts ...Opt) (Layer, error) {
	switch kind {
	case Binary:
		return NewBinary(nodes, opts...)
	case Gaussian:
		return NewGaussian(nodes, opts...)
	case RectifiedLinear:
		return NewReLU(nodes, opts...)
	}
	return nil, errs.Configf("unknown unit kind %d", int(kind))
}

// base holds everything the three unit kinds have in common.
type base struct {
	kind  Kind
	nodes int
	batch int

	act, exp, samp *tensor.Dense
	cost           float32

	gauss *rng.GaussianGenerator
	bern  *rng.BernoulliGenerator
	pool  *workpool.Pool
}

func newBase(kind Kind, nodes int, opts []Opt) (*base, config, error) {
	conf := config{
		batch:    1,
		seed:     time.Now().UnixNano(),
		variance: 1,
	}
	for _, opt := range opts {
		opt(&conf)
	}
	if nodes <= 0 {
		return nil, conf, errs.Configf("%v layer needs at least one node, got %d", kind, nodes)
	}
	if conf.variance <= 0 {
		return nil, conf, errs.Configf("%v layer variance must be positive, got %v", kind, conf.variance)
	}

	l := &base{
		kind:  kind,
		nodes: nodes,
		gauss: rng.NewGaussianGenerator(conf.seed),
		bern:  rng.NewBernoulliGenerator(conf.seed + 1),
		pool:  conf.pool,
	}
	if err := l.SetBatchSize(conf.batch); err != nil {
		return nil, conf, err
	}
	return l, conf, nil
}

func (l *base) Kind() Kind                  { return l.kind }
func (l *base) Nodes() int                  { return l.nodes }
func (l *base) BatchSize() int              { return l.batch }
func (l *base) Activations() *tensor.Dense  { return l.act }
func (l *base) Expectations() *tensor.Dense { return l.exp }
func (l *base) Samples() *tensor.Dense      { return l.samp }
func (l *base) Cost() float32               { return l.cost }

// Update is a no-op hook.
func (l *base) Update(t Teacher) {}

func (l *base) SetBatchSize(n int) error {
	if n == l.batch && l.act != nil {
		return nil
	}
	if n <= 0 {
		return errs.Configf("batch size must be positive, got %d", n)
	}
	var act, exp, samp *tensor.Dense
	var err error
	if act, err = linalg.Alloc(l.nodes, n); err != nil {
		return err
	}
	if exp, err = linalg.Alloc(l.nodes, n); err != nil {
		return err
	}
	if samp, err = linalg.Alloc(l.nodes, n); err != nil {
		return err
	}
	l.act, l.exp, l.samp = act, exp, samp
	l.batch = n
	return nil
}

func (l *base) ApplyShape(m *tensor.Dense, a Affine) error {
	if !linalg.Finite(m) {
		return errs.Configf("%v input contains non-finite values", l.kind)
	}
	return a.Apply(m)
}

func (l *base) ReconstructionCost(data, model *tensor.Dense) (float32, error) {
	if !linalg.SameShape(data, model) {
		return 0, errs.Configf("reconstruction cost of %v against %v", data.Shape(), model.Shape())
	}
	_, cols := linalg.Dims(data)
	m := linalg.Data(model)
	var sum float32
	for i, d := range linalg.Data(data) {
		diff := d - m[i]
		sum += diff * diff
	}
	l.cost = sum / float32(cols)
	return l.cost, nil
}

// expect writes f(activations) into expectations, one row chunk per worker.
func (l *base) expect(f func(float32) float32) {
	src := linalg.Data(l.act)
	dst := linalg.Data(l.exp)
	cols := l.batch
	l.pool.Rows(l.nodes, func(lo, hi int) {
		for i := lo * cols; i < hi*cols; i++ {
			dst[i] = f(src[i])
		}
	})
}

func (l *base) transform(m *tensor.Dense, f func(float32) float32) {
	rows, cols := linalg.Dims(m)
	d := linalg.Data(m)
	l.pool.Rows(rows, func(lo, hi int) {
		for i := lo * cols; i < hi*cols; i++ {
			d[i] = f(d[i])
		}
	})
}

// gaussian draws from N(mean, stddev²).
func (l *base) gaussian(mean, stddev float32) float32 {
	return float32(l.gauss.Gaussian(float64(mean), float64(stddev)))
}
