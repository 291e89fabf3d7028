package rbm

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/gorgonia/dbn/dataset"
	"github.com/gorgonia/dbn/errs"
	"github.com/gorgonia/dbn/internal/linalg"
	"github.com/gorgonia/dbn/internal/logbuf"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

const (
	minMultiplier = 1e-6
	maxMultiplier = 1e6

	queueSize = 16
)

// CD is a contrastive divergence teacher. It holds no layer or weight data of
// its own and may train any number of connections, one at a time.
type CD struct {
	Config

	sync.Mutex
	multiplier float32
	stopped    bool
	cmds       chan Command

	buf    logbuf.Buffer
	logger *log.Logger
	lj     lumberjack
}

// New creates a teacher.
func New(conf Config) (*CD, error) {
	if !conf.IsValid() {
		return nil, errs.Configf("invalid teacher configuration %+v", conf)
	}
	t := &CD{
		Config:     conf,
		multiplier: 1,
		cmds:       make(chan Command, queueSize),
		lj:         makeLumberJack(),
	}
	t.logger = log.New(&t.buf, "", log.Ltime)
	go t.lj.start()
	return t, nil
}

// Rate is the effective learning rate: the base rate times the multiplier.
func (t *CD) Rate() float32 {
	t.Lock()
	defer t.Unlock()
	return t.LearningRate * t.multiplier
}

// Multiplier returns the current learning rate multiplier.
func (t *CD) Multiplier() float32 {
	t.Lock()
	defer t.Unlock()
	return t.multiplier
}

func (t *CD) MultiplyRate() { t.setMultiplier(func(m float32) float32 { return m * t.RateFactor }) }
func (t *CD) DivideRate()   { t.setMultiplier(func(m float32) float32 { return m / t.RateFactor }) }
func (t *CD) ResetRate()    { t.setMultiplier(func(float32) float32 { return 1 }) }

func (t *CD) setMultiplier(f func(float32) float32) {
	t.Lock()
	m := f(t.multiplier)
	switch {
	case m < minMultiplier:
		m = minMultiplier
	case m > maxMultiplier:
		m = maxMultiplier
	}
	t.multiplier = m
	t.Unlock()
	t.logger.Printf("rate multiplier %v", m)
}

func (t *CD) stop() {
	t.Lock()
	t.stopped = true
	t.Unlock()
}

// Stopped reports whether the last call to Train ended on a stop request.
func (t *CD) Stopped() bool {
	t.Lock()
	defer t.Unlock()
	return t.stopped
}

// Send queues cmd for the next batch boundary. It does not block; a full
// queue is an error.
func (t *CD) Send(cmd Command) error {
	select {
	case t.cmds <- cmd:
		return nil
	default:
		return errs.Resourcef("command queue is full (%d pending)", queueSize)
	}
}

// RequestStop asks a running Train to return at the next batch boundary.
func (t *CD) RequestStop() error { return t.Send(command(stop)) }

// Log returns everything the teacher has logged.
func (t *CD) Log() string { return t.buf.String() }

// Trace returns the per-step trace. It is empty unless built with the debug tag.
func (t *CD) Trace() string { return t.lj.Trace() }

func (t *CD) drain() {
	for {
		select {
		case cmd := <-t.cmds:
			cmd.Do(t)
		default:
			return
		}
	}
}

// boundary applies pending commands and reports whether training must end.
func (t *CD) boundary(ctx context.Context, mon Monitor) (bool, error) {
	t.drain()
	if err := ctx.Err(); err != nil {
		return true, err
	}
	if mon != nil && mon.StopRequested() {
		t.stop()
	}
	return t.Stopped(), nil
}

func (t *CD) record(mon Monitor, s Stats) {
	if mon == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			t.logger.Printf("monitor failed on %+v: %v", s, r)
		}
	}()
	mon.Record(s)
}

// Step runs one CD-k update of c on a visible batch of shape
// visible nodes × batch size.
func (t *CD) Step(c *Connection, batch *tensor.Dense) (Stats, error) {
	var s Stats
	vis, hid := c.Visible(), c.Hidden()
	if !linalg.SameShape(batch, vis.Samples()) {
		return s, errs.Configf("batch of shape %v does not fit visible layer %v", batch.Shape(), vis.Samples().Shape())
	}
	_, n := linalg.Dims(batch)

	// clamp
	if err := linalg.Copy(vis.Samples(), batch); err != nil {
		return s, err
	}

	// positive phase
	if err := c.PropagateUp(); err != nil {
		return s, err
	}
	hid.Expect()
	hid.Sample()
	s.Hidden = energy(hid.FreeEnergy())
	posH := linalg.Borrow(hid.Nodes(), n)
	defer linalg.Return(posH)
	if err := linalg.Copy(posH, hid.Expectations()); err != nil {
		return s, err
	}

	// negative phase
	for k := 0; k < t.Steps; k++ {
		if err := c.PropagateDown(); err != nil {
			return s, err
		}
		vis.Expect()
		vis.Sample()
		if err := c.PropagateUp(); err != nil {
			return s, err
		}
		hid.Expect()
		hid.Sample()
		t.lj.log("step %d: visible %v hidden %v", k, vis.Samples().Data(), hid.Samples().Data())
	}

	g, err := c.ComputeGradient(batch, posH, vis.Samples(), hid.Expectations())
	if err != nil {
		return s, err
	}
	c.Decay(g, t.WeightDecay)
	if !g.Finite() {
		return s, errs.Numericf("non-finite gradient on %v, update skipped", c)
	}
	s.Rate = t.Rate()
	if err = c.ApplyUpdate(g, s.Rate, t.Momentum); err != nil {
		return s, err
	}
	vis.Update(t)
	hid.Update(t)

	if s.Cost, err = vis.ReconstructionCost(batch, vis.Expectations()); err != nil {
		return s, err
	}
	s.Visible = energy(vis.FreeEnergy())
	s.Connection = c.Index()
	return s, nil
}

// Evaluate returns the mean-field reconstruction cost of m, averaged over its
// full batches. Nothing is sampled and no parameter changes.
func (t *CD) Evaluate(c *Connection, m *tensor.Dense) (float32, error) {
	vis, hid := c.Visible(), c.Hidden()
	rows, cols := linalg.Dims(m)
	n := vis.BatchSize()
	if rows != vis.Nodes() {
		return 0, errs.Configf("evaluation data has %d rows, visible layer has %d nodes", rows, vis.Nodes())
	}
	batches := cols / n
	if batches == 0 {
		return 0, errs.Configf("evaluation data has %d columns, fewer than one batch of %d", cols, n)
	}

	batch := linalg.Borrow(rows, n)
	defer linalg.Return(batch)
	idx := make([]int, n)
	var total float32
	for b := 0; b < batches; b++ {
		for j := range idx {
			idx[j] = b*n + j
		}
		if err := linalg.Gather(batch, m, idx); err != nil {
			return 0, err
		}
		if err := linalg.Copy(vis.Samples(), batch); err != nil {
			return 0, err
		}
		if err := c.PropagateUp(); err != nil {
			return 0, err
		}
		hid.Expect()
		if err := linalg.Copy(hid.Samples(), hid.Expectations()); err != nil {
			return 0, err
		}
		if err := c.PropagateDown(); err != nil {
			return 0, err
		}
		vis.Expect()
		cost, err := vis.ReconstructionCost(batch, vis.Expectations())
		if err != nil {
			return 0, err
		}
		total += cost
	}
	return total / float32(batches), nil
}

// Train runs Epochs passes of CD-k over data.Train on c, reporting to mon
// (which may be nil) after every batch and every epoch.
//
// Commands, cancellation and stop requests are honoured between batches.
// Cancellation returns ctx.Err(); a stop request returns nil and leaves
// Stopped set.
func (t *CD) Train(ctx context.Context, c *Connection, data *dataset.DataSet, mon Monitor) error {
	t.Lock()
	t.stopped = false
	t.Unlock()

	vis, hid := c.Visible(), c.Hidden()
	if data.Nodes() != vis.Nodes() {
		return errs.Configf("data has %d nodes, visible layer of %v has %d", data.Nodes(), c, vis.Nodes())
	}
	if err := vis.SetBatchSize(t.BatchSize); err != nil {
		return err
	}
	if err := hid.SetBatchSize(t.BatchSize); err != nil {
		return err
	}
	batcher, err := dataset.NewBatcher(data.Train, t.BatchSize, t.Seed, t.Shuffle)
	if err != nil {
		return errors.WithMessage(err, fmt.Sprintf("training %v", c))
	}
	batch, err := linalg.Alloc(vis.Nodes(), t.BatchSize)
	if err != nil {
		return err
	}

	evaluate := data.HasTest()
	if evaluate {
		if _, cols := linalg.Dims(data.Test); cols < t.BatchSize {
			t.logger.Printf("test split has %d samples, fewer than a batch; not evaluating", cols)
			evaluate = false
		}
	}

	t.logger.Printf("training %v: %d epochs of %d batches", c, t.Epochs, batcher.Len())
	for epoch := 0; epoch < t.Epochs; epoch++ {
		t.logger.SetPrefix("\t")
		var sum float32
		var count int
		for b := 0; ; b++ {
			if done, err := t.boundary(ctx, mon); done {
				t.logger.SetPrefix("")
				t.logger.Printf("stopped in epoch %d before batch %d: %v", epoch, b, err)
				return err
			}
			ok, err := batcher.Next(batch)
			if err != nil {
				return err
			}
			if !ok {
				break
			}

			s, err := t.Step(c, batch)
			if err != nil {
				return errors.WithMessage(err, fmt.Sprintf("epoch %d batch %d", epoch, b))
			}
			s.Epoch, s.Batch = epoch, b
			if t.SnapshotEvery > 0 && b%t.SnapshotEvery == 0 {
				s.Weights = linalg.Clone(c.Weights())
			}
			sum += s.Cost
			count++
			t.record(mon, s)
		}
		batcher.Reset()

		end := Stats{
			Connection: c.Index(),
			Epoch:      epoch,
			Batch:      count,
			EpochEnd:   true,
			Rate:       t.Rate(),
			Weights:    linalg.Clone(c.Weights()),
		}
		if count > 0 {
			end.Cost = sum / float32(count)
		}
		if evaluate {
			if end.TestCost, err = t.Evaluate(c, data.Test); err != nil {
				return errors.WithMessage(err, "evaluating test split")
			}
			end.HasTest = true
		}
		t.logger.SetPrefix("")
		t.logger.Printf("epoch %d: cost %v test %v rate %v", epoch, end.Cost, end.TestCost, end.Rate)
		t.record(mon, end)
	}
	return nil
}
