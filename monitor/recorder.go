// Package monitor records what a contrastive divergence teacher reports and
// exposes the operator controls of a running training session.
//
// A Recorder keeps a line plot per metric and a weight texture per
// connection, fans every report out to its sinks, and turns operator key
// presses into teacher commands.
package monitor

import (
	"encoding/csv"
	"image"
	"io"
	"log"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/chewxy/math32"
	"github.com/gorgonia/dbn/errs"
	"github.com/gorgonia/dbn/internal/logbuf"
	"github.com/gorgonia/dbn/rbm"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// Sink receives every report the Recorder gets. Sinks may fail or panic
// without affecting training.
type Sink interface {
	Encode(s rbm.Stats) error
	Flush() error
}

// Metric names a plotted series.
type Metric int

const (
	Cost Metric = iota
	TestCost
	VisibleEnergy
	HiddenEnergy
	Rate
	MAXMETRIC
)

func (m Metric) String() string {
	switch m {
	case Cost:
		return "cost"
	case TestCost:
		return "test_cost"
	case VisibleEnergy:
		return "visible_energy"
	case HiddenEnergy:
		return "hidden_energy"
	case Rate:
		return "rate"
	}
	return "UNKNOWN METRIC"
}

// Point is one report with the weights left out.
type Point struct {
	Epoch, Batch int
	EpochEnd     bool
	Values       [MAXMETRIC]float32 // NaN where a value is unavailable
}

const thresholdStep = 0.1

// Recorder implements rbm.Monitor.
type Recorder struct {
	sync.RWMutex
	points  map[int][]Point
	weights map[int]*tensor.Dense
	conns   int

	threshold float32
	focus     int
	stop      int32

	sinks  []Sink
	buf    logbuf.Buffer
	logger *log.Logger
}

// New creates a Recorder that forwards every report to sinks.
func New(sinks ...Sink) *Recorder {
	r := &Recorder{
		points:  make(map[int][]Point),
		weights: make(map[int]*tensor.Dense),
		sinks:   sinks,
	}
	r.logger = log.New(&r.buf, "", log.Ltime)
	return r
}

// AddSink registers another sink.
func (r *Recorder) AddSink(s Sink) {
	r.Lock()
	r.sinks = append(r.sinks, s)
	r.Unlock()
}

// Record stores s and forwards it to the sinks.
func (r *Recorder) Record(s rbm.Stats) {
	nan := math32.NaN()
	p := Point{Epoch: s.Epoch, Batch: s.Batch, EpochEnd: s.EpochEnd}
	p.Values[Cost] = s.Cost
	p.Values[TestCost] = nan
	p.Values[VisibleEnergy] = nan
	p.Values[HiddenEnergy] = nan
	p.Values[Rate] = s.Rate
	if s.HasTest {
		p.Values[TestCost] = s.TestCost
	}
	if s.Visible.Available {
		p.Values[VisibleEnergy] = s.Visible.Value
	}
	if s.Hidden.Available {
		p.Values[HiddenEnergy] = s.Hidden.Value
	}

	r.Lock()
	r.points[s.Connection] = append(r.points[s.Connection], p)
	if s.Connection >= r.conns {
		r.conns = s.Connection + 1
	}
	if s.Weights != nil {
		r.weights[s.Connection] = s.Weights
	}
	sinks := r.sinks
	r.Unlock()

	for _, sink := range sinks {
		r.encode(sink, s)
	}
}

func (r *Recorder) encode(sink Sink, s rbm.Stats) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Printf("sink %T panicked: %v", sink, p)
		}
	}()
	if err := sink.Encode(s); err != nil {
		r.logger.Printf("sink %T: %v", sink, err)
	}
}

// Flush flushes every sink and returns the first error.
func (r *Recorder) Flush() error {
	r.RLock()
	sinks := r.sinks
	r.RUnlock()
	var first error
	for _, sink := range sinks {
		if err := sink.Flush(); err != nil && first == nil {
			first = errors.Wrapf(err, "flushing %T", sink)
		}
	}
	return first
}

// RequestStop asks the teacher to stop at the next batch boundary.
func (r *Recorder) RequestStop() { atomic.StoreInt32(&r.stop, 1) }

// StopRequested reports whether a stop was requested since the last call.
func (r *Recorder) StopRequested() bool { return atomic.CompareAndSwapInt32(&r.stop, 1, 0) }

// Connections is the number of connections reported on so far.
func (r *Recorder) Connections() int {
	r.RLock()
	defer r.RUnlock()
	return r.conns
}

// Points returns a copy of everything recorded for connection i.
func (r *Recorder) Points(i int) []Point {
	r.RLock()
	defer r.RUnlock()
	return append([]Point(nil), r.points[i]...)
}

// Plot returns the history of metric m for connection i. TestCost is plotted
// per epoch, everything else per batch.
func (r *Recorder) Plot(i int, m Metric) []float32 {
	r.RLock()
	defer r.RUnlock()
	var retVal []float32
	for _, p := range r.points[i] {
		if p.EpochEnd != (m == TestCost) {
			continue
		}
		retVal = append(retVal, p.Values[m])
	}
	return retVal
}

func (r *Recorder) Threshold() float32 {
	r.RLock()
	defer r.RUnlock()
	return r.threshold
}

func (r *Recorder) RaiseThreshold() { r.moveThreshold(thresholdStep) }
func (r *Recorder) LowerThreshold() { r.moveThreshold(-thresholdStep) }

func (r *Recorder) moveThreshold(d float32) {
	r.Lock()
	t := r.threshold + d
	switch {
	case t < 0:
		t = 0
	case t > 1:
		t = 1
	}
	r.threshold = t
	r.Unlock()
}

// Focus is the connection the operator is looking at.
func (r *Recorder) Focus() int {
	r.RLock()
	defer r.RUnlock()
	return r.focus
}

// MoveUp moves the focus one connection up the stack.
func (r *Recorder) MoveUp() {
	r.Lock()
	if r.focus < r.conns-1 {
		r.focus++
	}
	r.Unlock()
}

// MoveDown moves the focus one connection down the stack.
func (r *Recorder) MoveDown() {
	r.Lock()
	if r.focus > 0 {
		r.focus--
	}
	r.Unlock()
}

// Texture returns the last weight snapshot of connection i, scaled and
// thresholded.
func (r *Recorder) Texture(i int) (*tensor.Dense, error) {
	r.RLock()
	w, ok := r.weights[i]
	threshold := r.threshold
	r.RUnlock()
	if !ok {
		return nil, errs.Configf("no weight snapshot for connection %d", i)
	}
	return Scale(w, threshold), nil
}

// Image renders Texture(i).
func (r *Recorder) Image(i, zoom int) (*image.Gray, error) {
	tex, err := r.Texture(i)
	if err != nil {
		return nil, err
	}
	return Gray(tex, zoom), nil
}

// Dump writes every recorded point as CSV. Unavailable values are left empty.
func (r *Recorder) Dump(w io.Writer) error {
	cw := csv.NewWriter(w)
	header := []string{"connection", "epoch", "batch", "epoch_end"}
	for m := Cost; m < MAXMETRIC; m++ {
		header = append(header, m.String())
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	r.RLock()
	defer r.RUnlock()
	var records [][]string
	for c := 0; c < r.conns; c++ {
		for _, p := range r.points[c] {
			record := []string{
				strconv.Itoa(c),
				strconv.Itoa(p.Epoch),
				strconv.Itoa(p.Batch),
				strconv.FormatBool(p.EpochEnd),
			}
			for _, v := range p.Values {
				if math32.IsNaN(v) {
					record = append(record, "")
					continue
				}
				record = append(record, strconv.FormatFloat(float64(v), 'g', -1, 32))
			}
			records = append(records, record)
		}
	}
	return cw.WriteAll(records)
}

// Log returns everything the recorder has logged, including sink failures.
func (r *Recorder) Log() string { return r.buf.String() }
