package rbm

import "gorgonia.org/tensor"

// Monitor observes training. Record is called after every batch and at the
// end of every epoch; StopRequested is polled at every batch boundary.
type Monitor interface {
	Record(s Stats)
	StopRequested() bool
}

// Energy is a free energy contribution that some unit kinds cannot provide.
type Energy struct {
	Value     float32
	Available bool
}

// Stats is what a teacher reports about one batch or one epoch.
type Stats struct {
	Connection int
	Epoch      int
	Batch      int
	EpochEnd   bool

	Cost     float32 // reconstruction cost; the epoch mean when EpochEnd is set
	TestCost float32
	HasTest  bool

	Visible Energy
	Hidden  Energy
	Rate    float32 // effective learning rate

	// Weights is a copy of the weight matrix, set every SnapshotEvery batches
	// and at the end of every epoch.
	Weights *tensor.Dense
}

func energy(v float32, err error) Energy {
	if err != nil {
		return Energy{}
	}
	return Energy{Value: v, Available: true}
}
