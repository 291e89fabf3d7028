package rbm

// Config configures a contrastive divergence teacher.
type Config struct {
	LearningRate float32 // base step size, scaled at runtime by the rate multiplier
	Momentum     float32 // fraction of the previous step carried into the next
	WeightDecay  float32 // L2 penalty on the weights, 0 disables it
	Steps        int     // Gibbs steps in the negative phase (the k in CD-k)
	RateFactor   float32 // factor applied by MultiplyRate and DivideRate

	BatchSize     int
	Epochs        int
	Shuffle       bool
	SnapshotEvery int // copy the weights into Stats every n batches, 0 never
	Seed          int64
}

// DefaultConf returns a CD-1 configuration.
func DefaultConf() Config {
	return Config{
		LearningRate: 0.01,
		Momentum:     0.5,
		Steps:        1,
		RateFactor:   2,

		BatchSize:     10,
		Epochs:        10,
		Shuffle:       true,
		SnapshotEvery: 100,
		Seed:          1337,
	}
}

func (conf Config) IsValid() bool {
	return conf.LearningRate > 0 &&
		conf.Momentum >= 0 && conf.Momentum < 1 &&
		conf.WeightDecay >= 0 &&
		conf.Steps >= 1 &&
		conf.RateFactor > 1 &&
		conf.BatchSize >= 1 &&
		conf.Epochs >= 0 &&
		conf.SnapshotEvery >= 0
}
