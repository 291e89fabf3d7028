package dbn

import (
	"github.com/gorgonia/dbn/layer"
	"github.com/gorgonia/dbn/rbm"
)

// LayerConf describes one layer of the stack.
type LayerConf struct {
	Kind     layer.Kind
	Nodes    int
	Variance float32 // Gaussian layers only; 0 means 1
}

// Config is the topology and training configuration of a DBN.
type Config struct {
	Layers []LayerConf // bottom (visible) first
	Train  rbm.Config

	Seed      int64
	Workers   int     // data-parallel workers; 0 means one per CPU, 1 disables the pool
	InitScale float32 // standard deviation of the initial weights
}

// DefaultConf returns a configuration for a stack of binary layers with the
// given node counts, bottom first.
func DefaultConf(nodes ...int) Config {
	layers := make([]LayerConf, len(nodes))
	for i, n := range nodes {
		layers[i] = LayerConf{Kind: layer.Binary, Nodes: n}
	}
	return Config{
		Layers:    layers,
		Train:     rbm.DefaultConf(),
		Seed:      1337,
		InitScale: 0.01,
	}
}

func (conf Config) IsValid() bool {
	if len(conf.Layers) < 2 || !conf.Train.IsValid() || conf.Workers < 0 || conf.InitScale < 0 {
		return false
	}
	for _, l := range conf.Layers {
		if !l.Kind.IsValid() || l.Nodes < 1 || l.Variance < 0 {
			return false
		}
	}
	return true
}
