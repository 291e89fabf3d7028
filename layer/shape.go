package layer

import (
	"math"

	"github.com/gorgonia/dbn/errs"
	"github.com/gorgonia/dbn/internal/linalg"
	"gorgonia.org/tensor"
)

// Affine is an input transform x' = (x - Offset) / Scale. ShapeInput returns
// the one it applied so that other data, such as a held-out split, can be
// put on the same scale.
type Affine struct {
	Offset float64
	Scale  float64
}

// Identity leaves data unchanged.
var Identity = Affine{Scale: 1}

// Apply transforms m in place. The arithmetic is done in float64, so no
// intermediate overflows for float32 input. If any result does not fit a
// float32, m is left untouched and a configuration error is returned.
func (a Affine) Apply(m *tensor.Dense) error {
	if a.Scale == 0 || !finite64(a.Scale) || !finite64(a.Offset) {
		return errs.Configf("degenerate input transform %+v", a)
	}
	d := linalg.Data(m)
	for i, v := range d {
		if x := a.at(v); !finite64(x) || math.Abs(x) > math.MaxFloat32 {
			return errs.Configf("input %d (%v) maps to %v, outside the float32 range", i, v, x)
		}
	}
	for i, v := range d {
		d[i] = float32(a.at(v))
	}
	return nil
}

func (a Affine) at(v float32) float64 { return (float64(v) - a.Offset) / a.Scale }

func finite64(x float64) bool { return !math.IsNaN(x) && !math.IsInf(x, 0) }
