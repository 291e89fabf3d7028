package layer

import (
	"strings"

	"github.com/gorgonia/dbn/errs"
)

// Kind tags the probability law of a layer's units.
type Kind int

const (
	Binary Kind = iota
	Gaussian
	RectifiedLinear
	MAXKIND
)

func (k Kind) String() string {
	switch k {
	case Binary:
		return "Binary"
	case Gaussian:
		return "Gaussian"
	case RectifiedLinear:
		return "RectifiedLinear"
	}
	return "UNKNOWN KIND"
}

// IsValid reports whether k is one of the implemented unit kinds.
func (k Kind) IsValid() bool { return k >= Binary && k < MAXKIND }

// ParseKind parses the names returned by String, case-insensitively. "relu"
// is accepted as a short name for RectifiedLinear.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "binary", "bernoulli":
		return Binary, nil
	case "gaussian", "linear":
		return Gaussian, nil
	case "rectifiedlinear", "relu":
		return RectifiedLinear, nil
	}
	return MAXKIND, errs.Configf("unknown unit kind %q", s)
}
