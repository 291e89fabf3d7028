package layer

import "github.com/chewxy/math32"

const (
	// minProb and maxProb keep Bernoulli expectations strictly inside (0,1).
	minProb = 1e-7
	maxProb = 1 - 1e-7

	// minExpectation keeps softplus strictly positive where exp underflows.
	minExpectation = 1e-30

	// below this softplus(x) is exp(x) to float32 precision
	softplusTail = -20
)

// sigmoid is 1/(1+e^-x), evaluated so that e^x never overflows.
func sigmoid(x float32) float32 {
	if x >= 0 {
		return 1 / (1 + math32.Exp(-x))
	}
	e := math32.Exp(x)
	return e / (1 + e)
}

// softplus is ln(1+e^x), evaluated so that e^x never overflows.
func softplus(x float32) float32 {
	switch {
	case x > 0:
		return x + math32.Log(1+math32.Exp(-x))
	case x < softplusTail:
		return math32.Exp(x)
	}
	return math32.Log(1 + math32.Exp(x))
}

func probability(x float32) float32 {
	p := sigmoid(x)
	switch {
	case p < minProb:
		return minProb
	case p > maxProb:
		return maxProb
	}
	return p
}

func rectifiedMean(x float32) float32 {
	return math32.Max(softplus(x), minExpectation)
}

func identity(x float32) float32 { return x }
