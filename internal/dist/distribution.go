package dist

import (
	"errors"
	"math"

	"golang.org/x/exp/rand"
)

// SupportQuantile is the default probability mass used for support queries.
// Values closer to 1 let heavy-tailed distributions expand without bound.
const SupportQuantile = 1 - 1e-10

var ErrInvalidParameter = errors.New("invalid distribution parameter")

// Distribution is a probability law that can be queried and sampled.
type Distribution interface {
	Name() string
	// Probability returns the mass at x for discrete laws and the density
	// clipped to [0,1] for continuous ones.
	Probability(x float64) float64
	Picker(src rand.Source) Picker
}

// Discrete distributions additionally report the bounds of their support
// holding at least q of the total mass.
type Discrete interface {
	Distribution
	SupportMin(q float64) int
	SupportMax(q float64) int
}

// Picker draws samples from a distribution.
type Picker interface {
	PickOne() float64
	PickMany(n int) []float64
}

type funcPicker func() float64

func (p funcPicker) PickOne() float64 {
	return p()
}

func (p funcPicker) PickMany(n int) []float64 {
	if n <= 0 {
		return nil
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = p()
	}
	return out
}

func ensureSource(src rand.Source) rand.Source {
	if src == nil {
		return rand.NewSource(1)
	}
	return src
}

// expandSupport grows [lo, hi] from center towards whichever neighbour holds
// more mass until the accumulated mass reaches q. min and max bound the
// domain of the distribution.
func expandSupport(prob func(int) float64, center, min, max int, q float64) (int, int) {
	if center < min {
		center = min
	}
	if center > max {
		center = max
	}
	lo, hi := center, center
	if q <= 0 {
		return lo, hi
	}
	if q > 1 {
		q = 1
	}

	mass := prob(center)
	for mass < q {
		left, right := -1.0, -1.0
		if lo > min {
			left = prob(lo - 1)
		}
		if hi < max {
			right = prob(hi + 1)
		}
		if left < 0 && right < 0 {
			break
		}
		// Both tails underflowed; nothing left to gain.
		if left <= 0 && right <= 0 && mass > 0 {
			break
		}
		if left >= right {
			lo--
			mass += left
		} else {
			hi++
			mass += right
		}
		if hi-lo > maxSupportWidth {
			break
		}
	}
	return lo, hi
}

const maxSupportWidth = 1 << 24

func isInteger(x float64) bool {
	return !math.IsInf(x, 0) && !math.IsNaN(x) && x == math.Trunc(x)
}

func clampUnit(p float64) float64 {
	if math.IsNaN(p) || p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
