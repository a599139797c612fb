package game

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
)

const probabilityTolerance = 1e-9

var (
	ErrInvalidMixedStrategy = errors.New("invalid mixed strategy")
	ErrComponentMismatch    = errors.New("mixed strategy components do not match")
)

// MixedStrategy plays each component pure strategy with its probability.
// Mass not assigned to any component is treated as defection.
type MixedStrategy struct {
	strategies    []*PureStrategy
	probabilities []float64
}

func NewMixedStrategy(strategies []*PureStrategy, probabilities []float64) (*MixedStrategy, error) {
	if len(strategies) != len(probabilities) {
		return nil, fmt.Errorf("%w: %d strategies but %d probabilities", ErrInvalidMixedStrategy, len(strategies), len(probabilities))
	}
	for i, s := range strategies {
		if s == nil {
			return nil, fmt.Errorf("%w: component %d is nil", ErrInvalidMixedStrategy, i)
		}
	}
	for i, p := range probabilities {
		if !(p >= 0 && p <= 1) {
			return nil, fmt.Errorf("%w: probability %d out of [0,1]: %g", ErrInvalidMixedStrategy, i, p)
		}
	}
	if sum := floats.Sum(probabilities); sum > 1+probabilityTolerance {
		return nil, fmt.Errorf("%w: probabilities sum to %g", ErrInvalidMixedStrategy, sum)
	}
	return newMixed(strategies, probabilities), nil
}

func newMixed(strategies []*PureStrategy, probabilities []float64) *MixedStrategy {
	return &MixedStrategy{
		strategies:    append([]*PureStrategy(nil), strategies...),
		probabilities: append([]float64(nil), probabilities...),
	}
}

func (m *MixedStrategy) Name() string {
	names := make([]string, len(m.strategies))
	for i, s := range m.strategies {
		names[i] = s.Name()
	}
	return "mixed(" + strings.Join(names, ",") + ")"
}

func (m *MixedStrategy) Strategies() []*PureStrategy {
	return append([]*PureStrategy(nil), m.strategies...)
}

func (m *MixedStrategy) Probabilities() []float64 {
	return append([]float64(nil), m.probabilities...)
}

func (m *MixedStrategy) Len() int {
	return len(m.strategies)
}

// Probability returns the weight of the named component, 0 if absent.
func (m *MixedStrategy) Probability(name string) float64 {
	for i, s := range m.strategies {
		if s.Name() == name {
			return m.probabilities[i]
		}
	}
	return 0
}

func (m *MixedStrategy) IsCooperative(rng *rand.Rand, self, opponent *Agent, h *History) bool {
	u := rng.Float64()
	cumulative := 0.0
	for i, p := range m.probabilities {
		cumulative += p
		if u < cumulative {
			return m.strategies[i].IsCooperative(rng, self, opponent, h)
		}
	}
	return false
}

func (m *MixedStrategy) CooperationProbability(self, opponent *Agent, h *History) float64 {
	total := 0.0
	for i, p := range m.probabilities {
		if p == 0 {
			continue
		}
		total += p * m.strategies[i].CooperationProbability(self, opponent, h)
	}
	return total
}

// Scale multiplies every probability by f. The result is not validated.
func (m *MixedStrategy) Scale(f float64) *MixedStrategy {
	out := newMixed(m.strategies, m.probabilities)
	floats.Scale(f, out.probabilities)
	return out
}

// Add sums two strategies component-wise. The result is not validated.
func (m *MixedStrategy) Add(other *MixedStrategy) (*MixedStrategy, error) {
	if err := m.compatible(other); err != nil {
		return nil, err
	}
	out := newMixed(m.strategies, m.probabilities)
	floats.Add(out.probabilities, other.probabilities)
	return out, nil
}

// Norm is the Euclidean length of the probability vector.
func (m *MixedStrategy) Norm() float64 {
	return floats.Norm(m.probabilities, 2)
}

// SumNorm is the L1 length of the probability vector.
func (m *MixedStrategy) SumNorm() float64 {
	return floats.Norm(m.probabilities, 1)
}

// Distance is the L1 distance between two strategies.
func (m *MixedStrategy) Distance(other *MixedStrategy) (float64, error) {
	if err := m.compatible(other); err != nil {
		return 0, err
	}
	return floats.Distance(m.probabilities, other.probabilities, 1), nil
}

// Normalized rescales the probabilities to sum to one. A zero vector becomes
// the uniform mixture.
func (m *MixedStrategy) Normalized() (*MixedStrategy, error) {
	probabilities := append([]float64(nil), m.probabilities...)
	for i, p := range probabilities {
		if p < 0 {
			probabilities[i] = 0
		}
	}
	sum := floats.Sum(probabilities)
	if sum <= 0 {
		if len(probabilities) == 0 {
			return nil, fmt.Errorf("%w: no components", ErrInvalidMixedStrategy)
		}
		for i := range probabilities {
			probabilities[i] = 1 / float64(len(probabilities))
		}
	} else {
		floats.Scale(1/sum, probabilities)
	}
	return NewMixedStrategy(m.strategies, probabilities)
}

func (m *MixedStrategy) compatible(other *MixedStrategy) error {
	if other == nil || len(m.strategies) != len(other.strategies) {
		return ErrComponentMismatch
	}
	for i := range m.strategies {
		if m.strategies[i].Name() != other.strategies[i].Name() {
			return fmt.Errorf("%w: component %d is %s vs %s", ErrComponentMismatch, i, m.strategies[i].Name(), other.strategies[i].Name())
		}
	}
	return nil
}
