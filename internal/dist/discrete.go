package dist

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// DiscreteUniform assigns equal mass to every integer in [Min, Max].
type DiscreteUniform struct {
	Min int
	Max int
}

func NewDiscreteUniform(min, max int) (DiscreteUniform, error) {
	if min > max {
		return DiscreteUniform{}, fmt.Errorf("%w: discrete uniform bounds must satisfy min <= max, got [%d, %d]", ErrInvalidParameter, min, max)
	}
	return DiscreteUniform{Min: min, Max: max}, nil
}

func (DiscreteUniform) Name() string {
	return "discrete_uniform"
}

func (u DiscreteUniform) Probability(x float64) float64 {
	if !isInteger(x) || x < float64(u.Min) || x > float64(u.Max) {
		return 0
	}
	return 1 / float64(u.Max-u.Min+1)
}

func (u DiscreteUniform) Picker(src rand.Source) Picker {
	rng := rand.New(ensureSource(src))
	width := u.Max - u.Min + 1
	return funcPicker(func() float64 {
		return float64(u.Min + rng.Intn(width))
	})
}

func (u DiscreteUniform) SupportMin(_ float64) int {
	return u.Min
}

func (u DiscreteUniform) SupportMax(_ float64) int {
	return u.Max
}

// Binomial counts successes in N trials with success probability P.
type Binomial struct {
	N int
	P float64
}

func NewBinomial(n int, p float64) (Binomial, error) {
	if n < 0 {
		return Binomial{}, fmt.Errorf("%w: binomial trials must be >= 0, got %d", ErrInvalidParameter, n)
	}
	if p < 0 || p > 1 || math.IsNaN(p) {
		return Binomial{}, fmt.Errorf("%w: binomial probability must be in [0,1], got %g", ErrInvalidParameter, p)
	}
	return Binomial{N: n, P: p}, nil
}

func (Binomial) Name() string {
	return "binomial"
}

func (b Binomial) law() distuv.Binomial {
	return distuv.Binomial{N: float64(b.N), P: b.P}
}

func (b Binomial) Probability(x float64) float64 {
	if !isInteger(x) || x < 0 || x > float64(b.N) {
		return 0
	}
	return clampUnit(b.law().Prob(x))
}

func (b Binomial) Picker(src rand.Source) Picker {
	law := b.law()
	law.Src = ensureSource(src)
	return funcPicker(law.Rand)
}

func (b Binomial) SupportMin(q float64) int {
	lo, _ := b.support(q)
	return lo
}

func (b Binomial) SupportMax(q float64) int {
	_, hi := b.support(q)
	return hi
}

func (b Binomial) support(q float64) (int, int) {
	center := int(math.Floor(float64(b.N+1) * b.P))
	return expandSupport(func(k int) float64 {
		return b.Probability(float64(k))
	}, center, 0, b.N, q)
}

// Poisson counts events at mean rate Lambda.
type Poisson struct {
	Lambda float64
}

func NewPoisson(lambda float64) (Poisson, error) {
	if !(lambda > 0) || math.IsInf(lambda, 0) {
		return Poisson{}, fmt.Errorf("%w: poisson rate must be > 0, got %g", ErrInvalidParameter, lambda)
	}
	return Poisson{Lambda: lambda}, nil
}

func (Poisson) Name() string {
	return "poisson"
}

func (p Poisson) Probability(x float64) float64 {
	if !isInteger(x) || x < 0 {
		return 0
	}
	return clampUnit(distuv.Poisson{Lambda: p.Lambda}.Prob(x))
}

func (p Poisson) Picker(src rand.Source) Picker {
	law := distuv.Poisson{Lambda: p.Lambda, Src: ensureSource(src)}
	return funcPicker(law.Rand)
}

func (p Poisson) SupportMin(q float64) int {
	lo, _ := p.support(q)
	return lo
}

func (p Poisson) SupportMax(q float64) int {
	_, hi := p.support(q)
	return hi
}

func (p Poisson) support(q float64) (int, int) {
	return expandSupport(func(k int) float64 {
		return p.Probability(float64(k))
	}, int(math.Floor(p.Lambda)), 0, math.MaxInt32, q)
}
