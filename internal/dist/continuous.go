package dist

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Uniform is the continuous uniform law on [Min, Max].
type Uniform struct {
	Min float64
	Max float64
}

func NewUniform(min, max float64) (Uniform, error) {
	if !(min < max) {
		return Uniform{}, fmt.Errorf("%w: uniform bounds must satisfy min < max, got [%g, %g]", ErrInvalidParameter, min, max)
	}
	return Uniform{Min: min, Max: max}, nil
}

func (Uniform) Name() string {
	return "uniform"
}

func (u Uniform) Probability(x float64) float64 {
	return clampUnit(distuv.Uniform{Min: u.Min, Max: u.Max}.Prob(x))
}

func (u Uniform) Picker(src rand.Source) Picker {
	law := distuv.Uniform{Min: u.Min, Max: u.Max, Src: ensureSource(src)}
	return funcPicker(law.Rand)
}

// Constant always yields Value. Useful for homogeneous starting capital.
type Constant struct {
	Value float64
}

func (Constant) Name() string {
	return "constant"
}

func (c Constant) Probability(x float64) float64 {
	if x == c.Value {
		return 1
	}
	return 0
}

func (c Constant) Picker(_ rand.Source) Picker {
	return funcPicker(func() float64 { return c.Value })
}

func (c Constant) SupportMin(_ float64) int {
	return int(c.Value)
}

func (c Constant) SupportMax(_ float64) int {
	return int(c.Value)
}
