package dist

import (
	"errors"
	"math"
	"testing"

	"golang.org/x/exp/rand"
)

func TestConstructorsRejectInvalidParameters(t *testing.T) {
	if _, err := NewBinomial(-1, 0.5); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("expected invalid binomial trials error, got %v", err)
	}
	if _, err := NewBinomial(10, 1.5); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("expected invalid binomial probability error, got %v", err)
	}
	if _, err := NewPoisson(-2); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("expected invalid poisson rate error, got %v", err)
	}
	if _, err := NewUniform(3, 3); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("expected invalid uniform bounds error, got %v", err)
	}
	if _, err := NewDiscreteUniform(4, 1); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("expected invalid discrete uniform bounds error, got %v", err)
	}
}

func TestDiscreteUniformProbabilityAndPicker(t *testing.T) {
	u, err := NewDiscreteUniform(0, 3)
	if err != nil {
		t.Fatalf("new discrete uniform: %v", err)
	}
	if got := u.Probability(2); got != 0.25 {
		t.Fatalf("unexpected mass at 2: %f", got)
	}
	if got := u.Probability(2.5); got != 0 {
		t.Fatalf("expected zero mass off the integers, got %f", got)
	}
	if u.SupportMin(SupportQuantile) != 0 || u.SupportMax(SupportQuantile) != 3 {
		t.Fatalf("unexpected support [%d, %d]", u.SupportMin(SupportQuantile), u.SupportMax(SupportQuantile))
	}

	samples := u.Picker(rand.NewSource(7)).PickMany(500)
	if len(samples) != 500 {
		t.Fatalf("expected 500 samples, got %d", len(samples))
	}
	for _, s := range samples {
		if s < 0 || s > 3 || s != math.Trunc(s) {
			t.Fatalf("sample out of support: %f", s)
		}
	}
}

func TestBinomialSupportCoversRequestedMass(t *testing.T) {
	b, err := NewBinomial(40, 0.3)
	if err != nil {
		t.Fatalf("new binomial: %v", err)
	}
	for _, q := range []float64{0.5, 0.9, 0.99, SupportQuantile} {
		lo, hi := b.SupportMin(q), b.SupportMax(q)
		if lo < 0 || hi > 40 || lo > hi {
			t.Fatalf("q=%g: invalid support [%d, %d]", q, lo, hi)
		}
		mass := 0.0
		for k := lo; k <= hi; k++ {
			mass += b.Probability(float64(k))
		}
		if mass < q-1e-12 {
			t.Fatalf("q=%g: support [%d, %d] holds only %g", q, lo, hi, mass)
		}
	}

	narrow := b.SupportMax(0.5) - b.SupportMin(0.5)
	wide := b.SupportMax(0.99) - b.SupportMin(0.99)
	if narrow > wide {
		t.Fatalf("expected support to grow with q: narrow=%d wide=%d", narrow, wide)
	}
}

func TestPoissonSupportIsBounded(t *testing.T) {
	p, err := NewPoisson(4)
	if err != nil {
		t.Fatalf("new poisson: %v", err)
	}
	lo, hi := p.SupportMin(SupportQuantile), p.SupportMax(SupportQuantile)
	if lo != 0 {
		t.Fatalf("expected support to reach zero, got %d", lo)
	}
	if hi < 10 || hi > 60 {
		t.Fatalf("unexpected upper support bound %d", hi)
	}
}

func TestUniformDensityClippedAndSampled(t *testing.T) {
	u, err := NewUniform(0, 0.5)
	if err != nil {
		t.Fatalf("new uniform: %v", err)
	}
	if got := u.Probability(0.25); got != 1 {
		t.Fatalf("expected density 2 to clip to 1, got %f", got)
	}
	if got := u.Probability(2); got != 0 {
		t.Fatalf("expected zero density outside bounds, got %f", got)
	}
	picker := u.Picker(rand.NewSource(3))
	for i := 0; i < 100; i++ {
		if v := picker.PickOne(); v < 0 || v > 0.5 {
			t.Fatalf("sample out of bounds: %f", v)
		}
	}
}

func TestPickerIsDeterministicForSeed(t *testing.T) {
	b := Binomial{N: 12, P: 0.4}
	first := b.Picker(rand.NewSource(99)).PickMany(20)
	second := b.Picker(rand.NewSource(99)).PickMany(20)
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("sample %d differs: %f vs %f", i, first[i], second[i])
		}
	}
}

func TestConstantDistribution(t *testing.T) {
	c := Constant{Value: 10}
	if c.Picker(nil).PickOne() != 10 {
		t.Fatal("expected constant sample")
	}
	if c.Probability(10) != 1 || c.Probability(9) != 0 {
		t.Fatal("unexpected constant mass")
	}
	if c.SupportMin(0.5) != 10 || c.SupportMax(0.5) != 10 {
		t.Fatal("unexpected constant support")
	}
}
