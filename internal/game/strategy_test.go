package game

import (
	"errors"
	"math"
	"testing"

	"golang.org/x/exp/rand"
)

func TestTitForTatMirrorsOpponent(t *testing.T) {
	self := NewAgent(0, TitForTat, NoGroup)
	opponent := NewAgent(0, NeverCooperate, NoGroup)
	h := NewHistory()

	if !TitForTat.IsCooperative(nil, self, opponent, h) {
		t.Fatal("expected cooperation on first contact")
	}
	h.Add(playResult(self, opponent, true, false))
	if TitForTat.IsCooperative(nil, self, opponent, h) {
		t.Fatal("expected defection after opponent defected")
	}
	h.Add(playResult(opponent, self, true, false))
	if !TitForTat.IsCooperative(nil, self, opponent, h) {
		t.Fatal("expected cooperation after opponent cooperated")
	}
	if TitForTat.CooperationProbability(self, opponent, h) != 1 {
		t.Fatal("expected pure probability of 1")
	}
}

func TestGrimNeverForgives(t *testing.T) {
	self := NewAgent(0, Grim, NoGroup)
	opponent := NewAgent(0, AlwaysCooperate, NoGroup)
	h := NewHistory()
	h.Add(playResult(self, opponent, true, false))
	h.Add(playResult(self, opponent, false, true))
	if Grim.IsCooperative(nil, self, opponent, h) {
		t.Fatal("expected grim to keep defecting after a betrayal")
	}
	if Grim.CooperationProbability(self, opponent, h) != 0 {
		t.Fatal("expected pure probability of 0")
	}
}

func TestGroupStrategiesUseGroupHistory(t *testing.T) {
	self := NewAgent(0, GroupGrim, 1)
	teammate := NewAgent(0, AlwaysCooperate, 1)
	opponent := NewAgent(0, AlwaysCooperate, 2)
	opponentMate := NewAgent(0, NeverCooperate, 2)
	outsider := NewAgent(0, NeverCooperate, NoGroup)

	h := NewHistory()
	h.Add(playResult(teammate, opponentMate, true, false))

	if GroupGrim.IsCooperative(nil, self, opponent, h) {
		t.Fatal("expected group grim to punish the whole opposing group")
	}
	if GroupTitForTat.IsCooperative(nil, self, opponent, h) {
		t.Fatal("expected group tit-for-tat to mirror the opposing group")
	}
	if !Grim.IsCooperative(nil, self, opponent, h) {
		t.Fatal("expected individual grim to ignore group history")
	}
	if !GroupGrim.IsCooperative(nil, self, outsider, h) {
		t.Fatal("expected cooperation with an ungrouped stranger")
	}
}

func TestMixedStrategyConstructionValidation(t *testing.T) {
	if _, err := NewMixedStrategy([]*PureStrategy{AlwaysCooperate}, []float64{0.5, 0.5}); !errors.Is(err, ErrInvalidMixedStrategy) {
		t.Fatalf("expected length mismatch error, got %v", err)
	}
	if _, err := NewMixedStrategy([]*PureStrategy{AlwaysCooperate, NeverCooperate}, []float64{1.2, 0}); !errors.Is(err, ErrInvalidMixedStrategy) {
		t.Fatalf("expected out of range error, got %v", err)
	}
	if _, err := NewMixedStrategy([]*PureStrategy{AlwaysCooperate, NeverCooperate}, []float64{0.7, 0.7}); !errors.Is(err, ErrInvalidMixedStrategy) {
		t.Fatalf("expected sum error, got %v", err)
	}
	m, err := NewMixedStrategy([]*PureStrategy{AlwaysCooperate, NeverCooperate}, []float64{0.3, 0.5})
	if err != nil {
		t.Fatalf("new mixed: %v", err)
	}
	if sum := m.SumNorm(); sum < 0 || sum > 1 {
		t.Fatalf("unexpected sum %f", sum)
	}
}

func TestMixedStrategyProbabilityAndSampling(t *testing.T) {
	self := NewAgent(0, nil, NoGroup)
	opponent := NewAgent(0, nil, NoGroup)
	m, err := NewMixedStrategy([]*PureStrategy{AlwaysCooperate, NeverCooperate}, []float64{0.25, 0.75})
	if err != nil {
		t.Fatalf("new mixed: %v", err)
	}
	self.Strategy = m

	if got := m.CooperationProbability(self, opponent, NewHistory()); got != 0.25 {
		t.Fatalf("unexpected cooperation probability %f", got)
	}

	rng := rand.New(rand.NewSource(11))
	cooperations := 0
	const draws = 20000
	for i := 0; i < draws; i++ {
		if m.IsCooperative(rng, self, opponent, NewHistory()) {
			cooperations++
		}
	}
	if freq := float64(cooperations) / draws; math.Abs(freq-0.25) > 0.02 {
		t.Fatalf("cooperation frequency %f far from 0.25", freq)
	}

	partial, err := NewMixedStrategy([]*PureStrategy{AlwaysCooperate}, []float64{0})
	if err != nil {
		t.Fatalf("new partial mixed: %v", err)
	}
	for i := 0; i < 100; i++ {
		if partial.IsCooperative(rng, self, opponent, NewHistory()) {
			t.Fatal("expected unassigned mass to defect")
		}
	}
}

func TestMixedStrategyArithmetic(t *testing.T) {
	a, _ := NewMixedStrategy([]*PureStrategy{AlwaysCooperate, NeverCooperate}, []float64{0.6, 0.4})
	b, _ := NewMixedStrategy([]*PureStrategy{AlwaysCooperate, NeverCooperate}, []float64{0.2, 0.8})

	sum, err := a.Scale(0.5).Add(b.Scale(0.5))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	got := sum.Probabilities()
	if math.Abs(got[0]-0.4) > 1e-12 || math.Abs(got[1]-0.6) > 1e-12 {
		t.Fatalf("unexpected interpolation %v", got)
	}
	if d, _ := a.Distance(b); math.Abs(d-0.8) > 1e-12 {
		t.Fatalf("unexpected distance %f", d)
	}
	if n := a.Norm(); math.Abs(n-math.Sqrt(0.52)) > 1e-12 {
		t.Fatalf("unexpected norm %f", n)
	}

	other, _ := NewMixedStrategy([]*PureStrategy{NeverCooperate, AlwaysCooperate}, []float64{0.5, 0.5})
	if _, err := a.Add(other); !errors.Is(err, ErrComponentMismatch) {
		t.Fatalf("expected component mismatch, got %v", err)
	}

	normalized, err := a.Scale(3).Normalized()
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if math.Abs(normalized.SumNorm()-1) > 1e-12 {
		t.Fatalf("expected normalized sum 1, got %f", normalized.SumNorm())
	}
}

func TestPayoffMatrixPlayCreditsCapital(t *testing.T) {
	pd, ok := Preset("prisoners_dilemma")
	if !ok {
		t.Fatal("expected prisoners dilemma preset")
	}
	if !pd.IsPrisonersDilemma() {
		t.Fatal("expected preset to satisfy dilemma ordering")
	}
	a := NewAgent(10, AlwaysCooperate, NoGroup)
	b := NewAgent(10, NeverCooperate, NoGroup)
	r := pd.Play(a, b, true, false)
	if a.Capital != 10 || b.Capital != 15 {
		t.Fatalf("unexpected capitals a=%f b=%f", a.Capital, b.Capital)
	}
	if r.Payoff(a.ID) != 0 || r.Payoff(b.ID) != 5 || r.Cooperated(b.ID) {
		t.Fatalf("unexpected result %+v", r)
	}
	if b.Payoff() != 5 {
		t.Fatalf("unexpected payoff %f", b.Payoff())
	}
	if opp, _ := r.Opponent(a.ID); opp.ID != b.ID {
		t.Fatal("unexpected opponent")
	}
}

func TestNewPayoffMatrixRejectsNonFinitePayoffs(t *testing.T) {
	if _, err := NewPayoffMatrix("custom", 3, 0, 5, 1); err != nil {
		t.Fatalf("expected valid matrix: %v", err)
	}
	for _, bad := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if _, err := NewPayoffMatrix("custom", 3, bad, 5, 1); err == nil {
			t.Fatalf("expected error for sucker payoff %v", bad)
		}
		if _, err := NewPayoffMatrix("custom", 3, 0, 5, bad); err == nil {
			t.Fatalf("expected error for punishment payoff %v", bad)
		}
	}
	if _, err := NewPayoffMatrix("", 3, 0, 5, 1); err == nil {
		t.Fatal("expected error for missing label")
	}
}

func TestAgentIDsAreUnique(t *testing.T) {
	seen := make(map[AgentID]bool)
	for i := 0; i < 100; i++ {
		a := NewAgent(0, AlwaysCooperate, NoGroup)
		if seen[a.ID] {
			t.Fatalf("duplicate id %d", a.ID)
		}
		seen[a.ID] = true
	}
}
