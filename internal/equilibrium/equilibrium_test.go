package equilibrium

import (
	"testing"

	"equilibria/internal/game"
)

func agents(n int) []*game.Agent {
	out := make([]*game.Agent, n)
	for i := range out {
		out[i] = game.NewAgent(0, game.AlwaysCooperate, game.NoGroup)
	}
	return out
}

func TestCountingNeedsConsecutiveQualifyingSteps(t *testing.T) {
	holds := true
	criterion, err := NewCounting("synthetic", ConditionFunc(func(_, _ Snapshot) bool { return holds }), 3)
	if err != nil {
		t.Fatalf("new counting: %v", err)
	}
	population := agents(4)

	// The first call only records a snapshot.
	if criterion.Check(population, nil) {
		t.Fatal("expected no equilibrium without a previous snapshot")
	}
	for step := 1; step < 3; step++ {
		if criterion.Check(population, nil) {
			t.Fatalf("equilibrium reported after %d qualifying steps", step)
		}
	}
	if !criterion.Check(population, nil) {
		t.Fatal("expected equilibrium after 3 qualifying steps")
	}

	holds = false
	if criterion.Check(population, nil) {
		t.Fatal("expected a failing step to break equilibrium")
	}
	if criterion.Consecutive() != 0 {
		t.Fatalf("expected counter reset, got %d", criterion.Consecutive())
	}

	holds = true
	for step := 1; step < 3; step++ {
		if criterion.Check(population, nil) {
			t.Fatalf("equilibrium reported %d steps after reset", step)
		}
	}
	if !criterion.Check(population, nil) {
		t.Fatal("expected equilibrium again after 3 qualifying steps")
	}
}

func TestCountingResetsOnNewPopulation(t *testing.T) {
	criterion, err := NewCounting("synthetic", ConditionFunc(func(_, _ Snapshot) bool { return true }), 1)
	if err != nil {
		t.Fatalf("new counting: %v", err)
	}
	first := agents(4)
	criterion.Check(first, nil)
	if !criterion.Check(first, nil) {
		t.Fatal("expected equilibrium for a stable population")
	}
	if criterion.Check(agents(4), nil) {
		t.Fatal("expected a fresh population to start over")
	}
}

func TestRankingConditionThreshold(t *testing.T) {
	population := agents(4)
	previous := TakeSnapshot(population)
	swapped := []*game.Agent{population[1], population[0], population[2], population[3]}
	current := TakeSnapshot(swapped)

	// displacement 2, bound 0.5 * alpha * 16
	if !(RankingCondition{Alpha: 0.5}).Holds(previous, current) {
		t.Fatal("expected displacement 2 < 4")
	}
	if (RankingCondition{Alpha: 0.25}).Holds(previous, current) {
		t.Fatal("expected displacement 2 not < 2")
	}
	if !(RankingCondition{Alpha: 0.01}).Holds(previous, previous) {
		t.Fatal("expected unchanged ranking to hold")
	}
	if (RankingCondition{Alpha: 0}).Holds(previous, previous) {
		t.Fatal("expected zero strictness never to hold")
	}
}

func TestStrategyConditionPureAndMixed(t *testing.T) {
	population := agents(4)
	previous := TakeSnapshot(population)
	population[0].Strategy = game.NeverCooperate
	current := TakeSnapshot(population)

	// one change: 0.5 * 2 = 1 against alpha * 4
	if !(StrategyCondition{Alpha: 0.3}).Holds(previous, current) {
		t.Fatal("expected 1 < 1.2")
	}
	if (StrategyCondition{Alpha: 0.25}).Holds(previous, current) {
		t.Fatal("expected 1 not < 1")
	}

	a, _ := game.NewMixedStrategy([]*game.PureStrategy{game.AlwaysCooperate, game.NeverCooperate}, []float64{0.5, 0.5})
	b, _ := game.NewMixedStrategy([]*game.PureStrategy{game.AlwaysCooperate, game.NeverCooperate}, []float64{0.6, 0.4})
	mixed := agents(2)
	mixed[0].Strategy, mixed[1].Strategy = a, a
	before := TakeSnapshot(mixed)
	mixed[0].Strategy = b
	after := TakeSnapshot(mixed)
	// 0.5 * 0.2 = 0.1 against alpha * 2
	if !(StrategyCondition{Alpha: 0.06}).Holds(before, after) {
		t.Fatal("expected 0.1 < 0.12")
	}
	if (StrategyCondition{Alpha: 0.04}).Holds(before, after) {
		t.Fatal("expected 0.1 not < 0.08")
	}
}

func TestConstructorsValidate(t *testing.T) {
	if _, err := NewRankingEquilibrium(1.5, 2); err == nil {
		t.Fatal("expected alpha range error")
	}
	if _, err := NewStrategyEquilibrium(0.5, 0); err == nil {
		t.Fatal("expected min steps error")
	}
	if _, err := NewCounting("x", nil, 1); err == nil {
		t.Fatal("expected missing condition error")
	}
}
