package adjust

import (
	"errors"
	"math"
	"testing"

	"golang.org/x/exp/rand"

	"equilibria/internal/game"
)

var components = []*game.PureStrategy{game.AlwaysCooperate, game.NeverCooperate, game.TitForTat}

func mixedAgent(t *testing.T, probabilities ...float64) *game.Agent {
	t.Helper()
	m, err := game.NewMixedStrategy(components, probabilities)
	if err != nil {
		t.Fatalf("new mixed: %v", err)
	}
	return game.NewAgent(0, m, game.NoGroup)
}

func stepHistory(ranked []*game.Agent) *game.History {
	h := game.NewHistory()
	for i := 0; i+1 < len(ranked); i += 2 {
		h.Add(game.GameResult{
			First:  game.Side{ID: ranked[i].ID, Group: game.NoGroup, Payoff: float64(len(ranked) - i)},
			Second: game.Side{ID: ranked[i+1].ID, Group: game.NoGroup, Payoff: float64(len(ranked) - i - 1)},
		})
	}
	return h
}

func assertValidMixtures(t *testing.T, agents []*game.Agent) {
	t.Helper()
	for _, a := range agents {
		m, ok := a.Strategy.(*game.MixedStrategy)
		if !ok {
			t.Fatalf("agent %d lost its mixed strategy: %T", a.ID, a.Strategy)
		}
		if m.Len() != len(components) {
			t.Fatalf("agent %d has %d components", a.ID, m.Len())
		}
		if sum := m.SumNorm(); math.Abs(sum-1) > 1e-9 {
			t.Fatalf("agent %d mixture sums to %f", a.ID, sum)
		}
	}
}

func TestAdjustersPreserveMixedStrategies(t *testing.T) {
	replicator, err := NewReplicatorDynamic(0.8, 0.2)
	if err != nil {
		t.Fatalf("new replicator: %v", err)
	}
	preferential, err := NewPreferentialAdaption(0.5, 0.5)
	if err != nil {
		t.Fatalf("new preferential: %v", err)
	}
	tournament, err := NewImitation("", 0.5, 0.5, TournamentSelector{Size: 2})
	if err != nil {
		t.Fatalf("new tournament imitation: %v", err)
	}

	for _, adjuster := range []StrategyAdjuster{replicator, preferential, tournament} {
		ranked := []*game.Agent{
			mixedAgent(t, 0.8, 0.1, 0.1),
			mixedAgent(t, 0.2, 0.7, 0.1),
			mixedAgent(t, 0.1, 0.1, 0.8),
			mixedAgent(t, 0, 1, 0),
		}
		h := stepHistory(ranked)
		if err := adjuster.AdaptStrategies(rand.New(rand.NewSource(4)), ranked, h); err != nil {
			t.Fatalf("%s: %v", adjuster.Name(), err)
		}
		if len(ranked) != 4 {
			t.Fatalf("%s changed the population size", adjuster.Name())
		}
		assertValidMixtures(t, ranked)
	}
}

func TestPreferentialAdaptionKeepsBestAndMovesOthers(t *testing.T) {
	best := mixedAgent(t, 1, 0, 0)
	worst := mixedAgent(t, 0, 1, 0)
	adjuster, err := NewPreferentialAdaption(0.5, 0.5)
	if err != nil {
		t.Fatalf("new preferential: %v", err)
	}
	ranked := []*game.Agent{best, worst}
	if err := adjuster.AdaptStrategies(rand.New(rand.NewSource(1)), ranked, stepHistory(ranked)); err != nil {
		t.Fatalf("adapt: %v", err)
	}
	if got := best.Strategy.(*game.MixedStrategy).Probability("always_cooperate"); got != 1 {
		t.Fatalf("expected best agent unchanged, got %f", got)
	}
	if got := worst.Strategy.(*game.MixedStrategy).Probability("always_cooperate"); math.Abs(got-0.5) > 1e-12 {
		t.Fatalf("expected worst agent halfway to the best, got %f", got)
	}
}

func TestAdjustersKeepPureStrategiesPure(t *testing.T) {
	replicator, _ := NewReplicatorDynamic(0, 1)
	preferential, _ := NewPreferentialAdaption(0, 1)
	elite, _ := NewImitation("elite_imitation", 0, 1, EliteSelector{Count: 1})

	for _, adjuster := range []StrategyAdjuster{replicator, preferential, elite} {
		ranked := []*game.Agent{
			game.NewAgent(0, game.TitForTat, game.NoGroup),
			game.NewAgent(0, game.Grim, game.NoGroup),
			game.NewAgent(0, game.NeverCooperate, game.NoGroup),
			game.NewAgent(0, game.AlwaysCooperate, game.NoGroup),
		}
		if err := adjuster.AdaptStrategies(rand.New(rand.NewSource(9)), ranked, stepHistory(ranked)); err != nil {
			t.Fatalf("%s: %v", adjuster.Name(), err)
		}
		for _, a := range ranked {
			if _, ok := a.Strategy.(*game.PureStrategy); !ok {
				t.Fatalf("%s turned agent %d into %T", adjuster.Name(), a.ID, a.Strategy)
			}
		}
	}

	ranked := []*game.Agent{
		game.NewAgent(0, game.TitForTat, game.NoGroup),
		game.NewAgent(0, game.NeverCooperate, game.NoGroup),
	}
	if err := elite.AdaptStrategies(rand.New(rand.NewSource(2)), ranked, nil); err != nil {
		t.Fatalf("elite: %v", err)
	}
	if ranked[1].Strategy != game.TitForTat {
		t.Fatalf("expected full peer influence to copy the elite, got %s", ranked[1].Strategy.Name())
	}
}

func TestAdjustersRejectMixedKinds(t *testing.T) {
	adjuster, _ := NewPreferentialAdaption(0.5, 0.5)
	ranked := []*game.Agent{
		game.NewAgent(0, game.TitForTat, game.NoGroup),
		mixedAgent(t, 0.5, 0.5, 0),
	}
	err := adjuster.AdaptStrategies(rand.New(rand.NewSource(1)), ranked, nil)
	if !errors.Is(err, ErrStrategyKind) {
		t.Fatalf("expected strategy kind error, got %v", err)
	}
}

func TestBlendValidation(t *testing.T) {
	if _, err := NewReplicatorDynamic(-1, 1); err == nil {
		t.Fatal("expected negative alpha error")
	}
	if _, err := NewPreferentialAdaption(0, 0); err == nil {
		t.Fatal("expected zero blend error")
	}
	if _, err := NewImitation("x", 1, 1, nil); err == nil {
		t.Fatal("expected missing selector error")
	}
}

func TestSelectorsStayWithinBetterRanks(t *testing.T) {
	ranked := make([]Scored, 6)
	for i := range ranked {
		ranked[i] = Scored{Agent: game.NewAgent(0, game.AlwaysCooperate, game.NoGroup), Score: float64(6 - i)}
	}
	rng := rand.New(rand.NewSource(8))
	for _, selector := range []PeerSelector{TournamentSelector{Size: 3}, RankProportionalSelector{}} {
		for trial := 0; trial < 200; trial++ {
			peer, err := selector.PickPeer(rng, ranked, 4)
			if err != nil {
				t.Fatalf("%s: %v", selector.Name(), err)
			}
			if peer < 0 || peer >= 4 {
				t.Fatalf("%s picked %d outside the better ranks", selector.Name(), peer)
			}
		}
		if peer, _ := selector.PickPeer(rng, ranked, 0); peer != 0 {
			t.Fatalf("%s: expected best agent to keep itself, got %d", selector.Name(), peer)
		}
	}
	if _, err := (EliteSelector{Count: 2}).PickPeer(nil, ranked, 3); err == nil {
		t.Fatal("expected missing random source error")
	}
}
