package adjust

import (
	"errors"
	"fmt"

	"golang.org/x/exp/rand"

	"equilibria/internal/game"
)

var ErrStrategyKind = errors.New("pure and mixed strategies cannot be combined")

// StrategyAdjuster rewrites agent strategies after an adaptation step. The
// ranked slice is ordered best first. Pure strategies stay pure and mixed
// strategies stay valid mixtures over the same components.
type StrategyAdjuster interface {
	Name() string
	AdaptStrategies(rng *rand.Rand, ranked []*game.Agent, h *game.History) error
}

// Noop leaves every strategy untouched.
type Noop struct{}

func (Noop) Name() string {
	return "noop"
}

func (Noop) AdaptStrategies(_ *rand.Rand, _ []*game.Agent, _ *game.History) error {
	return nil
}

// Blend holds the weights of the own strategy and of the peer influence.
type Blend struct {
	Alpha float64
	Beta  float64
}

func (b Blend) validate() error {
	if b.Alpha < 0 || b.Beta < 0 {
		return fmt.Errorf("blend weights must be >= 0, got alpha=%g beta=%g", b.Alpha, b.Beta)
	}
	if b.Alpha+b.Beta <= 0 {
		return fmt.Errorf("blend weights must not both be zero")
	}
	return nil
}

// switchProbability is the chance a pure agent adopts its peer's strategy.
func (b Blend) switchProbability() float64 {
	return b.Beta / (b.Alpha + b.Beta)
}

// mix returns normalize(alpha*own + beta*target).
func (b Blend) mix(own, target *game.MixedStrategy) (*game.MixedStrategy, error) {
	blended, err := own.Scale(b.Alpha).Add(target.Scale(b.Beta))
	if err != nil {
		return nil, err
	}
	return blended.Normalized()
}

// Imitation moves each agent towards a peer chosen by Selector.
type Imitation struct {
	Blend
	Label    string
	Selector PeerSelector
}

func NewImitation(label string, alpha, beta float64, selector PeerSelector) (*Imitation, error) {
	blend := Blend{Alpha: alpha, Beta: beta}
	if err := blend.validate(); err != nil {
		return nil, err
	}
	if selector == nil {
		return nil, fmt.Errorf("peer selector is required")
	}
	if label == "" {
		label = selector.Name() + "_imitation"
	}
	return &Imitation{Blend: blend, Label: label, Selector: selector}, nil
}

// NewPreferentialAdaption imitates better-ranked peers, preferring the best.
func NewPreferentialAdaption(alpha, beta float64) (*Imitation, error) {
	return NewImitation("preferential_adaption", alpha, beta, RankProportionalSelector{})
}

func (i *Imitation) Name() string {
	return i.Label
}

func (i *Imitation) AdaptStrategies(rng *rand.Rand, ranked []*game.Agent, h *game.History) error {
	if rng == nil {
		return fmt.Errorf("random source is required")
	}
	scored := score(ranked, h)
	next := make([]game.Strategy, len(ranked))
	for pos, agent := range ranked {
		peer, err := i.Selector.PickPeer(rng, scored, pos)
		if err != nil {
			return fmt.Errorf("pick peer for rank %d: %w", pos, err)
		}
		next[pos] = agent.Strategy
		if peer == pos {
			continue
		}
		updated, err := i.moveTowards(rng, agent.Strategy, ranked[peer].Strategy)
		if err != nil {
			return fmt.Errorf("adapt agent %d: %w", agent.ID, err)
		}
		next[pos] = updated
	}
	for pos, agent := range ranked {
		agent.Strategy = next[pos]
	}
	return nil
}

func (i *Imitation) moveTowards(rng *rand.Rand, own, peer game.Strategy) (game.Strategy, error) {
	ownMixed, ownIsMixed := own.(*game.MixedStrategy)
	peerMixed, peerIsMixed := peer.(*game.MixedStrategy)
	switch {
	case ownIsMixed && peerIsMixed:
		return i.mix(ownMixed, peerMixed)
	case !ownIsMixed && !peerIsMixed:
		if rng.Float64() < i.switchProbability() {
			return peer, nil
		}
		return own, nil
	default:
		return nil, ErrStrategyKind
	}
}

// ReplicatorDynamic grows strategies in proportion to how much better than
// the worst agent they perform. Mixed agents move towards the
// payoff-weighted population mixture; pure agents copy a payoff-proportional
// sample with the blend's switch probability.
type ReplicatorDynamic struct {
	Blend
}

func NewReplicatorDynamic(alpha, beta float64) (*ReplicatorDynamic, error) {
	blend := Blend{Alpha: alpha, Beta: beta}
	if err := blend.validate(); err != nil {
		return nil, err
	}
	return &ReplicatorDynamic{Blend: blend}, nil
}

func (*ReplicatorDynamic) Name() string {
	return "replicator_dynamic"
}

func (r *ReplicatorDynamic) AdaptStrategies(rng *rand.Rand, ranked []*game.Agent, h *game.History) error {
	if rng == nil {
		return fmt.Errorf("random source is required")
	}
	if len(ranked) == 0 {
		return nil
	}
	if _, mixed := ranked[0].Strategy.(*game.MixedStrategy); !mixed {
		imitation := Imitation{Blend: r.Blend, Label: r.Name(), Selector: PayoffProportionalSelector{}}
		return imitation.AdaptStrategies(rng, ranked, h)
	}

	scored := score(ranked, h)
	target, err := populationMixture(scored)
	if err != nil {
		return err
	}
	next := make([]*game.MixedStrategy, len(ranked))
	for pos, agent := range ranked {
		own, ok := agent.Strategy.(*game.MixedStrategy)
		if !ok {
			return fmt.Errorf("adapt agent %d: %w", agent.ID, ErrStrategyKind)
		}
		if next[pos], err = r.mix(own, target); err != nil {
			return fmt.Errorf("adapt agent %d: %w", agent.ID, err)
		}
	}
	for pos, agent := range ranked {
		agent.Strategy = next[pos]
	}
	return nil
}

func populationMixture(scored []Scored) (*game.MixedStrategy, error) {
	weights := fitnessWeights(scored)
	total := 0.0
	for _, w := range weights {
		total += w
	}
	var mixture *game.MixedStrategy
	for i, s := range scored {
		m, ok := s.Agent.Strategy.(*game.MixedStrategy)
		if !ok {
			return nil, ErrStrategyKind
		}
		term := m.Scale(weights[i] / total)
		if mixture == nil {
			mixture = term
			continue
		}
		sum, err := mixture.Add(term)
		if err != nil {
			return nil, err
		}
		mixture = sum
	}
	return mixture, nil
}

func score(ranked []*game.Agent, h *game.History) []Scored {
	scored := make([]Scored, len(ranked))
	for i, a := range ranked {
		scored[i] = Scored{Agent: a}
		if h != nil {
			scored[i].Score = h.PayoffSum(a.ID)
		}
	}
	return scored
}
