package pairing

import (
	"errors"
	"fmt"

	"golang.org/x/exp/rand"

	"equilibria/internal/game"
)

var ErrOddPopulation = errors.New("pairing requires an even number of agents")

// PairBuilder partitions agents into disjoint pairs for one round.
type PairBuilder interface {
	Name() string
	BuildPairs(rng *rand.Rand, agents []*game.Agent, h *game.History) ([]game.Pair, error)
}

func checkPopulation(rng *rand.Rand, agents []*game.Agent) error {
	if rng == nil {
		return fmt.Errorf("random source is required")
	}
	if len(agents)%2 != 0 {
		return fmt.Errorf("%w: got %d", ErrOddPopulation, len(agents))
	}
	return nil
}

// Random pairs agents uniformly at random.
type Random struct{}

func (Random) Name() string {
	return "random"
}

func (Random) BuildPairs(rng *rand.Rand, agents []*game.Agent, _ *game.History) ([]game.Pair, error) {
	if err := checkPopulation(rng, agents); err != nil {
		return nil, err
	}
	return randomPairs(rng, agents), nil
}

// randomPairs repeatedly picks and removes two agents from the pool.
func randomPairs(rng *rand.Rand, agents []*game.Agent) []game.Pair {
	pool := append([]*game.Agent(nil), agents...)
	pairs := make([]game.Pair, 0, len(pool)/2)
	for len(pool) >= 2 {
		first := take(rng, &pool)
		second := take(rng, &pool)
		pairs = append(pairs, game.Pair{First: first, Second: second})
	}
	return pairs
}

func take(rng *rand.Rand, pool *[]*game.Agent) *game.Agent {
	items := *pool
	i := rng.Intn(len(items))
	picked := items[i]
	last := len(items) - 1
	items[i] = items[last]
	items[last] = nil
	*pool = items[:last]
	return picked
}

// RandomCooperationConsidering falls back to random pairing with probability
// RandomnessFactor and otherwise matches cooperative agents together.
type RandomCooperationConsidering struct {
	RandomnessFactor float64
	matcher          *CooperationConsidering
}

func NewRandomCooperationConsidering(randomnessFactor float64) (*RandomCooperationConsidering, error) {
	if randomnessFactor < 0 || randomnessFactor > 1 {
		return nil, fmt.Errorf("randomness factor must be in [0,1], got %g", randomnessFactor)
	}
	return &RandomCooperationConsidering{
		RandomnessFactor: randomnessFactor,
		matcher:          NewCooperationConsidering(),
	}, nil
}

func (*RandomCooperationConsidering) Name() string {
	return "random_cooperation_considering"
}

func (p *RandomCooperationConsidering) BuildPairs(rng *rand.Rand, agents []*game.Agent, h *game.History) ([]game.Pair, error) {
	if err := checkPopulation(rng, agents); err != nil {
		return nil, err
	}
	if rng.Float64() < p.RandomnessFactor {
		return randomPairs(rng, agents), nil
	}
	if p.matcher == nil {
		p.matcher = NewCooperationConsidering()
	}
	return p.matcher.BuildPairs(rng, agents, h)
}
