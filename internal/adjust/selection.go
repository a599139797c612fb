package adjust

import (
	"fmt"

	"golang.org/x/exp/rand"

	"equilibria/internal/game"
)

// Scored is a ranked agent with its payoff in the current step.
type Scored struct {
	Agent *game.Agent
	Score float64
}

// PeerSelector chooses the agent whose strategy the agent at position
// should move towards. Returning position itself means no change.
type PeerSelector interface {
	Name() string
	PickPeer(rng *rand.Rand, ranked []Scored, position int) (int, error)
}

func checkPick(rng *rand.Rand, ranked []Scored, position int) error {
	if rng == nil {
		return fmt.Errorf("random source is required")
	}
	if position < 0 || position >= len(ranked) {
		return fmt.Errorf("invalid rank position: %d", position)
	}
	return nil
}

// EliteSelector picks uniformly from the top Count ranks.
type EliteSelector struct {
	Count int
}

func (EliteSelector) Name() string {
	return "elite"
}

func (s EliteSelector) PickPeer(rng *rand.Rand, ranked []Scored, position int) (int, error) {
	if err := checkPick(rng, ranked, position); err != nil {
		return 0, err
	}
	count := s.Count
	if count <= 0 {
		count = 1
	}
	if count > len(ranked) {
		count = len(ranked)
	}
	if position < count {
		return position, nil
	}
	return rng.Intn(count), nil
}

// TournamentSelector samples Size better-ranked agents and keeps the one
// with the highest score.
type TournamentSelector struct {
	Size int
}

func (TournamentSelector) Name() string {
	return "tournament"
}

func (s TournamentSelector) PickPeer(rng *rand.Rand, ranked []Scored, position int) (int, error) {
	if err := checkPick(rng, ranked, position); err != nil {
		return 0, err
	}
	if position == 0 {
		return 0, nil
	}
	size := s.Size
	if size <= 0 {
		size = 3
	}
	if size > position {
		size = position
	}
	best := rng.Intn(position)
	for i := 1; i < size; i++ {
		candidate := rng.Intn(position)
		if ranked[candidate].Score > ranked[best].Score ||
			(ranked[candidate].Score == ranked[best].Score && candidate < best) {
			best = candidate
		}
	}
	return best, nil
}

// RankProportionalSelector picks among strictly better-ranked agents with
// weight proportional to how high they rank.
type RankProportionalSelector struct{}

func (RankProportionalSelector) Name() string {
	return "rank_proportional"
}

func (RankProportionalSelector) PickPeer(rng *rand.Rand, ranked []Scored, position int) (int, error) {
	if err := checkPick(rng, ranked, position); err != nil {
		return 0, err
	}
	if position == 0 {
		return 0, nil
	}
	n := len(ranked)
	weights := make([]float64, position)
	for j := range weights {
		weights[j] = float64(n - j)
	}
	return roulette(rng, weights), nil
}

// PayoffProportionalSelector picks among the whole population with weight
// proportional to score above the population minimum.
type PayoffProportionalSelector struct{}

func (PayoffProportionalSelector) Name() string {
	return "payoff_proportional"
}

func (PayoffProportionalSelector) PickPeer(rng *rand.Rand, ranked []Scored, position int) (int, error) {
	if err := checkPick(rng, ranked, position); err != nil {
		return 0, err
	}
	return roulette(rng, fitnessWeights(ranked)), nil
}

// fitnessWeights shifts scores so the worst agent has weight zero. A flat
// population gets uniform weights.
func fitnessWeights(ranked []Scored) []float64 {
	weights := make([]float64, len(ranked))
	if len(ranked) == 0 {
		return weights
	}
	min := ranked[0].Score
	for _, s := range ranked {
		if s.Score < min {
			min = s.Score
		}
	}
	total := 0.0
	for i, s := range ranked {
		weights[i] = s.Score - min
		total += weights[i]
	}
	if total <= 0 {
		for i := range weights {
			weights[i] = 1
		}
	}
	return weights
}

func roulette(rng *rand.Rand, weights []float64) int {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return rng.Intn(len(weights))
	}
	target := rng.Float64() * total
	acc := 0.0
	for i, w := range weights {
		acc += w
		if target < acc {
			return i
		}
	}
	return len(weights) - 1
}
