package ranking

import (
	"fmt"
	"sort"

	"equilibria/internal/game"
)

// SuccessQuantifier orders agents best to worst. CreateRanking sorts the
// given slice in place and returns it.
type SuccessQuantifier interface {
	Name() string
	CreateRanking(agents []*game.Agent, h *game.History) []*game.Agent
}

// Ties keep their original relative order.
func sortByScoreDesc(agents []*game.Agent, score func(*game.Agent) float64) []*game.Agent {
	scores := make(map[game.AgentID]float64, len(agents))
	for _, a := range agents {
		scores[a.ID] = score(a)
	}
	sort.SliceStable(agents, func(i, j int) bool {
		return scores[agents[i].ID] > scores[agents[j].ID]
	})
	return agents
}

type TotalCapital struct{}

func (TotalCapital) Name() string {
	return "total_capital"
}

func (TotalCapital) CreateRanking(agents []*game.Agent, _ *game.History) []*game.Agent {
	return sortByScoreDesc(agents, func(a *game.Agent) float64 { return a.Capital })
}

// TotalPayoff ignores the starting endowment.
type TotalPayoff struct{}

func (TotalPayoff) Name() string {
	return "total_payoff"
}

func (TotalPayoff) CreateRanking(agents []*game.Agent, _ *game.History) []*game.Agent {
	return sortByScoreDesc(agents, (*game.Agent).Payoff)
}

// PayoffInLastAdapt only counts payoffs from the current adaptation step.
type PayoffInLastAdapt struct{}

func (PayoffInLastAdapt) Name() string {
	return "payoff_in_last_adapt"
}

func (PayoffInLastAdapt) CreateRanking(agents []*game.Agent, h *game.History) []*game.Agent {
	if h == nil {
		return agents
	}
	return sortByScoreDesc(agents, func(a *game.Agent) float64 { return h.PayoffSum(a.ID) })
}

// SlidingMean rewards consistent performance: for every round it ranks
// agents by the sum of their last Window payoffs and orders them by the
// total of those per-round ranks, lowest first. Agents with equal window
// sums share the better rank.
type SlidingMean struct {
	Window int
}

func NewSlidingMean(window int) (SlidingMean, error) {
	if window <= 0 {
		return SlidingMean{}, fmt.Errorf("sliding mean window must be > 0, got %d", window)
	}
	return SlidingMean{Window: window}, nil
}

func (SlidingMean) Name() string {
	return "sliding_mean"
}

func (s SlidingMean) CreateRanking(agents []*game.Agent, h *game.History) []*game.Agent {
	if h == nil || len(agents) == 0 {
		return agents
	}
	window := s.Window
	if window <= 0 {
		window = 1
	}

	sums := make([][]float64, len(agents))
	rounds := 0
	for i, a := range agents {
		sums[i] = windowSums(h.Chronological(a.ID), window)
		if len(sums[i]) > rounds {
			rounds = len(sums[i])
		}
	}

	totals := make(map[game.AgentID]int, len(agents))
	order := make([]int, len(agents))
	for k := 0; k < rounds; k++ {
		at := func(i int) float64 {
			if k < len(sums[i]) {
				return sums[i][k]
			}
			if n := len(sums[i]); n > 0 {
				return sums[i][n-1]
			}
			return 0
		}
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(x, y int) bool { return at(order[x]) > at(order[y]) })
		rank := 0
		for pos, i := range order {
			if pos > 0 && at(i) != at(order[pos-1]) {
				rank = pos
			}
			totals[agents[i].ID] += rank
		}
	}

	sort.SliceStable(agents, func(i, j int) bool {
		return totals[agents[i].ID] < totals[agents[j].ID]
	})
	return agents
}

// windowSums returns, for each index k, the sum of payoffs[k-w+1..k].
func windowSums(payoffs []float64, w int) []float64 {
	out := make([]float64, len(payoffs))
	running := 0.0
	for k, p := range payoffs {
		running += p
		if k >= w {
			running -= payoffs[k-w]
		}
		out[k] = running
	}
	return out
}
