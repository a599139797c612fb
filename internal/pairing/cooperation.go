package pairing

import (
	"golang.org/x/exp/rand"

	"equilibria/internal/game"
)

// CooperationConsidering pairs agents that are likely to cooperate with each
// other. It builds a complete graph whose edge weight is the sum of both
// sides' cooperation probabilities and takes an approximate maximum-weight
// matching; agents left unmatched are paired randomly.
//
// The vertex layout is cached per agent ID and only rebuilt when the agent
// set changes in size or membership.
// Weights are refreshed on every call since strategies move between steps.
type CooperationConsidering struct {
	vertex  map[game.AgentID]int
	order   []*game.Agent
	weights [][]float64
}

func NewCooperationConsidering() *CooperationConsidering {
	return &CooperationConsidering{}
}

func (*CooperationConsidering) Name() string {
	return "cooperation_considering"
}

func (p *CooperationConsidering) BuildPairs(rng *rand.Rand, agents []*game.Agent, h *game.History) ([]game.Pair, error) {
	if err := checkPopulation(rng, agents); err != nil {
		return nil, err
	}
	if h == nil {
		h = game.NewHistory()
	}
	p.ensureGraph(agents)
	for _, a := range agents {
		p.order[p.vertex[a.ID]] = a
	}
	p.refreshWeights(h)

	mate := pathGrowingMatching(p.weights)
	pairs := make([]game.Pair, 0, len(agents)/2)
	var leftover []*game.Agent
	for i, j := range mate {
		switch {
		case j < 0:
			leftover = append(leftover, p.order[i])
		case i < j:
			pairs = append(pairs, game.Pair{First: p.order[i], Second: p.order[j]})
		}
	}
	return append(pairs, randomPairs(rng, leftover)...), nil
}

// ensureGraph keeps the vertex layout while the agent set is the same,
// whatever order the agents arrive in.
func (p *CooperationConsidering) ensureGraph(agents []*game.Agent) {
	if p.sameMembers(agents) {
		return
	}
	n := len(agents)
	p.vertex = make(map[game.AgentID]int, n)
	for i, a := range agents {
		p.vertex[a.ID] = i
	}
	p.order = make([]*game.Agent, n)
	p.weights = make([][]float64, n)
	for i := range p.weights {
		p.weights[i] = make([]float64, n)
	}
}

func (p *CooperationConsidering) sameMembers(agents []*game.Agent) bool {
	if p.vertex == nil || len(p.vertex) != len(agents) {
		return false
	}
	seen := make([]bool, len(agents))
	for _, a := range agents {
		v, ok := p.vertex[a.ID]
		if !ok || seen[v] {
			return false
		}
		seen[v] = true
	}
	return true
}

func (p *CooperationConsidering) refreshWeights(h *game.History) {
	for i := range p.order {
		for j := i + 1; j < len(p.order); j++ {
			a, b := p.order[i], p.order[j]
			w := a.Strategy.CooperationProbability(a, b, h) + b.Strategy.CooperationProbability(b, a, h)
			p.weights[i][j] = w
			p.weights[j][i] = w
		}
	}
}

// pathGrowingMatching is the Drake-Hougardy half-approximation of a
// maximum-weight matching on a dense weight matrix. It grows paths along the
// heaviest remaining edge, alternately assigning edges to two matchings, and
// keeps the heavier one. Ties go to the lowest vertex index. mate[i] is the
// partner of i or -1.
func pathGrowingMatching(weights [][]float64) []int {
	n := len(weights)
	removed := make([]bool, n)
	var matchings [2][][2]int
	var totals [2]float64

	for start := 0; start < n; start++ {
		if removed[start] {
			continue
		}
		v, side := start, 0
		for {
			u := -1
			for k := 0; k < n; k++ {
				if k == v || removed[k] {
					continue
				}
				if u < 0 || weights[v][k] > weights[v][u] {
					u = k
				}
			}
			removed[v] = true
			if u < 0 {
				break
			}
			matchings[side] = append(matchings[side], [2]int{v, u})
			totals[side] += weights[v][u]
			side = 1 - side
			v = u
		}
	}

	best := 0
	if totals[1] > totals[0] {
		best = 1
	}
	mate := make([]int, n)
	for i := range mate {
		mate[i] = -1
	}
	for _, e := range matchings[best] {
		mate[e[0]] = e[1]
		mate[e[1]] = e[0]
	}
	return mate
}
