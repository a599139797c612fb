package game

// Side is one participant's view of a played game.
type Side struct {
	ID         AgentID
	Group      int
	Cooperated bool
	Payoff     float64
}

// GameResult is the immutable outcome of one pairwise play.
type GameResult struct {
	First  Side
	Second Side
}

func (r GameResult) HasAgent(id AgentID) bool {
	return r.First.ID == id || r.Second.ID == id
}

// Side returns the side played by id.
func (r GameResult) Side(id AgentID) (Side, bool) {
	switch id {
	case r.First.ID:
		return r.First, true
	case r.Second.ID:
		return r.Second, true
	}
	return Side{}, false
}

// Opponent returns the side played against id.
func (r GameResult) Opponent(id AgentID) (Side, bool) {
	switch id {
	case r.First.ID:
		return r.Second, true
	case r.Second.ID:
		return r.First, true
	}
	return Side{}, false
}

func (r GameResult) Cooperated(id AgentID) bool {
	side, ok := r.Side(id)
	return ok && side.Cooperated
}

func (r GameResult) Payoff(id AgentID) float64 {
	side, _ := r.Side(id)
	return side.Payoff
}

// InGroup reports whether either side belongs to group g.
func (r GameResult) InGroup(g int) bool {
	if g == NoGroup {
		return false
	}
	return r.First.Group == g || r.Second.Group == g
}

// History is the log of games played during the current adaptation step.
// Queries always return the most recent result first.
type History struct {
	// chronological; the newest result is the last element
	results []GameResult
}

func NewHistory() *History {
	return &History{}
}

func (h *History) Add(r GameResult) {
	h.results = append(h.results, r)
}

func (h *History) Len() int {
	return len(h.results)
}

func (h *History) Reset() {
	clear(h.results)
	h.results = h.results[:0]
}

// Clone returns an independent copy.
func (h *History) Clone() *History {
	return &History{results: append([]GameResult(nil), h.results...)}
}

// All returns every result, newest first.
func (h *History) All() []GameResult {
	return h.Filter(nil)
}

// Filter returns every result matching keep, newest first. A nil keep
// matches everything.
func (h *History) Filter(keep func(GameResult) bool) []GameResult {
	out := make([]GameResult, 0, len(h.results))
	for i := len(h.results) - 1; i >= 0; i-- {
		if keep == nil || keep(h.results[i]) {
			out = append(out, h.results[i])
		}
	}
	return out
}

// First returns the newest result matching keep.
func (h *History) First(keep func(GameResult) bool) (GameResult, bool) {
	for i := len(h.results) - 1; i >= 0; i-- {
		if keep(h.results[i]) {
			return h.results[i], true
		}
	}
	return GameResult{}, false
}

func (h *History) ForAgent(id AgentID) []GameResult {
	return h.Filter(func(r GameResult) bool { return r.HasAgent(id) })
}

func (h *History) ForGroup(g int) []GameResult {
	return h.Filter(func(r GameResult) bool { return r.InGroup(g) })
}

// LatestPerAgent maps each requested agent to its newest result. Agents
// without results are absent from the map.
func (h *History) LatestPerAgent(ids []AgentID) map[AgentID]GameResult {
	pending := make(map[AgentID]struct{}, len(ids))
	for _, id := range ids {
		pending[id] = struct{}{}
	}
	out := make(map[AgentID]GameResult, len(ids))
	for i := len(h.results) - 1; i >= 0 && len(pending) > 0; i-- {
		r := h.results[i]
		for _, id := range [2]AgentID{r.First.ID, r.Second.ID} {
			if _, ok := pending[id]; ok {
				out[id] = r
				delete(pending, id)
			}
		}
	}
	return out
}

// LatestPerGroup maps each requested group to the newest result involving
// one of its members.
func (h *History) LatestPerGroup(groups []int) map[int]GameResult {
	pending := make(map[int]struct{}, len(groups))
	for _, g := range groups {
		if g != NoGroup {
			pending[g] = struct{}{}
		}
	}
	out := make(map[int]GameResult, len(pending))
	for i := len(h.results) - 1; i >= 0 && len(pending) > 0; i-- {
		r := h.results[i]
		for _, g := range [2]int{r.First.Group, r.Second.Group} {
			if _, ok := pending[g]; ok {
				out[g] = r
				delete(pending, g)
			}
		}
	}
	return out
}

// Chronological returns the payoffs of id oldest first.
func (h *History) Chronological(id AgentID) []float64 {
	var out []float64
	for _, r := range h.results {
		if side, ok := r.Side(id); ok {
			out = append(out, side.Payoff)
		}
	}
	return out
}

// PayoffSum totals the payoffs id received in this step.
func (h *History) PayoffSum(id AgentID) float64 {
	total := 0.0
	for _, r := range h.results {
		if side, ok := r.Side(id); ok {
			total += side.Payoff
		}
	}
	return total
}
