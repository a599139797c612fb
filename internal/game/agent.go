package game

import "sync/atomic"

// NoGroup marks an agent that belongs to no cohesive group.
const NoGroup = -1

// AgentID is a process-unique handle. Agents created for different
// iterations never share an ID.
type AgentID uint64

var nextAgentID atomic.Uint64

// Agent is a mutable simulation participant.
type Agent struct {
	ID             AgentID
	Capital        float64
	InitialCapital float64
	Strategy       Strategy
	Group          int
}

func NewAgent(capital float64, strategy Strategy, group int) *Agent {
	if group < 0 {
		group = NoGroup
	}
	return &Agent{
		ID:             AgentID(nextAgentID.Add(1)),
		Capital:        capital,
		InitialCapital: capital,
		Strategy:       strategy,
		Group:          group,
	}
}

// Payoff is the capital earned since the agent was created.
func (a *Agent) Payoff() float64 {
	return a.Capital - a.InitialCapital
}

// InGroup reports whether the agent belongs to the cohesive group g.
func (a *Agent) InGroup(g int) bool {
	return g != NoGroup && a.Group == g
}

// Snapshot captures the agent state at a point in time.
func (a *Agent) Snapshot() AgentSnapshot {
	name := ""
	var weights []float64
	if a.Strategy != nil {
		name = a.Strategy.Name()
		if mixed, ok := a.Strategy.(*MixedStrategy); ok {
			weights = mixed.Probabilities()
		}
	}
	return AgentSnapshot{
		ID:             a.ID,
		Group:          a.Group,
		Capital:        a.Capital,
		InitialCapital: a.InitialCapital,
		Strategy:       name,
		Weights:        weights,
	}
}

// AgentSnapshot is an immutable copy of an agent's observable state.
type AgentSnapshot struct {
	ID             AgentID
	Group          int
	Capital        float64
	InitialCapital float64
	Strategy       string
	Weights        []float64
}

// Pair is two agents that play each other in one round.
type Pair struct {
	First  *Agent
	Second *Agent
}
