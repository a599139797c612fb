package equilibrium

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"equilibria/internal/game"
)

// Criterion decides after each adaptation step whether the population has
// settled. Implementations may keep state across calls within an iteration.
type Criterion interface {
	Name() string
	Check(ranked []*game.Agent, h *game.History) bool
}

// StrategySnapshot is a frozen copy of one agent's strategy.
type StrategySnapshot struct {
	Name    string
	Weights []float64
}

func (s StrategySnapshot) mixed() bool {
	return s.Weights != nil
}

// Snapshot is the population state after one step: the ranking order and
// every agent's strategy, indexed like Order.
type Snapshot struct {
	Order      []game.AgentID
	Strategies []StrategySnapshot
}

func TakeSnapshot(ranked []*game.Agent) Snapshot {
	s := Snapshot{
		Order:      make([]game.AgentID, len(ranked)),
		Strategies: make([]StrategySnapshot, len(ranked)),
	}
	for i, a := range ranked {
		s.Order[i] = a.ID
		snap := StrategySnapshot{}
		if a.Strategy != nil {
			snap.Name = a.Strategy.Name()
			if m, ok := a.Strategy.(*game.MixedStrategy); ok {
				snap.Weights = m.Probabilities()
			}
		}
		s.Strategies[i] = snap
	}
	return s
}

// sameMembers reports whether both snapshots cover the same agents.
func (s Snapshot) sameMembers(other Snapshot) bool {
	if len(s.Order) != len(other.Order) {
		return false
	}
	ids := make(map[game.AgentID]struct{}, len(s.Order))
	for _, id := range s.Order {
		ids[id] = struct{}{}
	}
	for _, id := range other.Order {
		if _, ok := ids[id]; !ok {
			return false
		}
	}
	return true
}

func (s Snapshot) index() map[game.AgentID]int {
	out := make(map[game.AgentID]int, len(s.Order))
	for i, id := range s.Order {
		out[id] = i
	}
	return out
}

// Condition compares two consecutive snapshots of the same population.
type Condition interface {
	Holds(previous, current Snapshot) bool
}

type ConditionFunc func(previous, current Snapshot) bool

func (f ConditionFunc) Holds(previous, current Snapshot) bool {
	return f(previous, current)
}

// Counting reports equilibrium once Condition has held for MinSteps
// consecutive steps. A step that breaks the condition resets the count.
type Counting struct {
	Label     string
	Condition Condition
	MinSteps  int

	consecutive int
	previous    *Snapshot
}

func NewCounting(label string, condition Condition, minSteps int) (*Counting, error) {
	if condition == nil {
		return nil, fmt.Errorf("equilibrium condition is required")
	}
	if minSteps < 1 {
		return nil, fmt.Errorf("minimum consecutive steps must be >= 1, got %d", minSteps)
	}
	return &Counting{Label: label, Condition: condition, MinSteps: minSteps}, nil
}

func (c *Counting) Name() string {
	return c.Label
}

func (c *Counting) Check(ranked []*game.Agent, _ *game.History) bool {
	current := TakeSnapshot(ranked)
	if c.previous != nil && !c.previous.sameMembers(current) {
		c.previous = nil
	}
	if c.previous != nil && c.Condition.Holds(*c.previous, current) {
		c.consecutive++
	} else {
		c.consecutive = 0
	}
	c.previous = &current
	return c.consecutive >= c.MinSteps
}

// Consecutive returns the current run of qualifying steps.
func (c *Counting) Consecutive() int {
	return c.consecutive
}

func validateAlpha(alpha float64) error {
	if alpha < 0 || alpha > 1 || math.IsNaN(alpha) {
		return fmt.Errorf("equilibrium strictness must be in [0,1], got %g", alpha)
	}
	return nil
}

// RankingCondition holds while the summed rank displacement stays below
// 0.5 * Alpha * n^2.
type RankingCondition struct {
	Alpha float64
}

func (r RankingCondition) Holds(previous, current Snapshot) bool {
	before := previous.index()
	displacement := 0.0
	for i, id := range current.Order {
		displacement += math.Abs(float64(i - before[id]))
	}
	n := float64(len(current.Order))
	return displacement < 0.5*r.Alpha*n*n
}

func NewRankingEquilibrium(alpha float64, minSteps int) (*Counting, error) {
	if err := validateAlpha(alpha); err != nil {
		return nil, err
	}
	return NewCounting("ranking_equilibrium", RankingCondition{Alpha: alpha}, minSteps)
}

// StrategyCondition holds while half the summed L1 strategy movement stays
// below Alpha * n. A pure strategy change counts as distance 2.
type StrategyCondition struct {
	Alpha float64
}

func (s StrategyCondition) Holds(previous, current Snapshot) bool {
	before := previous.index()
	distance := 0.0
	for i, id := range current.Order {
		distance += strategyDistance(previous.Strategies[before[id]], current.Strategies[i])
	}
	n := float64(len(current.Order))
	return 0.5*distance < s.Alpha*n
}

func strategyDistance(a, b StrategySnapshot) float64 {
	if a.mixed() && b.mixed() && len(a.Weights) == len(b.Weights) {
		return floats.Distance(a.Weights, b.Weights, 1)
	}
	if a.Name == b.Name && !a.mixed() && !b.mixed() {
		return 0
	}
	return 2
}

func NewStrategyEquilibrium(alpha float64, minSteps int) (*Counting, error) {
	if err := validateAlpha(alpha); err != nil {
		return nil, err
	}
	return NewCounting("strategy_equilibrium", StrategyCondition{Alpha: alpha}, minSteps)
}

// Never keeps an iteration running until its step limit.
type Never struct{}

func (Never) Name() string {
	return "never"
}

func (Never) Check(_ []*game.Agent, _ *game.History) bool {
	return false
}
