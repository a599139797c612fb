package engine

import (
	"errors"
	"fmt"

	"equilibria/internal/adjust"
	"equilibria/internal/dist"
	"equilibria/internal/equilibrium"
	"equilibria/internal/game"
	"equilibria/internal/pairing"
	"equilibria/internal/ranking"
)

var ErrInvalidConfiguration = errors.New("invalid configuration")

// Segment is a template for a homogeneous sub-population.
type Segment struct {
	AgentCount int
	Group      int
	Capital    dist.Distribution
	// StrategyChoice draws an index into Strategies.
	StrategyChoice dist.Discrete
	Strategies     []*game.PureStrategy
}

// Configuration fully describes one iteration. Plugins may hold
// per-iteration state, so an instance must not run two iterations at once.
type Configuration struct {
	Label string
	// Value is the swept parameter value for sweep members.
	Value float64

	Game                 game.Game
	Rounds               int
	MixedAllowed         bool
	Segments             []Segment
	PairBuilder          pairing.PairBuilder
	SuccessQuantifier    ranking.SuccessQuantifier
	StrategyAdjuster     adjust.StrategyAdjuster
	EquilibriumCriterion equilibrium.Criterion
	MaxAdapts            int
}

// AgentCount is the total population over all segments.
func (c Configuration) AgentCount() int {
	total := 0
	for _, s := range c.Segments {
		total += s.AgentCount
	}
	return total
}

func (c Configuration) Validate() error {
	if c.Game == nil {
		return fmt.Errorf("%w: game is required", ErrInvalidConfiguration)
	}
	if c.Rounds < 1 {
		return fmt.Errorf("%w: rounds must be > 0", ErrInvalidConfiguration)
	}
	if c.MaxAdapts < 1 {
		return fmt.Errorf("%w: max adapts must be > 0", ErrInvalidConfiguration)
	}
	if len(c.Segments) == 0 {
		return fmt.Errorf("%w: at least one segment is required", ErrInvalidConfiguration)
	}
	for i, s := range c.Segments {
		if s.AgentCount < 0 {
			return fmt.Errorf("%w: segment %d agent count must be >= 0", ErrInvalidConfiguration, i)
		}
		if s.Capital == nil || s.StrategyChoice == nil {
			return fmt.Errorf("%w: segment %d requires capital and strategy distributions", ErrInvalidConfiguration, i)
		}
		if len(s.Strategies) == 0 {
			return fmt.Errorf("%w: segment %d has no strategies", ErrInvalidConfiguration, i)
		}
		for j, strategy := range s.Strategies {
			if strategy == nil {
				return fmt.Errorf("%w: segment %d strategy %d is nil", ErrInvalidConfiguration, i, j)
			}
		}
	}
	n := c.AgentCount()
	if n < 2 {
		return fmt.Errorf("%w: population must have at least 2 agents, got %d", ErrInvalidConfiguration, n)
	}
	if n%2 != 0 {
		return fmt.Errorf("%w: population must be even, got %d", ErrInvalidConfiguration, n)
	}
	if c.PairBuilder == nil || c.SuccessQuantifier == nil || c.StrategyAdjuster == nil || c.EquilibriumCriterion == nil {
		return fmt.Errorf("%w: pair builder, success quantifier, strategy adjuster and equilibrium criterion are required", ErrInvalidConfiguration)
	}
	return nil
}

// strategyUniverse lists every strategy of every segment once, in order of
// first appearance.
func (c Configuration) strategyUniverse() []*game.PureStrategy {
	seen := make(map[string]bool)
	var out []*game.PureStrategy
	for _, s := range c.Segments {
		for _, strategy := range s.Strategies {
			if !seen[strategy.Name()] {
				seen[strategy.Name()] = true
				out = append(out, strategy)
			}
		}
	}
	return out
}
