package engine

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"

	"equilibria/internal/dist"
	"equilibria/internal/game"
)

// Phase is the lifecycle stage of one iteration.
type Phase int

const (
	PhaseInitializing Phase = iota
	PhaseStepping
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseInitializing:
		return "initializing"
	case PhaseStepping:
		return "stepping"
	case PhaseDone:
		return "done"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// IterationResult is the immutable outcome of one iteration.
type IterationResult struct {
	// Agents is the final ranking, best first.
	Agents             []game.AgentSnapshot
	History            *game.History
	EquilibriumReached bool
	Efficiency         float64
	Adapts             int
	StrategyNames      []string
	// Portions[k][s] is the population share of StrategyNames[s] after k
	// adaptation steps; row 0 is the initial population.
	Portions [][]float64
}

// FinalPortions returns the strategy shares of the final population.
func (r IterationResult) FinalPortions() []float64 {
	if len(r.Portions) == 0 {
		return nil
	}
	return append([]float64(nil), r.Portions[len(r.Portions)-1]...)
}

type Engine struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{logger: logger}
}

// ExecuteIteration runs adaptation steps until the equilibrium criterion is
// met or cfg.MaxAdapts steps have run. The context is checked between
// rounds.
func (e *Engine) ExecuteIteration(ctx context.Context, cfg Configuration, seed uint64) (IterationResult, error) {
	if err := cfg.Validate(); err != nil {
		return IterationResult{}, err
	}
	run := &iteration{
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(seed)),
		logger: e.logger.With("configuration", cfg.Label),
		phase:  PhaseInitializing,
	}
	if err := run.initialize(); err != nil {
		return IterationResult{}, err
	}
	run.enter(PhaseStepping)
	for !run.equilibrium && run.adapts < cfg.MaxAdapts {
		if err := run.step(ctx); err != nil {
			return IterationResult{}, err
		}
	}
	run.enter(PhaseDone)
	return run.result(), nil
}

type iteration struct {
	cfg    Configuration
	rng    *rand.Rand
	logger *slog.Logger
	phase  Phase

	agents      []*game.Agent
	history     *game.History
	universe    []*game.PureStrategy
	portions    [][]float64
	adapts      int
	equilibrium bool
}

func (it *iteration) enter(phase Phase) {
	it.logger.Debug("iteration phase", "from", it.phase, "to", phase, "adapts", it.adapts)
	it.phase = phase
}

func (it *iteration) initialize() error {
	it.universe = it.cfg.strategyUniverse()
	it.history = game.NewHistory()
	for i, segment := range it.cfg.Segments {
		agents, err := it.populate(segment)
		if err != nil {
			return fmt.Errorf("segment %d: %w", i, err)
		}
		it.agents = append(it.agents, agents...)
	}
	it.portions = append(it.portions, it.strategyPortions())
	return nil
}

func (it *iteration) populate(segment Segment) ([]*game.Agent, error) {
	capital := segment.Capital.Picker(rand.NewSource(it.rng.Uint64())).PickMany(segment.AgentCount)
	var mixed *game.MixedStrategy
	var choice dist.Picker
	if it.cfg.MixedAllowed {
		m, err := segmentMixture(segment, it.universe)
		if err != nil {
			return nil, err
		}
		mixed = m
	} else {
		choice = segment.StrategyChoice.Picker(rand.NewSource(it.rng.Uint64()))
	}

	agents := make([]*game.Agent, segment.AgentCount)
	for i := range agents {
		var strategy game.Strategy = mixed
		if mixed == nil {
			strategy = segment.Strategies[clampIndex(choice.PickOne(), len(segment.Strategies))]
		}
		agents[i] = game.NewAgent(capital[i], strategy, segment.Group)
	}
	return agents, nil
}

func clampIndex(x float64, n int) int {
	k := int(x)
	if k < 0 {
		return 0
	}
	if k >= n {
		return n - 1
	}
	return k
}

// segmentMixture spreads the segment's strategy-choice mass over the
// strategy universe so every mixed agent shares the same components.
func segmentMixture(segment Segment, universe []*game.PureStrategy) (*game.MixedStrategy, error) {
	position := make(map[string]int, len(universe))
	for i, s := range universe {
		position[s.Name()] = i
	}
	weights := make([]float64, len(universe))
	lo := max(segment.StrategyChoice.SupportMin(dist.SupportQuantile), 0)
	hi := min(segment.StrategyChoice.SupportMax(dist.SupportQuantile), len(segment.Strategies)-1)
	total := 0.0
	for k := lo; k <= hi; k++ {
		p := segment.StrategyChoice.Probability(float64(k))
		weights[position[segment.Strategies[k].Name()]] += p
		total += p
	}
	if total <= 0 {
		for _, s := range segment.Strategies {
			weights[position[s.Name()]] = 1
		}
	}
	floats.Scale(1/floats.Sum(weights), weights)
	return game.NewMixedStrategy(universe, weights)
}

func (it *iteration) step(ctx context.Context) error {
	it.history.Reset()
	for round := 0; round < it.cfg.Rounds; round++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		pairs, err := it.cfg.PairBuilder.BuildPairs(it.rng, it.agents, it.history)
		if err != nil {
			return fmt.Errorf("build pairs: %w", err)
		}
		for _, pair := range pairs {
			a, b := pair.First, pair.Second
			aCoop := a.Strategy.IsCooperative(it.rng, a, b, it.history)
			bCoop := b.Strategy.IsCooperative(it.rng, b, a, it.history)
			it.history.Add(it.cfg.Game.Play(a, b, aCoop, bCoop))
		}
	}

	it.agents = it.cfg.SuccessQuantifier.CreateRanking(it.agents, it.history)
	if err := it.cfg.StrategyAdjuster.AdaptStrategies(it.rng, it.agents, it.history); err != nil {
		return fmt.Errorf("adapt strategies: %w", err)
	}
	it.equilibrium = it.cfg.EquilibriumCriterion.Check(it.agents, it.history)
	it.adapts++
	it.portions = append(it.portions, it.strategyPortions())
	it.logger.Debug("adaptation step finished", "adapts", it.adapts, "equilibrium", it.equilibrium)
	return nil
}

func (it *iteration) strategyPortions() []float64 {
	out := make([]float64, len(it.universe))
	if len(it.agents) == 0 {
		return out
	}
	for _, a := range it.agents {
		if m, ok := a.Strategy.(*game.MixedStrategy); ok {
			for i, s := range it.universe {
				out[i] += m.Probability(s.Name())
			}
			continue
		}
		for i, s := range it.universe {
			if a.Strategy.Name() == s.Name() {
				out[i]++
				break
			}
		}
	}
	for i := range out {
		out[i] /= float64(len(it.agents))
	}
	return out
}

// efficiency is the mean cooperation probability over all ordered pairs of
// distinct agents. The population has at least two agents.
func (it *iteration) efficiency() float64 {
	n := len(it.agents)
	total := 0.0
	for _, a := range it.agents {
		for _, b := range it.agents {
			if a == b {
				continue
			}
			total += a.Strategy.CooperationProbability(a, b, it.history)
		}
	}
	return total / float64(n*(n-1))
}

func (it *iteration) result() IterationResult {
	snapshots := make([]game.AgentSnapshot, len(it.agents))
	for i, a := range it.agents {
		snapshots[i] = a.Snapshot()
	}
	names := make([]string, len(it.universe))
	for i, s := range it.universe {
		names[i] = s.Name()
	}
	return IterationResult{
		Agents:             snapshots,
		History:            it.history.Clone(),
		EquilibriumReached: it.equilibrium,
		Efficiency:         it.efficiency(),
		Adapts:             it.adapts,
		StrategyNames:      names,
		Portions:           it.portions,
	}
}
