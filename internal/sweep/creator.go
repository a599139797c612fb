package sweep

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"equilibria/internal/engine"
	"equilibria/internal/registry"
)

// Creator expands user configurations into elementary engine
// configurations. Expansion is deterministic for a given registry.
type Creator struct {
	registry *registry.Registry
}

func NewCreator(r *registry.Registry) *Creator {
	if r == nil {
		r = registry.Default()
	}
	return &Creator{registry: r}
}

func (c *Creator) Registry() *registry.Registry {
	return c.registry
}

// Values returns the swept values, or a single zero for a plain
// configuration.
func (c *Creator) Values(user UserConfiguration) ([]float64, error) {
	if user.Multi == nil {
		return []float64{0}, nil
	}
	return user.Multi.values()
}

func (c *Creator) Count(user UserConfiguration) (int, error) {
	values, err := c.Values(user)
	if err != nil {
		return 0, err
	}
	return len(values), nil
}

// Generate builds one fresh configuration per swept value.
func (c *Creator) Generate(user UserConfiguration) ([]engine.Configuration, error) {
	values, err := c.Values(user)
	if err != nil {
		return nil, err
	}
	out := make([]engine.Configuration, len(values))
	for k := range values {
		cfg, err := c.Build(user, k)
		if err != nil {
			return nil, err
		}
		out[k] = cfg
	}
	return out, nil
}

// Build resolves the k-th elementary configuration with new plugin
// instances.
func (c *Creator) Build(user UserConfiguration, k int) (engine.Configuration, error) {
	values, err := c.Values(user)
	if err != nil {
		return engine.Configuration{}, err
	}
	if k < 0 || k >= len(values) {
		return engine.Configuration{}, fmt.Errorf("%w: elementary configuration %d out of range [0,%d)", ErrConfiguration, k, len(values))
	}

	applied := user.clone()
	label := user.Name
	if label == "" {
		label = "simulation"
	}
	if user.Multi != nil {
		if err := applied.set(user.Multi.Name, values[k]); err != nil {
			return engine.Configuration{}, err
		}
		label = fmt.Sprintf("%s[%s=%g]", label, user.Multi.Name, values[k])
	}
	if err := applied.Validate(); err != nil {
		return engine.Configuration{}, err
	}

	cfg, err := c.resolve(applied)
	if err != nil {
		return engine.Configuration{}, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	cfg.Label = label
	cfg.Value = values[k]
	if err := cfg.Validate(); err != nil {
		return engine.Configuration{}, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	return cfg, nil
}

// SweepableParameters lists the names a sweep may target.
func SweepableParameters() []string {
	names := []string{"rounds", "max_adapts", "agent_count"}
	for stage := range pluginStages {
		names = append(names, stage+".<param>")
	}
	sort.Strings(names)
	return names
}

var pluginStages = map[string]func(*UserConfiguration) *PluginSpec{
	"game":                  func(u *UserConfiguration) *PluginSpec { return &u.Game },
	"pair_builder":          func(u *UserConfiguration) *PluginSpec { return &u.PairBuilder },
	"success_quantifier":    func(u *UserConfiguration) *PluginSpec { return &u.SuccessQuantifier },
	"strategy_adjuster":     func(u *UserConfiguration) *PluginSpec { return &u.StrategyAdjuster },
	"equilibrium_criterion": func(u *UserConfiguration) *PluginSpec { return &u.EquilibriumCriterion },
}

func (u *UserConfiguration) set(name string, value float64) error {
	integral := func() (int, error) {
		rounded := math.Round(value)
		if math.Abs(value-rounded) > 1e-9 {
			return 0, fmt.Errorf("%w: %s must be an integer, got %g", ErrConfiguration, name, value)
		}
		return int(rounded), nil
	}
	switch name {
	case "rounds":
		v, err := integral()
		u.Rounds = v
		return err
	case "max_adapts":
		v, err := integral()
		u.MaxAdapts = v
		return err
	case "agent_count":
		v, err := integral()
		u.AgentCount = v
		return err
	}
	stage, param, ok := strings.Cut(name, ".")
	spec, known := pluginStages[stage]
	if !ok || !known || param == "" {
		return fmt.Errorf("%w: parameter %q cannot be swept", ErrConfiguration, name)
	}
	target := spec(u)
	if target.Params == nil {
		target.Params = registry.Params{}
	}
	target.Params[param] = value
	return nil
}

func (c *Creator) resolve(u UserConfiguration) (engine.Configuration, error) {
	r := c.registry
	cfg := engine.Configuration{
		Rounds:       u.Rounds,
		MixedAllowed: u.MixedAllowed,
		MaxAdapts:    u.MaxAdapts,
	}
	var err error
	if cfg.Game, err = r.Games.Resolve(u.Game.Name, u.Game.Params); err != nil {
		return cfg, err
	}
	if cfg.PairBuilder, err = r.PairBuilders.Resolve(u.PairBuilder.Name, u.PairBuilder.Params); err != nil {
		return cfg, err
	}
	if cfg.SuccessQuantifier, err = r.SuccessQuantifiers.Resolve(u.SuccessQuantifier.Name, u.SuccessQuantifier.Params); err != nil {
		return cfg, err
	}
	if cfg.StrategyAdjuster, err = r.StrategyAdjusters.Resolve(u.StrategyAdjuster.Name, u.StrategyAdjuster.Params); err != nil {
		return cfg, err
	}
	if cfg.EquilibriumCriterion, err = r.EquilibriumCriteria.Resolve(u.EquilibriumCriterion.Name, u.EquilibriumCriterion.Params); err != nil {
		return cfg, err
	}

	counts := apportion(u.Segments, u.AgentCount)
	for i, spec := range u.Segments {
		segment, err := c.segment(spec, counts[i])
		if err != nil {
			return cfg, fmt.Errorf("segment %d: %w", i, err)
		}
		cfg.Segments = append(cfg.Segments, segment)
	}
	return cfg, nil
}

func (c *Creator) segment(spec SegmentSpec, count int) (engine.Segment, error) {
	r := c.registry
	segment := engine.Segment{AgentCount: count, Group: spec.groupID()}
	var err error
	if segment.Capital, err = r.Distributions.Resolve(spec.Capital.Name, spec.Capital.Params); err != nil {
		return segment, err
	}
	for _, name := range spec.Strategies {
		strategy, err := r.Strategies.Resolve(name, nil)
		if err != nil {
			return segment, err
		}
		segment.Strategies = append(segment.Strategies, strategy)
	}
	choice := PluginSpec{
		Name:   "discrete_uniform",
		Params: registry.Params{"min": 0, "max": float64(len(spec.Strategies) - 1)},
	}
	if spec.StrategyChoice != nil {
		choice = *spec.StrategyChoice
	}
	if segment.StrategyChoice, err = r.DiscreteDistribution(choice.Name, choice.Params); err != nil {
		return segment, err
	}
	return segment, nil
}

// apportion splits total agents by segment portion using largest
// remainders; ties go to the earlier segment.
func apportion(segments []SegmentSpec, total int) []int {
	type alloc struct {
		index     int
		remainder float64
	}
	counts := make([]int, len(segments))
	allocs := make([]alloc, len(segments))
	assigned := 0
	for i, s := range segments {
		share := s.Portion * float64(total)
		base := int(math.Floor(share + 1e-9))
		counts[i] = base
		allocs[i] = alloc{index: i, remainder: share - float64(base)}
		assigned += base
	}
	sort.SliceStable(allocs, func(i, j int) bool {
		return allocs[i].remainder > allocs[j].remainder
	})
	for i := 0; i < total-assigned && len(allocs) > 0; i++ {
		counts[allocs[i%len(allocs)].index]++
	}
	return counts
}
