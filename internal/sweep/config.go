package sweep

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"equilibria/internal/game"
	"equilibria/internal/registry"
)

// ErrConfiguration marks a user configuration that cannot be expanded.
var ErrConfiguration = errors.New("configuration error")

const portionTolerance = 1e-9

// PluginSpec names a registered plugin and its numeric parameters.
type PluginSpec struct {
	Name   string          `yaml:"name" json:"name"`
	Params registry.Params `yaml:"params,omitempty" json:"params,omitempty"`
}

func (p PluginSpec) clone() PluginSpec {
	return PluginSpec{Name: p.Name, Params: p.Params.Clone()}
}

// SegmentSpec describes a share of the population.
type SegmentSpec struct {
	// Portion of AgentCount; the portions of all segments sum to 1.
	Portion float64 `yaml:"portion" json:"portion"`
	// Group is the cohesive group, nil for none.
	Group   *int       `yaml:"group,omitempty" json:"group,omitempty"`
	Capital PluginSpec `yaml:"capital" json:"capital"`
	// Strategies are pure strategy names.
	Strategies []string `yaml:"strategies" json:"strategies"`
	// StrategyChoice draws an index into Strategies. Defaults to a uniform
	// choice.
	StrategyChoice *PluginSpec `yaml:"strategy_choice,omitempty" json:"strategy_choice,omitempty"`
}

func (s SegmentSpec) groupID() int {
	if s.Group == nil {
		return game.NoGroup
	}
	return *s.Group
}

// Parameter sweeps one named setting from Start to End in Step increments.
type Parameter struct {
	Name  string  `yaml:"name" json:"name"`
	Start float64 `yaml:"start" json:"start"`
	End   float64 `yaml:"end" json:"end"`
	Step  float64 `yaml:"step" json:"step"`
}

// UserConfiguration is the name-based, possibly swept, description of a
// simulation.
type UserConfiguration struct {
	Name                 string        `yaml:"name" json:"name"`
	Game                 PluginSpec    `yaml:"game" json:"game"`
	Rounds               int           `yaml:"rounds" json:"rounds"`
	MixedAllowed         bool          `yaml:"mixed_allowed" json:"mixed_allowed"`
	AgentCount           int           `yaml:"agent_count" json:"agent_count"`
	Segments             []SegmentSpec `yaml:"segments" json:"segments"`
	PairBuilder          PluginSpec    `yaml:"pair_builder" json:"pair_builder"`
	SuccessQuantifier    PluginSpec    `yaml:"success_quantifier" json:"success_quantifier"`
	StrategyAdjuster     PluginSpec    `yaml:"strategy_adjuster" json:"strategy_adjuster"`
	EquilibriumCriterion PluginSpec    `yaml:"equilibrium_criterion" json:"equilibrium_criterion"`
	MaxAdapts            int           `yaml:"max_adapts" json:"max_adapts"`
	// Iterations is the number of independent runs per elementary
	// configuration.
	Iterations int `yaml:"iterations" json:"iterations"`
	// Seed 0 lets the simulator pick one.
	Seed  uint64     `yaml:"seed,omitempty" json:"seed,omitempty"`
	Multi *Parameter `yaml:"multi,omitempty" json:"multi,omitempty"`
}

// Parse decodes a YAML run request. Unknown fields are rejected.
func Parse(data []byte) (UserConfiguration, error) {
	var user UserConfiguration
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&user); err != nil {
		return UserConfiguration{}, fmt.Errorf("%w: decode run request: %v", ErrConfiguration, err)
	}
	return user, nil
}

func Load(path string) (UserConfiguration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return UserConfiguration{}, err
	}
	return Parse(data)
}

func (u UserConfiguration) Marshal() ([]byte, error) {
	return yaml.Marshal(u)
}

// Validate checks the settings that do not depend on the registry.
func (u UserConfiguration) Validate() error {
	if u.Iterations < 1 {
		return fmt.Errorf("%w: iterations must be > 0", ErrConfiguration)
	}
	if u.Rounds < 1 {
		return fmt.Errorf("%w: rounds must be > 0", ErrConfiguration)
	}
	if u.MaxAdapts < 1 {
		return fmt.Errorf("%w: max adapts must be > 0", ErrConfiguration)
	}
	if u.AgentCount < 2 || u.AgentCount%2 != 0 {
		return fmt.Errorf("%w: agent count must be even and >= 2, got %d", ErrConfiguration, u.AgentCount)
	}
	if len(u.Segments) == 0 {
		return fmt.Errorf("%w: at least one segment is required", ErrConfiguration)
	}
	total := 0.0
	for i, s := range u.Segments {
		if s.Portion < 0 || s.Portion > 1 || math.IsNaN(s.Portion) {
			return fmt.Errorf("%w: segment %d portion must be in [0,1], got %g", ErrConfiguration, i, s.Portion)
		}
		if len(s.Strategies) == 0 {
			return fmt.Errorf("%w: segment %d has no strategies", ErrConfiguration, i)
		}
		if s.Capital.Name == "" {
			return fmt.Errorf("%w: segment %d capital distribution is required", ErrConfiguration, i)
		}
		total += s.Portion
	}
	if math.Abs(total-1) > portionTolerance {
		return fmt.Errorf("%w: segment portions sum to %g, want 1", ErrConfiguration, total)
	}
	for label, spec := range map[string]PluginSpec{
		"game":                  u.Game,
		"pair builder":          u.PairBuilder,
		"success quantifier":    u.SuccessQuantifier,
		"strategy adjuster":     u.StrategyAdjuster,
		"equilibrium criterion": u.EquilibriumCriterion,
	} {
		if spec.Name == "" {
			return fmt.Errorf("%w: %s is required", ErrConfiguration, label)
		}
	}
	if u.Multi != nil {
		if _, err := u.Multi.values(); err != nil {
			return err
		}
	}
	return nil
}

func (u UserConfiguration) clone() UserConfiguration {
	out := u
	out.Game = u.Game.clone()
	out.PairBuilder = u.PairBuilder.clone()
	out.SuccessQuantifier = u.SuccessQuantifier.clone()
	out.StrategyAdjuster = u.StrategyAdjuster.clone()
	out.EquilibriumCriterion = u.EquilibriumCriterion.clone()
	out.Segments = make([]SegmentSpec, len(u.Segments))
	for i, s := range u.Segments {
		seg := s
		seg.Capital = s.Capital.clone()
		seg.Strategies = append([]string(nil), s.Strategies...)
		if s.StrategyChoice != nil {
			choice := s.StrategyChoice.clone()
			seg.StrategyChoice = &choice
		}
		out.Segments[i] = seg
	}
	if u.Multi != nil {
		multi := *u.Multi
		out.Multi = &multi
	}
	return out
}

const maxSweepPoints = 10000

func (p Parameter) values() ([]float64, error) {
	if p.Name == "" {
		return nil, fmt.Errorf("%w: swept parameter name is required", ErrConfiguration)
	}
	if !(p.Step > 0) {
		return nil, fmt.Errorf("%w: sweep step must be > 0, got %g", ErrConfiguration, p.Step)
	}
	if p.End < p.Start {
		return nil, fmt.Errorf("%w: sweep end %g is before start %g", ErrConfiguration, p.End, p.Start)
	}
	count := int(math.Floor((p.End-p.Start)/p.Step+1e-9)) + 1
	if count > maxSweepPoints {
		return nil, fmt.Errorf("%w: sweep of %s has %d points, limit is %d", ErrConfiguration, p.Name, count, maxSweepPoints)
	}
	out := make([]float64, count)
	for i := range out {
		out[i] = p.Start + float64(i)*p.Step
	}
	return out, nil
}
