package registry

import (
	"fmt"

	"equilibria/internal/adjust"
	"equilibria/internal/dist"
	"equilibria/internal/equilibrium"
	"equilibria/internal/game"
	"equilibria/internal/pairing"
	"equilibria/internal/ranking"
)

// Registry resolves plugin names to fresh instances. It is passed
// explicitly to whatever expands configurations.
type Registry struct {
	Games               *Family[game.Game]
	Distributions       *Family[dist.Distribution]
	Strategies          *Family[*game.PureStrategy]
	PairBuilders        *Family[pairing.PairBuilder]
	SuccessQuantifiers  *Family[ranking.SuccessQuantifier]
	StrategyAdjusters   *Family[adjust.StrategyAdjuster]
	EquilibriumCriteria *Family[equilibrium.Criterion]
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		Games:               NewFamily[game.Game]("game"),
		Distributions:       NewFamily[dist.Distribution]("distribution"),
		Strategies:          NewFamily[*game.PureStrategy]("strategy"),
		PairBuilders:        NewFamily[pairing.PairBuilder]("pair builder"),
		SuccessQuantifiers:  NewFamily[ranking.SuccessQuantifier]("success quantifier"),
		StrategyAdjusters:   NewFamily[adjust.StrategyAdjuster]("strategy adjuster"),
		EquilibriumCriteria: NewFamily[equilibrium.Criterion]("equilibrium criterion"),
	}
}

// Default returns a registry holding every built-in plugin.
func Default() *Registry {
	r := New()
	if err := r.registerBuiltins(); err != nil {
		panic(fmt.Sprintf("register builtins: %v", err))
	}
	return r
}

// Catalog lists registered names per plugin kind.
func (r *Registry) Catalog() map[string][]string {
	return map[string][]string{
		r.Games.Kind():               r.Games.Names(),
		r.Distributions.Kind():       r.Distributions.Names(),
		r.Strategies.Kind():          r.Strategies.Names(),
		r.PairBuilders.Kind():        r.PairBuilders.Names(),
		r.SuccessQuantifiers.Kind():  r.SuccessQuantifiers.Names(),
		r.StrategyAdjusters.Kind():   r.StrategyAdjusters.Names(),
		r.EquilibriumCriteria.Kind(): r.EquilibriumCriteria.Names(),
	}
}

// DiscreteDistribution resolves a distribution that can drive strategy
// choice.
func (r *Registry) DiscreteDistribution(name string, params Params) (dist.Discrete, error) {
	d, err := r.Distributions.Resolve(name, params)
	if err != nil {
		return nil, err
	}
	discrete, ok := d.(dist.Discrete)
	if !ok {
		return nil, fmt.Errorf("%w: distribution %s is not discrete", ErrInvalidParams, name)
	}
	return discrete, nil
}

func (r *Registry) registerBuiltins() error {
	for _, register := range []func() error{
		r.registerGames,
		r.registerDistributions,
		r.registerStrategies,
		r.registerPairBuilders,
		r.registerSuccessQuantifiers,
		r.registerStrategyAdjusters,
		r.registerEquilibriumCriteria,
	} {
		if err := register(); err != nil {
			return err
		}
	}
	return nil
}

var matrixParams = []string{"reward", "sucker", "temptation", "punishment"}

func (r *Registry) registerGames() error {
	for _, name := range game.PresetNames() {
		preset, _ := game.Preset(name)
		err := r.Games.Register(name, func(p Params) (game.Game, error) {
			if err := p.Check(matrixParams...); err != nil {
				return nil, err
			}
			return game.NewPayoffMatrix(preset.Label,
				p.Float("reward", preset.Reward),
				p.Float("sucker", preset.Sucker),
				p.Float("temptation", preset.Temptation),
				p.Float("punishment", preset.Punishment))
		})
		if err != nil {
			return err
		}
	}
	return r.Games.Register("custom", func(p Params) (game.Game, error) {
		if err := p.Check(matrixParams...); err != nil {
			return nil, err
		}
		values := make([]float64, len(matrixParams))
		for i, name := range matrixParams {
			v, err := p.Require(name)
			if err != nil {
				return nil, err
			}
			values[i] = v
		}
		return game.NewPayoffMatrix("custom", values[0], values[1], values[2], values[3])
	})
}

func (r *Registry) registerDistributions() error {
	entries := map[string]Factory[dist.Distribution]{
		"uniform": func(p Params) (dist.Distribution, error) {
			if err := p.Check("min", "max"); err != nil {
				return nil, err
			}
			return dist.NewUniform(p.Float("min", 0), p.Float("max", 1))
		},
		"discrete_uniform": func(p Params) (dist.Distribution, error) {
			if err := p.Check("min", "max"); err != nil {
				return nil, err
			}
			lo, err := p.Int("min", 0)
			if err != nil {
				return nil, err
			}
			hi, err := p.Int("max", 1)
			if err != nil {
				return nil, err
			}
			return dist.NewDiscreteUniform(lo, hi)
		},
		"binomial": func(p Params) (dist.Distribution, error) {
			if err := p.Check("n", "p"); err != nil {
				return nil, err
			}
			n, err := p.Int("n", 1)
			if err != nil {
				return nil, err
			}
			return dist.NewBinomial(n, p.Float("p", 0.5))
		},
		"poisson": func(p Params) (dist.Distribution, error) {
			if err := p.Check("lambda"); err != nil {
				return nil, err
			}
			return dist.NewPoisson(p.Float("lambda", 1))
		},
		"constant": func(p Params) (dist.Distribution, error) {
			if err := p.Check("value"); err != nil {
				return nil, err
			}
			return dist.Constant{Value: p.Float("value", 0)}, nil
		},
	}
	for name, factory := range entries {
		if err := r.Distributions.Register(name, factory); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) registerStrategies() error {
	for _, strategy := range game.BuiltinStrategies() {
		s := strategy
		err := r.Strategies.Register(s.Name(), func(p Params) (*game.PureStrategy, error) {
			if err := p.Check(); err != nil {
				return nil, err
			}
			return s, nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) registerPairBuilders() error {
	if err := r.PairBuilders.Register("random", func(p Params) (pairing.PairBuilder, error) {
		return pairing.Random{}, p.Check()
	}); err != nil {
		return err
	}
	if err := r.PairBuilders.Register("cooperation_considering", func(p Params) (pairing.PairBuilder, error) {
		return pairing.NewCooperationConsidering(), p.Check()
	}); err != nil {
		return err
	}
	return r.PairBuilders.Register("random_cooperation_considering", func(p Params) (pairing.PairBuilder, error) {
		if err := p.Check("randomness"); err != nil {
			return nil, err
		}
		return pairing.NewRandomCooperationConsidering(p.Float("randomness", 0.5))
	})
}

func (r *Registry) registerSuccessQuantifiers() error {
	simple := []ranking.SuccessQuantifier{ranking.TotalCapital{}, ranking.TotalPayoff{}, ranking.PayoffInLastAdapt{}}
	for _, q := range simple {
		quantifier := q
		if err := r.SuccessQuantifiers.Register(quantifier.Name(), func(p Params) (ranking.SuccessQuantifier, error) {
			return quantifier, p.Check()
		}); err != nil {
			return err
		}
	}
	return r.SuccessQuantifiers.Register("sliding_mean", func(p Params) (ranking.SuccessQuantifier, error) {
		if err := p.Check("window"); err != nil {
			return nil, err
		}
		window, err := p.Int("window", 3)
		if err != nil {
			return nil, err
		}
		return ranking.NewSlidingMean(window)
	})
}

func (r *Registry) registerStrategyAdjusters() error {
	blend := func(p Params, extra ...string) (float64, float64, error) {
		if err := p.Check(append([]string{"alpha", "beta"}, extra...)...); err != nil {
			return 0, 0, err
		}
		return p.Float("alpha", 0.5), p.Float("beta", 0.5), nil
	}
	entries := map[string]Factory[adjust.StrategyAdjuster]{
		"noop": func(p Params) (adjust.StrategyAdjuster, error) {
			return adjust.Noop{}, p.Check()
		},
		"replicator_dynamic": func(p Params) (adjust.StrategyAdjuster, error) {
			alpha, beta, err := blend(p)
			if err != nil {
				return nil, err
			}
			return adjust.NewReplicatorDynamic(alpha, beta)
		},
		"preferential_adaption": func(p Params) (adjust.StrategyAdjuster, error) {
			alpha, beta, err := blend(p)
			if err != nil {
				return nil, err
			}
			return adjust.NewPreferentialAdaption(alpha, beta)
		},
		"elite_imitation": func(p Params) (adjust.StrategyAdjuster, error) {
			alpha, beta, err := blend(p, "elite")
			if err != nil {
				return nil, err
			}
			count, err := p.Int("elite", 1)
			if err != nil {
				return nil, err
			}
			return adjust.NewImitation("elite_imitation", alpha, beta, adjust.EliteSelector{Count: count})
		},
		"tournament_imitation": func(p Params) (adjust.StrategyAdjuster, error) {
			alpha, beta, err := blend(p, "size")
			if err != nil {
				return nil, err
			}
			size, err := p.Int("size", 3)
			if err != nil {
				return nil, err
			}
			return adjust.NewImitation("tournament_imitation", alpha, beta, adjust.TournamentSelector{Size: size})
		},
	}
	for name, factory := range entries {
		if err := r.StrategyAdjusters.Register(name, factory); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) registerEquilibriumCriteria() error {
	counting := func(build func(alpha float64, minSteps int) (*equilibrium.Counting, error)) Factory[equilibrium.Criterion] {
		return func(p Params) (equilibrium.Criterion, error) {
			if err := p.Check("alpha", "min_steps"); err != nil {
				return nil, err
			}
			minSteps, err := p.Int("min_steps", 3)
			if err != nil {
				return nil, err
			}
			return build(p.Float("alpha", 0.1), minSteps)
		}
	}
	if err := r.EquilibriumCriteria.Register("never", func(p Params) (equilibrium.Criterion, error) {
		return equilibrium.Never{}, p.Check()
	}); err != nil {
		return err
	}
	if err := r.EquilibriumCriteria.Register("ranking_equilibrium", counting(equilibrium.NewRankingEquilibrium)); err != nil {
		return err
	}
	return r.EquilibriumCriteria.Register("strategy_equilibrium", counting(equilibrium.NewStrategyEquilibrium))
}
