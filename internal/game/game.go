package game

import (
	"fmt"
	"math"
	"sort"
)

// Game pays out one pairwise interaction. Play credits both agents and
// returns the outcome.
type Game interface {
	Name() string
	Play(a, b *Agent, aCooperates, bCooperates bool) GameResult
}

// PayoffMatrix is a symmetric two-player game: Reward for mutual
// cooperation, Punishment for mutual defection, and Temptation/Sucker when
// one defects against a cooperator.
type PayoffMatrix struct {
	Label      string
	Reward     float64
	Sucker     float64
	Temptation float64
	Punishment float64
}

func NewPayoffMatrix(label string, reward, sucker, temptation, punishment float64) (PayoffMatrix, error) {
	if label == "" {
		return PayoffMatrix{}, fmt.Errorf("game label is required")
	}
	m := PayoffMatrix{Label: label, Reward: reward, Sucker: sucker, Temptation: temptation, Punishment: punishment}
	names := [...]string{"reward", "sucker", "temptation", "punishment"}
	for i, v := range [...]float64{reward, sucker, temptation, punishment} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return PayoffMatrix{}, fmt.Errorf("game %s: %s payoff must be finite, got %v", label, names[i], v)
		}
	}
	return m, nil
}

func (m PayoffMatrix) Name() string {
	return m.Label
}

func (m PayoffMatrix) payoff(own, other bool) float64 {
	switch {
	case own && other:
		return m.Reward
	case own && !other:
		return m.Sucker
	case !own && other:
		return m.Temptation
	default:
		return m.Punishment
	}
}

func (m PayoffMatrix) Play(a, b *Agent, aCooperates, bCooperates bool) GameResult {
	aPayoff := m.payoff(aCooperates, bCooperates)
	bPayoff := m.payoff(bCooperates, aCooperates)
	a.Capital += aPayoff
	b.Capital += bPayoff
	return GameResult{
		First:  Side{ID: a.ID, Group: a.Group, Cooperated: aCooperates, Payoff: aPayoff},
		Second: Side{ID: b.ID, Group: b.Group, Cooperated: bCooperates, Payoff: bPayoff},
	}
}

// IsPrisonersDilemma reports whether T > R > P > S and 2R > T + S.
func (m PayoffMatrix) IsPrisonersDilemma() bool {
	return m.Temptation > m.Reward && m.Reward > m.Punishment && m.Punishment > m.Sucker &&
		2*m.Reward > m.Temptation+m.Sucker
}

var presets = map[string]PayoffMatrix{
	"prisoners_dilemma": {Label: "prisoners_dilemma", Reward: 3, Sucker: 0, Temptation: 5, Punishment: 1},
	"stag_hunt":         {Label: "stag_hunt", Reward: 4, Sucker: 0, Temptation: 3, Punishment: 2},
	"chicken":           {Label: "chicken", Reward: 3, Sucker: 1, Temptation: 4, Punishment: 0},
	"harmony":           {Label: "harmony", Reward: 4, Sucker: 2, Temptation: 3, Punishment: 1},
}

// Preset returns a named classic payoff matrix.
func Preset(name string) (PayoffMatrix, bool) {
	m, ok := presets[name]
	return m, ok
}

func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
