package game

import (
	"golang.org/x/exp/rand"
)

// Strategy decides whether an agent cooperates with an opponent.
type Strategy interface {
	Name() string
	IsCooperative(rng *rand.Rand, self, opponent *Agent, h *History) bool
	CooperationProbability(self, opponent *Agent, h *History) float64
}

// Decision is a deterministic cooperation rule.
type Decision func(self, opponent *Agent, h *History) bool

// PureStrategy always gives the same answer for the same situation.
type PureStrategy struct {
	name   string
	decide Decision
}

func NewPureStrategy(name string, decide Decision) *PureStrategy {
	return &PureStrategy{name: name, decide: decide}
}

func (s *PureStrategy) Name() string {
	return s.name
}

func (s *PureStrategy) IsCooperative(_ *rand.Rand, self, opponent *Agent, h *History) bool {
	return s.decide(self, opponent, h)
}

func (s *PureStrategy) CooperationProbability(self, opponent *Agent, h *History) float64 {
	if s.decide(self, opponent, h) {
		return 1
	}
	return 0
}

var (
	AlwaysCooperate = NewPureStrategy("always_cooperate", func(_, _ *Agent, _ *History) bool {
		return true
	})
	NeverCooperate = NewPureStrategy("never_cooperate", func(_, _ *Agent, _ *History) bool {
		return false
	})
	TitForTat      = NewPureStrategy("tit_for_tat", titForTat(individual))
	Grim           = NewPureStrategy("grim", grim(individual))
	GroupTitForTat = NewPureStrategy("group_tit_for_tat", titForTat(cohesive))
	GroupGrim      = NewPureStrategy("group_grim", grim(cohesive))
)

// BuiltinStrategies lists the pure strategies shipped with the engine.
func BuiltinStrategies() []*PureStrategy {
	return []*PureStrategy{AlwaysCooperate, NeverCooperate, TitForTat, Grim, GroupTitForTat, GroupGrim}
}

// matcher reports whether a played side stands for the reference agent.
type matcher func(side Side, ref *Agent) bool

func individual(side Side, ref *Agent) bool {
	return side.ID == ref.ID
}

func cohesive(side Side, ref *Agent) bool {
	return side.ID == ref.ID || ref.InGroup(side.Group)
}

// opposingSide returns the side of r standing for opponent in a game against
// self, if r is such a game.
func opposingSide(r GameResult, self, opponent *Agent, match matcher) (Side, bool) {
	if match(r.First, self) && match(r.Second, opponent) && r.Second.ID != self.ID {
		return r.Second, true
	}
	if match(r.Second, self) && match(r.First, opponent) && r.First.ID != self.ID {
		return r.First, true
	}
	return Side{}, false
}

// titForTat mirrors the opponent's last move; cooperates on first contact.
func titForTat(match matcher) Decision {
	return func(self, opponent *Agent, h *History) bool {
		var last Side
		found := false
		h.First(func(r GameResult) bool {
			last, found = opposingSide(r, self, opponent, match)
			return found
		})
		return !found || last.Cooperated
	}
}

// grim cooperates until the opponent has defected once.
func grim(match matcher) Decision {
	return func(self, opponent *Agent, h *History) bool {
		_, betrayed := h.First(func(r GameResult) bool {
			side, ok := opposingSide(r, self, opponent, match)
			return ok && !side.Cooperated
		})
		return !betrayed
	}
}
