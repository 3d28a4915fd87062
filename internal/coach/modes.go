package coach

import (
	"strings"

	"github.com/dealcraft/dealcraft/internal/domain"
)

// Confidence thresholds. The 60/80 asymmetry in seller mode is deliberate:
// an exit-signaled turn needs less certainty because the trainee is already
// walking away. Customer mode uses a single threshold. Tunable policy, kept
// per strategy.
const (
	thresholdExit    = 60
	thresholdDefault = 80
)

// ModeStrategy supplies the mode-dependent policy: the phase transition
// table, which turns the decision gate evaluates, and the confidence
// threshold applied to classifier verdicts.
type ModeStrategy interface {
	Mode() domain.Mode

	// NextPhase computes the automatic phase transition after a finalized
	// turn. userMessages counts USER-role messages including the one just
	// finalized. Returning the current phase means no transition.
	NextPhase(current domain.Phase, role domain.Role, userMessages int, text string) domain.Phase

	// Evaluates reports whether the decision gate runs at all for a
	// finalized turn from role in the given phase.
	Evaluates(phase domain.Phase, role domain.Role) bool

	// NeedsClassifier reports whether the turn warrants a classifier call.
	NeedsClassifier(phase domain.Phase, role domain.Role, exitSignal, buySignal bool) bool

	// Threshold returns the confidence a verdict must reach to commit.
	Threshold(exitSignal bool) int

	// GiveUpShortCircuit reports whether an exit-signaled turn from role
	// commits NO_SALE immediately, without a classifier call.
	GiveUpShortCircuit(role domain.Role, exitSignal bool) bool
}

// StrategyFor returns the strategy for a session's mode.
func StrategyFor(mode domain.Mode, triggerPhrase string) ModeStrategy {
	if mode == domain.ModeAICustomer {
		return customerStrategy{}
	}
	return sellerStrategy{trigger: strings.ToLower(triggerPhrase)}
}

// sellerStrategy: the AI sells, the trainee plays the customer. The exercise
// begins when the trainee utters the trigger phrase; phases then advance on
// trainee message counts, and only trainee turns are judged.
type sellerStrategy struct {
	trigger string
}

func (sellerStrategy) Mode() domain.Mode { return domain.ModeAISeller }

func (s sellerStrategy) NextPhase(current domain.Phase, role domain.Role, userMessages int, text string) domain.Phase {
	if role != domain.RoleUser {
		return current
	}
	switch current {
	case domain.PhaseGreeting:
		if strings.Contains(strings.ToLower(text), s.trigger) {
			return domain.PhaseDiscovery
		}
	case domain.PhaseDiscovery:
		if userMessages >= 3 {
			return domain.PhasePositioning
		}
	case domain.PhasePositioning:
		if userMessages >= 5 {
			return domain.PhaseClosing
		}
	}
	return current
}

func (sellerStrategy) Evaluates(phase domain.Phase, role domain.Role) bool {
	return role == domain.RoleUser && phase != domain.PhaseGreeting && phase != domain.PhaseCompleted
}

func (sellerStrategy) NeedsClassifier(phase domain.Phase, role domain.Role, exitSignal, buySignal bool) bool {
	if exitSignal || buySignal {
		return true
	}
	return !phase.Before(domain.PhaseClosing)
}

func (sellerStrategy) Threshold(exitSignal bool) int {
	if exitSignal {
		return thresholdExit
	}
	return thresholdDefault
}

func (sellerStrategy) GiveUpShortCircuit(domain.Role, bool) bool { return false }

// customerStrategy: the AI plays the customer, the trainee sells. Pitching
// starts on the trainee's first message; every finalized AI-customer reply is
// judged, and a trainee who says goodbye without a close forfeits the deal.
type customerStrategy struct{}

func (customerStrategy) Mode() domain.Mode { return domain.ModeAICustomer }

func (customerStrategy) NextPhase(current domain.Phase, role domain.Role, userMessages int, text string) domain.Phase {
	if current == domain.PhaseGreeting && role == domain.RoleUser && userMessages >= 1 {
		return domain.PhasePitching
	}
	return current
}

func (customerStrategy) Evaluates(phase domain.Phase, role domain.Role) bool {
	return phase != domain.PhaseGreeting && phase != domain.PhaseCompleted
}

func (customerStrategy) NeedsClassifier(phase domain.Phase, role domain.Role, exitSignal, buySignal bool) bool {
	return role == domain.RoleAssistant
}

func (customerStrategy) Threshold(bool) int { return thresholdDefault }

func (customerStrategy) GiveUpShortCircuit(role domain.Role, exitSignal bool) bool {
	return role == domain.RoleUser && exitSignal
}
