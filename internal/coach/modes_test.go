package coach

import (
	"testing"

	"github.com/dealcraft/dealcraft/internal/domain"
)

func TestSellerStrategy_PhaseTable(t *testing.T) {
	s := StrategyFor(domain.ModeAISeller, "show me what you have")

	tests := []struct {
		name     string
		current  domain.Phase
		role     domain.Role
		userMsgs int
		text     string
		want     domain.Phase
	}{
		{"greeting stays without trigger", domain.PhaseGreeting, domain.RoleUser, 1, "hello there", domain.PhaseGreeting},
		{"trigger starts discovery", domain.PhaseGreeting, domain.RoleUser, 1, "ok, SHOW me what you HAVE", domain.PhaseDiscovery},
		{"assistant turns never advance", domain.PhaseGreeting, domain.RoleAssistant, 0, "show me what you have", domain.PhaseGreeting},
		{"discovery holds below three", domain.PhaseDiscovery, domain.RoleUser, 2, "tell me more", domain.PhaseDiscovery},
		{"discovery to positioning at three", domain.PhaseDiscovery, domain.RoleUser, 3, "tell me more", domain.PhasePositioning},
		{"positioning to closing at five", domain.PhasePositioning, domain.RoleUser, 5, "sounds interesting", domain.PhaseClosing},
		{"closing has no automatic exit", domain.PhaseClosing, domain.RoleUser, 9, "hmm", domain.PhaseClosing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.NextPhase(tt.current, tt.role, tt.userMsgs, tt.text)
			if got != tt.want {
				t.Errorf("NextPhase(%s, %s, %d) = %s, want %s", tt.current, tt.role, tt.userMsgs, got, tt.want)
			}
		})
	}
}

func TestCustomerStrategy_FirstUserMessageStartsPitching(t *testing.T) {
	s := StrategyFor(domain.ModeAICustomer, "")

	if got := s.NextPhase(domain.PhaseGreeting, domain.RoleUser, 1, "hi, let me show you our product"); got != domain.PhasePitching {
		t.Errorf("NextPhase on first user message = %s, want %s", got, domain.PhasePitching)
	}
	if got := s.NextPhase(domain.PhaseGreeting, domain.RoleAssistant, 0, "hello"); got != domain.PhaseGreeting {
		t.Errorf("NextPhase on assistant greeting = %s, want %s", got, domain.PhaseGreeting)
	}
	// No further automatic advance.
	if got := s.NextPhase(domain.PhasePitching, domain.RoleUser, 7, "and another thing"); got != domain.PhasePitching {
		t.Errorf("NextPhase after pitching = %s, want %s", got, domain.PhasePitching)
	}
}

func TestThresholds(t *testing.T) {
	seller := StrategyFor(domain.ModeAISeller, "x")
	customer := StrategyFor(domain.ModeAICustomer, "")

	if got := seller.Threshold(true); got != 60 {
		t.Errorf("seller exit threshold = %d, want 60", got)
	}
	if got := seller.Threshold(false); got != 80 {
		t.Errorf("seller default threshold = %d, want 80", got)
	}
	if got := customer.Threshold(true); got != 80 {
		t.Errorf("customer threshold with exit signal = %d, want 80", got)
	}
	if got := customer.Threshold(false); got != 80 {
		t.Errorf("customer threshold = %d, want 80", got)
	}
}

func TestSellerStrategy_ClassifierSkipRules(t *testing.T) {
	s := StrategyFor(domain.ModeAISeller, "x")

	if s.Evaluates(domain.PhaseGreeting, domain.RoleUser) {
		t.Error("seller mode must not evaluate during greeting")
	}
	if s.Evaluates(domain.PhaseClosing, domain.RoleAssistant) {
		t.Error("seller mode must not evaluate assistant turns")
	}
	if s.NeedsClassifier(domain.PhaseDiscovery, domain.RoleUser, false, false) {
		t.Error("no classifier call before closing without signals")
	}
	if !s.NeedsClassifier(domain.PhaseDiscovery, domain.RoleUser, true, false) {
		t.Error("exit signal must force a classifier call")
	}
	if !s.NeedsClassifier(domain.PhaseDiscovery, domain.RoleUser, false, true) {
		t.Error("buy signal must force a classifier call")
	}
	if !s.NeedsClassifier(domain.PhaseClosing, domain.RoleUser, false, false) {
		t.Error("closing phase must always classify")
	}
}

func TestCustomerStrategy_GateRules(t *testing.T) {
	s := StrategyFor(domain.ModeAICustomer, "")

	if s.Evaluates(domain.PhaseGreeting, domain.RoleAssistant) {
		t.Error("customer mode must not evaluate during greeting")
	}
	if !s.Evaluates(domain.PhasePitching, domain.RoleAssistant) {
		t.Error("customer mode must evaluate assistant turns from pitching on")
	}
	if !s.NeedsClassifier(domain.PhasePitching, domain.RoleAssistant, false, false) {
		t.Error("assistant turns must always classify in customer mode")
	}
	if s.NeedsClassifier(domain.PhasePitching, domain.RoleUser, false, false) {
		t.Error("trainee turns without exit signal must not classify in customer mode")
	}
	if !s.GiveUpShortCircuit(domain.RoleUser, true) {
		t.Error("trainee exit signal must short-circuit to NO_SALE")
	}
	if s.GiveUpShortCircuit(domain.RoleAssistant, true) {
		t.Error("assistant exit phrases must not short-circuit")
	}
}

func TestSignalSet_Match(t *testing.T) {
	set := NewSignalSet([]string{"bye", "Not Interested", " gotta go "})

	tests := []struct {
		text string
		want bool
	}{
		{"ok BYE now", true},
		{"I'm really not interested, sorry", true},
		{"I gotta go", true},
		{"tell me about the price", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := set.Match(tt.text); got != tt.want {
			t.Errorf("Match(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestPhaseOrder(t *testing.T) {
	order := []domain.Phase{
		domain.PhaseGreeting, domain.PhaseDiscovery, domain.PhasePositioning,
		domain.PhaseClosing, domain.PhaseCompleted,
	}
	for i := 1; i < len(order); i++ {
		if !order[i-1].Before(order[i]) {
			t.Errorf("phase order broken: %s should be before %s", order[i-1], order[i])
		}
	}
	// Discovery and pitching share a rank: distinct modes, same stage.
	if domain.PhaseDiscovery.Before(domain.PhasePitching) || domain.PhasePitching.Before(domain.PhaseDiscovery) {
		t.Error("discovery and pitching must share a rank")
	}
}
