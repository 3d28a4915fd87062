// Package domain holds the core training-session model.
package domain

import (
	"time"
)

// Mode determines which party the AI plays in a training session.
type Mode string

const (
	// ModeAISeller means the AI plays the salesperson and the trainee is the customer.
	ModeAISeller Mode = "AI_IS_SELLER"
	// ModeAICustomer means the AI plays the customer and the trainee sells.
	ModeAICustomer Mode = "AI_IS_CUSTOMER"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModeAISeller || m == ModeAICustomer
}

// Difficulty controls how hard the AI customer is to convince.
// It is only meaningful in ModeAICustomer sessions.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "EASY"
	DifficultyMedium Difficulty = "MEDIUM"
	DifficultyHard   Difficulty = "HARD"
	DifficultyExpert Difficulty = "EXPERT"
)

// Valid reports whether d is a known difficulty.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard, DifficultyExpert:
		return true
	}
	return false
}

// Phase is a session's current stage in the sales conversation lifecycle.
type Phase string

const (
	PhaseGreeting    Phase = "GREETING"
	PhaseDiscovery   Phase = "DISCOVERY"
	PhasePitching    Phase = "PITCHING"
	PhasePositioning Phase = "POSITIONING"
	PhaseClosing     Phase = "CLOSING"
	PhaseCompleted   Phase = "COMPLETED"
)

// phaseRank defines the partial order GREETING < {DISCOVERY, PITCHING} <
// POSITIONING < CLOSING < COMPLETED. DISCOVERY and PITCHING share a rank
// because each mode uses only one of them.
var phaseRank = map[Phase]int{
	PhaseGreeting:    0,
	PhaseDiscovery:   1,
	PhasePitching:    1,
	PhasePositioning: 2,
	PhaseClosing:     3,
	PhaseCompleted:   4,
}

// Rank returns the phase's position in the lifecycle order.
func (p Phase) Rank() int {
	return phaseRank[p]
}

// Before reports whether p is strictly earlier than other in the lifecycle.
func (p Phase) Before(other Phase) bool {
	return p.Rank() < other.Rank()
}

// Outcome is the terminal result of a session. It is write-once: the store
// rejects any change after the first non-UNDETERMINED value.
type Outcome string

const (
	OutcomeUndetermined Outcome = "UNDETERMINED"
	OutcomeSaleMade     Outcome = "SALE_MADE"
	OutcomeNoSale       Outcome = "NO_SALE"
	OutcomeAbandoned    Outcome = "ABANDONED"
)

// Terminal reports whether the outcome ends the session.
func (o Outcome) Terminal() bool {
	return o != OutcomeUndetermined && o != ""
}

// Session is one live or completed training conversation.
type Session struct {
	ID         int64
	Token      string
	TraineeID  string
	Mode       Mode
	Difficulty Difficulty
	Phase      Phase
	Outcome    Outcome
	StartedAt  time.Time
	EndedAt    *time.Time
}

// Terminal reports whether the session has a committed outcome.
func (s *Session) Terminal() bool {
	return s.Outcome.Terminal()
}
