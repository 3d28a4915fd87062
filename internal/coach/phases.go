package coach

import (
	"context"
	"fmt"

	"github.com/dealcraft/dealcraft/internal/domain"
	"github.com/dealcraft/dealcraft/internal/store"
)

// PhaseMachine advances a session through the conversation phases. It
// persists each transition before any downstream classifier call, so a crash
// mid-decision cannot lose phase progress. Transitions are monotonic: the
// machine never regresses, and advancing from COMPLETED is a no-op.
type PhaseMachine struct {
	repo     store.Repository
	strategy ModeStrategy
}

// NewPhaseMachine creates a phase machine for one session's mode.
func NewPhaseMachine(repo store.Repository, strategy ModeStrategy) *PhaseMachine {
	return &PhaseMachine{repo: repo, strategy: strategy}
}

// Advance computes and applies the automatic transition after a finalized
// turn, mutating sess.Phase on success. It reports whether a transition
// occurred.
func (m *PhaseMachine) Advance(ctx context.Context, sess *domain.Session, role domain.Role, text string, userMessages int) (bool, error) {
	if sess.Phase == domain.PhaseCompleted {
		return false, nil
	}

	next := m.strategy.NextPhase(sess.Phase, role, userMessages, text)
	if next == sess.Phase || !sess.Phase.Before(next) {
		return false, nil
	}

	if err := m.repo.UpdatePhase(ctx, sess.ID, next); err != nil {
		return false, fmt.Errorf("persist phase transition %s -> %s: %w", sess.Phase, next, err)
	}
	sess.Phase = next
	return true, nil
}
