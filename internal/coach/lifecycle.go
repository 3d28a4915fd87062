package coach

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dealcraft/dealcraft/internal/domain"
	"github.com/dealcraft/dealcraft/internal/store"
)

// Lifecycle creates session records and reconciles ungraceful disconnects
// into the terminal ABANDONED state.
type Lifecycle struct {
	repo store.Repository
}

// NewLifecycle creates a session lifecycle manager.
func NewLifecycle(repo store.Repository) *Lifecycle {
	return &Lifecycle{repo: repo}
}

// Begin creates a session record with a fresh external token.
func (l *Lifecycle) Begin(ctx context.Context, traineeID string, mode domain.Mode, difficulty domain.Difficulty) (*domain.Session, error) {
	token := uuid.NewString()
	sess, err := l.repo.CreateSession(ctx, token, traineeID, mode, difficulty)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	slog.Info("session started",
		"session", sess.Token, "mode", sess.Mode, "difficulty", sess.Difficulty)
	return sess, nil
}

// Abandon marks a disconnected session ABANDONED. The compare-and-set in the
// store makes this exactly-once: a session that already reached a terminal
// outcome (including a classifier verdict that landed during teardown) is
// left untouched.
func (l *Lifecycle) Abandon(ctx context.Context, sess *domain.Session) {
	if sess.Terminal() {
		return
	}
	ok, err := l.repo.MarkAbandoned(ctx, sess.ID)
	if err != nil {
		slog.Error("failed to mark session abandoned", "session", sess.Token, "error", err)
		return
	}
	if !ok {
		slog.Info("session already terminal, not abandoning", "session", sess.Token)
		return
	}
	now := time.Now()
	sess.Outcome = domain.OutcomeAbandoned
	sess.EndedAt = &now
	sess.Phase = domain.PhaseCompleted
	slog.Info("session abandoned", "session", sess.Token)
}
