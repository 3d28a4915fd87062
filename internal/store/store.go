// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"

	"github.com/dealcraft/dealcraft/internal/domain"
)

// Repository defines the interface for persisting sessions and messages.
type Repository interface {
	// CreateSession creates a new session record in GREETING phase with an
	// UNDETERMINED outcome.
	CreateSession(ctx context.Context, token, traineeID string, mode domain.Mode, difficulty domain.Difficulty) (*domain.Session, error)

	// GetSession retrieves a session by its external token. Returns nil if
	// no such session exists.
	GetSession(ctx context.Context, token string) (*domain.Session, error)

	// AppendMessage records one finalized dialogue turn. The phase argument
	// is the session's phase at the moment the turn was finalized.
	AppendMessage(ctx context.Context, sessionID int64, role domain.Role, content string, phase domain.Phase) (*domain.Message, error)

	// UpdatePhase persists a phase transition.
	UpdatePhase(ctx context.Context, sessionID int64, phase domain.Phase) error

	// CommitOutcome finalizes a session. It sets outcome and ended_at in a
	// single compare-and-set write conditioned on the current outcome being
	// UNDETERMINED, and reports whether the write took effect. A false
	// return means the session was already terminal.
	CommitOutcome(ctx context.Context, sessionID int64, outcome domain.Outcome) (bool, error)

	// MarkAbandoned commits the ABANDONED outcome. Same compare-and-set
	// semantics as CommitOutcome.
	MarkAbandoned(ctx context.Context, sessionID int64) (bool, error)

	// CountMessages returns how many messages with the given role the
	// session holds.
	CountMessages(ctx context.Context, sessionID int64, role domain.Role) (int, error)

	// RecentMessages returns up to limit most recent messages in
	// chronological order.
	RecentMessages(ctx context.Context, sessionID int64, limit int) ([]domain.Message, error)

	// ListMessages returns all messages of a session in chronological order.
	ListMessages(ctx context.Context, sessionID int64) ([]domain.Message, error)

	// ListSessions returns the trainee's sessions, newest first.
	ListSessions(ctx context.Context, traineeID string, limit int) ([]domain.Session, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
