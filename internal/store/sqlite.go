package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dealcraft/dealcraft/internal/domain"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		token TEXT NOT NULL UNIQUE,
		trainee_id TEXT NOT NULL,
		mode TEXT NOT NULL,
		difficulty TEXT NOT NULL,
		phase TEXT NOT NULL,
		outcome TEXT NOT NULL DEFAULT 'UNDETERMINED',
		started_at INTEGER NOT NULL,
		ended_at INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_trainee ON sessions(trainee_id, started_at);

	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id INTEGER NOT NULL REFERENCES sessions(id),
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		phase TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, id);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateSession creates a new session record.
func (s *SQLiteStore) CreateSession(ctx context.Context, token, traineeID string, mode domain.Mode, difficulty domain.Difficulty) (*domain.Session, error) {
	now := time.Now()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (token, trainee_id, mode, difficulty, phase, outcome, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		token, traineeID, string(mode), string(difficulty), string(domain.PhaseGreeting),
		string(domain.OutcomeUndetermined), now.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("session insert id: %w", err)
	}
	return &domain.Session{
		ID:         id,
		Token:      token,
		TraineeID:  traineeID,
		Mode:       mode,
		Difficulty: difficulty,
		Phase:      domain.PhaseGreeting,
		Outcome:    domain.OutcomeUndetermined,
		StartedAt:  now,
	}, nil
}

// GetSession retrieves a session by token.
func (s *SQLiteStore) GetSession(ctx context.Context, token string) (*domain.Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, token, trainee_id, mode, difficulty, phase, outcome, started_at, ended_at
		FROM sessions WHERE token = ?`, token)
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan session row: %w", err)
	}
	return sess, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*domain.Session, error) {
	var sess domain.Session
	var startedAt int64
	var endedAt sql.NullInt64
	err := row.Scan(
		&sess.ID, &sess.Token, &sess.TraineeID, &sess.Mode, &sess.Difficulty,
		&sess.Phase, &sess.Outcome, &startedAt, &endedAt,
	)
	if err != nil {
		return nil, err
	}
	sess.StartedAt = time.Unix(startedAt, 0)
	if endedAt.Valid {
		t := time.Unix(endedAt.Int64, 0)
		sess.EndedAt = &t
	}
	return &sess, nil
}

// AppendMessage records one finalized dialogue turn.
func (s *SQLiteStore) AppendMessage(ctx context.Context, sessionID int64, role domain.Role, content string, phase domain.Phase) (*domain.Message, error) {
	now := time.Now()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (session_id, role, content, phase, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		sessionID, string(role), content, string(phase), now.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("message insert id: %w", err)
	}
	return &domain.Message{
		ID:        id,
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		Phase:     phase,
		CreatedAt: now,
	}, nil
}

// UpdatePhase persists a phase transition.
func (s *SQLiteStore) UpdatePhase(ctx context.Context, sessionID int64, phase domain.Phase) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET phase = ? WHERE id = ?`, string(phase), sessionID)
	if err != nil {
		return fmt.Errorf("update phase: %w", err)
	}
	return nil
}

// CommitOutcome finalizes a session with compare-and-set semantics. The
// WHERE clause on the current outcome is what makes concurrent commit paths
// (lexical short-circuit vs classifier verdict vs abandon) safe: only the
// first writer wins.
func (s *SQLiteStore) CommitOutcome(ctx context.Context, sessionID int64, outcome domain.Outcome) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET outcome = ?, ended_at = ?, phase = ?
		WHERE id = ? AND outcome = ?`,
		string(outcome), time.Now().Unix(), string(domain.PhaseCompleted),
		sessionID, string(domain.OutcomeUndetermined),
	)
	if err != nil {
		return false, fmt.Errorf("commit outcome: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("commit outcome rows affected: %w", err)
	}
	return n == 1, nil
}

// MarkAbandoned commits the ABANDONED outcome.
func (s *SQLiteStore) MarkAbandoned(ctx context.Context, sessionID int64) (bool, error) {
	return s.CommitOutcome(ctx, sessionID, domain.OutcomeAbandoned)
}

// CountMessages returns how many messages with the given role the session holds.
func (s *SQLiteStore) CountMessages(ctx context.Context, sessionID int64, role domain.Role) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE session_id = ? AND role = ?`,
		sessionID, string(role)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return n, nil
}

// RecentMessages returns up to limit most recent messages in chronological order.
func (s *SQLiteStore) RecentMessages(ctx context.Context, sessionID int64, limit int) ([]domain.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, role, content, phase, created_at FROM (
			SELECT id, session_id, role, content, phase, created_at
			FROM messages WHERE session_id = ? ORDER BY id DESC LIMIT ?
		) ORDER BY id ASC`,
		sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent messages: %w", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

// ListMessages returns all messages of a session in chronological order.
func (s *SQLiteStore) ListMessages(ctx context.Context, sessionID int64) ([]domain.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, role, content, phase, created_at
		FROM messages WHERE session_id = ? ORDER BY id ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

func scanMessages(rows *sql.Rows) ([]domain.Message, error) {
	var msgs []domain.Message
	for rows.Next() {
		var m domain.Message
		var createdAt int64
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.Phase, &createdAt); err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}
		m.CreatedAt = time.Unix(createdAt, 0)
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate message rows: %w", err)
	}
	return msgs, nil
}

// ListSessions returns the trainee's sessions, newest first.
func (s *SQLiteStore) ListSessions(ctx context.Context, traineeID string, limit int) ([]domain.Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, token, trainee_id, mode, difficulty, phase, outcome, started_at, ended_at
		FROM sessions WHERE trainee_id = ? ORDER BY started_at DESC, id DESC LIMIT ?`,
		traineeID, limit)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		sessions = append(sessions, *sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session rows: %w", err)
	}
	return sessions, nil
}
