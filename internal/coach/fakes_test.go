package coach

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dealcraft/dealcraft/internal/classifier"
	"github.com/dealcraft/dealcraft/internal/domain"
)

// fakeRepo is an in-memory store.Repository for orchestration tests.
type fakeRepo struct {
	mu       sync.Mutex
	sessions map[int64]*domain.Session
	messages []domain.Message
	nextID   int64

	failCommit bool
	failAppend bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{sessions: make(map[int64]*domain.Session)}
}

func (r *fakeRepo) CreateSession(_ context.Context, token, traineeID string, mode domain.Mode, difficulty domain.Difficulty) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	sess := &domain.Session{
		ID:         r.nextID,
		Token:      token,
		TraineeID:  traineeID,
		Mode:       mode,
		Difficulty: difficulty,
		Phase:      domain.PhaseGreeting,
		Outcome:    domain.OutcomeUndetermined,
		StartedAt:  time.Now(),
	}
	stored := *sess
	r.sessions[sess.ID] = &stored
	return sess, nil
}

func (r *fakeRepo) GetSession(_ context.Context, token string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.Token == token {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeRepo) AppendMessage(_ context.Context, sessionID int64, role domain.Role, content string, phase domain.Phase) (*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAppend {
		return nil, errors.New("append failed")
	}
	r.nextID++
	m := domain.Message{
		ID:        r.nextID,
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		Phase:     phase,
		CreatedAt: time.Now(),
	}
	r.messages = append(r.messages, m)
	return &m, nil
}

func (r *fakeRepo) UpdatePhase(_ context.Context, sessionID int64, phase domain.Phase) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[sessionID]; ok {
		s.Phase = phase
	}
	return nil
}

func (r *fakeRepo) CommitOutcome(_ context.Context, sessionID int64, outcome domain.Outcome) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCommit {
		return false, errors.New("commit failed")
	}
	s, ok := r.sessions[sessionID]
	if !ok || s.Outcome != domain.OutcomeUndetermined {
		return false, nil
	}
	now := time.Now()
	s.Outcome = outcome
	s.EndedAt = &now
	s.Phase = domain.PhaseCompleted
	return true, nil
}

func (r *fakeRepo) MarkAbandoned(ctx context.Context, sessionID int64) (bool, error) {
	return r.CommitOutcome(ctx, sessionID, domain.OutcomeAbandoned)
}

func (r *fakeRepo) CountMessages(_ context.Context, sessionID int64, role domain.Role) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, m := range r.messages {
		if m.SessionID == sessionID && m.Role == role {
			n++
		}
	}
	return n, nil
}

func (r *fakeRepo) RecentMessages(_ context.Context, sessionID int64, limit int) ([]domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Message
	for _, m := range r.messages {
		if m.SessionID == sessionID {
			out = append(out, m)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (r *fakeRepo) ListMessages(ctx context.Context, sessionID int64) ([]domain.Message, error) {
	return r.RecentMessages(ctx, sessionID, len(r.messages)+1)
}

func (r *fakeRepo) ListSessions(_ context.Context, traineeID string, limit int) ([]domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Session
	for _, s := range r.sessions {
		if s.TraineeID == traineeID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *fakeRepo) Ping(context.Context) error { return nil }
func (r *fakeRepo) Close() error               { return nil }

// stored returns the persisted view of a session.
func (r *fakeRepo) stored(id int64) domain.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.sessions[id]
}

// fakeClassifier replays scripted verdicts in order, then undecided.
type fakeClassifier struct {
	mu       sync.Mutex
	verdicts []classifier.Verdict
	calls    int
}

func (f *fakeClassifier) Classify(context.Context, []classifier.Turn, domain.Mode, domain.Difficulty) classifier.Verdict {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.verdicts) == 0 {
		return classifier.Undecided()
	}
	v := f.verdicts[0]
	f.verdicts = f.verdicts[1:]
	return v
}

// fakeClient records everything sent to the trainee.
type fakeClient struct {
	mu     sync.Mutex
	events []ClientEvent
}

func (f *fakeClient) send(ev ClientEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeClient) byType(typ string) []ClientEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []ClientEvent
	for _, ev := range f.events {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

// fakeEngine records upstream sends.
type fakeEngine struct {
	mu     sync.Mutex
	sent   []any
	closed bool
}

func (f *fakeEngine) Send(v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, v)
	return nil
}

func (f *fakeEngine) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}
