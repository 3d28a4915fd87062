package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dealcraft/dealcraft/internal/domain"
	"github.com/dealcraft/dealcraft/internal/identity"
)

const (
	testAnonID  = "anon_0123456789abcdef0123456789abcdef"
	otherAnonID = "anon_ffffffffffffffffffffffffffffffff"
)

// fakeRepo implements the slice of store.Repository the handlers touch.
type fakeRepo struct {
	sessions []domain.Session
	messages map[int64][]domain.Message
	pingErr  error
}

func (f *fakeRepo) CreateSession(context.Context, string, string, domain.Mode, domain.Difficulty) (*domain.Session, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeRepo) GetSession(_ context.Context, token string) (*domain.Session, error) {
	for _, s := range f.sessions {
		if s.Token == token {
			cp := s
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) AppendMessage(context.Context, int64, domain.Role, string, domain.Phase) (*domain.Message, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeRepo) UpdatePhase(context.Context, int64, domain.Phase) error { return nil }

func (f *fakeRepo) CommitOutcome(context.Context, int64, domain.Outcome) (bool, error) {
	return false, nil
}

func (f *fakeRepo) MarkAbandoned(context.Context, int64) (bool, error) { return false, nil }

func (f *fakeRepo) CountMessages(context.Context, int64, domain.Role) (int, error) { return 0, nil }

func (f *fakeRepo) RecentMessages(_ context.Context, sessionID int64, _ int) ([]domain.Message, error) {
	return f.messages[sessionID], nil
}

func (f *fakeRepo) ListMessages(_ context.Context, sessionID int64) ([]domain.Message, error) {
	return f.messages[sessionID], nil
}

func (f *fakeRepo) ListSessions(_ context.Context, traineeID string, _ int) ([]domain.Session, error) {
	var out []domain.Session
	for _, s := range f.sessions {
		if s.TraineeID == traineeID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeRepo) Ping(context.Context) error { return f.pingErr }
func (f *fakeRepo) Close() error               { return nil }

func newTestRouter(repo *fakeRepo) http.Handler {
	r := chi.NewRouter()
	r.Use(identity.Middleware(true))
	NewHandler(repo).RegisterRoutes(r)
	return r
}

func doRequest(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.AddCookie(&http.Cookie{Name: identity.AnonCookieName, Value: testAnonID})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := doRequest(t, newTestRouter(&fakeRepo{}), "/api/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestHealthDatabaseDown(t *testing.T) {
	rec := doRequest(t, newTestRouter(&fakeRepo{pingErr: errors.New("locked")}), "/api/health")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestListSessionsScopedToCaller(t *testing.T) {
	now := time.Now()
	ended := now.Add(3 * time.Minute)
	repo := &fakeRepo{
		sessions: []domain.Session{
			{
				ID: 1, Token: "mine", TraineeID: testAnonID,
				Mode: domain.ModeAISeller, Difficulty: domain.DifficultyMedium,
				Phase: domain.PhaseCompleted, Outcome: domain.OutcomeSaleMade,
				StartedAt: now, EndedAt: &ended,
			},
			{
				ID: 2, Token: "theirs", TraineeID: otherAnonID,
				Mode: domain.ModeAICustomer, Difficulty: domain.DifficultyHard,
				Phase: domain.PhasePitching, Outcome: domain.OutcomeUndetermined,
				StartedAt: now,
			},
		},
	}

	rec := doRequest(t, newTestRouter(repo), "/api/sessions")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		Sessions []struct {
			Token   string  `json:"token"`
			Outcome string  `json:"outcome"`
			EndedAt *string `json:"ended_at"`
		} `json:"sessions"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Sessions) != 1 {
		t.Fatalf("sessions = %d, want 1", len(body.Sessions))
	}
	if body.Sessions[0].Token != "mine" || body.Sessions[0].Outcome != "SALE_MADE" {
		t.Errorf("session = %+v", body.Sessions[0])
	}
	if body.Sessions[0].EndedAt == nil {
		t.Error("ended_at missing on a completed session")
	}
}

func TestListMessages(t *testing.T) {
	now := time.Now()
	repo := &fakeRepo{
		sessions: []domain.Session{{
			ID: 7, Token: "mine", TraineeID: testAnonID,
			Mode: domain.ModeAISeller, Difficulty: domain.DifficultyMedium,
			Phase: domain.PhaseClosing, Outcome: domain.OutcomeUndetermined,
			StartedAt: now,
		}},
		messages: map[int64][]domain.Message{
			7: {
				{ID: 1, SessionID: 7, Role: domain.RoleAssistant, Content: "Hello!", Phase: domain.PhaseGreeting, CreatedAt: now},
				{ID: 2, SessionID: 7, Role: domain.RoleUser, Content: "Show me what you have", Phase: domain.PhaseGreeting, CreatedAt: now},
			},
		},
	}

	rec := doRequest(t, newTestRouter(repo), "/api/sessions/mine/messages")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
			Phase   string `json:"phase"`
		} `json:"messages"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(body.Messages))
	}
	if body.Messages[0].Role != "ASSISTANT" || body.Messages[1].Phase != "GREETING" {
		t.Errorf("messages = %+v", body.Messages)
	}
}

func TestListMessagesForeignSessionIs404(t *testing.T) {
	repo := &fakeRepo{
		sessions: []domain.Session{{
			ID: 9, Token: "theirs", TraineeID: otherAnonID,
			Mode: domain.ModeAISeller, Difficulty: domain.DifficultyMedium,
			Phase: domain.PhaseGreeting, Outcome: domain.OutcomeUndetermined,
			StartedAt: time.Now(),
		}},
	}

	rec := doRequest(t, newTestRouter(repo), "/api/sessions/theirs/messages")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 for a foreign session", rec.Code)
	}
}

func TestListMessagesUnknownTokenIs404(t *testing.T) {
	rec := doRequest(t, newTestRouter(&fakeRepo{}), "/api/sessions/nope/messages")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
