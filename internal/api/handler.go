// Package api provides HTTP handlers for the dealcraft API.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dealcraft/dealcraft/internal/domain"
	"github.com/dealcraft/dealcraft/internal/identity"
	"github.com/dealcraft/dealcraft/internal/store"
)

const sessionListLimit = 50

// Handler serves the read-only review surface over completed training runs.
type Handler struct {
	repo store.Repository
}

// NewHandler creates a new Handler.
func NewHandler(repo store.Repository) *Handler {
	return &Handler{repo: repo}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// RegisterRoutes mounts the API routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/api/health", h.Health)
	r.Get("/api/sessions", h.ListSessions)
	r.Get("/api/sessions/{token}/messages", h.ListMessages)
}

// Health reports service and database status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.Ping(r.Context()); err != nil {
		Error(w, http.StatusServiceUnavailable, "database unreachable")
		return
	}
	JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type sessionView struct {
	Token      string  `json:"token"`
	Mode       string  `json:"mode"`
	Difficulty string  `json:"difficulty"`
	Phase      string  `json:"phase"`
	Outcome    string  `json:"outcome"`
	StartedAt  string  `json:"started_at"`
	EndedAt    *string `json:"ended_at,omitempty"`
}

func toSessionView(s domain.Session) sessionView {
	v := sessionView{
		Token:      s.Token,
		Mode:       string(s.Mode),
		Difficulty: string(s.Difficulty),
		Phase:      string(s.Phase),
		Outcome:    string(s.Outcome),
		StartedAt:  s.StartedAt.Format(time.RFC3339),
	}
	if s.EndedAt != nil {
		ended := s.EndedAt.Format(time.RFC3339)
		v.EndedAt = &ended
	}
	return v
}

// ListSessions lists the requesting trainee's sessions, newest first.
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	traineeID := identity.TraineeIDFromContext(r.Context())
	sessions, err := h.repo.ListSessions(r.Context(), traineeID, sessionListLimit)
	if err != nil {
		Error(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}

	views := make([]sessionView, 0, len(sessions))
	for _, s := range sessions {
		views = append(views, toSessionView(s))
	}
	JSON(w, http.StatusOK, map[string]interface{}{"sessions": views})
}

type messageView struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Phase     string `json:"phase"`
	CreatedAt string `json:"created_at"`
}

// ListMessages returns the full transcript of one of the trainee's sessions.
func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	traineeID := identity.TraineeIDFromContext(r.Context())
	token := chi.URLParam(r, "token")

	sess, err := h.repo.GetSession(r.Context(), token)
	if err != nil {
		Error(w, http.StatusInternalServerError, "failed to load session")
		return
	}
	if sess == nil || sess.TraineeID != traineeID {
		Error(w, http.StatusNotFound, "session not found")
		return
	}

	msgs, err := h.repo.ListMessages(r.Context(), sess.ID)
	if err != nil {
		Error(w, http.StatusInternalServerError, "failed to load messages")
		return
	}

	views := make([]messageView, 0, len(msgs))
	for _, m := range msgs {
		views = append(views, messageView{
			Role:      string(m.Role),
			Content:   m.Content,
			Phase:     string(m.Phase),
			CreatedAt: m.CreatedAt.Format(time.RFC3339),
		})
	}
	JSON(w, http.StatusOK, map[string]interface{}{
		"session":  toSessionView(*sess),
		"messages": views,
	})
}
