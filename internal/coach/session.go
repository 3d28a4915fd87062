package coach

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/dealcraft/dealcraft/internal/domain"
	"github.com/dealcraft/dealcraft/internal/realtime"
	"github.com/dealcraft/dealcraft/internal/store"
)

// clientSender is the outbound side of the trainee's socket. The bridge
// provides a real websocket; tests provide a recorder.
type clientSender interface {
	send(ev ClientEvent) error
}

// session owns the translation and orchestration state of one paired
// connection. Both pumps (client reads and engine reads) funnel into its
// handlers; the mutex serializes them. Nothing here is shared across
// sessions.
type session struct {
	mu sync.Mutex

	sess     *domain.Session
	strategy ModeStrategy
	phases   *PhaseMachine
	gate     *Gate
	repo     store.Repository

	client clientSender
	engine realtime.Conn
	buf    TranscriptBuffer

	greetPrompt string
	greeted     bool
	notified    bool
	userMsgs    int
}

func newSession(sess *domain.Session, strategy ModeStrategy, phases *PhaseMachine, gate *Gate, repo store.Repository, client clientSender, engine realtime.Conn, greetPrompt string) *session {
	return &session{
		sess:        sess,
		strategy:    strategy,
		phases:      phases,
		gate:        gate,
		repo:        repo,
		client:      client,
		engine:      engine,
		greetPrompt: greetPrompt,
	}
}

// sendClient forwards an event to the trainee unless the session already
// delivered its outcome notification. After the terminal notification no
// further outbound audio or text may reach the client.
func (s *session) sendClient(ev ClientEvent) {
	if s.notified {
		return
	}
	if err := s.client.send(ev); err != nil {
		slog.Debug("client write failed", "session", s.sess.Token, "error", err)
	}
}

// handleEngineEvent translates one upstream engine event. Called from the
// engine read pump.
func (s *session) handleEngineEvent(ctx context.Context, ev realtime.ServerEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev.Type {
	case realtime.EventSessionCreated, realtime.EventSessionUpdated:
		s.onEngineReady()

	case realtime.EventAudioDelta:
		if s.sess.Terminal() {
			return
		}
		s.sendClient(ClientEvent{Type: evAudio, Chunk: ev.Delta})

	case realtime.EventAssistantTranscriptDelta:
		if s.sess.Terminal() {
			return
		}
		if s.buf.Fragment(ev.Delta) {
			s.sendClient(ClientEvent{Type: evAssistantTranscript, Text: ev.Delta})
		}

	case realtime.EventAssistantTranscriptDone:
		s.finalizeAssistantTurn(ctx, ev.Transcript)

	case realtime.EventSpeechStarted:
		s.buf.SpeechStarted()

	case realtime.EventSpeechStopped:
		// The window closes when the finalized transcript arrives, not
		// when the audio stops.

	case realtime.EventUserTranscriptCompleted:
		s.finalizeUserTurn(ctx, ev.Transcript)

	case realtime.EventError:
		msg := ""
		if ev.Error != nil {
			msg = ev.Error.Message
		}
		slog.Error("engine error event", "session", s.sess.Token, "detail", msg)
		s.sendClient(ClientEvent{Type: evError, Message: "upstream error"})

	default:
		slog.Debug("ignoring engine event", "session", s.sess.Token, "type", ev.Type)
	}
}

// handleClientFrame translates one inbound client frame. Called from the
// client read pump. Malformed frames are logged and dropped; a single bad
// frame never terminates the connection.
func (s *session) handleClientFrame(ctx context.Context, data []byte) {
	var in inboundEvent
	if err := json.Unmarshal(data, &in); err != nil {
		slog.Warn("malformed client frame", "session", s.sess.Token, "error", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch in.Type {
	case evInAudio:
		if s.sess.Terminal() {
			return
		}
		if err := s.engine.Send(realtime.NewAudioAppend(in.Chunk)); err != nil {
			slog.Warn("engine audio append failed", "session", s.sess.Token, "error", err)
		}

	case evInText:
		if s.sess.Terminal() || in.Text == "" {
			return
		}
		if err := s.engine.Send(realtime.NewUserText(in.Text)); err != nil {
			slog.Warn("engine item create failed", "session", s.sess.Token, "error", err)
			return
		}
		if err := s.engine.Send(realtime.NewResponseCreate("")); err != nil {
			slog.Warn("engine response request failed", "session", s.sess.Token, "error", err)
		}
		// A typed message is already a finalized user turn.
		s.finalizeUserTurn(ctx, in.Text)

	default:
		slog.Warn("unknown client event", "session", s.sess.Token, "type", in.Type)
	}
}

// onEngineReady runs once the engine confirms its session is configured. No
// greeting may be requested before this point, and it is requested only once
// per connection.
func (s *session) onEngineReady() {
	if s.greeted {
		return
	}
	s.greeted = true

	if err := s.engine.Send(realtime.NewResponseCreate(s.greetPrompt)); err != nil {
		slog.Warn("greeting request failed", "session", s.sess.Token, "error", err)
	}
	s.sendClient(ClientEvent{Type: evReady, SessionID: s.sess.Token})
}

// finalizeUserTurn applies the side effects of a finalized trainee
// utterance: release the held assistant fragments, echo the transcript,
// persist the message, advance the phase, and run the decision gate.
func (s *session) finalizeUserTurn(ctx context.Context, text string) {
	if flushed, ok := s.buf.Finalize(); ok && !s.sess.Terminal() {
		s.sendClient(ClientEvent{Type: evAssistantTranscript, Text: flushed})
	}
	if text == "" || s.sess.Terminal() {
		return
	}
	s.sendClient(ClientEvent{Type: evUserTranscript, Text: text})
	s.finalizeTurn(ctx, domain.RoleUser, text)
}

// finalizeAssistantTurn applies the side effects of a finalized AI
// utterance.
func (s *session) finalizeAssistantTurn(ctx context.Context, text string) {
	if text == "" || s.sess.Terminal() {
		return
	}
	s.finalizeTurn(ctx, domain.RoleAssistant, text)
}

func (s *session) finalizeTurn(ctx context.Context, role domain.Role, text string) {
	// Message carries the phase at the moment of finalization; the
	// transition this turn may cause comes after.
	if _, err := s.repo.AppendMessage(ctx, s.sess.ID, role, text, s.sess.Phase); err != nil {
		slog.Warn("message append failed",
			"session", s.sess.Token,
			"role", role,
			"retryable", store.IsSQLiteConflictError(err),
			"error", err)
	}
	if role == domain.RoleUser {
		s.userMsgs++
	}

	changed, err := s.phases.Advance(ctx, s.sess, role, text, s.userMsgs)
	if err != nil {
		slog.Warn("phase advance failed", "session", s.sess.Token, "error", err)
	} else if changed {
		slog.Info("phase transition", "session", s.sess.Token, "phase", s.sess.Phase)
	}

	decision, err := s.gate.Evaluate(ctx, s.sess, role, text)
	if err != nil {
		// The outcome was not durably committed; the client must not be
		// notified and the conversation continues.
		slog.Error("decision gate failed", "session", s.sess.Token, "error", err)
		return
	}
	if decision.Committed {
		s.notifyOutcome(decision)
	}
}

// notifyOutcome delivers the single outcome notification and tears down the
// upstream connection. Everything outbound after this is suppressed.
func (s *session) notifyOutcome(d Decision) {
	if s.notified {
		return
	}
	slog.Info("outcome committed",
		"session", s.sess.Token, "outcome", d.Outcome, "phase", s.sess.Phase)

	if err := s.client.send(outcomeEvent(d)); err != nil {
		slog.Debug("outcome notification failed", "session", s.sess.Token, "error", err)
	}
	s.notified = true

	if err := s.engine.Close(); err != nil {
		slog.Debug("engine close failed", "session", s.sess.Token, "error", err)
	}
}
