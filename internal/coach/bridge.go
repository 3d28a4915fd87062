package coach

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/coder/websocket"

	"github.com/dealcraft/dealcraft/internal/classifier"
	"github.com/dealcraft/dealcraft/internal/config"
	"github.com/dealcraft/dealcraft/internal/domain"
	"github.com/dealcraft/dealcraft/internal/identity"
	"github.com/dealcraft/dealcraft/internal/realtime"
	"github.com/dealcraft/dealcraft/internal/store"
)

// engineConn is the engine connection plus its read pump.
type engineConn interface {
	realtime.Conn
	ReadLoop(ctx context.Context, handler func(realtime.ServerEvent)) error
}

// Bridge accepts trainee websocket connections and runs one orchestration
// session per connection: it owns the paired upstream engine connection for
// the session's lifetime and contains all component failures at its
// boundary.
type Bridge struct {
	repo      store.Repository
	cls       classifier.Classifier
	cfg       *config.Config
	lifecycle *Lifecycle
	dial      func(ctx context.Context) (engineConn, error)
}

// NewBridge creates the websocket handler for training sessions.
func NewBridge(repo store.Repository, cls classifier.Classifier, cfg *config.Config) *Bridge {
	b := &Bridge{
		repo:      repo,
		cls:       cls,
		cfg:       cfg,
		lifecycle: NewLifecycle(repo),
	}
	b.dial = func(ctx context.Context) (engineConn, error) {
		return realtime.Dial(ctx, realtime.DialConfig{
			Model:  cfg.RealtimeModel,
			APIKey: cfg.OpenAIAPIKey,
		})
	}
	return b
}

// wsClient adapts the trainee's websocket to clientSender.
type wsClient struct {
	ws  *websocket.Conn
	ctx context.Context
}

func (c *wsClient) send(ev ClientEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal client event: %w", err)
	}
	return c.ws.Write(c.ctx, websocket.MessageText, data)
}

// ServeHTTP implements http.Handler for the websocket upgrade.
func (b *Bridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	traineeID := identity.TraineeIDFromContext(r.Context())
	slog.Info("session connection request", "trainee", traineeID, "ip", r.RemoteAddr)

	if !b.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("failed to accept websocket", "error", err, "trainee", traineeID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("failed to close websocket", "error", closeErr)
		}
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	client := &wsClient{ws: ws, ctx: ctx}

	sess, err := b.lifecycle.Begin(ctx, traineeID, b.cfg.Mode, b.cfg.Difficulty)
	if err != nil {
		slog.Error("failed to begin session", "error", err, "trainee", traineeID)
		_ = client.send(ClientEvent{Type: evError, Message: "could not start session"})
		return
	}

	engine, err := b.dial(ctx)
	if err != nil {
		slog.Error("failed to reach engine", "error", err, "session", sess.Token)
		_ = client.send(ClientEvent{Type: evError, Message: "could not reach the conversation engine"})
		b.lifecycle.Abandon(context.WithoutCancel(ctx), sess)
		return
	}
	defer func() {
		if closeErr := engine.Close(); closeErr != nil {
			slog.Debug("engine close failed", "error", closeErr, "session", sess.Token)
		}
	}()

	strategy := StrategyFor(sess.Mode, b.cfg.TriggerPhrase)
	phases := NewPhaseMachine(b.repo, strategy)
	exit := NewSignalSet(b.cfg.ExitPhrases)
	buy := NewSignalSet(b.cfg.BuyPhrases)
	gate := NewGate(b.repo, b.cls, strategy, exit, buy, b.cfg.ClassifyWindow)
	s := newSession(sess, strategy, phases, gate, b.repo, client, engine, b.greetPrompt())

	// Configuration handshake. The greeting is only requested once the
	// engine acknowledges this with session.updated.
	if err := engine.Send(realtime.NewSessionUpdate(b.instructions(), b.cfg.Voice)); err != nil {
		slog.Error("engine handshake failed", "error", err, "session", sess.Token)
		_ = client.send(ClientEvent{Type: evError, Message: "could not configure the conversation engine"})
		b.lifecycle.Abandon(context.WithoutCancel(ctx), sess)
		return
	}

	var wg sync.WaitGroup
	wg.Add(2)

	// Engine pump: upstream events -> session handlers. An upstream
	// failure surfaces as one generic error event; upstream close
	// propagates to a client close via cancel.
	go func() {
		defer wg.Done()
		defer cancel()
		if readErr := engine.ReadLoop(ctx, func(ev realtime.ServerEvent) {
			s.handleEngineEvent(ctx, ev)
		}); readErr != nil && ctx.Err() == nil {
			slog.Warn("engine connection failed", "error", readErr, "session", sess.Token)
			s.mu.Lock()
			s.sendClient(ClientEvent{Type: evError, Message: "upstream connection lost"})
			s.mu.Unlock()
		}
	}()

	// Client pump: trainee frames -> session handlers. Client close
	// triggers upstream teardown through cancel and the deferred Close.
	go func() {
		defer wg.Done()
		defer cancel()
		for {
			_, data, readErr := ws.Read(ctx)
			if readErr != nil {
				if websocket.CloseStatus(readErr) != -1 {
					slog.Debug("websocket closed by client", "session", sess.Token)
				} else if ctx.Err() == nil {
					slog.Warn("websocket read error", "error", readErr, "session", sess.Token)
				}
				return
			}
			s.handleClientFrame(ctx, data)
		}
	}()

	wg.Wait()

	// Reconcile an ungraceful disconnect. The compare-and-set inside makes
	// this a no-op for sessions that already reached an outcome.
	b.lifecycle.Abandon(context.WithoutCancel(ctx), sess)
	slog.Info("session connection ended", "session", sess.Token, "outcome", sess.Outcome)
}

func (b *Bridge) checkOrigin(r *http.Request) bool {
	if b.cfg.IsDevelopment() {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || origin == b.cfg.FrontendURL {
		return true
	}
	slog.Warn("websocket origin rejected", "origin", origin, "allowed", b.cfg.FrontendURL)
	return false
}

// instructions assembles the upstream system prompt from the configured
// persona/script blobs. The blobs themselves are opaque configuration data.
func (b *Bridge) instructions() string {
	var sb strings.Builder
	if b.cfg.Mode == domain.ModeAICustomer {
		sb.WriteString(b.cfg.CustomerScript)
		fmt.Fprintf(&sb, "\n\nPlay a %s customer: the higher the difficulty, the more objections you raise and the harder you are to convince.", strings.ToLower(string(b.cfg.Difficulty)))
	} else {
		sb.WriteString(b.cfg.SellerScript)
		fmt.Fprintf(&sb, "\n\nThe exercise begins when the customer says something like %q. Before that, stay in small talk.", b.cfg.TriggerPhrase)
	}
	return sb.String()
}

func (b *Bridge) greetPrompt() string {
	if b.cfg.Mode == domain.ModeAICustomer {
		return "Greet the salesperson briefly, as a customer who just walked in."
	}
	return "Greet the customer warmly and introduce yourself."
}
