package coach

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dealcraft/dealcraft/internal/classifier"
	"github.com/dealcraft/dealcraft/internal/domain"
	"github.com/dealcraft/dealcraft/internal/store"
)

// Decision is the gate's answer for one finalized turn. Committed is true
// only when the terminal outcome was durably written by this call.
type Decision struct {
	Committed bool
	Outcome   domain.Outcome
	Headline  string
	Message   string
}

// Fallback display strings used when the classifier supplies none (and for
// the lexical give-up short circuit, which never calls the classifier).
const (
	fallbackWinHeadline  = "Deal closed!"
	fallbackWinMessage   = "The customer agreed to the purchase."
	fallbackLossHeadline = "No deal"
	fallbackLossMessage  = "The conversation ended without a sale."
)

// Gate combines classifier verdicts, lexical fast-path signals, and
// mode/phase context into at most one terminal commit per session. The
// store's compare-and-set commit makes concurrent paths safe: whichever
// write lands first wins and every later attempt is a no-op.
type Gate struct {
	repo     store.Repository
	cls      classifier.Classifier
	strategy ModeStrategy
	exit     SignalSet
	buy      SignalSet
	window   int
}

// NewGate builds the decision gate for one session's mode.
func NewGate(repo store.Repository, cls classifier.Classifier, strategy ModeStrategy, exit, buy SignalSet, window int) *Gate {
	return &Gate{
		repo:     repo,
		cls:      cls,
		strategy: strategy,
		exit:     exit,
		buy:      buy,
		window:   window,
	}
}

// Evaluate runs the decision procedure for one finalized utterance. The
// session's phase must already reflect the turn (transitions are applied
// before any classifier call). A zero Decision with nil error means the
// conversation simply continues.
func (g *Gate) Evaluate(ctx context.Context, sess *domain.Session, role domain.Role, text string) (Decision, error) {
	if sess.Terminal() {
		return Decision{}, nil
	}
	if !g.strategy.Evaluates(sess.Phase, role) {
		return Decision{}, nil
	}

	exitSignal := g.exit.Match(text)
	buySignal := g.buy.Match(text)

	// Lexical give-up: the trainee salesperson disengaging forfeits the
	// deal without consulting the classifier.
	if g.strategy.GiveUpShortCircuit(role, exitSignal) {
		return g.commit(ctx, sess, domain.OutcomeNoSale, fallbackLossHeadline, fallbackLossMessage)
	}

	if !g.strategy.NeedsClassifier(sess.Phase, role, exitSignal, buySignal) {
		return Decision{}, nil
	}

	turns, err := g.windowedTranscript(ctx, sess.ID)
	if err != nil {
		// A failed window read degrades like a failed classification:
		// the conversation continues.
		slog.Warn("decision gate: transcript window unavailable",
			"session", sess.Token, "error", err)
		return Decision{}, nil
	}

	verdict := g.cls.Classify(ctx, turns, sess.Mode, sess.Difficulty)
	threshold := g.strategy.Threshold(exitSignal)

	slog.Debug("decision gate verdict",
		"session", sess.Token,
		"outcome", verdict.Outcome,
		"confidence", verdict.Confidence,
		"threshold", threshold,
		"exit_signal", exitSignal,
		"buy_signal", buySignal,
	)

	if verdict.Confidence < threshold {
		return Decision{}, nil
	}

	switch verdict.Outcome {
	case classifier.OutcomeConfirmed:
		return g.commit(ctx, sess, domain.OutcomeSaleMade,
			orFallback(verdict.Headline, fallbackWinHeadline),
			orFallback(verdict.Message, fallbackWinMessage))
	case classifier.OutcomeDenied:
		return g.commit(ctx, sess, domain.OutcomeNoSale,
			orFallback(verdict.Headline, fallbackLossHeadline),
			orFallback(verdict.Message, fallbackLossMessage))
	}
	return Decision{}, nil
}

// commit is the single logical write that finalizes a session. A store
// error or a lost compare-and-set race both yield an uncommitted Decision;
// the caller must not notify the client of an outcome that was not durably
// written.
func (g *Gate) commit(ctx context.Context, sess *domain.Session, outcome domain.Outcome, headline, message string) (Decision, error) {
	ok, err := g.repo.CommitOutcome(ctx, sess.ID, outcome)
	if err != nil {
		return Decision{}, fmt.Errorf("commit outcome %s: %w", outcome, err)
	}
	if !ok {
		slog.Info("decision gate: outcome already committed", "session", sess.Token)
		return Decision{}, nil
	}

	now := time.Now()
	sess.Outcome = outcome
	sess.EndedAt = &now
	sess.Phase = domain.PhaseCompleted

	return Decision{
		Committed: true,
		Outcome:   outcome,
		Headline:  headline,
		Message:   message,
	}, nil
}

func (g *Gate) windowedTranscript(ctx context.Context, sessionID int64) ([]classifier.Turn, error) {
	msgs, err := g.repo.RecentMessages(ctx, sessionID, g.window)
	if err != nil {
		return nil, err
	}
	turns := make([]classifier.Turn, 0, len(msgs))
	for _, m := range msgs {
		turns = append(turns, classifier.Turn{Role: m.Role, Content: m.Content})
	}
	return turns, nil
}

func orFallback(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
