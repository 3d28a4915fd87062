// Package classifier decides whether a sales conversation has reached a
// terminal outcome. It wraps a single constrained chat-completion call and
// degrades to an undecided verdict on any failure.
package classifier

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/dealcraft/dealcraft/internal/domain"
)

// Outcome is the three-state classification result.
type Outcome string

const (
	OutcomeConfirmed Outcome = "CONFIRMED"
	OutcomeDenied    Outcome = "DENIED"
	OutcomeUndecided Outcome = "UNDECIDED"
)

// Verdict is the result of one classification call.
type Verdict struct {
	Outcome    Outcome `json:"outcome"`
	Confidence int     `json:"confidence"`
	Reason     string  `json:"reason"`
	KeyPhrase  string  `json:"key_phrase,omitempty"`
	// Headline and Message are display strings in the conversation's
	// language, shown to the trainee when the outcome is committed.
	Headline string `json:"headline,omitempty"`
	Message  string `json:"message,omitempty"`
}

// Undecided is the verdict returned whenever classification fails. It can
// never cause a commit.
func Undecided() Verdict {
	return Verdict{Outcome: OutcomeUndecided, Confidence: 0}
}

// Turn is one finalized dialogue turn in the classification window.
type Turn struct {
	Role    domain.Role
	Content string
}

// Classifier produces a verdict for a windowed transcript. Implementations
// must not return errors through any user-visible path: a failed call
// resolves to Undecided().
type Classifier interface {
	Classify(ctx context.Context, turns []Turn, mode domain.Mode, difficulty domain.Difficulty) Verdict
}

// OpenAIClassifier implements Classifier against the OpenAI chat completions API.
type OpenAIClassifier struct {
	client *openai.Client
	model  string
}

// New creates a classifier using the given API key and model.
func New(apiKey, model string) *OpenAIClassifier {
	return &OpenAIClassifier{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// Classify sends the windowed transcript for classification. Any transport or
// parse failure is logged and resolves to an undecided verdict; the session
// must never observe a classification error.
func (c *OpenAIClassifier) Classify(ctx context.Context, turns []Turn, mode domain.Mode, difficulty domain.Difficulty) Verdict {
	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: 0,
		MaxTokens:   300,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt(mode, difficulty),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: renderTranscript(turns, mode),
			},
		},
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		slog.Warn("classifier call failed", "error", err)
		return Undecided()
	}
	if len(resp.Choices) == 0 {
		slog.Warn("classifier returned no choices")
		return Undecided()
	}

	return ParseVerdict(resp.Choices[0].Message.Content)
}

// ParseVerdict decodes and sanitizes the model's JSON answer. Unparseable or
// out-of-range output degrades to an undecided verdict.
func ParseVerdict(raw string) Verdict {
	var v Verdict
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &v); err != nil {
		slog.Warn("classifier returned unparseable verdict", "error", err)
		return Undecided()
	}

	switch Outcome(strings.ToUpper(string(v.Outcome))) {
	case OutcomeConfirmed:
		v.Outcome = OutcomeConfirmed
	case OutcomeDenied:
		v.Outcome = OutcomeDenied
	case OutcomeUndecided:
		v.Outcome = OutcomeUndecided
	default:
		slog.Warn("classifier returned unknown outcome", "outcome", v.Outcome)
		return Undecided()
	}

	if v.Confidence < 0 {
		v.Confidence = 0
	}
	if v.Confidence > 100 {
		v.Confidence = 100
	}
	return v
}

// renderTranscript flattens the window into labeled lines. Party labels are
// fixed by mode so the model reasons about seller and customer, not about
// which one happens to be the AI.
func renderTranscript(turns []Turn, mode domain.Mode) string {
	sellerRole := domain.RoleUser
	if mode == domain.ModeAISeller {
		sellerRole = domain.RoleAssistant
	}

	var b strings.Builder
	b.WriteString("Transcript:\n")
	for _, t := range turns {
		if t.Role == sellerRole {
			b.WriteString("SELLER: ")
		} else {
			b.WriteString("CUSTOMER: ")
		}
		b.WriteString(t.Content)
		b.WriteString("\n")
	}
	return b.String()
}
