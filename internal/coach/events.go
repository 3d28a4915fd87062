// Package coach implements the conversation orchestration core: it bridges
// the trainee's websocket to the upstream AI engine, advances the session
// phase machine, reconciles the two transcript streams, and decides when a
// deal is won or lost.
package coach

import "github.com/dealcraft/dealcraft/internal/domain"

// Outbound client event types.
const (
	evReady               = "ready"
	evAudio               = "audio"
	evAssistantTranscript = "assistant_transcript"
	evUserTranscript      = "user_transcript"
	evSaleMade            = "sale_made"
	evSaleDenied          = "sale_denied"
	evError               = "error"
)

// Inbound client event types.
const (
	evInAudio = "audio"
	evInText  = "text"
)

// ClientEvent is one outbound frame to the trainee's socket.
type ClientEvent struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id,omitempty"`
	Chunk     string `json:"chunk,omitempty"`
	Text      string `json:"text,omitempty"`
	Headline  string `json:"headline,omitempty"`
	Message   string `json:"message,omitempty"`
}

// inboundEvent is one frame received from the trainee's socket.
type inboundEvent struct {
	Type  string `json:"type"`
	Chunk string `json:"chunk,omitempty"`
	Text  string `json:"text,omitempty"`
}

// outcomeEvent translates a committed decision into the single outcome
// notification the client receives.
func outcomeEvent(d Decision) ClientEvent {
	typ := evSaleDenied
	if d.Outcome == domain.OutcomeSaleMade {
		typ = evSaleMade
	}
	return ClientEvent{
		Type:     typ,
		Headline: d.Headline,
		Message:  d.Message,
	}
}
