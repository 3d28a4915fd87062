// Package realtime speaks the upstream AI engine's websocket protocol. The
// orchestration core adapts to this vocabulary; it does not define it.
package realtime

// Server event types consumed by the bridge.
const (
	EventSessionCreated           = "session.created"
	EventSessionUpdated           = "session.updated"
	EventAudioDelta               = "response.audio.delta"
	EventAssistantTranscriptDelta = "response.audio_transcript.delta"
	EventAssistantTranscriptDone  = "response.audio_transcript.done"
	EventUserTranscriptCompleted  = "conversation.item.input_audio_transcription.completed"
	EventSpeechStarted            = "input_audio_buffer.speech_started"
	EventSpeechStopped            = "input_audio_buffer.speech_stopped"
	EventError                    = "error"
)

// ServerEvent is one inbound engine event. The engine shares field names
// across event types, so a single envelope covers the vocabulary we consume.
type ServerEvent struct {
	Type       string       `json:"type"`
	EventID    string       `json:"event_id,omitempty"`
	Delta      string       `json:"delta,omitempty"`
	Transcript string       `json:"transcript,omitempty"`
	ItemID     string       `json:"item_id,omitempty"`
	Error      *EngineError `json:"error,omitempty"`
}

// EngineError is the engine's error payload. Its text is logged but never
// forwarded to the client verbatim.
type EngineError struct {
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// SessionUpdate configures the engine session. Sent once as the initial
// handshake after connecting.
type SessionUpdate struct {
	Type    string        `json:"type"`
	Session SessionConfig `json:"session"`
}

// SessionConfig carries the assembled system instructions plus audio setup.
type SessionConfig struct {
	Modalities              []string             `json:"modalities,omitempty"`
	Instructions            string               `json:"instructions,omitempty"`
	Voice                   string               `json:"voice,omitempty"`
	InputAudioFormat        string               `json:"input_audio_format,omitempty"`
	OutputAudioFormat       string               `json:"output_audio_format,omitempty"`
	InputAudioTranscription *TranscriptionConfig `json:"input_audio_transcription,omitempty"`
	TurnDetection           *TurnDetection       `json:"turn_detection,omitempty"`
}

// TranscriptionConfig enables engine-side speech recognition of user audio.
type TranscriptionConfig struct {
	Model string `json:"model"`
}

// TurnDetection configures engine-side voice activity detection.
type TurnDetection struct {
	Type string `json:"type"`
}

// AudioAppend streams one base64 audio chunk into the engine's input buffer.
type AudioAppend struct {
	Type  string `json:"type"`
	Audio string `json:"audio"`
}

// ItemCreate injects a typed-text user turn into the conversation.
type ItemCreate struct {
	Type string           `json:"type"`
	Item ConversationItem `json:"item"`
}

// ConversationItem is a single conversation entry for ItemCreate.
type ConversationItem struct {
	Type    string        `json:"type"`
	Role    string        `json:"role"`
	Content []ContentPart `json:"content"`
}

// ContentPart is one content block of a conversation item.
type ContentPart struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// ResponseCreate asks the engine to produce a response.
type ResponseCreate struct {
	Type     string          `json:"type"`
	Response *ResponseConfig `json:"response,omitempty"`
}

// ResponseConfig optionally overrides instructions for one response, used to
// request the opening greeting.
type ResponseConfig struct {
	Instructions string `json:"instructions,omitempty"`
}

// NewSessionUpdate builds the configuration handshake event.
func NewSessionUpdate(instructions, voice string) SessionUpdate {
	return SessionUpdate{
		Type: "session.update",
		Session: SessionConfig{
			Modalities:              []string{"text", "audio"},
			Instructions:            instructions,
			Voice:                   voice,
			InputAudioFormat:        "pcm16",
			OutputAudioFormat:       "pcm16",
			InputAudioTranscription: &TranscriptionConfig{Model: "whisper-1"},
			TurnDetection:           &TurnDetection{Type: "server_vad"},
		},
	}
}

// NewAudioAppend wraps one client audio chunk for the engine input buffer.
func NewAudioAppend(audio string) AudioAppend {
	return AudioAppend{Type: "input_audio_buffer.append", Audio: audio}
}

// NewUserText wraps a typed client message as a conversation item.
func NewUserText(text string) ItemCreate {
	return ItemCreate{
		Type: "conversation.item.create",
		Item: ConversationItem{
			Type: "message",
			Role: "user",
			Content: []ContentPart{
				{Type: "input_text", Text: text},
			},
		},
	}
}

// NewResponseCreate asks for a response, optionally with one-off instructions.
func NewResponseCreate(instructions string) ResponseCreate {
	if instructions == "" {
		return ResponseCreate{Type: "response.create"}
	}
	return ResponseCreate{
		Type:     "response.create",
		Response: &ResponseConfig{Instructions: instructions},
	}
}
