package coach

import "strings"

// TranscriptBuffer keeps assistant transcript fragments from interleaving
// with the trainee's own pending transcription. While the trainee is
// speaking, assistant fragments are held; once the trainee's utterance is
// finalized, the held fragments are released as one aggregated event.
//
// Callers hold the session lock; the buffer itself is not synchronized. At
// most one buffering window is open at a time and the buffer never outlives
// a single human-turn window.
type TranscriptBuffer struct {
	open  bool
	parts []string
}

// SpeechStarted opens a buffering window. A speech start while a window is
// already open supersedes it: unflushed fragments from the stale window are
// dropped.
func (b *TranscriptBuffer) SpeechStarted() {
	b.open = true
	b.parts = b.parts[:0]
}

// Fragment offers one assistant fragment. It returns true when the fragment
// should be forwarded immediately, false when it was buffered.
func (b *TranscriptBuffer) Fragment(text string) bool {
	if !b.open {
		return true
	}
	b.parts = append(b.parts, text)
	return false
}

// Finalize closes the window and returns the concatenation of buffered
// fragments. ok is false when nothing was buffered.
func (b *TranscriptBuffer) Finalize() (flushed string, ok bool) {
	b.open = false
	if len(b.parts) == 0 {
		return "", false
	}
	flushed = strings.Join(b.parts, "")
	b.parts = b.parts[:0]
	return flushed, true
}

// Open reports whether a buffering window is currently open.
func (b *TranscriptBuffer) Open() bool {
	return b.open
}
