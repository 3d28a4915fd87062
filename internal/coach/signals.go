package coach

import "strings"

// SignalSet matches an utterance against a configured phrase list with
// case-insensitive substring semantics. A match shifts confidence thresholds
// and, for trainee exit phrases, drives the give-up short circuit; whether it
// can commit an outcome is the mode strategy's call.
type SignalSet struct {
	phrases []string
}

// NewSignalSet builds a signal set from configured phrases.
func NewSignalSet(phrases []string) SignalSet {
	lowered := make([]string, 0, len(phrases))
	for _, p := range phrases {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			lowered = append(lowered, p)
		}
	}
	return SignalSet{phrases: lowered}
}

// Match reports whether text contains any of the set's phrases.
func (s SignalSet) Match(text string) bool {
	text = strings.ToLower(text)
	for _, p := range s.phrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}
