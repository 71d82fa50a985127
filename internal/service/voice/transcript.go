package voice

import (
	"strings"
	"sync"
)

// TranscriptGate filters speech recognition results down to the final
// transcripts worth answering. Recognizers often repeat the same final
// result; a repeat of the last accepted transcript is dropped.
type TranscriptGate struct {
	mu   sync.Mutex
	last string
}

// Accept returns the trimmed transcript and true when it should be processed.
func (g *TranscriptGate) Accept(text string, isFinal bool) (string, bool) {
	if !isFinal {
		return "", false
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if text == g.last {
		return "", false
	}
	g.last = text
	return text, true
}

// Clear forgets the last accepted transcript.
func (g *TranscriptGate) Clear() {
	g.mu.Lock()
	g.last = ""
	g.mu.Unlock()
}
