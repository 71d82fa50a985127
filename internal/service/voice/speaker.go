package voice

import (
	"sync"

	"github.com/google/uuid"
)

// State is a lifecycle step of one utterance.
type State string

const (
	StateStart  State = "start"
	StateEnd    State = "end"
	StateError  State = "error"
	StateCancel State = "cancel"
)

// Settings are the synthesis parameters sent to the client.
type Settings struct {
	Rate   float64 `json:"rate"`
	Pitch  float64 `json:"pitch"`
	Volume float64 `json:"volume"`
	Lang   string  `json:"lang"`
}

// DefaultSettings is a slightly slowed, softened en-US voice.
var DefaultSettings = Settings{Rate: 0.9, Pitch: 1, Volume: 0.8, Lang: "en-US"}

// Utterance is one piece of text to be spoken.
type Utterance struct {
	ID   string `json:"utteranceId"`
	Text string `json:"text"`
	Settings
}

// Event reports a state change of an utterance.
type Event struct {
	UtteranceID string `json:"utteranceId"`
	State       State  `json:"state"`
	Error       string `json:"error,omitempty"`
}

// Speaker tracks the single utterance being spoken on a connection. Starting
// a new utterance cancels the current one.
type Speaker struct {
	mu       sync.Mutex
	settings Settings
	current  *Utterance
	events   chan Event
	done     chan struct{}
	closed   bool
}

// NewSpeaker creates a speaker whose events are buffered up to buffer entries.
func NewSpeaker(settings Settings, buffer int) *Speaker {
	if buffer <= 0 {
		buffer = 16
	}
	return &Speaker{
		settings: settings,
		events:   make(chan Event, buffer),
		done:     make(chan struct{}),
	}
}

// Events delivers lifecycle events in order.
func (s *Speaker) Events() <-chan Event {
	return s.events
}

// Speak starts a new utterance for text.
func (s *Speaker) Speak(text string) Utterance {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil {
		s.emitLocked(Event{UtteranceID: s.current.ID, State: StateCancel})
	}

	u := Utterance{ID: uuid.NewString(), Text: text, Settings: s.settings}
	s.current = &u
	s.emitLocked(Event{UtteranceID: u.ID, State: StateStart})
	return u
}

// Finish marks the utterance id as played to the end. Stale ids are ignored.
func (s *Speaker) Finish(id string) bool {
	return s.complete(id, Event{UtteranceID: id, State: StateEnd})
}

// Fail marks the utterance id as failed. Stale ids are ignored.
func (s *Speaker) Fail(id, reason string) bool {
	return s.complete(id, Event{UtteranceID: id, State: StateError, Error: reason})
}

// Cancel stops the current utterance, if any.
func (s *Speaker) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return
	}
	s.emitLocked(Event{UtteranceID: s.current.ID, State: StateCancel})
	s.current = nil
}

// Speaking reports whether an utterance is in progress.
func (s *Speaker) Speaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil
}

// Close stops event delivery. Pending sends are abandoned.
func (s *Speaker) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.done)
}

func (s *Speaker) complete(id string, ev Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil || s.current.ID != id {
		return false
	}
	s.current = nil
	s.emitLocked(ev)
	return true
}

func (s *Speaker) emitLocked(ev Event) {
	if s.closed {
		return
	}
	select {
	case s.events <- ev:
	case <-s.done:
	}
}
