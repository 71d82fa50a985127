package voice

import "testing"

func TestTranscriptGate(t *testing.T) {
	var gate TranscriptGate

	if _, ok := gate.Accept("I feel", false); ok {
		t.Fatalf("interim results must be ignored")
	}
	if _, ok := gate.Accept("   ", true); ok {
		t.Fatalf("blank transcripts must be ignored")
	}

	text, ok := gate.Accept("  I feel anxious  ", true)
	if !ok || text != "I feel anxious" {
		t.Fatalf("Accept() = %q, %v", text, ok)
	}
	if _, ok := gate.Accept("I feel anxious", true); ok {
		t.Fatalf("duplicate final transcript must be dropped")
	}
	if _, ok := gate.Accept("something else", true); !ok {
		t.Fatalf("new transcript should pass")
	}

	gate.Clear()
	if _, ok := gate.Accept("something else", true); !ok {
		t.Fatalf("transcript should pass again after Clear()")
	}
}

func nextEvent(t *testing.T, s *Speaker) Event {
	t.Helper()
	select {
	case ev := <-s.Events():
		return ev
	default:
		t.Fatalf("expected an event")
		return Event{}
	}
}

func TestSpeakerCancelsPreviousUtterance(t *testing.T) {
	s := NewSpeaker(DefaultSettings, 8)
	defer s.Close()

	first := s.Speak("Take a breath.")
	if ev := nextEvent(t, s); ev.State != StateStart || ev.UtteranceID != first.ID {
		t.Fatalf("unexpected event %+v", ev)
	}
	if first.Rate != 0.9 || first.Volume != 0.8 || first.Lang != "en-US" {
		t.Fatalf("unexpected settings %+v", first.Settings)
	}

	second := s.Speak("I'm here with you.")
	if ev := nextEvent(t, s); ev.State != StateCancel || ev.UtteranceID != first.ID {
		t.Fatalf("expected cancel of first utterance, got %+v", ev)
	}
	if ev := nextEvent(t, s); ev.State != StateStart || ev.UtteranceID != second.ID {
		t.Fatalf("expected start of second utterance, got %+v", ev)
	}

	if s.Finish(first.ID) {
		t.Fatalf("finishing a superseded utterance should be ignored")
	}
	if !s.Finish(second.ID) {
		t.Fatalf("finishing the current utterance should succeed")
	}
	if ev := nextEvent(t, s); ev.State != StateEnd {
		t.Fatalf("expected end event, got %+v", ev)
	}
	if s.Speaking() {
		t.Fatalf("speaker should be idle")
	}
}

func TestSpeakerFail(t *testing.T) {
	s := NewSpeaker(DefaultSettings, 8)
	defer s.Close()

	u := s.Speak("hello")
	nextEvent(t, s)

	if !s.Fail(u.ID, "synthesis-failed") {
		t.Fatalf("Fail() should accept the current utterance")
	}
	ev := nextEvent(t, s)
	if ev.State != StateError || ev.Error != "synthesis-failed" {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestSpeakerCancel(t *testing.T) {
	s := NewSpeaker(DefaultSettings, 8)
	defer s.Close()

	s.Cancel()
	u := s.Speak("hello")
	nextEvent(t, s)
	s.Cancel()

	if ev := nextEvent(t, s); ev.State != StateCancel || ev.UtteranceID != u.ID {
		t.Fatalf("unexpected event %+v", ev)
	}
	if s.Speaking() {
		t.Fatalf("speaker should be idle after Cancel()")
	}
}
