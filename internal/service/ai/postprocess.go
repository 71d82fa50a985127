package ai

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/hopeflow/backend/internal/analysis/emotion"
)

const (
	maxResponseChars    = 500
	maxResponseSegments = 3
	sentenceSeparator   = ". "
)

// CrisisNotice is appended to crisis responses that lack the primary helpline.
const CrisisNotice = "Immediate help is available: National Mental Health Helpline (" + PrimaryHelpline + ") or Emergency Services (" + EmergencyHelpline + ")."

var (
	speakerPrefix = regexp.MustCompile(`(?i)^(AI:|Assistant:|HopeFlow:)\s*`)
	selfReference = regexp.MustCompile(`(?i)^(I'm an AI|As an AI|I'm a language model)[,.]?\s*`)
)

// Process cleans a raw model response before it is shown to the user.
//
// Truncation only happens when the text is longer than maxResponseChars AND
// splits into more than maxResponseSegments ". "-delimited segments, so a long
// run-on reply is returned whole.
func Process(raw string, tone emotion.Tone) string {
	text := strings.TrimSpace(raw)

	text = speakerPrefix.ReplaceAllString(text, "")
	if stripped := selfReference.ReplaceAllString(text, ""); stripped != "" {
		text = stripped
	}

	text = ensureHelpline(text, tone)

	if utf8.RuneCountInString(text) > maxResponseChars {
		segments := strings.Split(text, sentenceSeparator)
		if len(segments) > maxResponseSegments {
			text = strings.Join(segments[:maxResponseSegments], sentenceSeparator) + "."
			// truncation may have dropped the notice
			text = ensureHelpline(text, tone)
		}
	}

	if !endsWithTerminal(text) {
		text += "."
	}

	return text
}

func ensureHelpline(text string, tone emotion.Tone) string {
	if tone != emotion.Crisis || strings.Contains(text, PrimaryHelpline) {
		return text
	}
	if text == "" {
		return CrisisNotice
	}
	return text + "\n\n" + CrisisNotice
}

func endsWithTerminal(text string) bool {
	last, _ := utf8.DecodeLastRuneInString(text)
	return last == '.' || last == '!' || last == '?'
}
