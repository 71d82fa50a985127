package emotion

import (
	"regexp"
	"strings"
)

// Tone 表示用户消息的情绪基调，每条消息只会得到一个标签。
type Tone string

const (
	Crisis    Tone = "crisis"
	Anxious   Tone = "anxious"
	Depressed Tone = "depressed"
	Angry     Tone = "angry"
	Stressed  Tone = "stressed"
	Confused  Tone = "confused"
	Positive  Tone = "positive"
	Neutral   Tone = "neutral"
)

// Tones lists every label in classification priority order.
var Tones = []Tone{Crisis, Anxious, Depressed, Angry, Stressed, Confused, Positive, Neutral}

// crisisKeywords are matched as plain substrings of the lower-cased message.
var crisisKeywords = []string{
	"suicide",
	"kill myself",
	"end my life",
	"want to die",
	"better off dead",
	"self harm",
	"hurt myself",
	"cut myself",
	"overdose",
	"jump off",
	"can't go on",
	"no point living",
	"everyone would be better without me",
}

type category struct {
	tone    Tone
	pattern *regexp.Regexp
}

// categories are evaluated in order; the first match wins.
var categories = []category{
	{Anxious, wordPattern("anxious", "anxiety", "panic", "worried", "nervous", "scared", "afraid")},
	{Depressed, wordPattern("sad", "depressed", "down", "hopeless", "empty", "worthless", "lonely")},
	{Angry, wordPattern("angry", "mad", "frustrated", "irritated", "furious")},
	{Stressed, wordPattern("stressed", "overwhelmed", "pressure", "burden", "exhausted")},
	{Confused, wordPattern("confused", "lost", "uncertain", "don't know", "unclear")},
	{Positive, wordPattern("happy", "good", "better", "grateful", "thankful", "positive")},
}

func wordPattern(words ...string) *regexp.Regexp {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`\b(` + strings.Join(quoted, "|") + `)\b`)
}

// Classify maps a free-text message to exactly one Tone. Crisis phrases take
// precedence over every other category.
func Classify(message string) Tone {
	normalized := strings.ToLower(message)

	if ContainsCrisisKeyword(normalized) {
		return Crisis
	}

	for _, c := range categories {
		if c.pattern.MatchString(normalized) {
			return c.tone
		}
	}

	return Neutral
}

// ContainsCrisisKeyword reports whether the lower-cased text contains any crisis phrase.
func ContainsCrisisKeyword(normalized string) bool {
	for _, keyword := range crisisKeywords {
		if strings.Contains(normalized, keyword) {
			return true
		}
	}
	return false
}

// ParseTone 解析持久化或客户端传来的情绪标签。
func ParseTone(raw string) (Tone, bool) {
	normalized := Tone(strings.ToLower(strings.TrimSpace(raw)))
	for _, t := range Tones {
		if t == normalized {
			return t, true
		}
	}
	return "", false
}
