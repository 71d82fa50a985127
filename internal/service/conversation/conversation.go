package conversation

import (
	"sync"
	"time"

	"github.com/hopeflow/backend/internal/analysis/emotion"
	"github.com/hopeflow/backend/internal/model/chat"
)

const (
	// MaxHistory is the number of exchanges kept in context.
	MaxHistory = 8
	// DefaultTimeout is how long a conversation stays active without activity.
	DefaultTimeout = 15 * time.Minute
)

// Greetings shown when a user opens the talk page.
const (
	FirstGreeting    = "Hello, I'm HopeFlow. I'm here to listen and support you through whatever you're experiencing. What's on your mind today?"
	PositiveGreeting = "It's good to see you again. I remember you were feeling more positive last time we talked. How are things going for you today?"
	ReturnGreeting   = "Welcome back. I'm here to continue supporting you. How have you been feeling since we last talked?"
)

// Clock returns the current time.
type Clock func() time.Time

// ExpiryPolicy decides when an idle conversation is abandoned.
type ExpiryPolicy struct {
	Timeout time.Duration
}

// Expired reports whether a conversation last active at last is expired at now.
// A zero last time means the conversation never started.
func (p ExpiryPolicy) Expired(last, now time.Time) bool {
	if last.IsZero() {
		return true
	}
	return now.Sub(last) > p.timeout()
}

func (p ExpiryPolicy) timeout() time.Duration {
	if p.Timeout <= 0 {
		return DefaultTimeout
	}
	return p.Timeout
}

// Insights summarises the current context.
type Insights struct {
	EmotionalJourney   []emotion.Tone        `json:"emotionalJourney"`
	SupportTypes       []emotion.SupportType `json:"supportTypes"`
	ConversationLength int                   `json:"conversationLength"`
	LastActivity       int64                 `json:"lastActivity"`
}

// Conversation is the short-term context of one user. It is safe for
// concurrent use.
type Conversation struct {
	mu           sync.Mutex
	policy       ExpiryPolicy
	now          Clock
	history      []chat.Exchange
	lastActivity time.Time
	lastTone     emotion.Tone
}

// New returns an empty conversation. A nil clock uses time.Now.
func New(policy ExpiryPolicy, clock Clock) *Conversation {
	if clock == nil {
		clock = time.Now
	}
	return &Conversation{
		policy:   policy,
		now:      clock,
		history:  make([]chat.Exchange, 0, MaxHistory),
		lastTone: emotion.Neutral,
	}
}

// RecordExchange appends one exchange. An expired conversation is cleared
// first, so the exchange silently starts a new one.
func (c *Conversation) RecordExchange(message, response string, tone emotion.Tone) chat.Exchange {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if c.policy.Expired(c.lastActivity, now) {
		c.clearLocked()
	}
	now = c.advanceLocked(now)

	ex := chat.Exchange{
		Message:     message,
		Response:    response,
		Timestamp:   now.UnixMilli(),
		Tone:        tone,
		SupportType: emotion.SupportTypeFor(tone),
	}

	c.history = append(c.history, ex)
	if len(c.history) > MaxHistory {
		c.history = append(c.history[:0], c.history[len(c.history)-MaxHistory:]...)
	}
	c.lastTone = tone

	return ex
}

// Touch records user activity. It extends an active conversation and drops an
// expired one.
func (c *Conversation) Touch() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if c.policy.Expired(c.lastActivity, now) {
		c.clearLocked()
		return
	}
	c.advanceLocked(now)
}

// Reset clears the context unconditionally.
func (c *Conversation) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearLocked()
}

// ExpireIfIdle clears a conversation whose window has passed. It returns true
// when something was cleared.
func (c *Conversation) ExpireIfIdle() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.lastActivity.IsZero() || !c.policy.Expired(c.lastActivity, c.now()) {
		return false
	}
	c.clearLocked()
	return true
}

// IsActive reports whether the last activity is within the expiry window.
func (c *Conversation) IsActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.policy.Expired(c.lastActivity, c.now())
}

// History returns a copy of the stored exchanges, oldest first.
func (c *Conversation) History() []chat.Exchange {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]chat.Exchange(nil), c.history...)
}

// Recent returns a copy of the newest n exchanges, oldest first.
func (c *Conversation) Recent(n int) []chat.Exchange {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n <= 0 {
		return nil
	}
	start := 0
	if len(c.history) > n {
		start = len(c.history) - n
	}
	return append([]chat.Exchange(nil), c.history[start:]...)
}

// LastTone is the tone of the newest exchange, neutral after a reset.
func (c *Conversation) LastTone() emotion.Tone {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastTone
}

// LastActivity returns the time of the last recorded activity, zero if none.
func (c *Conversation) LastActivity() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActivity
}

// Insights summarises the tones and support types seen so far.
func (c *Conversation) Insights() Insights {
	c.mu.Lock()
	defer c.mu.Unlock()

	insights := Insights{
		EmotionalJourney:   make([]emotion.Tone, 0, len(c.history)),
		SupportTypes:       make([]emotion.SupportType, 0, len(c.history)),
		ConversationLength: len(c.history),
	}
	if !c.lastActivity.IsZero() {
		insights.LastActivity = c.lastActivity.UnixMilli()
	}
	for _, ex := range c.history {
		insights.EmotionalJourney = append(insights.EmotionalJourney, ex.Tone)
		insights.SupportTypes = append(insights.SupportTypes, ex.SupportType)
	}
	return insights
}

// Greeting picks the opening line for the talk page.
func (c *Conversation) Greeting() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case len(c.history) == 0:
		return FirstGreeting
	case c.lastTone == emotion.Positive:
		return PositiveGreeting
	default:
		return ReturnGreeting
	}
}

// advanceLocked moves lastActivity forward and returns the stored value. A
// clock that goes backwards never moves it back.
func (c *Conversation) advanceLocked(now time.Time) time.Time {
	if now.After(c.lastActivity) {
		c.lastActivity = now
	}
	return c.lastActivity
}

func (c *Conversation) clearLocked() {
	c.history = c.history[:0]
	c.lastActivity = time.Time{}
	c.lastTone = emotion.Neutral
}
