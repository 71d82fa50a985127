package chat

import (
	"time"

	"github.com/hopeflow/backend/internal/analysis/emotion"
)

// Exchange is one user message and the assistant's reply, kept in the
// in-memory conversation context.
type Exchange struct {
	Message     string              `json:"message"`
	Response    string              `json:"response,omitempty"`
	Timestamp   int64               `json:"timestamp"` // epoch milliseconds
	Tone        emotion.Tone        `json:"emotionalTone,omitempty"`
	SupportType emotion.SupportType `json:"supportType,omitempty"`
}

// Time returns the exchange timestamp as a time.Time.
func (e Exchange) Time() time.Time {
	return time.UnixMilli(e.Timestamp)
}
