package chat

import "time"

// Record is a completed exchange saved to the chat log for a user.
type Record struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Message   string    `json:"message"`
	Response  string    `json:"response"`
	IsVoice   bool      `json:"isVoice"`
	CreatedAt time.Time `json:"createdAt"`
}
