package models

import "time"

// ChatMessageResponse defines the structure for messages returned by the chat
// history API endpoint. It excludes internal DB bookkeeping but includes the
// identifiers a client needs to vote on or reference a message.
type ChatMessageResponse struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chat_id"`
	Role      string    `json:"role"` // "user", "assistant", "tool"
	Text      string    `json:"text,omitempty"`
	Parts     []Part    `json:"parts,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatResponse is the chat metadata shape returned by the API.
type ChatResponse struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	UserID     string    `json:"user_id"`
	Visibility string    `json:"visibility"`
	CreatedAt  time.Time `json:"created_at"`
}
