// Package domain defines the core records for the chat history store.
package domain

import "time"

// Session represents one ongoing conversation. Sessions are created on first
// UI contact and never mutated afterwards; deleting one cascades to its
// messages.
type Session struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

// Message is one persisted turn: a user utterance paired with the generated
// response. Messages are immutable once written.
type Message struct {
	ID           int64     `json:"id"`
	SessionID    int64     `json:"session_id"`
	UserText     string    `json:"user_text"`
	ResponseText string    `json:"response_text"`
	Timestamp    time.Time `json:"timestamp"` // UTC
}

// Exchange is the (user, response) pair shape history is replayed in. It is
// what the generation collaborator consumes.
type Exchange struct {
	User     string `json:"user"`
	Response string `json:"response"`
}
