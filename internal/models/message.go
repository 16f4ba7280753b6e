package models

import "time"

// Message kinds.
const (
	MessageKindText = "text"
	MessageKindLink = "link"
	MessageKindFile = "file"
)

// Message is a single message inside a conversation. Messages are immutable
// once appended; ordering is append order within the conversation.
type Message struct {
	ID             int       `db:"id" json:"id"`
	ConversationID int       `db:"conversation_id" json:"conversation_id"`
	SenderID       int       `db:"sender_id" json:"from"`
	RecipientID    int       `db:"recipient_id" json:"to"`
	Kind           string    `db:"kind" json:"type"`
	Body           string    `db:"body" json:"message"`
	FileURL        *string   `db:"file_url" json:"file_url,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
