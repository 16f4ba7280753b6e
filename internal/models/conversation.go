package models

import "time"

// Conversation represents a direct conversation between exactly two users.
// Participants are stored sorted so the pair is unique across the table.
type Conversation struct {
	ID        int       `db:"id" json:"id"`
	User1ID   int       `db:"user1_id" json:"user1_id"`
	User2ID   int       `db:"user2_id" json:"user2_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// HasParticipant reports whether the user belongs to the conversation.
func (c Conversation) HasParticipant(userID int) bool {
	return c.User1ID == userID || c.User2ID == userID
}

// ConversationSummary is an API-friendly view of a conversation for one user,
// with the other participant resolved to display fields.
type ConversationSummary struct {
	ConversationID int       `db:"id" json:"conversation_id"`
	PeerID         int       `db:"peer_id" json:"peer_id"`
	PeerFirstName  string    `db:"first_name" json:"peer_first_name"`
	PeerLastName   string    `db:"last_name" json:"peer_last_name"`
	PeerAvatar     string    `db:"avatar" json:"peer_avatar,omitempty"`
	PeerStatus     string    `db:"status" json:"peer_status"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
