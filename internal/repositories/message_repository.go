package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"

	"tawk-service/internal/models"
)

// MessageRepository defines interactions for conversation messages.
type MessageRepository interface {
	Append(ctx context.Context, conversationID, senderID, recipientID int, kind, body string, fileURL *string) (models.Message, error)
	ListByConversation(ctx context.Context, conversationID int) ([]models.Message, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs a MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// Append stores a message at the end of the conversation and returns it with
// the server-assigned id and timestamp.
func (r *MessageRepo) Append(ctx context.Context, conversationID, senderID, recipientID int, kind, body string, fileURL *string) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg,
		`INSERT INTO messages (conversation_id, sender_id, recipient_id, kind, body, file_url)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, conversation_id, sender_id, recipient_id, kind, body, file_url, created_at`,
		conversationID, senderID, recipientID, kind, body, fileURL)
	return msg, err
}

// ListByConversation returns the full message history in append order.
func (r *MessageRepo) ListByConversation(ctx context.Context, conversationID int) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs,
		`SELECT id, conversation_id, sender_id, recipient_id, kind, body, file_url, created_at
        FROM messages WHERE conversation_id=$1 ORDER BY created_at ASC, id ASC`,
		conversationID)
	return msgs, err
}
