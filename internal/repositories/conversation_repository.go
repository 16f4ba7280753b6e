package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"tawk-service/internal/models"
)

var ErrConversationNotFound = errors.New("conversation not found")

// ConversationRepository abstracts conversation persistence.
type ConversationRepository interface {
	FindOrCreate(ctx context.Context, userID, peerID int) (models.Conversation, bool, error)
	Get(ctx context.Context, conversationID int) (models.Conversation, error)
	IsParticipant(ctx context.Context, conversationID, userID int) (bool, error)
	ListForUser(ctx context.Context, userID int) ([]models.ConversationSummary, error)
}

// ConversationRepo is a sqlx implementation of ConversationRepository.
type ConversationRepo struct {
	db *sqlx.DB
}

// NewConversationRepo constructs a ConversationRepo.
func NewConversationRepo(db *sqlx.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

// FindOrCreate returns the conversation for the unordered pair, creating it
// if absent. The insert races through the unique pair constraint, so two
// sessions starting the same conversation concurrently converge on one row.
// The second return value reports whether a new conversation was created.
func (r *ConversationRepo) FindOrCreate(ctx context.Context, userID, peerID int) (models.Conversation, bool, error) {
	if userID == peerID {
		return models.Conversation{}, false, errors.New("cannot start conversation with self")
	}
	user1, user2 := orderPair(userID, peerID)

	var conv models.Conversation
	err := r.db.GetContext(ctx, &conv,
		`INSERT INTO conversations (user1_id, user2_id) VALUES ($1, $2)
        ON CONFLICT (user1_id, user2_id) DO NOTHING
        RETURNING id, user1_id, user2_id, created_at`,
		user1, user2)
	if err == nil {
		return conv, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, false, err
	}

	// Conflict: the row exists, possibly created by the concurrent peer.
	err = r.db.GetContext(ctx, &conv,
		`SELECT id, user1_id, user2_id, created_at FROM conversations WHERE user1_id=$1 AND user2_id=$2`,
		user1, user2)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, false, ErrConversationNotFound
	}
	return conv, false, err
}

// Get fetches a conversation by id.
func (r *ConversationRepo) Get(ctx context.Context, conversationID int) (models.Conversation, error) {
	var conv models.Conversation
	err := r.db.GetContext(ctx, &conv,
		`SELECT id, user1_id, user2_id, created_at FROM conversations WHERE id=$1`, conversationID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, ErrConversationNotFound
	}
	return conv, err
}

// IsParticipant checks whether a user belongs to the conversation.
func (r *ConversationRepo) IsParticipant(ctx context.Context, conversationID, userID int) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM conversations WHERE id=$1 AND (user1_id=$2 OR user2_id=$2))`,
		conversationID, userID)
	return exists, err
}

// ListForUser returns all conversations of the user with the other
// participant resolved to display fields.
func (r *ConversationRepo) ListForUser(ctx context.Context, userID int) ([]models.ConversationSummary, error) {
	query := `SELECT c.id, u.id AS peer_id, u.first_name, u.last_name, u.avatar, u.status, c.created_at
        FROM conversations c
        JOIN users u ON u.id = CASE WHEN c.user1_id=$1 THEN c.user2_id ELSE c.user1_id END
        WHERE c.user1_id=$1 OR c.user2_id=$1
        ORDER BY c.created_at DESC`
	var result []models.ConversationSummary
	err := r.db.SelectContext(ctx, &result, query, userID)
	return result, err
}
