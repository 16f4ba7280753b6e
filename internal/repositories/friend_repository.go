package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"tawk-service/internal/models"
)

var (
	ErrRequestNotFound  = errors.New("friend request not found")
	ErrDuplicateRequest = errors.New("friend request already pending")
)

// FriendRepository manages friend requests and the symmetric friendship set.
type FriendRepository interface {
	CreateRequest(ctx context.Context, senderID, recipientID int) (models.FriendRequest, error)
	GetRequest(ctx context.Context, requestID int) (models.FriendRequest, error)
	AcceptRequest(ctx context.Context, requestID int) (models.FriendRequest, error)
	DeclineRequest(ctx context.Context, requestID int) (models.FriendRequest, error)
	HasPendingBetween(ctx context.Context, userA, userB int) (bool, error)
	ListRequestsForRecipient(ctx context.Context, userID int) ([]models.FriendRequestView, error)
	AreFriends(ctx context.Context, userA, userB int) (bool, error)
	ListFriends(ctx context.Context, userID int) ([]models.UserSummary, error)
}

// FriendRepo is a sqlx implementation of FriendRepository.
type FriendRepo struct {
	db *sqlx.DB
}

// NewFriendRepo constructs a FriendRepo.
func NewFriendRepo(db *sqlx.DB) *FriendRepo {
	return &FriendRepo{db: db}
}

// CreateRequest inserts a pending request. A duplicate for the same ordered
// pair is rejected through the unique constraint.
func (r *FriendRepo) CreateRequest(ctx context.Context, senderID, recipientID int) (models.FriendRequest, error) {
	if senderID == recipientID {
		return models.FriendRequest{}, errors.New("cannot send friend request to self")
	}
	var req models.FriendRequest
	err := r.db.GetContext(ctx, &req,
		`INSERT INTO friend_requests (sender_id, recipient_id) VALUES ($1, $2)
        ON CONFLICT (sender_id, recipient_id) DO NOTHING
        RETURNING id, sender_id, recipient_id, created_at`,
		senderID, recipientID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.FriendRequest{}, ErrDuplicateRequest
	}
	return req, err
}

// GetRequest fetches a pending request by id.
func (r *FriendRepo) GetRequest(ctx context.Context, requestID int) (models.FriendRequest, error) {
	var req models.FriendRequest
	err := r.db.GetContext(ctx, &req,
		`SELECT id, sender_id, recipient_id, created_at FROM friend_requests WHERE id=$1`, requestID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.FriendRequest{}, ErrRequestNotFound
	}
	return req, err
}

// AcceptRequest atomically records the friendship for both parties and
// removes the pending request. Either both happen or neither does.
func (r *FriendRepo) AcceptRequest(ctx context.Context, requestID int) (models.FriendRequest, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.FriendRequest{}, err
	}
	defer tx.Rollback()

	var req models.FriendRequest
	err = tx.GetContext(ctx, &req,
		`DELETE FROM friend_requests WHERE id=$1 RETURNING id, sender_id, recipient_id, created_at`,
		requestID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.FriendRequest{}, ErrRequestNotFound
	}
	if err != nil {
		return models.FriendRequest{}, err
	}

	user1, user2 := orderPair(req.SenderID, req.RecipientID)
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO friendships (user1_id, user2_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		user1, user2); err != nil {
		return models.FriendRequest{}, fmt.Errorf("record friendship: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return models.FriendRequest{}, err
	}
	return req, nil
}

// DeclineRequest removes the pending request without recording a friendship.
func (r *FriendRepo) DeclineRequest(ctx context.Context, requestID int) (models.FriendRequest, error) {
	var req models.FriendRequest
	err := r.db.GetContext(ctx, &req,
		`DELETE FROM friend_requests WHERE id=$1 RETURNING id, sender_id, recipient_id, created_at`,
		requestID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.FriendRequest{}, ErrRequestNotFound
	}
	return req, err
}

// HasPendingBetween reports whether a pending request exists in either direction.
func (r *FriendRepo) HasPendingBetween(ctx context.Context, userA, userB int) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM friend_requests
        WHERE (sender_id=$1 AND recipient_id=$2) OR (sender_id=$2 AND recipient_id=$1))`,
		userA, userB)
	return exists, err
}

// ListRequestsForRecipient returns pending requests addressed to the user.
func (r *FriendRepo) ListRequestsForRecipient(ctx context.Context, userID int) ([]models.FriendRequestView, error) {
	query := `SELECT fr.id, fr.sender_id, fr.recipient_id, fr.created_at,
            u.first_name, u.last_name, u.avatar
        FROM friend_requests fr
        JOIN users u ON u.id = fr.sender_id
        WHERE fr.recipient_id=$1
        ORDER BY fr.created_at DESC`
	var result []models.FriendRequestView
	err := r.db.SelectContext(ctx, &result, query, userID)
	return result, err
}

// AreFriends reports whether the two users share a friendship row.
func (r *FriendRepo) AreFriends(ctx context.Context, userA, userB int) (bool, error) {
	user1, user2 := orderPair(userA, userB)
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM friendships WHERE user1_id=$1 AND user2_id=$2)`,
		user1, user2)
	return exists, err
}

// ListFriends returns the friend set with display fields.
func (r *FriendRepo) ListFriends(ctx context.Context, userID int) ([]models.UserSummary, error) {
	query := `SELECT u.id, u.first_name, u.last_name, u.avatar, u.email, u.status
        FROM friendships f
        JOIN users u ON u.id = CASE WHEN f.user1_id=$1 THEN f.user2_id ELSE f.user1_id END
        WHERE f.user1_id=$1 OR f.user2_id=$1
        ORDER BY u.first_name, u.last_name`
	var result []models.UserSummary
	err := r.db.SelectContext(ctx, &result, query, userID)
	return result, err
}

func orderPair(a, b int) (int, int) {
	if a < b {
		return a, b
	}
	return b, a
}
