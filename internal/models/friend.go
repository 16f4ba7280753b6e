package models

import "time"

// FriendRequest is a pending request from sender to recipient. The record's
// existence is the pending state; acceptance or decline removes it.
type FriendRequest struct {
	ID          int       `db:"id" json:"id"`
	SenderID    int       `db:"sender_id" json:"sender_id"`
	RecipientID int       `db:"recipient_id" json:"recipient_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// FriendRequestView is a pending request with the sender's display fields resolved.
type FriendRequestView struct {
	ID              int       `db:"id" json:"id"`
	SenderID        int       `db:"sender_id" json:"sender_id"`
	RecipientID     int       `db:"recipient_id" json:"recipient_id"`
	SenderFirstName string    `db:"first_name" json:"sender_first_name"`
	SenderLastName  string    `db:"last_name" json:"sender_last_name"`
	SenderAvatar    string    `db:"avatar" json:"sender_avatar,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}
