package models

import "time"

// Presence status values stored on the user record.
const (
	StatusOnline  = "Online"
	StatusOffline = "Offline"
)

// User represents an account with its credential, verification and presence state.
type User struct {
	ID                   int        `db:"id" json:"id"`
	FirstName            string     `db:"first_name" json:"first_name"`
	LastName             string     `db:"last_name" json:"last_name"`
	Avatar               string     `db:"avatar" json:"avatar,omitempty"`
	Email                string     `db:"email" json:"email"`
	PasswordHash         string     `db:"password_hash" json:"-"`
	PasswordChangedAt    *time.Time `db:"password_changed_at" json:"-"`
	PasswordResetToken   *string    `db:"password_reset_token" json:"-"`
	PasswordResetExpires *time.Time `db:"password_reset_expires" json:"-"`
	Verified             bool       `db:"verified" json:"verified"`
	OTPHash              *string    `db:"otp_hash" json:"-"`
	OTPExpiresAt         *time.Time `db:"otp_expires_at" json:"-"`
	Status               string     `db:"status" json:"status"`
	SocketID             *string    `db:"socket_id" json:"-"`
	CreatedAt            time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at" json:"-"`
}

// UserSummary provides the display fields exposed to other users.
type UserSummary struct {
	ID        int    `db:"id" json:"id"`
	FirstName string `db:"first_name" json:"first_name"`
	LastName  string `db:"last_name" json:"last_name"`
	Avatar    string `db:"avatar" json:"avatar,omitempty"`
	Email     string `db:"email" json:"email"`
	Status    string `db:"status" json:"status"`
}

// PasswordChangedAfter reports whether the password was rotated after the
// given token issue time. False means the token is still trustworthy.
func (u User) PasswordChangedAfter(issuedAt time.Time) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	return u.PasswordChangedAt.After(issuedAt)
}
