package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"tawk-service/internal/models"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrEmailInUse    = errors.New("email already in use")
	ErrTokenNotFound = errors.New("reset token not found or expired")
)

const userColumns = `id, first_name, last_name, avatar, email, password_hash, password_changed_at,
        password_reset_token, password_reset_expires, verified, otp_hash, otp_expires_at,
        status, socket_id, created_at, updated_at`

// UserRepository abstracts user persistence.
type UserRepository interface {
	Create(ctx context.Context, firstName, lastName, email, passwordHash string) (models.User, error)
	GetByID(ctx context.Context, userID int) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
	UpdateRegistration(ctx context.Context, userID int, firstName, lastName, passwordHash string) error
	UpdateProfile(ctx context.Context, userID int, firstName, lastName, avatar string) (models.User, error)
	SetOTP(ctx context.Context, userID int, otpHash string, expiresAt time.Time) error
	MarkVerified(ctx context.Context, userID int) error
	SetPassword(ctx context.Context, userID int, passwordHash string) error
	SetResetToken(ctx context.Context, userID int, tokenHash string, expiresAt time.Time) error
	GetByResetToken(ctx context.Context, tokenHash string) (models.User, error)
	SetPresence(ctx context.Context, userID int, status string, socketID *string) error
	ListOthers(ctx context.Context, userID int) ([]models.UserSummary, error)
}

// UserRepo is a sqlx implementation of UserRepository.
type UserRepo struct {
	db *sqlx.DB
}

// NewUserRepo constructs a UserRepo.
func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

// Create inserts a new unverified user.
func (r *UserRepo) Create(ctx context.Context, firstName, lastName, email, passwordHash string) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user,
		`INSERT INTO users (first_name, last_name, email, password_hash)
        VALUES ($1, $2, $3, $4) RETURNING `+userColumns,
		firstName, lastName, email, passwordHash)
	return user, err
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, userID int) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE id=$1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// GetByEmail fetches a user by email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE email=$1`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// UpdateRegistration refreshes the registration fields of a user that
// registered before but never verified.
func (r *UserRepo) UpdateRegistration(ctx context.Context, userID int, firstName, lastName, passwordHash string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET first_name=$2, last_name=$3, password_hash=$4, updated_at=NOW() WHERE id=$1`,
		userID, firstName, lastName, passwordHash)
	return err
}

// UpdateProfile updates display fields and returns the stored user.
func (r *UserRepo) UpdateProfile(ctx context.Context, userID int, firstName, lastName, avatar string) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user,
		`UPDATE users SET first_name=$2, last_name=$3, avatar=$4, updated_at=NOW()
        WHERE id=$1 RETURNING `+userColumns,
		userID, firstName, lastName, avatar)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// SetOTP stores a hashed one-time code with its expiry.
func (r *UserRepo) SetOTP(ctx context.Context, userID int, otpHash string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET otp_hash=$2, otp_expires_at=$3, updated_at=NOW() WHERE id=$1`,
		userID, otpHash, expiresAt)
	return err
}

// MarkVerified flips the verification flag and clears the one-time code.
func (r *UserRepo) MarkVerified(ctx context.Context, userID int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET verified=TRUE, otp_hash=NULL, otp_expires_at=NULL, updated_at=NOW() WHERE id=$1`,
		userID)
	return err
}

// SetPassword stores a new password hash, rotates password_changed_at and
// clears any outstanding reset token.
func (r *UserRepo) SetPassword(ctx context.Context, userID int, passwordHash string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash=$2, password_changed_at=NOW(),
        password_reset_token=NULL, password_reset_expires=NULL, updated_at=NOW() WHERE id=$1`,
		userID, passwordHash)
	return err
}

// SetResetToken stores a hashed password reset token with its expiry.
func (r *UserRepo) SetResetToken(ctx context.Context, userID int, tokenHash string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_reset_token=$2, password_reset_expires=$3, updated_at=NOW() WHERE id=$1`,
		userID, tokenHash, expiresAt)
	return err
}

// GetByResetToken finds the user holding a non-expired reset token.
func (r *UserRepo) GetByResetToken(ctx context.Context, tokenHash string) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user,
		`SELECT `+userColumns+` FROM users WHERE password_reset_token=$1 AND password_reset_expires > NOW()`,
		tokenHash)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrTokenNotFound
	}
	return user, err
}

// SetPresence records the presence status and connection handle. This is a
// best-effort mirror of the in-memory registry.
func (r *UserRepo) SetPresence(ctx context.Context, userID int, status string, socketID *string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET status=$2, socket_id=$3, updated_at=NOW() WHERE id=$1`,
		userID, status, socketID)
	return err
}

// ListOthers returns verified users excluding the caller and their friends.
func (r *UserRepo) ListOthers(ctx context.Context, userID int) ([]models.UserSummary, error) {
	query := `SELECT id, first_name, last_name, avatar, email, status FROM users
        WHERE verified = TRUE AND id <> $1
        AND NOT EXISTS (
            SELECT 1 FROM friendships f
            WHERE f.user1_id = LEAST($1, users.id) AND f.user2_id = GREATEST($1, users.id)
        )
        ORDER BY first_name, last_name`
	var result []models.UserSummary
	err := r.db.SelectContext(ctx, &result, query, userID)
	return result, err
}
