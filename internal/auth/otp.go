package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"
)

// OTPTTL is how long a one-time code stays valid after it is sent.
const OTPTTL = 10 * time.Minute

// ResetTokenTTL is how long a password reset token stays valid.
const ResetTokenTTL = 10 * time.Minute

// GenerateOTP returns a 6-digit numeric one-time code.
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("failed to generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// HashOTP hashes a one-time code for storage. Codes are short-lived, so they
// get the same bcrypt treatment as passwords.
func HashOTP(code string) (string, error) {
	return HashPassword(code)
}

// CheckOTP reports whether the submitted code matches the stored hash.
func CheckOTP(code, hash string) bool {
	return CheckPassword(code, hash)
}

// GenerateResetToken returns a random reset token and the sha256 digest that
// gets persisted. Only the digest is stored; the raw token goes to the user.
func GenerateResetToken() (token string, digest string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("failed to generate reset token: %w", err)
	}
	token = hex.EncodeToString(buf)
	return token, HashResetToken(token), nil
}

// HashResetToken returns the sha256 hex digest of a reset token.
func HashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
