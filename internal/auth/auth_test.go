package auth

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundtrip(t *testing.T) {
	manager := NewTokenManager("test-secret")

	token, err := manager.Issue(42)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, issuedAt, err := manager.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, 42, userID)
	assert.WithinDuration(t, time.Now(), issuedAt, 5*time.Second)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, err := NewTokenManager("secret-a").Issue(42)
	require.NoError(t, err)

	_, _, err = NewTokenManager("secret-b").Parse(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, _, err := NewTokenManager("secret").Parse("not-a-token")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordHashAndCheck(t *testing.T) {
	hash, err := HashPassword("hunter2hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2hunter2", hash)

	assert.True(t, CheckPassword("hunter2hunter2", hash))
	assert.False(t, CheckPassword("wrong-password", hash))
}

func TestGenerateOTPFormat(t *testing.T) {
	pattern := regexp.MustCompile(`^\d{6}$`)
	for i := 0; i < 20; i++ {
		code, err := GenerateOTP()
		require.NoError(t, err)
		assert.Regexp(t, pattern, code)
	}
}

func TestOTPHashAndCheck(t *testing.T) {
	code, err := GenerateOTP()
	require.NoError(t, err)

	hash, err := HashOTP(code)
	require.NoError(t, err)

	wrong := "000001"
	if code == wrong {
		wrong = "000002"
	}
	assert.True(t, CheckOTP(code, hash))
	assert.False(t, CheckOTP(wrong, hash))
}

func TestResetTokenDigestIsStable(t *testing.T) {
	token, digest, err := GenerateResetToken()
	require.NoError(t, err)
	require.NotEmpty(t, token)

	assert.Equal(t, digest, HashResetToken(token))

	_, otherDigest, err := GenerateResetToken()
	require.NoError(t, err)
	assert.NotEqual(t, digest, otherDigest)
}
