package mail

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tawk-service/internal/testutil"
)

func TestNewMailerFallsBackToNoop(t *testing.T) {
	m := NewMailer("", "587", "no-reply@tawk.local", testutil.MakeNoopLogger())

	// Without an SMTP host the mailer must accept sends without error.
	err := m.Send(context.Background(), "ada@example.com", "Hello", "<p>hi</p>")
	require.NoError(t, err)
}

func TestOTPBodyContainsCode(t *testing.T) {
	body := OTPBody("Ada", "123456")
	assert.Contains(t, body, "Ada")
	assert.Contains(t, body, "123456")
}

func TestResetBodyContainsLink(t *testing.T) {
	url := "http://localhost:3000/auth/new-password?code=abc"
	body := ResetBody("Ada", url)
	assert.Contains(t, body, url)
}
