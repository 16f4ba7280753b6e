package mail

import (
	"context"
	"fmt"
	"net/smtp"

	"tawk-service/internal/logger"
)

// Mailer delivers outbound mail. Delivery is fire-and-forget at the call
// sites: failures are logged, never surfaced to users.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// NewMailer builds an SMTP mailer, or a noop mailer when SMTP is not configured.
func NewMailer(host, port, from string, log *logger.Logger) Mailer {
	if host == "" {
		log.Info("mail disabled, using noop mailer")
		return noopMailer{log: log}
	}
	return &smtpMailer{addr: host + ":" + port, host: host, from: from, log: log}
}

type smtpMailer struct {
	addr string
	host string
	from string
	log  *logger.Logger
}

func (m *smtpMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	msg := []byte("From: " + m.from + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/html; charset=\"UTF-8\"\r\n" +
		"\r\n" + htmlBody + "\r\n")

	if err := smtp.SendMail(m.addr, nil, m.from, []string{to}, msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

type noopMailer struct {
	log *logger.Logger
}

func (m noopMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	m.log.Info("noop mail delivery", "to", to, "subject", subject)
	return nil
}
