package mail

import (
	"errors"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/menti-activa/backend/internal/config"
)

// ErrNotConfigured is returned when the selected relay has no credentials
var ErrNotConfigured = errors.New("mail relay not configured")

// Sender delivers outbound mail
type Sender interface {
	Send(to, subject, body string) error
}

// SMTPMailer sends mail through a single relay. The relay profile
// (production or sandbox) is resolved once at construction from the
// runtime mode, never per request.
type SMTPMailer struct {
	relay  *config.SMTPConfig
	from   string
	logger *slog.Logger
}

// NewMailer creates a mailer bound to the relay for the given runtime mode
func NewMailer(cfg *config.MailConfig, mode string, logger *slog.Logger) *SMTPMailer {
	relay := cfg.Relay(mode)
	logger.Info("mail relay selected", "mode", mode, "host", relay.Host)
	return &SMTPMailer{
		relay:  relay,
		from:   cfg.From,
		logger: logger,
	}
}

// Send delivers a plain-text message through the configured relay
func (m *SMTPMailer) Send(to, subject, body string) error {
	if m.relay.Host == "" || m.relay.User == "" || m.relay.Password == "" {
		return ErrNotConfigured
	}

	msg := strings.Join([]string{
		"From: " + m.from,
		"To: " + to,
		"Subject: " + subject,
		"Message-ID: <" + uuid.New().String() + "@mentiactiva.app>",
		"Date: " + time.Now().Format(time.RFC1123Z),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}, "\r\n")

	addr := fmt.Sprintf("%s:%d", m.relay.Host, m.relay.Port)
	auth := smtp.PlainAuth("", m.relay.User, m.relay.Password, m.relay.Host)
	if err := smtp.SendMail(addr, auth, m.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("sending mail: %w", err)
	}

	m.logger.Info("mail sent", "to", to, "subject", subject)
	return nil
}
