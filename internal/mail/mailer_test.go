package mail

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/menti-activa/backend/internal/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewMailerSelectsRelayByMode(t *testing.T) {
	cfg := &config.MailConfig{
		From:       "no-reply@mentiactiva.app",
		Production: config.SMTPConfig{Host: "smtp.prod.example", Port: 587},
		Sandbox:    config.SMTPConfig{Host: "sandbox.smtp.example", Port: 2525},
	}

	prod := NewMailer(cfg, config.ModeProduction, discardLogger())
	if prod.relay.Host != "smtp.prod.example" {
		t.Errorf("production mailer relay = %q", prod.relay.Host)
	}

	dev := NewMailer(cfg, config.ModeDevelopment, discardLogger())
	if dev.relay.Host != "sandbox.smtp.example" {
		t.Errorf("development mailer relay = %q", dev.relay.Host)
	}
}

func TestSendWithoutRelayCredentials(t *testing.T) {
	cfg := &config.MailConfig{From: "no-reply@mentiactiva.app"}
	m := NewMailer(cfg, config.ModeDevelopment, discardLogger())

	err := m.Send("ana@example.com", "asunto", "cuerpo")
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("Send() without credentials = %v, want ErrNotConfigured", err)
	}
}
