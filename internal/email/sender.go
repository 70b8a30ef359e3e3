package email

import (
	"context"
	"fmt"
	"net/smtp"
	"time"

	"github.com/rs/zerolog/log"

	"realtyhub/backend/internal/config"
)

// Sender delivers a rendered message.
type Sender interface {
	Send(ctx context.Context, msg *Message) error
}

// SMTPSender delivers through a plain SMTP relay with PLAIN auth.
type SMTPSender struct {
	auth smtp.Auth
	addr string
}

// NewSMTPSender creates an SMTP sender for cfg.SmtpHost.
func NewSMTPSender(cfg *config.Config) *SMTPSender {
	var auth smtp.Auth
	if cfg.SmtpUsername != "" {
		auth = smtp.PlainAuth("", cfg.SmtpUsername, cfg.SmtpPassword, cfg.SmtpHost)
	}
	return &SMTPSender{
		auth: auth,
		addr: fmt.Sprintf("%s:%d", cfg.SmtpHost, cfg.SmtpPort),
	}
}

// Send delivers msg via SMTP. net/smtp has no context support, so ctx is only
// checked before dialing.
func (s *SMTPSender) Send(ctx context.Context, msg *Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := smtp.SendMail(s.addr, s.auth, msg.From, msg.To, msg.Raw(time.Now())); err != nil {
		return fmt.Errorf("smtp error: %w", err)
	}
	log.Info().Strs("to", msg.To).Str("subject", msg.Subject).Msg("email sent via SMTP")
	return nil
}

// LoggingSender only logs messages. Used when no provider is configured.
type LoggingSender struct{}

func (LoggingSender) Send(_ context.Context, msg *Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	log.Info().
		Strs("to", msg.To).
		Str("from", msg.From).
		Str("subject", msg.Subject).
		Str("tag", msg.Tag).
		Str("text", msg.Text).
		Msg("email not sent (no provider configured)")
	return nil
}
