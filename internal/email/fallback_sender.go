package email

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"realtyhub/backend/internal/config"
)

// Provider is a named sender in a fallback chain.
type Provider struct {
	Name   string
	Sender Sender
}

// FallbackSender tries providers in order and stops at the first success.
type FallbackSender struct {
	providers []Provider
}

func NewFallbackSender(providers ...Provider) *FallbackSender {
	return &FallbackSender{providers: providers}
}

// Providers returns the provider names in priority order.
func (f *FallbackSender) Providers() []string {
	names := make([]string, len(f.providers))
	for i, p := range f.providers {
		names[i] = p.Name
	}
	return names
}

// Send returns nil as soon as one provider accepts msg. If every provider
// fails the individual errors are joined.
func (f *FallbackSender) Send(ctx context.Context, msg *Message) error {
	if len(f.providers) == 0 {
		return errors.New("no email providers configured")
	}
	var errs []error
	for i, p := range f.providers {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		err := p.Sender.Send(ctx, msg)
		if err == nil {
			if i > 0 {
				log.Warn().Str("provider", p.Name).Int("position", i+1).Msg("email delivered by fallback provider")
			}
			return nil
		}
		log.Error().Err(err).Str("provider", p.Name).Strs("to", msg.To).Msg("email provider failed")
		errs = append(errs, fmt.Errorf("%s: %w", p.Name, err))
	}
	return fmt.Errorf("all email providers failed: %w", errors.Join(errs...))
}

// NewProviderChain builds the delivery chain from whichever provider keys are
// configured, in fixed priority order: Resend, SendGrid, SMTP. With none
// configured messages are only logged.
func NewProviderChain(cfg *config.Config, client *http.Client) Sender {
	if client == nil {
		client = &http.Client{Timeout: cfg.EmailTimeout}
	}
	var providers []Provider
	if cfg.ResendAPIKey != "" {
		providers = append(providers, Provider{Name: "resend", Sender: NewResendSender(cfg.ResendAPIKey, cfg.ResendAPIURL, client)})
	}
	if cfg.SendGridAPIKey != "" {
		providers = append(providers, Provider{Name: "sendgrid", Sender: NewSendGridSender(cfg.SendGridAPIKey, cfg.SendGridAPIURL, client)})
	}
	if cfg.SmtpHost != "" {
		providers = append(providers, Provider{Name: "smtp", Sender: NewSMTPSender(cfg)})
	}
	if len(providers) == 0 {
		log.Warn().Msg("no email provider configured, using logging email sender")
		return LoggingSender{}
	}
	chain := NewFallbackSender(providers...)
	log.Info().Strs("providers", chain.Providers()).Msg("email provider chain ready")
	return chain
}
