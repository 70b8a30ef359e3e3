package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
)

// SendGridSender delivers through the SendGrid v3 mail/send API.
type SendGridSender struct {
	apiKey string
	url    string
	client *http.Client
}

func NewSendGridSender(apiKey, url string, client *http.Client) *SendGridSender {
	return &SendGridSender{apiKey: apiKey, url: url, client: client}
}

type sendGridAddress struct {
	Email string `json:"email"`
}

type sendGridContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sendGridPersonalization struct {
	To []sendGridAddress `json:"to"`
}

type sendGridRequest struct {
	Personalizations []sendGridPersonalization `json:"personalizations"`
	From             sendGridAddress           `json:"from"`
	Subject          string                    `json:"subject"`
	Content          []sendGridContent         `json:"content"`
	Categories       []string                  `json:"categories,omitempty"`
}

func (s *SendGridSender) Send(ctx context.Context, msg *Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	to := make([]sendGridAddress, 0, len(msg.To))
	for _, addr := range msg.To {
		to = append(to, sendGridAddress{Email: addr})
	}
	body := sendGridRequest{
		Personalizations: []sendGridPersonalization{{To: to}},
		From:             sendGridAddress{Email: msg.From},
		Subject:          msg.Subject,
	}
	// SendGrid requires text/plain before text/html.
	if msg.Text != "" {
		body.Content = append(body.Content, sendGridContent{Type: "text/plain", Value: msg.Text})
	}
	if msg.HTML != "" {
		body.Content = append(body.Content, sendGridContent{Type: "text/html", Value: msg.HTML})
	}
	if msg.Tag != "" {
		body.Categories = []string{msg.Tag}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("sendgrid: failed to encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("sendgrid: failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	if err := doProviderRequest(s.client, req, "sendgrid"); err != nil {
		return err
	}
	log.Info().Strs("to", msg.To).Str("subject", msg.Subject).Msg("email sent via SendGrid")
	return nil
}
