package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"
)

// ResendSender delivers through the Resend HTTP API.
type ResendSender struct {
	apiKey string
	url    string
	client *http.Client
}

func NewResendSender(apiKey, url string, client *http.Client) *ResendSender {
	return &ResendSender{apiKey: apiKey, url: url, client: client}
}

type resendTag struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type resendRequest struct {
	From    string      `json:"from"`
	To      []string    `json:"to"`
	Subject string      `json:"subject"`
	HTML    string      `json:"html,omitempty"`
	Text    string      `json:"text,omitempty"`
	Tags    []resendTag `json:"tags,omitempty"`
}

func (s *ResendSender) Send(ctx context.Context, msg *Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	body := resendRequest{From: msg.From, To: msg.To, Subject: msg.Subject, HTML: msg.HTML, Text: msg.Text}
	if msg.Tag != "" {
		body.Tags = []resendTag{{Name: "template", Value: msg.Tag}}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("resend: failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("resend: failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	if err := doProviderRequest(s.client, req, "resend"); err != nil {
		return err
	}
	log.Info().Strs("to", msg.To).Str("subject", msg.Subject).Msg("email sent via Resend")
	return nil
}

// doProviderRequest executes req and turns any non-2xx answer into an error
// that carries a short excerpt of the response body.
func doProviderRequest(client *http.Client, req *http.Request, provider string) error {
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: request failed: %w", provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("%s: unexpected status %d: %s", provider, resp.StatusCode, bytes.TrimSpace(excerpt))
}
