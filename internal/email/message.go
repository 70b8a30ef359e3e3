package email

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"mime"
	"strings"
	"time"
)

// Message is a rendered email ready for any provider.
type Message struct {
	From    string
	To      []string
	Subject string
	HTML    string
	Text    string
	// Tag names the template the message was rendered from. Providers that
	// support tagging forward it; the mock store uses it as part of the key.
	Tag string
}

// Validate checks the fields every provider needs.
func (m *Message) Validate() error {
	if m == nil {
		return fmt.Errorf("nil message")
	}
	if m.From == "" {
		return fmt.Errorf("message has no sender address")
	}
	if len(m.To) == 0 || strings.TrimSpace(m.To[0]) == "" {
		return fmt.Errorf("message has no recipient")
	}
	if m.HTML == "" && m.Text == "" {
		return fmt.Errorf("message has no body")
	}
	return nil
}

// Raw renders the message as RFC 5322 bytes for SMTP and file logging.
// When both bodies are present a multipart/alternative message is produced.
func (m *Message) Raw(now time.Time) []byte {
	var sb strings.Builder
	sb.WriteString("To: " + strings.Join(m.To, ", ") + "\r\n")
	sb.WriteString("From: " + m.From + "\r\n")
	sb.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", m.Subject) + "\r\n")
	sb.WriteString("Date: " + now.Format(time.RFC1123Z) + "\r\n")
	sb.WriteString("MIME-Version: 1.0\r\n")

	switch {
	case m.HTML != "" && m.Text != "":
		boundary := newBoundary()
		sb.WriteString(fmt.Sprintf("Content-Type: multipart/alternative; boundary=%q\r\n\r\n", boundary))
		sb.WriteString("--" + boundary + "\r\n")
		sb.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n\r\n")
		sb.WriteString(m.Text + "\r\n")
		sb.WriteString("--" + boundary + "\r\n")
		sb.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
		sb.WriteString(m.HTML + "\r\n")
		sb.WriteString("--" + boundary + "--\r\n")
	case m.HTML != "":
		sb.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
		sb.WriteString(m.HTML + "\r\n")
	default:
		sb.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n\r\n")
		sb.WriteString(m.Text + "\r\n")
	}
	return []byte(sb.String())
}

func newBoundary() string {
	var b [12]byte
	_, _ = rand.Read(b[:])
	return "rh-" + hex.EncodeToString(b[:])
}
