package email

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// MockEmailTTL is how long captured emails stay readable in Redis.
const MockEmailTTL = 5 * time.Minute

// MockEmailKey is where RedisSender stores the last message for a recipient and tag.
func MockEmailKey(to, tag string) string {
	if tag == "" {
		tag = "unknown"
	}
	return fmt.Sprintf("mockemail:%s:%s", strings.ToLower(to), tag)
}

// RedisSender captures messages in Redis instead of delivering them. Used
// with MOCK_SERVICES so integration tests can read what would have been sent.
type RedisSender struct {
	client *redis.Client
}

func NewRedisSender(client *redis.Client) *RedisSender {
	return &RedisSender{client: client}
}

func (s *RedisSender) Send(ctx context.Context, msg *Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(map[string]interface{}{
		"to":      strings.Join(msg.To, ", "),
		"from":    msg.From,
		"subject": msg.Subject,
		"html":    msg.HTML,
		"text":    msg.Text,
		"tag":     msg.Tag,
		"sent_at": time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal email data: %w", err)
	}

	key := MockEmailKey(msg.To[0], msg.Tag)
	if err := s.client.Set(ctx, key, data, MockEmailTTL).Err(); err != nil {
		return fmt.Errorf("failed to store email in Redis key '%s': %w", key, err)
	}
	log.Debug().Str("key", key).Str("subject", msg.Subject).Msg("mock email stored in Redis")
	return nil
}
