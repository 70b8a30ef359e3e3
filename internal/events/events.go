// Package events broadcasts record changes to the dashboard feed and to
// downstream consumers. Publishing is best-effort.
package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"realtyhub/backend/internal/models"
)

// Actions carried by RecordEvent.
const (
	ActionCreated = "created"
	ActionStatus  = "status"
	ActionAssign  = "assigned"
	ActionDeleted = "deleted"
	ActionImage   = "image_added"
)

// RecordEvent describes one change to a record.
type RecordEvent struct {
	Kind   models.RecordKind `json:"kind"`
	ID     string            `json:"id"`
	Action string            `json:"action"`
	Status models.Status     `json:"status,omitempty"`
	From   models.Status     `json:"from,omitempty"`
	Actor  string            `json:"actor,omitempty"`
	At     time.Time         `json:"at"`
}

// RoutingKey is "<kind>.<action>", used as the AMQP routing key.
func (e RecordEvent) RoutingKey() string {
	return fmt.Sprintf("%s.%s", e.Kind, e.Action)
}

// Publisher sends record events somewhere.
type Publisher interface {
	Publish(ctx context.Context, evt RecordEvent) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, RecordEvent) error { return nil }

// MultiPublisher publishes to every wrapped publisher and joins their errors.
type MultiPublisher struct {
	publishers []Publisher
}

func NewMultiPublisher(publishers ...Publisher) *MultiPublisher {
	m := &MultiPublisher{}
	for _, p := range publishers {
		if p != nil {
			m.publishers = append(m.publishers, p)
		}
	}
	return m
}

func (m *MultiPublisher) Publish(ctx context.Context, evt RecordEvent) error {
	var errs []error
	for _, p := range m.publishers {
		if err := p.Publish(ctx, evt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PublishQuietly publishes evt and logs instead of returning failures.
func PublishQuietly(ctx context.Context, p Publisher, evt RecordEvent) {
	if p == nil {
		return
	}
	if evt.At.IsZero() {
		evt.At = time.Now().UTC()
	}
	if err := p.Publish(ctx, evt); err != nil {
		log.Error().Err(err).
			Str("kind", string(evt.Kind)).
			Str("id", evt.ID).
			Str("action", evt.Action).
			Msg("failed to publish record event")
	}
}
