package services

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"realtyhub/backend/internal/config"
	"realtyhub/backend/internal/models"
	"realtyhub/backend/internal/queue"
)

// NotificationEvent names an outbound email. It doubles as the template id.
type NotificationEvent string

const (
	EventApplicationReceived NotificationEvent = "application_received"
	EventApplicationApproved NotificationEvent = "application_approved"
	EventApplicationRejected NotificationEvent = "application_rejected"
	EventApplicationMoreInfo NotificationEvent = "application_more_info"
	EventLeadReceived        NotificationEvent = "lead_received"
	EventLeadAssigned        NotificationEvent = "lead_assigned"
	EventPropertyReceived    NotificationEvent = "property_received"
	EventPropertyApproved    NotificationEvent = "property_approved"
	EventPropertyRejected    NotificationEvent = "property_rejected"
)

var statusEvents = map[models.RecordKind]map[models.Status]NotificationEvent{
	models.KindApplication: {
		models.ApplicationApproved: EventApplicationApproved,
		models.ApplicationRejected: EventApplicationRejected,
		models.ApplicationMoreInfo: EventApplicationMoreInfo,
	},
	models.KindProperty: {
		models.PropertyApproved: EventPropertyApproved,
		models.PropertyRejected: EventPropertyRejected,
	},
}

// StatusEvent returns the email sent when a record of kind enters status.
func StatusEvent(kind models.RecordKind, status models.Status) (NotificationEvent, bool) {
	evt, ok := statusEvents[kind][status]
	return evt, ok
}

// ReceivedEvent returns the confirmation email for a newly created record.
func ReceivedEvent(kind models.RecordKind) NotificationEvent {
	switch kind {
	case models.KindApplication:
		return EventApplicationReceived
	case models.KindLead:
		return EventLeadReceived
	default:
		return EventPropertyReceived
	}
}

// INotificationService dispatches emails without making callers wait for delivery.
type INotificationService interface {
	// Notify never returns an error; a failed enqueue is logged and dropped.
	Notify(ctx context.Context, event NotificationEvent, to models.Contact, data map[string]interface{})
}

type notificationService struct {
	enqueuer queue.Enqueuer
	cfg      *config.Config
}

// NewNotificationService creates a notifier that hands emails to the task queue.
func NewNotificationService(enqueuer queue.Enqueuer, cfg *config.Config) INotificationService {
	return &notificationService{enqueuer: enqueuer, cfg: cfg}
}

func (s *notificationService) Notify(ctx context.Context, event NotificationEvent, to models.Contact, data map[string]interface{}) {
	logger := log.With().Str("event", string(event)).Logger()

	recipient := strings.TrimSpace(to.Email)
	if recipient == "" {
		logger.Warn().Msg("Notification skipped, recipient has no email")
		return
	}

	payload := queue.EmailPayload{
		To:         recipient,
		TemplateID: string(event),
		Data:       make(map[string]interface{}, len(data)+3),
	}
	for k, v := range data {
		payload.Data[k] = v
	}
	if _, ok := payload.Data["Name"]; !ok {
		payload.Data["Name"] = to.Name
	}
	payload.Data["AppName"] = s.cfg.AppName
	payload.Data["BaseURL"] = s.cfg.BaseURL

	task, err := queue.NewEmailDeliveryTask(payload)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to build email task")
		return
	}
	if _, err := s.enqueuer.EnqueueContext(context.WithoutCancel(ctx), task); err != nil {
		logger.Error().Err(err).Str("to", recipient).Msg("Failed to enqueue email")
		return
	}
	logger.Debug().Str("to", recipient).Msg("Email queued")
}
