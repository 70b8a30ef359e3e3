// Package tasks runs the background worker: email delivery and property
// photo normalization.
package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/nfnt/resize"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"realtyhub/backend/internal/config"
	"realtyhub/backend/internal/email"
	"realtyhub/backend/internal/events"
	"realtyhub/backend/internal/models"
	"realtyhub/backend/internal/queue"
	"realtyhub/backend/internal/services"
	"realtyhub/backend/internal/storage"
)

// TaskProcessor handles the processing of tasks.
// It holds dependencies needed by task handlers.
type TaskProcessor struct {
	cfg         *config.Config
	emailSender email.Sender
	templates   services.IEmailTemplateService
	storage     storage.IS3Storage
	properties  services.IPropertyService
	publisher   events.Publisher
	now         func() time.Time
}

func NewTaskProcessor(
	cfg *config.Config,
	emailSender email.Sender,
	templates services.IEmailTemplateService,
	storageService storage.IS3Storage,
	properties services.IPropertyService,
	publisher events.Publisher,
) *TaskProcessor {
	return &TaskProcessor{
		cfg:         cfg,
		emailSender: emailSender,
		templates:   templates,
		storage:     storageService,
		properties:  properties,
		publisher:   publisher,
		now:         time.Now,
	}
}

// SetupServer configures an Asynq server and its handler mux. The caller runs
// or shuts it down.
func SetupServer(rdb *redis.Client, processor *TaskProcessor) (*asynq.Server, *asynq.ServeMux) {
	srv := asynq.NewServer(
		queue.RedisOpt(rdb),
		asynq.Config{
			Queues: map[string]int{
				queue.QueueDefault: 3,
				queue.QueueImages:  2,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Error().Err(err).
					Str("type", task.Type()).
					Bytes("payload", task.Payload()).
					Msg("Task failed")
			}),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TypeEmailDelivery, processor.HandleEmailDeliveryTask)
	mux.HandleFunc(queue.TypeImageProcess, processor.HandleImageProcessTask)
	log.Info().Strs("types", []string{queue.TypeEmailDelivery, queue.TypeImageProcess}).Msg("Registered task handlers")
	return srv, mux
}

// HandleEmailDeliveryTask renders the template and hands the message to the
// provider chain. Failures are logged and never retried.
func (p *TaskProcessor) HandleEmailDeliveryTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.EmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal email task payload: %v: %w", err, asynq.SkipRetry)
	}
	logger := log.With().Str("to", payload.To).Str("template", payload.TemplateID).Logger()

	rendered, err := p.templates.Render(ctx, payload.TemplateID, payload.Locale, payload.Data)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to render email")
		return fmt.Errorf("render %s: %v: %w", payload.TemplateID, err, asynq.SkipRetry)
	}

	msg := &email.Message{
		From:    p.cfg.EmailFromAddress,
		To:      []string{payload.To},
		Subject: rendered.Subject,
		HTML:    rendered.HTML,
		Text:    rendered.Text,
		Tag:     payload.TemplateID,
	}
	if err := p.emailSender.Send(ctx, msg); err != nil {
		logger.Error().Err(err).Msg("Email delivery failed")
		return fmt.Errorf("deliver %s: %v: %w", payload.TemplateID, err, asynq.SkipRetry)
	}

	logger.Info().Msg("Email delivered")
	return nil
}

// HandleImageProcessTask downloads an uploaded photo, shrinks it to the
// configured bounds, writes it back and attaches it to the property.
func (p *TaskProcessor) HandleImageProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.ImagePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal image task payload: %v: %w", err, asynq.SkipRetry)
	}
	logger := log.With().Str("key", payload.S3Key).Str("property", payload.PropertyID).Logger()

	prop, err := p.properties.FindByID(ctx, payload.PropertyID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return fmt.Errorf("property %s not found: %w", payload.PropertyID, asynq.SkipRetry)
		}
		return err
	}
	if !strings.HasPrefix(payload.S3Key, storage.PropertyKeyPrefix(prop.Owner.UID, prop.ID)) {
		logger.Warn().Msg("Object key does not belong to property")
		return fmt.Errorf("foreign object key %s: %w", payload.S3Key, asynq.SkipRetry)
	}

	data, contentType, err := p.storage.GetObject(ctx, payload.S3Key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}

	maxSizeBytes := int64(p.cfg.ImageMaxSizeMB) * 1024 * 1024
	if int64(len(data)) > maxSizeBytes {
		logger.Warn().Int("bytes", len(data)).Int64("max", maxSizeBytes).Msg("Image exceeds max size")
		return fmt.Errorf("image exceeds max size: %w", asynq.SkipRetry)
	}

	processed, outType, err := p.normalize(data, contentType)
	if err != nil {
		logger.Warn().Err(err).Msg("Image could not be processed")
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if processed != nil {
		if int64(len(processed)) > maxSizeBytes {
			return fmt.Errorf("resized image still exceeds max size: %w", asynq.SkipRetry)
		}
		if err := p.storage.PutObject(ctx, payload.S3Key, processed, outType); err != nil {
			return err
		}
	}

	if _, err := p.properties.AddImage(ctx, prop.ID, payload.S3Key); err != nil {
		return fmt.Errorf("failed to attach image to property %s: %w", prop.ID, err)
	}
	events.PublishQuietly(ctx, p.publisher, events.RecordEvent{
		Kind:   models.KindProperty,
		ID:     prop.ID,
		Action: events.ActionImage,
		Status: prop.Status,
		At:     p.now().UTC(),
	})

	logger.Info().Bool("resized", processed != nil).Msg("Image processed")
	return nil
}

// normalize returns re-encoded bytes when the image is larger than
// ImageMaxDimension, or nil when the original can be kept.
func (p *TaskProcessor) normalize(data []byte, contentType string) ([]byte, string, error) {
	cfgImg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("unsupported image format or corrupt image: %w", err)
	}
	maxDim := uint(p.cfg.ImageMaxDimension)
	if maxDim == 0 || (uint(cfgImg.Width) <= maxDim && uint(cfgImg.Height) <= maxDim) {
		return nil, contentType, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("unsupported image format or corrupt image: %w", err)
	}
	resized := resize.Thumbnail(maxDim, maxDim, img, resize.Lanczos3)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: 85}); err != nil {
		return nil, "", fmt.Errorf("failed to re-encode resized image: %w", err)
	}
	return buf.Bytes(), "image/jpeg", nil
}
