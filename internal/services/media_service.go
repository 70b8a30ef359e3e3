package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"realtyhub/backend/internal/auth"
	"realtyhub/backend/internal/queue"
	"realtyhub/backend/internal/storage"
)

// UploadTarget is where the client PUTs a photo, and the key it reports back.
type UploadTarget struct {
	URL string `json:"upload_url"`
	Key string `json:"object_key"`
}

// IMediaService handles property photo uploads.
type IMediaService interface {
	UploadURL(ctx context.Context, session *auth.Session, propertyID, filename, contentType string) (*UploadTarget, error)
	// QueueImage schedules processing of an uploaded object and returns the task id.
	QueueImage(ctx context.Context, session *auth.Session, propertyID, key string) (string, error)
}

type mediaService struct {
	properties IPropertyService
	storage    storage.IS3Storage
	enqueuer   queue.Enqueuer
}

// NewMediaService creates a new MediaService.
func NewMediaService(properties IPropertyService, store storage.IS3Storage, enqueuer queue.Enqueuer) IMediaService {
	return &mediaService{properties: properties, storage: store, enqueuer: enqueuer}
}

// ownedProperty loads the property and checks the session may edit it.
// Owners need properties:write; anyone else needs properties:review.
func (s *mediaService) ownedProperty(ctx context.Context, session *auth.Session, propertyID string) (string, string, error) {
	if !session.Authenticated() {
		return "", "", ErrForbidden
	}
	p, err := s.properties.FindByID(ctx, propertyID)
	if err != nil {
		return "", "", err
	}
	isOwner := p.Owner.UID == session.UserID
	if !(isOwner && session.Can(auth.PermPropertiesWrite)) && !session.Can(auth.PermPropertiesReview) {
		return "", "", ErrForbidden
	}
	return p.ID, p.Owner.UID, nil
}

func (s *mediaService) UploadURL(ctx context.Context, session *auth.Session, propertyID, filename, contentType string) (*UploadTarget, error) {
	if filename == "" || contentType == "" {
		return nil, fmt.Errorf("%w: filename and content_type are required", ErrValidation)
	}
	if _, ok := storage.AllowedImageTypes[strings.ToLower(contentType)]; !ok {
		return nil, fmt.Errorf("%w: unsupported content type %q", ErrValidation, contentType)
	}
	id, ownerID, err := s.ownedProperty(ctx, session, propertyID)
	if err != nil {
		return nil, err
	}

	url, key, err := s.storage.GeneratePresignedPutURL(ctx, ownerID, id, filename, contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to generate upload URL: %w", err)
	}
	return &UploadTarget{URL: url, Key: key}, nil
}

func (s *mediaService) QueueImage(ctx context.Context, session *auth.Session, propertyID, key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("%w: object_key is required", ErrValidation)
	}
	id, ownerID, err := s.ownedProperty(ctx, session, propertyID)
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(key, storage.PropertyKeyPrefix(ownerID, id)) {
		return "", fmt.Errorf("%w: object_key does not belong to property %s", ErrValidation, id)
	}

	task, err := queue.NewImageProcessTask(queue.ImagePayload{S3Key: key, PropertyID: id})
	if err != nil {
		return "", err
	}
	info, err := s.enqueuer.EnqueueContext(ctx, task)
	if err != nil {
		return "", fmt.Errorf("failed to schedule image processing: %w", err)
	}
	log.Info().Str("task_id", info.ID).Str("key", key).Str("property", id).Msg("Image processing queued")
	return info.ID, nil
}
