// Package queue defines the background task types and payloads shared by the
// API (which enqueues) and the worker (which processes).
package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

const (
	TypeEmailDelivery = "email:deliver"
	TypeImageProcess  = "image:process"
)

const (
	QueueDefault = "default"
	QueueImages  = "images"
)

// Enqueuer is the part of *asynq.Client used by services and handlers.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// RedisOpt mirrors the connection settings of an existing go-redis client.
func RedisOpt(rdb *redis.Client) asynq.RedisClientOpt {
	o := rdb.Options()
	return asynq.RedisClientOpt{Addr: o.Addr, Username: o.Username, Password: o.Password, DB: o.DB}
}

// NewClient returns an asynq client sharing rdb's connection settings.
func NewClient(rdb *redis.Client) *asynq.Client {
	return asynq.NewClient(RedisOpt(rdb))
}

// EmailPayload asks the worker to render a template and deliver it.
type EmailPayload struct {
	To         string                 `json:"to"`
	TemplateID string                 `json:"template_id"`
	Locale     string                 `json:"locale,omitempty"`
	Data       map[string]interface{} `json:"data"`
}

// NewEmailDeliveryTask builds an email task. Delivery is attempted once; the
// provider fallback chain is the only retry.
func NewEmailDeliveryTask(p EmailPayload) (*asynq.Task, error) {
	if p.To == "" || p.TemplateID == "" {
		return nil, fmt.Errorf("email task needs a recipient and a template")
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to encode email task: %w", err)
	}
	return asynq.NewTask(TypeEmailDelivery, b, asynq.MaxRetry(0), asynq.Queue(QueueDefault)), nil
}

// ImagePayload asks the worker to normalize an uploaded property photo.
type ImagePayload struct {
	S3Key      string `json:"s3_key"`
	PropertyID string `json:"property_id"`
}

func NewImageProcessTask(p ImagePayload) (*asynq.Task, error) {
	if p.S3Key == "" || p.PropertyID == "" {
		return nil, fmt.Errorf("image task needs an s3 key and a property id")
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image task: %w", err)
	}
	return asynq.NewTask(TypeImageProcess, b, asynq.MaxRetry(3), asynq.Queue(QueueImages)), nil
}
