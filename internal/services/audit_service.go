package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"realtyhub/backend/internal/auth"
	"realtyhub/backend/internal/db"
	"realtyhub/backend/internal/models"
)

const auditWriteTimeout = 5 * time.Second

// AuditFilter narrows the audit log listing.
type AuditFilter struct {
	Action   string
	ActorID  string
	TargetID string
	Limit    int
}

// IAuditService writes and lists audit entries.
type IAuditService interface {
	// Log never fails from the caller's point of view; write errors are only logged.
	Log(ctx context.Context, session *auth.Session, action, target, targetID string, metadata map[string]interface{})
	List(ctx context.Context, filter AuditFilter) ([]models.AuditLog, error)
}

type auditService struct {
	db     *mongo.Database
	limits ListLimits
}

// NewAuditService creates a new AuditService.
func NewAuditService(database *mongo.Database, limits ListLimits) IAuditService {
	return &auditService{db: database, limits: limits}
}

func (s *auditService) Log(ctx context.Context, session *auth.Session, action, target, targetID string, metadata map[string]interface{}) {
	entry := &models.AuditLog{
		Base:      models.NewBase(),
		Actor:     session.Actor(),
		Action:    action,
		Target:    target,
		TargetID:  targetID,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}

	// The entry outlives a cancelled request.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditWriteTimeout)
	defer cancel()

	if _, err := s.db.Collection(db.AuditLogsCollection).InsertOne(writeCtx, entry); err != nil {
		log.Error().Err(err).
			Str("action", action).
			Str("target", target).
			Str("target_id", targetID).
			Str("actor", entry.Actor.UID).
			Msg("Failed to write audit log")
	}
}

func (s *auditService) List(ctx context.Context, f AuditFilter) ([]models.AuditLog, error) {
	filter := bson.M{}
	if f.Action != "" {
		filter["action"] = f.Action
	}
	if f.ActorID != "" {
		filter["actor.uid"] = f.ActorID
	}
	if f.TargetID != "" {
		filter["target_id"] = f.TargetID
	}
	return findMany[models.AuditLog](ctx, s.db.Collection(db.AuditLogsCollection), filter, newestFirst(s.limits.Clamp(f.Limit)))
}
