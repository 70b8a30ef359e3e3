package services

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"realtyhub/backend/internal/db"
	"realtyhub/backend/internal/models"
)

// IApplicationService stores agent and broker applications.
type IApplicationService interface {
	RecordStore
	Create(ctx context.Context, app *models.Application) (*models.Application, error)
	FindByID(ctx context.Context, id string) (*models.Application, error)
	List(ctx context.Context, filter RecordFilter) ([]models.Application, error)
}

type applicationService struct {
	db     *mongo.Database
	limits ListLimits
}

// NewApplicationService creates a new ApplicationService.
func NewApplicationService(database *mongo.Database, limits ListLimits) IApplicationService {
	return &applicationService{db: database, limits: limits}
}

func (s *applicationService) coll() *mongo.Collection {
	return s.db.Collection(db.ApplicationsCollection)
}

func (s *applicationService) Kind() models.RecordKind { return models.KindApplication }

// Create inserts app with a fresh id and server timestamps.
func (s *applicationService) Create(ctx context.Context, app *models.Application) (*models.Application, error) {
	now := time.Now().UTC()
	app.CreatedAt = now
	app.UpdatedAt = now
	if app.Status == "" {
		app.Status = models.ApplicationPending
	}

	err := db.Try(func() error {
		app.GenID()
		_, insertErr := s.coll().InsertOne(ctx, app)
		return insertErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert application for %s: %w", app.Email, err)
	}
	return app, nil
}

func (s *applicationService) FindByID(ctx context.Context, id string) (*models.Application, error) {
	id, err := normalizeID(id)
	if err != nil {
		return nil, err
	}
	return findOne[models.Application](ctx, s.coll(), bson.M{"_id": id})
}

func (s *applicationService) GetRecord(ctx context.Context, id string) (models.Record, error) {
	app, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return app, nil
}

// List returns applications newest first.
func (s *applicationService) List(ctx context.Context, f RecordFilter) ([]models.Application, error) {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if search := searchFilter(f.Q, "name", "email", "phone", "company"); search != nil {
		for k, v := range search {
			filter[k] = v
		}
	}
	return findMany[models.Application](ctx, s.coll(), filter, newestFirst(s.limits.Clamp(f.Limit)))
}

// UpdateStatus records a review decision. approved_at is set on the first move
// into approved and kept afterwards.
func (s *applicationService) UpdateStatus(ctx context.Context, id string, from models.Status, change models.StatusChange) (models.Record, error) {
	id, err := normalizeID(id)
	if err != nil {
		return nil, err
	}
	set := bson.M{
		"status":      change.To,
		"updated_at":  change.At,
		"reviewed_at": change.At,
		"reviewed_by": change.Reviewer,
	}
	if change.Notes != "" {
		set["review_notes"] = change.Notes
	}
	if change.To == models.ApplicationApproved && from != models.ApplicationApproved {
		set["approved_at"] = change.At
	}

	app, err := compareAndSet[models.Application](ctx, s.coll(), id, from, bson.M{"$set": set})
	if err != nil {
		return nil, err
	}
	return app, nil
}

func (s *applicationService) Delete(ctx context.Context, id string) error {
	id, err := normalizeID(id)
	if err != nil {
		return err
	}
	return deleteByID(ctx, s.coll(), id)
}
