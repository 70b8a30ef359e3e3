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

// ILeadService stores inbound leads and their assignment.
type ILeadService interface {
	RecordStore
	Create(ctx context.Context, lead *models.Lead) (*models.Lead, error)
	FindByID(ctx context.Context, id string) (*models.Lead, error)
	List(ctx context.Context, filter RecordFilter) ([]models.Lead, error)
	// Assign writes the assignee snapshot and status if the stored status still equals from.
	Assign(ctx context.Context, id string, from models.Status, assignee models.Assignee, status models.Status, at time.Time) (*models.Lead, error)
	// UnassignUser clears uid from every lead assigned to them. Leads sitting
	// in "assigned" go back to "new".
	UnassignUser(ctx context.Context, uid string) (int64, error)
}

type leadService struct {
	db     *mongo.Database
	limits ListLimits
}

// NewLeadService creates a new LeadService.
func NewLeadService(database *mongo.Database, limits ListLimits) ILeadService {
	return &leadService{db: database, limits: limits}
}

func (s *leadService) coll() *mongo.Collection {
	return s.db.Collection(db.LeadsCollection)
}

func (s *leadService) Kind() models.RecordKind { return models.KindLead }

func (s *leadService) Create(ctx context.Context, lead *models.Lead) (*models.Lead, error) {
	now := time.Now().UTC()
	lead.CreatedAt = now
	lead.UpdatedAt = now
	if lead.Status == "" {
		lead.Status = models.LeadNew
	}

	err := db.Try(func() error {
		lead.GenID()
		_, insertErr := s.coll().InsertOne(ctx, lead)
		return insertErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert lead for %s: %w", lead.Email, err)
	}
	return lead, nil
}

func (s *leadService) FindByID(ctx context.Context, id string) (*models.Lead, error) {
	id, err := normalizeID(id)
	if err != nil {
		return nil, err
	}
	return findOne[models.Lead](ctx, s.coll(), bson.M{"_id": id})
}

func (s *leadService) GetRecord(ctx context.Context, id string) (models.Record, error) {
	lead, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return lead, nil
}

func (s *leadService) List(ctx context.Context, f RecordFilter) ([]models.Lead, error) {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.AssignedTo != "" {
		filter["assigned_to.uid"] = f.AssignedTo
	}
	if search := searchFilter(f.Q, "name", "email", "phone", "message"); search != nil {
		for k, v := range search {
			filter[k] = v
		}
	}
	return findMany[models.Lead](ctx, s.coll(), filter, newestFirst(s.limits.Clamp(f.Limit)))
}

func (s *leadService) UpdateStatus(ctx context.Context, id string, from models.Status, change models.StatusChange) (models.Record, error) {
	id, err := normalizeID(id)
	if err != nil {
		return nil, err
	}
	set := bson.M{
		"status":     change.To,
		"updated_at": change.At,
	}
	if change.Notes != "" {
		set["notes"] = change.Notes
	}

	lead, err := compareAndSet[models.Lead](ctx, s.coll(), id, from, bson.M{"$set": set})
	if err != nil {
		return nil, err
	}
	return lead, nil
}

func (s *leadService) Assign(ctx context.Context, id string, from models.Status, assignee models.Assignee, status models.Status, at time.Time) (*models.Lead, error) {
	id, err := normalizeID(id)
	if err != nil {
		return nil, err
	}
	update := bson.M{"$set": bson.M{
		"assigned_to": assignee,
		"assigned_at": at,
		"status":      status,
		"updated_at":  at,
	}}
	return compareAndSet[models.Lead](ctx, s.coll(), id, from, update)
}

func (s *leadService) UnassignUser(ctx context.Context, uid string) (int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"status": bson.M{"$cond": bson.A{
				bson.M{"$eq": bson.A{"$status", models.LeadAssigned}},
				models.LeadNew,
				"$status",
			}},
			"updated_at": time.Now().UTC(),
		}}},
		{{Key: "$unset", Value: bson.A{"assigned_to", "assigned_at"}}},
	}
	res, err := s.coll().UpdateMany(ctx, bson.M{"assigned_to.uid": uid}, pipeline)
	if err != nil {
		return 0, fmt.Errorf("failed to unassign leads of user %s: %w", uid, err)
	}
	return res.ModifiedCount, nil
}

func (s *leadService) Delete(ctx context.Context, id string) error {
	id, err := normalizeID(id)
	if err != nil {
		return err
	}
	return deleteByID(ctx, s.coll(), id)
}
