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

// IPropertyService stores property listings.
type IPropertyService interface {
	RecordStore
	Create(ctx context.Context, p *models.Property) (*models.Property, error)
	FindByID(ctx context.Context, id string) (*models.Property, error)
	// FindPublic only returns approved properties.
	FindPublic(ctx context.Context, id string) (*models.Property, error)
	List(ctx context.Context, filter RecordFilter) ([]models.Property, error)
	// ListPublic lists approved properties regardless of filter.Status.
	ListPublic(ctx context.Context, filter RecordFilter) ([]models.Property, error)
	AddImage(ctx context.Context, id, key string) (*models.Property, error)
	DeleteByOwner(ctx context.Context, ownerUID string) (int64, error)
}

type propertyService struct {
	db     *mongo.Database
	limits ListLimits
}

// NewPropertyService creates a new PropertyService.
func NewPropertyService(database *mongo.Database, limits ListLimits) IPropertyService {
	return &propertyService{db: database, limits: limits}
}

func (s *propertyService) coll() *mongo.Collection {
	return s.db.Collection(db.PropertiesCollection)
}

func (s *propertyService) Kind() models.RecordKind { return models.KindProperty }

func (s *propertyService) Create(ctx context.Context, p *models.Property) (*models.Property, error) {
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.Status == "" {
		p.Status = models.PropertyPending
	}
	if p.Images == nil {
		p.Images = []string{}
	}

	err := db.Try(func() error {
		p.GenID()
		_, insertErr := s.coll().InsertOne(ctx, p)
		return insertErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert property for owner %s: %w", p.Owner.UID, err)
	}
	return p, nil
}

func (s *propertyService) FindByID(ctx context.Context, id string) (*models.Property, error) {
	id, err := normalizeID(id)
	if err != nil {
		return nil, err
	}
	return findOne[models.Property](ctx, s.coll(), bson.M{"_id": id})
}

func (s *propertyService) FindPublic(ctx context.Context, id string) (*models.Property, error) {
	id, err := normalizeID(id)
	if err != nil {
		return nil, err
	}
	return findOne[models.Property](ctx, s.coll(), bson.M{"_id": id, "status": models.PropertyApproved})
}

func (s *propertyService) GetRecord(ctx context.Context, id string) (models.Record, error) {
	p, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *propertyService) List(ctx context.Context, f RecordFilter) ([]models.Property, error) {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.OwnerID != "" {
		filter["owner.uid"] = f.OwnerID
	}
	if search := searchFilter(f.Q, "title", "city", "address", "owner.name"); search != nil {
		for k, v := range search {
			filter[k] = v
		}
	}
	return findMany[models.Property](ctx, s.coll(), filter, newestFirst(s.limits.Clamp(f.Limit)))
}

func (s *propertyService) ListPublic(ctx context.Context, f RecordFilter) ([]models.Property, error) {
	f.Status = models.PropertyApproved
	f.OwnerID = ""
	return s.List(ctx, f)
}

func (s *propertyService) UpdateStatus(ctx context.Context, id string, from models.Status, change models.StatusChange) (models.Record, error) {
	id, err := normalizeID(id)
	if err != nil {
		return nil, err
	}
	set := bson.M{
		"status":      change.To,
		"updated_at":  change.At,
		"reviewed_by": change.Reviewer,
	}
	if change.Notes != "" {
		set["review_notes"] = change.Notes
	}
	if change.To == models.PropertyApproved && from != models.PropertyApproved {
		set["approved_at"] = change.At
	}

	p, err := compareAndSet[models.Property](ctx, s.coll(), id, from, bson.M{"$set": set})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// AddImage appends key to the property's images once.
func (s *propertyService) AddImage(ctx context.Context, id, key string) (*models.Property, error) {
	id, err := normalizeID(id)
	if err != nil {
		return nil, err
	}
	update := bson.M{
		"$addToSet": bson.M{"images": key},
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	}
	var p models.Property
	err = s.coll().FindOneAndUpdate(ctx, bson.M{"_id": id}, update, returnAfter()).Decode(&p)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to add image to property %s: %w", id, err)
	}
	return &p, nil
}

func (s *propertyService) DeleteByOwner(ctx context.Context, ownerUID string) (int64, error) {
	res, err := s.coll().DeleteMany(ctx, bson.M{"owner.uid": ownerUID})
	if err != nil {
		return 0, fmt.Errorf("failed to delete properties of user %s: %w", ownerUID, err)
	}
	return res.DeletedCount, nil
}

func (s *propertyService) Delete(ctx context.Context, id string) error {
	id, err := normalizeID(id)
	if err != nil {
		return err
	}
	return deleteByID(ctx, s.coll(), id)
}
