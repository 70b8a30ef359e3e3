package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"realtyhub/backend/internal/models"
	"realtyhub/backend/internal/utils"
)

// RecordStore is the kind-independent view of a record collection used by the
// review workflow.
type RecordStore interface {
	Kind() models.RecordKind
	GetRecord(ctx context.Context, id string) (models.Record, error)
	// UpdateStatus writes change only if the stored status still equals from,
	// or unconditionally when from is AnyStatus.
	UpdateStatus(ctx context.Context, id string, from models.Status, change models.StatusChange) (models.Record, error)
	Delete(ctx context.Context, id string) error
}

// AnyStatus passed as the expected status skips the concurrency check, so the
// last writer wins.
const AnyStatus models.Status = ""

// RecordFilter narrows dashboard lists. Zero values mean "no filter".
type RecordFilter struct {
	Status     models.Status
	Q          string
	AssignedTo string // leads only
	OwnerID    string // properties only
	Limit      int
}

// ListLimits is the default and the cap applied to RecordFilter.Limit.
type ListLimits struct {
	Default int
	Max     int
}

// Clamp returns the effective limit for a requested one.
func (l ListLimits) Clamp(requested int) int {
	limit := requested
	if limit <= 0 {
		limit = l.Default
	}
	if l.Max > 0 && limit > l.Max {
		limit = l.Max
	}
	if limit <= 0 {
		limit = 100
	}
	return limit
}

// normalizeID upper-cases and fixes ambiguous characters so that ids typed by
// hand still match. Malformed ids are reported as not found.
func normalizeID(id string) (string, error) {
	id = utils.NormalizeRecordID(strings.TrimSpace(id))
	if !utils.IsRecordID(id) {
		return "", ErrNotFound
	}
	return id, nil
}

// searchFilter builds a case-insensitive substring match over fields.
func searchFilter(q string, fields ...string) bson.M {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil
	}
	pattern := regexp.QuoteMeta(q)
	or := make(bson.A, 0, len(fields))
	for _, f := range fields {
		or = append(or, bson.M{f: bson.M{"$regex": pattern, "$options": "i"}})
	}
	return bson.M{"$or": or}
}

func newestFirst(limit int) *options.FindOptions {
	return options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))
}

func findOne[T any](ctx context.Context, coll *mongo.Collection, filter bson.M) (*T, error) {
	var out T
	if err := coll.FindOne(ctx, filter).Decode(&out); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error finding %s document: %w", coll.Name(), err)
	}
	return &out, nil
}

func findMany[T any](ctx context.Context, coll *mongo.Collection, filter bson.M, opts *options.FindOptions) ([]T, error) {
	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("error listing %s: %w", coll.Name(), err)
	}
	defer cursor.Close(ctx)

	out := []T{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("error decoding %s: %w", coll.Name(), err)
	}
	return out, nil
}

// compareAndSet applies update to the document only while its status equals
// from. A miss on an existing document means someone else moved it first.
// With AnyStatus the update always lands.
func compareAndSet[T any](ctx context.Context, coll *mongo.Collection, id string, from models.Status, update bson.M) (*T, error) {
	filter := bson.M{"_id": id}
	if from != AnyStatus {
		filter["status"] = from
	}

	var out T
	err := coll.FindOneAndUpdate(ctx, filter, update, returnAfter()).Decode(&out)
	if err == nil {
		return &out, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to update %s %s: %w", coll.Name(), id, err)
	}

	n, countErr := coll.CountDocuments(ctx, bson.M{"_id": id})
	if countErr != nil {
		return nil, fmt.Errorf("failed to re-check %s %s: %w", coll.Name(), id, countErr)
	}
	if n == 0 {
		return nil, ErrNotFound
	}
	return nil, ErrConflict
}

func deleteByID(ctx context.Context, coll *mongo.Collection, id string) error {
	res, err := coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete %s %s: %w", coll.Name(), id, err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func returnAfter() *options.FindOneAndUpdateOptions {
	return options.FindOneAndUpdate().SetReturnDocument(options.After)
}
