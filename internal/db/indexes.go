package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names shared by services and account cleanup.
const (
	ApplicationsCollection   = "applications"
	LeadsCollection          = "leads"
	PropertiesCollection     = "properties"
	AuditLogsCollection      = "audit_logs"
	UsersCollection          = "users"
	RolesCollection          = "roles"
	EmailTemplatesCollection = "email_templates"
)

// IndexSpec describes the indexes ensured for one collection.
type IndexSpec struct {
	Collection string
	Models     []mongo.IndexModel
}

// DefaultIndexes returns the indexes the API relies on for filtering and uniqueness.
func DefaultIndexes() []IndexSpec {
	byStatus := mongo.IndexModel{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}}
	byCreated := mongo.IndexModel{Keys: bson.D{{Key: "created_at", Value: -1}}}
	return []IndexSpec{
		{Collection: ApplicationsCollection, Models: []mongo.IndexModel{byStatus, byCreated}},
		{Collection: LeadsCollection, Models: []mongo.IndexModel{
			byStatus, byCreated,
			{Keys: bson.D{{Key: "assigned_to.uid", Value: 1}}},
		}},
		{Collection: PropertiesCollection, Models: []mongo.IndexModel{
			byStatus, byCreated,
			{Keys: bson.D{{Key: "owner.uid", Value: 1}}},
		}},
		{Collection: AuditLogsCollection, Models: []mongo.IndexModel{
			byCreated,
			{Keys: bson.D{{Key: "target_id", Value: 1}}},
		}},
		{Collection: UsersCollection, Models: []mongo.IndexModel{
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		}},
		{Collection: EmailTemplatesCollection, Models: []mongo.IndexModel{
			{Keys: bson.D{{Key: "template_id", Value: 1}, {Key: "locale", Value: 1}}, Options: options.Index().SetUnique(true)},
		}},
	}
}

// EnsureIndexes creates the given indexes. Existing identical indexes are a no-op for MongoDB.
func EnsureIndexes(database *mongo.Database, specs []IndexSpec) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	for _, spec := range specs {
		if len(spec.Models) == 0 {
			continue
		}
		if _, err := database.Collection(spec.Collection).Indexes().CreateMany(ctx, spec.Models); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", spec.Collection, err)
		}
	}
	return nil
}
