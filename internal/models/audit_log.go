package models

import "time"

// AuditLog is an append-only record of an admin or reviewer action.
type AuditLog struct {
	Base      `bson:",inline"`
	Actor     Assignee               `bson:"actor" json:"actor"`
	Action    string                 `bson:"action" json:"action"` // e.g. "application.status", "lead.assign"
	Target    string                 `bson:"target" json:"target"` // collection or subsystem name
	TargetID  string                 `bson:"target_id,omitempty" json:"target_id,omitempty"`
	Metadata  map[string]interface{} `bson:"metadata,omitempty" json:"metadata,omitempty"`
	CreatedAt time.Time              `bson:"created_at" json:"created_at"`
}
