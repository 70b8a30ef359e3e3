package models

import "time"

// RecordKind names one of the reviewable collections.
type RecordKind string

const (
	KindApplication RecordKind = "application"
	KindLead        RecordKind = "lead"
	KindProperty    RecordKind = "property"
)

// Kinds lists every reviewable record kind.
var Kinds = []RecordKind{KindApplication, KindLead, KindProperty}

// Valid reports whether k is a known kind.
func (k RecordKind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// Status is the workflow position of a record. Legal values depend on the kind.
type Status string

// Contact holds the free-text contact fields of a public submission.
// Only presence is checked.
type Contact struct {
	Name  string `bson:"name" json:"name"`
	Email string `bson:"email" json:"email"`
	Phone string `bson:"phone,omitempty" json:"phone,omitempty"`
}

// Assignee is a denormalized snapshot of a user, copied onto records at write time.
type Assignee struct {
	UID   string `bson:"uid" json:"uid"`
	Name  string `bson:"name" json:"name"`
	Role  string `bson:"role" json:"role"`
	Email string `bson:"email" json:"email"`
}

// StatusChange carries the server-side fields written alongside a new status.
type StatusChange struct {
	To       Status
	Notes    string
	Reviewer Assignee
	At       time.Time
}

// Record is implemented by every reviewable document.
type Record interface {
	RecordID() string
	RecordKind() RecordKind
	CurrentStatus() Status
	// Recipient is who gets notified about status changes.
	Recipient() Contact
	// TemplateData exposes the fields email templates may reference.
	TemplateData() map[string]interface{}
}
