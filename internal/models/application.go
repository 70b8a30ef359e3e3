package models

import "time"

// ApplicationType classifies a professional application.
type ApplicationType string

const (
	ApplicationTypeAgent    ApplicationType = "agent"
	ApplicationTypeBroker   ApplicationType = "broker"
	ApplicationTypeNewAgent ApplicationType = "new-agent"
)

// Valid reports whether t is a known application type.
func (t ApplicationType) Valid() bool {
	switch t {
	case ApplicationTypeAgent, ApplicationTypeBroker, ApplicationTypeNewAgent:
		return true
	}
	return false
}

const (
	ApplicationPending  Status = "pending"
	ApplicationApproved Status = "approved"
	ApplicationRejected Status = "rejected"
	ApplicationMoreInfo Status = "more_info"
)

// Application is a request from an agent or broker to join the marketplace.
type Application struct {
	Base          `bson:",inline"`
	Contact       `bson:",inline"`
	Type          ApplicationType `bson:"type" json:"type"`
	Company       string          `bson:"company,omitempty" json:"company,omitempty"`
	LicenseNumber string          `bson:"license_number,omitempty" json:"license_number,omitempty"`
	Message       string          `bson:"message,omitempty" json:"message,omitempty"`
	Status        Status          `bson:"status" json:"status"`
	ReviewNotes   string          `bson:"review_notes,omitempty" json:"review_notes,omitempty"`
	ReviewedBy    *Assignee       `bson:"reviewed_by,omitempty" json:"reviewed_by,omitempty"`
	CreatedAt     time.Time       `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `bson:"updated_at" json:"updated_at"`
	ReviewedAt    *time.Time      `bson:"reviewed_at,omitempty" json:"reviewed_at,omitempty"`
	ApprovedAt    *time.Time      `bson:"approved_at,omitempty" json:"approved_at,omitempty"`
}

func (a *Application) RecordID() string       { return a.ID }
func (a *Application) RecordKind() RecordKind { return KindApplication }
func (a *Application) CurrentStatus() Status  { return a.Status }
func (a *Application) Recipient() Contact     { return a.Contact }

func (a *Application) TemplateData() map[string]interface{} {
	return map[string]interface{}{
		"ID":      a.ID,
		"Name":    a.Name,
		"Email":   a.Email,
		"Phone":   a.Phone,
		"Type":    string(a.Type),
		"Company": a.Company,
		"Message": a.Message,
		"Status":  string(a.Status),
		"Notes":   a.ReviewNotes,
	}
}
