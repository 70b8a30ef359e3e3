package models

import "time"

// LeadSource records where a lead came from.
type LeadSource string

const (
	LeadSourcePropertyInquiry LeadSource = "property_inquiry"
	LeadSourceContactForm     LeadSource = "contact_form"
	LeadSourceSocialWaitlist  LeadSource = "social_waitlist"
)

// Valid reports whether s is a known lead source.
func (s LeadSource) Valid() bool {
	switch s {
	case LeadSourcePropertyInquiry, LeadSourceContactForm, LeadSourceSocialWaitlist:
		return true
	}
	return false
}

const (
	LeadNew       Status = "new"
	LeadAssigned  Status = "assigned"
	LeadContacted Status = "contacted"
	LeadQualified Status = "qualified"
	LeadConverted Status = "converted"
	LeadLost      Status = "lost"
)

// Lead is an inbound enquiry routed to an agent or broker.
type Lead struct {
	Base       `bson:",inline"`
	Contact    `bson:",inline"`
	Source     LeadSource `bson:"source" json:"source"`
	Message    string     `bson:"message,omitempty" json:"message,omitempty"`
	PropertyID string     `bson:"property_id,omitempty" json:"property_id,omitempty"`
	Status     Status     `bson:"status" json:"status"`
	Notes      string     `bson:"notes,omitempty" json:"notes,omitempty"`
	AssignedTo *Assignee  `bson:"assigned_to,omitempty" json:"assigned_to,omitempty"`
	AssignedAt *time.Time `bson:"assigned_at,omitempty" json:"assigned_at,omitempty"`
	CreatedAt  time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `bson:"updated_at" json:"updated_at"`
}

func (l *Lead) RecordID() string       { return l.ID }
func (l *Lead) RecordKind() RecordKind { return KindLead }
func (l *Lead) CurrentStatus() Status  { return l.Status }
func (l *Lead) Recipient() Contact     { return l.Contact }

func (l *Lead) TemplateData() map[string]interface{} {
	data := map[string]interface{}{
		"ID":         l.ID,
		"Name":       l.Name,
		"Email":      l.Email,
		"Phone":      l.Phone,
		"Source":     string(l.Source),
		"Message":    l.Message,
		"PropertyID": l.PropertyID,
		"Status":     string(l.Status),
		"Notes":      l.Notes,
	}
	if l.AssignedTo != nil {
		data["AssigneeName"] = l.AssignedTo.Name
		data["AssigneeEmail"] = l.AssignedTo.Email
	}
	return data
}
