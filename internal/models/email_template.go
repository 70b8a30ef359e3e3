package models

import "time"

// EmailTemplate is a notification template stored in the DB. Subject is a
// text/template, Body an html/template.
type EmailTemplate struct {
	Base       `bson:",inline"`
	TemplateID string    `bson:"template_id" json:"template_id"` // e.g. "application_approved"
	Locale     string    `bson:"locale" json:"locale"`           // e.g. "en-US", "es-MX"
	Subject    string    `bson:"subject" json:"subject"`
	Body       string    `bson:"body" json:"body"`
	UpdatedAt  time.Time `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
}
