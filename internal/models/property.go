package models

import "time"

// Price is an asking price or monthly rent.
type Price struct {
	Value        float64 `bson:"value" json:"value"`
	CurrencyCode string  `bson:"currency_code" json:"currency_code"`
}

// Operation is the kind of deal offered for a property.
type Operation string

const (
	OperationSale Operation = "sale"
	OperationRent Operation = "rent"
)

const (
	PropertyPending  Status = "pending"
	PropertyApproved Status = "approved"
	PropertyRejected Status = "rejected"
	PropertySold     Status = "sold"
	PropertyArchived Status = "archived"
)

// Property is a listing submitted by an agent or broker and reviewed before it goes public.
type Property struct {
	Base         `bson:",inline"`
	Owner        Assignee   `bson:"owner" json:"owner"`
	Title        string     `bson:"title" json:"title"`
	Description  string     `bson:"description,omitempty" json:"description,omitempty"`
	PropertyType string     `bson:"property_type" json:"property_type"` // e.g. house, apartment, land
	Operation    Operation  `bson:"operation" json:"operation"`
	Price        *Price     `bson:"price,omitempty" json:"price,omitempty"`
	Address      string     `bson:"address,omitempty" json:"address,omitempty"`
	City         string     `bson:"city" json:"city"`
	Bedrooms     int        `bson:"bedrooms,omitempty" json:"bedrooms,omitempty"`
	Bathrooms    int        `bson:"bathrooms,omitempty" json:"bathrooms,omitempty"`
	AreaM2       float64    `bson:"area_m2,omitempty" json:"area_m2,omitempty"`
	Images       []string   `bson:"images" json:"images"` // S3 keys
	Status       Status     `bson:"status" json:"status"`
	ReviewNotes  string     `bson:"review_notes,omitempty" json:"review_notes,omitempty"`
	ReviewedBy   *Assignee  `bson:"reviewed_by,omitempty" json:"reviewed_by,omitempty"`
	CreatedAt    time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `bson:"updated_at" json:"updated_at"`
	ApprovedAt   *time.Time `bson:"approved_at,omitempty" json:"approved_at,omitempty"`
}

func (p *Property) RecordID() string       { return p.ID }
func (p *Property) RecordKind() RecordKind { return KindProperty }
func (p *Property) CurrentStatus() Status  { return p.Status }

func (p *Property) Recipient() Contact {
	return Contact{Name: p.Owner.Name, Email: p.Owner.Email}
}

func (p *Property) TemplateData() map[string]interface{} {
	return map[string]interface{}{
		"ID":     p.ID,
		"Name":   p.Owner.Name,
		"Email":  p.Owner.Email,
		"Title":  p.Title,
		"City":   p.City,
		"Status": string(p.Status),
		"Notes":  p.ReviewNotes,
	}
}
