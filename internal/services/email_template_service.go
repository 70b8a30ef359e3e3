package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	htmltemplate "html/template"
	"regexp"
	"strings"
	texttemplate "text/template"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"realtyhub/backend/internal/db"
	"realtyhub/backend/internal/models"
)

// DefaultLocale is used when no locale is requested or the requested one has no template.
const DefaultLocale = "en-US"

// Default email templates used as fallback when not found in database.
var defaultEmailTemplates = map[string]models.EmailTemplate{
	string(EventApplicationReceived): {
		Subject: "We received your {{.Type}} application",
		Body:    `<p>Hi {{.Name}},</p><p>Thanks for applying to {{.AppName}}. Our team will review your application and get back to you shortly.</p>`,
	},
	string(EventApplicationApproved): {
		Subject: "Your {{.AppName}} application was approved",
		Body:    `<p>Hi {{.Name}},</p><p>Good news: your application has been approved. You can now sign in at <a href="{{.BaseURL}}">{{.BaseURL}}</a>.</p>{{if .Notes}}<p>{{.Notes}}</p>{{end}}`,
	},
	string(EventApplicationRejected): {
		Subject: "Update on your {{.AppName}} application",
		Body:    `<p>Hi {{.Name}},</p><p>After review we are unable to approve your application at this time.</p>{{if .Notes}}<p>{{.Notes}}</p>{{end}}`,
	},
	string(EventApplicationMoreInfo): {
		Subject: "We need more information about your application",
		Body:    `<p>Hi {{.Name}},</p><p>Our reviewers need a bit more information before deciding on your application.</p>{{if .Notes}}<p>{{.Notes}}</p>{{end}}<p>Simply reply to this email.</p>`,
	},
	string(EventLeadReceived): {
		Subject: "Thanks for contacting {{.AppName}}",
		Body:    `<p>Hi {{.Name}},</p><p>We received your message and an agent will contact you soon.</p>`,
	},
	string(EventLeadAssigned): {
		Subject: "New lead assigned: {{.Name}}",
		Body:    `<p>Hi {{.AssigneeName}},</p><p>A lead has been assigned to you.</p><ul><li>Name: {{.Name}}</li><li>Email: {{.Email}}</li><li>Phone: {{.Phone}}</li></ul>{{if .Message}}<p>{{.Message}}</p>{{end}}<p><a href="{{.BaseURL}}/admin/leads/{{.ID}}">Open lead</a></p>`,
	},
	string(EventPropertyReceived): {
		Subject: "Your listing \"{{.Title}}\" is under review",
		Body:    `<p>Hi {{.Name}},</p><p>Your property in {{.City}} was submitted and is waiting for review.</p>`,
	},
	string(EventPropertyApproved): {
		Subject: "Your listing \"{{.Title}}\" is live",
		Body:    `<p>Hi {{.Name}},</p><p>Your property has been approved and is now visible at <a href="{{.BaseURL}}/properties/{{.ID}}">{{.BaseURL}}/properties/{{.ID}}</a>.</p>{{if .Notes}}<p>{{.Notes}}</p>{{end}}`,
	},
	string(EventPropertyRejected): {
		Subject: "Your listing \"{{.Title}}\" needs changes",
		Body:    `<p>Hi {{.Name}},</p><p>Your property could not be approved.</p>{{if .Notes}}<p>{{.Notes}}</p>{{end}}`,
	},
}

// RenderedEmail is a template filled with data.
type RenderedEmail struct {
	Subject string
	HTML    string
	Text    string
}

// IEmailTemplateService defines the interface for email template operations.
type IEmailTemplateService interface {
	GetTemplate(ctx context.Context, templateID, locale string) (*models.EmailTemplate, error)
	Render(ctx context.Context, templateID, locale string, data map[string]interface{}) (*RenderedEmail, error)
	SaveTemplate(ctx context.Context, template *models.EmailTemplate) error
	DeleteTemplate(ctx context.Context, templateID, locale string) error
}

// EmailTemplateService handles operations related to email templates.
type EmailTemplateService struct {
	db *mongo.Database
}

// NewEmailTemplateService creates a new instance of EmailTemplateService.
func NewEmailTemplateService(database *mongo.Database) *EmailTemplateService {
	return &EmailTemplateService{db: database}
}

// GetTemplate looks up (templateID, locale), then (templateID, DefaultLocale),
// then the built-in default.
func (s *EmailTemplateService) GetTemplate(ctx context.Context, templateID, locale string) (*models.EmailTemplate, error) {
	if locale == "" {
		locale = DefaultLocale
	}
	locales := []string{locale}
	if locale != DefaultLocale {
		locales = append(locales, DefaultLocale)
	}

	if s.db != nil {
		collection := s.db.Collection(db.EmailTemplatesCollection)
		for _, l := range locales {
			var template models.EmailTemplate
			err := collection.FindOne(ctx, bson.M{"template_id": templateID, "locale": l}).Decode(&template)
			if err == nil {
				return &template, nil
			}
			if !errors.Is(err, mongo.ErrNoDocuments) {
				return nil, fmt.Errorf("error retrieving template: %w", err)
			}
		}
	}

	if def, ok := defaultEmailTemplates[templateID]; ok {
		def.TemplateID = templateID
		def.Locale = DefaultLocale
		return &def, nil
	}
	return nil, fmt.Errorf("%w: template %s (locale: %s)", ErrNotFound, templateID, locale)
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// Render fills the subject as plain text and the body as HTML, escaping data.
func (s *EmailTemplateService) Render(ctx context.Context, templateID, locale string, data map[string]interface{}) (*RenderedEmail, error) {
	tpl, err := s.GetTemplate(ctx, templateID, locale)
	if err != nil {
		return nil, err
	}

	subjectTpl, err := texttemplate.New("subject").Option("missingkey=zero").Parse(tpl.Subject)
	if err != nil {
		return nil, fmt.Errorf("invalid subject in template %s: %w", templateID, err)
	}
	var subject bytes.Buffer
	if err := subjectTpl.Execute(&subject, data); err != nil {
		return nil, fmt.Errorf("failed to render subject of %s: %w", templateID, err)
	}

	bodyTpl, err := htmltemplate.New("body").Option("missingkey=zero").Parse(tpl.Body)
	if err != nil {
		return nil, fmt.Errorf("invalid body in template %s: %w", templateID, err)
	}
	var body bytes.Buffer
	if err := bodyTpl.Execute(&body, data); err != nil {
		return nil, fmt.Errorf("failed to render body of %s: %w", templateID, err)
	}

	return &RenderedEmail{
		Subject: strings.TrimSpace(strings.ReplaceAll(subject.String(), "\n", " ")),
		HTML:    body.String(),
		Text:    htmlToText(body.String()),
	}, nil
}

func htmlToText(body string) string {
	s := strings.NewReplacer("</p>", "\n\n", "<br>", "\n", "<br/>", "\n", "</li>", "\n").Replace(body)
	s = tagPattern.ReplaceAllString(s, "")
	return strings.TrimSpace(html.UnescapeString(s))
}

// SaveTemplate upserts a template by (template_id, locale).
func (s *EmailTemplateService) SaveTemplate(ctx context.Context, template *models.EmailTemplate) error {
	if template.TemplateID == "" {
		return fmt.Errorf("%w: template_id is required", ErrValidation)
	}
	if template.Locale == "" {
		template.Locale = DefaultLocale
	}
	if _, err := texttemplate.New("subject").Parse(template.Subject); err != nil {
		return fmt.Errorf("%w: subject: %v", ErrValidation, err)
	}
	if _, err := htmltemplate.New("body").Parse(template.Body); err != nil {
		return fmt.Errorf("%w: body: %v", ErrValidation, err)
	}
	template.GenIDIfEmpty()
	template.UpdatedAt = time.Now().UTC()

	collection := s.db.Collection(db.EmailTemplatesCollection)
	filter := bson.M{"template_id": template.TemplateID, "locale": template.Locale}
	update := bson.M{
		"$set": bson.M{
			"subject":    template.Subject,
			"body":       template.Body,
			"updated_at": template.UpdatedAt,
		},
		"$setOnInsert": bson.M{"_id": template.ID},
	}
	if _, err := collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true)); err != nil {
		return fmt.Errorf("error saving template: %w", err)
	}
	return nil
}

// DeleteTemplate removes a stored template; the built-in default applies again.
func (s *EmailTemplateService) DeleteTemplate(ctx context.Context, templateID, locale string) error {
	collection := s.db.Collection(db.EmailTemplatesCollection)
	res, err := collection.DeleteOne(ctx, bson.M{"template_id": templateID, "locale": locale})
	if err != nil {
		return fmt.Errorf("error deleting template: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
