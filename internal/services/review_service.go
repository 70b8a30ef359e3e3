package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"realtyhub/backend/internal/auth"
	"realtyhub/backend/internal/db"
	"realtyhub/backend/internal/events"
	"realtyhub/backend/internal/models"
	"realtyhub/backend/internal/workflow"
)

// TransitionRequest is a reviewer's decision on a record.
type TransitionRequest struct {
	Status models.Status
	Notes  string
}

// IReviewService runs every state change of applications, leads and
// properties, including the audit, event and email side effects.
type IReviewService interface {
	Transition(ctx context.Context, session *auth.Session, kind models.RecordKind, id string, req TransitionRequest) (models.Record, error)
	AssignLead(ctx context.Context, session *auth.Session, leadID, assigneeUID string) (*models.Lead, error)
	Delete(ctx context.Context, session *auth.Session, kind models.RecordKind, id string) error
	SubmitApplication(ctx context.Context, session *auth.Session, app *models.Application) (*models.Application, error)
	SubmitLead(ctx context.Context, session *auth.Session, lead *models.Lead) (*models.Lead, error)
	CreateProperty(ctx context.Context, session *auth.Session, p *models.Property) (*models.Property, error)
	Workflow() *workflow.Table
}

// ReviewDeps groups the collaborators of the review service.
type ReviewDeps struct {
	Applications IApplicationService
	Leads        ILeadService
	Properties   IPropertyService
	Users        IUserService
	Audit        IAuditService
	Notifier     INotificationService
	Events       events.Publisher
	Workflow     *workflow.Table
}

type reviewService struct {
	deps   ReviewDeps
	stores map[models.RecordKind]RecordStore
	now    func() time.Time
}

// NewReviewService creates a new ReviewService.
func NewReviewService(deps ReviewDeps) IReviewService {
	if deps.Workflow == nil {
		deps.Workflow = workflow.Permissive()
	}
	if deps.Events == nil {
		deps.Events = events.NopPublisher{}
	}
	return &reviewService{
		deps:   deps,
		stores: map[models.RecordKind]RecordStore{
			models.KindApplication: deps.Applications,
			models.KindLead:        deps.Leads,
			models.KindProperty:    deps.Properties,
		},
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (s *reviewService) Workflow() *workflow.Table { return s.deps.Workflow }

// expected is the status a write is conditioned on. Only an enforced table
// guards against concurrent reviewers; otherwise the last writer wins.
func (s *reviewService) expected(from models.Status) models.Status {
	if s.deps.Workflow.IsPermissive() {
		return AnyStatus
	}
	return from
}

// ReviewPermission is what moving a record of kind requires.
func ReviewPermission(kind models.RecordKind) auth.Permission {
	switch kind {
	case models.KindApplication:
		return auth.PermApplicationsReview
	case models.KindLead:
		return auth.PermLeadsWrite
	default:
		return auth.PermPropertiesReview
	}
}

// DeletePermission is what deleting a record of kind requires.
func DeletePermission(kind models.RecordKind) auth.Permission {
	switch kind {
	case models.KindApplication:
		return auth.PermApplicationsDelete
	case models.KindLead:
		return auth.PermLeadsDelete
	default:
		return auth.PermPropertiesDelete
	}
}

// Collection returns the audit target name for kind.
func Collection(kind models.RecordKind) string {
	switch kind {
	case models.KindApplication:
		return db.ApplicationsCollection
	case models.KindLead:
		return db.LeadsCollection
	default:
		return db.PropertiesCollection
	}
}

func (s *reviewService) store(kind models.RecordKind) (RecordStore, error) {
	st, ok := s.stores[kind]
	if !ok || st == nil {
		return nil, fmt.Errorf("%w: unknown record kind %q", ErrValidation, kind)
	}
	return st, nil
}

func (s *reviewService) Transition(ctx context.Context, session *auth.Session, kind models.RecordKind, id string, req TransitionRequest) (models.Record, error) {
	st, err := s.store(kind)
	if err != nil {
		return nil, err
	}
	if !session.Can(ReviewPermission(kind)) {
		return nil, ErrForbidden
	}
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: id is required", ErrValidation)
	}

	current, err := st.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	from := current.CurrentStatus()
	if err := s.deps.Workflow.Validate(kind, from, req.Status); err != nil {
		return nil, err
	}

	change := models.StatusChange{
		To:       req.Status,
		Notes:    strings.TrimSpace(req.Notes),
		Reviewer: session.Actor(),
		At:       s.now(),
	}
	updated, err := st.UpdateStatus(ctx, current.RecordID(), s.expected(from), change)
	if err != nil {
		if errors.Is(err, ErrConflict) {
			log.Warn().Str("kind", string(kind)).Str("id", current.RecordID()).
				Str("from", string(from)).Str("to", string(req.Status)).
				Msg("Concurrent status change detected")
		}
		return nil, err
	}

	log.Info().Str("kind", string(kind)).Str("id", updated.RecordID()).
		Str("from", string(from)).Str("to", string(req.Status)).
		Str("actor", session.UserID).Msg("Status changed")

	events.PublishQuietly(ctx, s.deps.Events, events.RecordEvent{
		Kind:   kind,
		ID:     updated.RecordID(),
		Action: events.ActionStatus,
		Status: req.Status,
		From:   from,
		Actor:  session.UserID,
		At:     change.At,
	})
	s.deps.Audit.Log(ctx, session, string(kind)+".status", Collection(kind), updated.RecordID(), map[string]interface{}{
		"from":  string(from),
		"to":    string(req.Status),
		"notes": change.Notes,
	})
	if from != req.Status {
		if evt, ok := StatusEvent(kind, req.Status); ok {
			s.deps.Notifier.Notify(ctx, evt, updated.Recipient(), updated.TemplateData())
		}
	}
	return updated, nil
}

// AssignLead snapshots the assignee onto the lead. The lead also moves to
// "assigned" when the workflow allows it from its current status.
func (s *reviewService) AssignLead(ctx context.Context, session *auth.Session, leadID, assigneeUID string) (*models.Lead, error) {
	if !session.Can(auth.PermLeadsAssign) {
		return nil, ErrForbidden
	}
	if strings.TrimSpace(leadID) == "" || strings.TrimSpace(assigneeUID) == "" {
		return nil, fmt.Errorf("%w: id and assignee are required", ErrValidation)
	}

	lead, err := s.deps.Leads.FindByID(ctx, leadID)
	if err != nil {
		return nil, err
	}
	user, err := s.deps.Users.FindByID(ctx, assigneeUID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: assignee %s does not exist", ErrValidation, assigneeUID)
		}
		return nil, err
	}
	if user.Disabled {
		return nil, fmt.Errorf("%w: assignee %s is disabled", ErrValidation, assigneeUID)
	}

	from := lead.Status
	status := from
	if s.deps.Workflow.CanMove(models.KindLead, from, models.LeadAssigned) {
		status = models.LeadAssigned
	}

	at := s.now()
	assignee := user.Snapshot()
	updated, err := s.deps.Leads.Assign(ctx, lead.ID, s.expected(from), assignee, status, at)
	if err != nil {
		return nil, err
	}

	log.Info().Str("id", updated.ID).Str("assignee", assignee.UID).Str("actor", session.UserID).Msg("Lead assigned")

	events.PublishQuietly(ctx, s.deps.Events, events.RecordEvent{
		Kind:   models.KindLead,
		ID:     updated.ID,
		Action: events.ActionAssign,
		Status: updated.Status,
		From:   from,
		Actor:  session.UserID,
		At:     at,
	})
	meta := map[string]interface{}{"assignee": assignee.UID, "assignee_name": assignee.Name}
	if lead.AssignedTo != nil {
		meta["previous_assignee"] = lead.AssignedTo.UID
	}
	if from != updated.Status {
		meta["from"] = string(from)
		meta["to"] = string(updated.Status)
	}
	s.deps.Audit.Log(ctx, session, "lead.assign", Collection(models.KindLead), updated.ID, meta)
	s.deps.Notifier.Notify(ctx, EventLeadAssigned, models.Contact{Name: assignee.Name, Email: assignee.Email}, updated.TemplateData())
	return updated, nil
}

func (s *reviewService) Delete(ctx context.Context, session *auth.Session, kind models.RecordKind, id string) error {
	st, err := s.store(kind)
	if err != nil {
		return err
	}
	if !session.Can(DeletePermission(kind)) {
		return ErrForbidden
	}
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: id is required", ErrValidation)
	}
	if err := st.Delete(ctx, id); err != nil {
		return err
	}

	normalized, _ := normalizeID(id)
	log.Info().Str("kind", string(kind)).Str("id", normalized).Str("actor", session.UserID).Msg("Record deleted")
	events.PublishQuietly(ctx, s.deps.Events, events.RecordEvent{
		Kind:   kind,
		ID:     normalized,
		Action: events.ActionDeleted,
		Actor:  session.UserID,
	})
	s.deps.Audit.Log(ctx, session, string(kind)+".delete", Collection(kind), normalized, nil)
	return nil
}

func validateContact(c *models.Contact, requireEmail bool) error {
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.TrimSpace(c.Email)
	c.Phone = strings.TrimSpace(c.Phone)
	if c.Name == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if c.Email == "" && (requireEmail || c.Phone == "") {
		return fmt.Errorf("%w: email is required", ErrValidation)
	}
	if c.Email != "" {
		if _, err := mail.ParseAddress(c.Email); err != nil {
			return fmt.Errorf("%w: invalid email", ErrValidation)
		}
	}
	return nil
}

// created runs the side effects shared by every intake path.
func (s *reviewService) created(ctx context.Context, session *auth.Session, rec models.Record, meta map[string]interface{}) {
	kind := rec.RecordKind()
	events.PublishQuietly(ctx, s.deps.Events, events.RecordEvent{
		Kind:   kind,
		ID:     rec.RecordID(),
		Action: events.ActionCreated,
		Status: rec.CurrentStatus(),
		Actor:  session.Actor().UID,
	})
	s.deps.Audit.Log(ctx, session, string(kind)+".create", Collection(kind), rec.RecordID(), meta)
	s.deps.Notifier.Notify(ctx, ReceivedEvent(kind), rec.Recipient(), rec.TemplateData())
}

// SubmitApplication stores a public application. Status and timestamps are
// always server-assigned.
func (s *reviewService) SubmitApplication(ctx context.Context, session *auth.Session, in *models.Application) (*models.Application, error) {
	if session == nil {
		session = auth.PublicSession()
	}
	if err := validateContact(&in.Contact, true); err != nil {
		return nil, err
	}
	if in.Type == "" {
		in.Type = models.ApplicationTypeAgent
	}
	if !in.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown application type %q", ErrValidation, in.Type)
	}

	app := &models.Application{
		Contact:       in.Contact,
		Type:          in.Type,
		Company:       strings.TrimSpace(in.Company),
		LicenseNumber: strings.TrimSpace(in.LicenseNumber),
		Message:       strings.TrimSpace(in.Message),
		Status:        workflow.InitialStatus(models.KindApplication),
	}
	app, err := s.deps.Applications.Create(ctx, app)
	if err != nil {
		return nil, err
	}
	s.created(ctx, session, app, map[string]interface{}{"type": string(app.Type)})
	return app, nil
}

// SubmitLead stores a lead from a public form, or from the dashboard when
// session is signed in (then leads:write is required).
func (s *reviewService) SubmitLead(ctx context.Context, session *auth.Session, in *models.Lead) (*models.Lead, error) {
	if session == nil {
		session = auth.PublicSession()
	}
	if session.Authenticated() && !session.Can(auth.PermLeadsWrite) {
		return nil, ErrForbidden
	}
	if err := validateContact(&in.Contact, false); err != nil {
		return nil, err
	}
	if in.Source == "" {
		in.Source = models.LeadSourceContactForm
		if in.PropertyID != "" {
			in.Source = models.LeadSourcePropertyInquiry
		}
	}
	if !in.Source.Valid() {
		return nil, fmt.Errorf("%w: unknown lead source %q", ErrValidation, in.Source)
	}

	lead := &models.Lead{
		Contact: in.Contact,
		Source:  in.Source,
		Message: strings.TrimSpace(in.Message),
		Status:  workflow.InitialStatus(models.KindLead),
	}
	if in.PropertyID != "" {
		p, err := s.deps.Properties.FindPublic(ctx, in.PropertyID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, fmt.Errorf("%w: property %s is not available", ErrValidation, in.PropertyID)
			}
			return nil, err
		}
		lead.PropertyID = p.ID
	}

	lead, err := s.deps.Leads.Create(ctx, lead)
	if err != nil {
		return nil, err
	}
	s.created(ctx, session, lead, map[string]interface{}{"source": string(lead.Source)})
	return lead, nil
}

// CreateProperty stores a listing owned by the session's user, pending review.
func (s *reviewService) CreateProperty(ctx context.Context, session *auth.Session, in *models.Property) (*models.Property, error) {
	if !session.Authenticated() || !session.Can(auth.PermPropertiesWrite) {
		return nil, ErrForbidden
	}
	in.Title = strings.TrimSpace(in.Title)
	in.City = strings.TrimSpace(in.City)
	in.PropertyType = strings.TrimSpace(in.PropertyType)
	switch {
	case in.Title == "":
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	case in.City == "":
		return nil, fmt.Errorf("%w: city is required", ErrValidation)
	case in.PropertyType == "":
		return nil, fmt.Errorf("%w: property_type is required", ErrValidation)
	case in.Operation != models.OperationSale && in.Operation != models.OperationRent:
		return nil, fmt.Errorf("%w: operation must be sale or rent", ErrValidation)
	case in.Price != nil && in.Price.Value < 0:
		return nil, fmt.Errorf("%w: price cannot be negative", ErrValidation)
	}

	p := &models.Property{
		Owner:        session.Actor(),
		Title:        in.Title,
		Description:  strings.TrimSpace(in.Description),
		PropertyType: in.PropertyType,
		Operation:    in.Operation,
		Price:        in.Price,
		Address:      strings.TrimSpace(in.Address),
		City:         in.City,
		Bedrooms:     in.Bedrooms,
		Bathrooms:    in.Bathrooms,
		AreaM2:       in.AreaM2,
		Images:       []string{},
		Status:       workflow.InitialStatus(models.KindProperty),
	}
	p, err := s.deps.Properties.Create(ctx, p)
	if err != nil {
		return nil, err
	}
	s.created(ctx, session, p, map[string]interface{}{"title": p.Title})
	return p, nil
}
