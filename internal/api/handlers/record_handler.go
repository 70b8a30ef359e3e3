package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"realtyhub/backend/internal/models"
	"realtyhub/backend/internal/services"
)

// RecordHandler serves the admin dashboard lists and review actions for
// applications, leads and properties.
type RecordHandler struct {
	review       services.IReviewService
	applications services.IApplicationService
	leads        services.ILeadService
	properties   services.IPropertyService
}

// NewRecordHandler creates a new RecordHandler.
func NewRecordHandler(review services.IReviewService, applications services.IApplicationService, leads services.ILeadService, properties services.IPropertyService) *RecordHandler {
	return &RecordHandler{review: review, applications: applications, leads: leads, properties: properties}
}

// statusUpdateRequest is the PATCH body. Contact fields sent alongside are
// ignored; notifications always use the stored record.
type statusUpdateRequest struct {
	ID     string        `json:"id"`
	Status models.Status `json:"status"`
	Notes  string        `json:"notes"`
}

type assignRequest struct {
	ID         string `json:"id"`
	AssigneeID string `json:"assignee_id"`
}

// ListApplications handles GET /api/admin/applications
func (h *RecordHandler) ListApplications(c *gin.Context) {
	apps, err := h.applications.List(c.Request.Context(), recordFilter(c))
	if err != nil {
		sendServiceError(c, err)
		return
	}
	sendData(c, http.StatusOK, apps)
}

// ListLeads handles GET /api/admin/leads
func (h *RecordHandler) ListLeads(c *gin.Context) {
	leads, err := h.leads.List(c.Request.Context(), recordFilter(c))
	if err != nil {
		sendServiceError(c, err)
		return
	}
	sendData(c, http.StatusOK, leads)
}

// ListProperties handles GET /api/admin/properties
func (h *RecordHandler) ListProperties(c *gin.Context) {
	props, err := h.properties.List(c.Request.Context(), recordFilter(c))
	if err != nil {
		sendServiceError(c, err)
		return
	}
	sendData(c, http.StatusOK, props)
}

// UpdateStatus returns the PATCH handler for kind.
func (h *RecordHandler) UpdateStatus(kind models.RecordKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req statusUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			sendError(c, http.StatusBadRequest, "Invalid request body")
			return
		}
		if strings.TrimSpace(req.ID) == "" || req.Status == "" {
			sendError(c, http.StatusBadRequest, "id and status are required")
			return
		}

		rec, err := h.review.Transition(c.Request.Context(), sessionOf(c), kind, req.ID, services.TransitionRequest{
			Status: req.Status,
			Notes:  req.Notes,
		})
		if err != nil {
			sendServiceError(c, err)
			return
		}
		sendData(c, http.StatusOK, rec)
	}
}

// Delete returns the DELETE handler for kind. The id comes from the query or the body.
func (h *RecordHandler) Delete(kind models.RecordKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := idFromQueryOrBody(c)
		if id == "" {
			sendError(c, http.StatusBadRequest, "id is required")
			return
		}
		if err := h.review.Delete(c.Request.Context(), sessionOf(c), kind, id); err != nil {
			sendServiceError(c, err)
			return
		}
		sendData(c, http.StatusOK, gin.H{"id": id, "deleted": true})
	}
}

// CreateLead handles POST /api/admin/leads for leads entered from the dashboard.
func (h *RecordHandler) CreateLead(c *gin.Context) {
	var lead models.Lead
	if err := c.ShouldBindJSON(&lead); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	created, err := h.review.SubmitLead(c.Request.Context(), sessionOf(c), &lead)
	if err != nil {
		sendServiceError(c, err)
		return
	}
	sendData(c, http.StatusCreated, created)
}

// AssignLead handles POST /api/admin/leads/assign
func (h *RecordHandler) AssignLead(c *gin.Context) {
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.ID) == "" || strings.TrimSpace(req.AssigneeID) == "" {
		sendError(c, http.StatusBadRequest, "id and assignee_id are required")
		return
	}
	lead, err := h.review.AssignLead(c.Request.Context(), sessionOf(c), req.ID, req.AssigneeID)
	if err != nil {
		sendServiceError(c, err)
		return
	}
	sendData(c, http.StatusOK, lead)
}

// Workflow handles GET /api/admin/workflow
func (h *RecordHandler) Workflow(c *gin.Context) {
	table := h.review.Workflow()
	sendData(c, http.StatusOK, gin.H{
		"strict":      !table.IsPermissive(),
		"transitions": table.Describe(),
	})
}
