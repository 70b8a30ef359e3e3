package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"realtyhub/backend/internal/models"
	"realtyhub/backend/internal/services"
)

// IntakeHandler serves the public website: application and lead forms and
// the approved property catalogue.
type IntakeHandler struct {
	review     services.IReviewService
	properties services.IPropertyService
}

// NewIntakeHandler creates a new IntakeHandler.
func NewIntakeHandler(review services.IReviewService, properties services.IPropertyService) *IntakeHandler {
	return &IntakeHandler{review: review, properties: properties}
}

// SubmitApplication handles POST /api/applications
func (h *IntakeHandler) SubmitApplication(c *gin.Context) {
	var app models.Application
	if err := c.ShouldBindJSON(&app); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	created, err := h.review.SubmitApplication(c.Request.Context(), nil, &app)
	if err != nil {
		sendServiceError(c, err)
		return
	}
	sendData(c, http.StatusCreated, gin.H{"id": created.ID, "status": created.Status})
}

// SubmitLead handles POST /api/leads
func (h *IntakeHandler) SubmitLead(c *gin.Context) {
	var lead models.Lead
	if err := c.ShouldBindJSON(&lead); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	created, err := h.review.SubmitLead(c.Request.Context(), nil, &lead)
	if err != nil {
		sendServiceError(c, err)
		return
	}
	sendData(c, http.StatusCreated, gin.H{"id": created.ID, "status": created.Status})
}

// ListProperties handles GET /api/properties. Only approved listings are returned.
func (h *IntakeHandler) ListProperties(c *gin.Context) {
	props, err := h.properties.ListPublic(c.Request.Context(), services.RecordFilter{
		Q:     c.Query("q"),
		Limit: queryLimit(c),
	})
	if err != nil {
		sendServiceError(c, err)
		return
	}
	sendData(c, http.StatusOK, props)
}

// GetProperty handles GET /api/properties/:id
func (h *IntakeHandler) GetProperty(c *gin.Context) {
	p, err := h.properties.FindPublic(c.Request.Context(), c.Param("id"))
	if err != nil {
		sendServiceError(c, err)
		return
	}
	sendData(c, http.StatusOK, p)
}
