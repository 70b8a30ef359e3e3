package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"realtyhub/backend/internal/models"
	"realtyhub/backend/internal/services"
)

// PropertyHandler serves the owner side of property listings.
type PropertyHandler struct {
	review     services.IReviewService
	properties services.IPropertyService
	media      services.IMediaService
}

// NewPropertyHandler creates a new PropertyHandler.
func NewPropertyHandler(review services.IReviewService, properties services.IPropertyService, media services.IMediaService) *PropertyHandler {
	return &PropertyHandler{review: review, properties: properties, media: media}
}

type uploadURLRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
}

type queueImageRequest struct {
	Key string `json:"object_key"`
}

// Create handles POST /api/properties
func (h *PropertyHandler) Create(c *gin.Context) {
	var p models.Property
	if err := c.ShouldBindJSON(&p); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	created, err := h.review.CreateProperty(c.Request.Context(), sessionOf(c), &p)
	if err != nil {
		sendServiceError(c, err)
		return
	}
	sendData(c, http.StatusCreated, created)
}

// Mine handles GET /api/my/properties
func (h *PropertyHandler) Mine(c *gin.Context) {
	f := recordFilter(c)
	f.OwnerID = sessionOf(c).UserID
	props, err := h.properties.List(c.Request.Context(), f)
	if err != nil {
		sendServiceError(c, err)
		return
	}
	sendData(c, http.StatusOK, props)
}

// UploadURL handles POST /api/properties/:id/upload-url
func (h *PropertyHandler) UploadURL(c *gin.Context) {
	var req uploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	target, err := h.media.UploadURL(c.Request.Context(), sessionOf(c), c.Param("id"), req.Filename, req.ContentType)
	if err != nil {
		sendServiceError(c, err)
		return
	}
	sendData(c, http.StatusOK, target)
}

// QueueImage handles POST /api/properties/:id/images
func (h *PropertyHandler) QueueImage(c *gin.Context) {
	var req queueImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	taskID, err := h.media.QueueImage(c.Request.Context(), sessionOf(c), c.Param("id"), req.Key)
	if err != nil {
		sendServiceError(c, err)
		return
	}
	sendData(c, http.StatusAccepted, gin.H{"task_id": taskID, "object_key": req.Key})
}
