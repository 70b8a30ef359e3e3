package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"realtyhub/backend/internal/api/middleware"
	"realtyhub/backend/internal/auth"
	"realtyhub/backend/internal/models"
	"realtyhub/backend/internal/services"
)

// APIResponse is the envelope of every JSON response.
type APIResponse struct {
	OK    bool        `json:"ok"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

func sendData(c *gin.Context, status int, data interface{}) {
	c.JSON(status, APIResponse{OK: true, Data: data})
}

func sendError(c *gin.Context, status int, message string) {
	c.JSON(status, APIResponse{OK: false, Error: message})
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrInvalidStatus):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrIllegalTransition),
		errors.Is(err, services.ErrConflict),
		errors.Is(err, services.ErrEmailExists):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// sendServiceError writes err with the mapped status. Server errors keep
// their message so operators can see what failed.
func sendServiceError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		log.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
	}
	sendError(c, status, err.Error())
}

// sessionOf returns the request session, or the public actor for open routes.
func sessionOf(c *gin.Context) *auth.Session {
	if s := middleware.SessionFrom(c); s != nil {
		return s
	}
	return auth.PublicSession()
}

// recordFilter reads the dashboard list query parameters.
func recordFilter(c *gin.Context) services.RecordFilter {
	f := services.RecordFilter{
		Status:     models.Status(strings.TrimSpace(c.Query("status"))),
		Q:          strings.TrimSpace(c.Query("q")),
		AssignedTo: strings.TrimSpace(c.Query("assigned_to")),
		OwnerID:    strings.TrimSpace(c.Query("owner_id")),
	}
	f.Limit = queryLimit(c)
	return f
}

// queryLimit returns the limit query parameter, or 0 when absent or invalid.
func queryLimit(c *gin.Context) int {
	n, err := strconv.Atoi(c.Query("limit"))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

type idBody struct {
	ID string `json:"id"`
}

// idFromQueryOrBody accepts ?id= or a JSON body {"id": "..."}.
func idFromQueryOrBody(c *gin.Context) string {
	if id := strings.TrimSpace(c.Query("id")); id != "" {
		return id
	}
	var body idBody
	if c.Request.ContentLength != 0 {
		_ = c.ShouldBindJSON(&body)
	}
	return strings.TrimSpace(body.ID)
}
