package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"realtyhub/backend/internal/auth"
	"realtyhub/backend/internal/services"
)

// AdminHandler serves audit logs, the role editor and dashboard accounts.
type AdminHandler struct {
	audit services.IAuditService
	roles services.IRoleService
	users services.IUserService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(audit services.IAuditService, roles services.IRoleService, users services.IUserService) *AdminHandler {
	return &AdminHandler{audit: audit, roles: roles, users: users}
}

type roleRequest struct {
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
}

// ListAuditLogs handles GET /api/admin/audit-logs
func (h *AdminHandler) ListAuditLogs(c *gin.Context) {
	entries, err := h.audit.List(c.Request.Context(), services.AuditFilter{
		Action:   strings.TrimSpace(c.Query("action")),
		ActorID:  strings.TrimSpace(c.Query("actor")),
		TargetID: strings.TrimSpace(c.Query("target_id")),
		Limit:    queryLimit(c),
	})
	if err != nil {
		sendServiceError(c, err)
		return
	}
	sendData(c, http.StatusOK, entries)
}

// ListPermissions handles GET /api/admin/permissions
func (h *AdminHandler) ListPermissions(c *gin.Context) {
	sendData(c, http.StatusOK, auth.Strings(auth.AllPermissions))
}

// ListRoles handles GET /api/admin/roles
func (h *AdminHandler) ListRoles(c *gin.Context) {
	roles, err := h.roles.ListRoles(c.Request.Context())
	if err != nil {
		sendServiceError(c, err)
		return
	}
	sendData(c, http.StatusOK, roles)
}

// UpsertRole handles PUT /api/admin/roles
func (h *AdminHandler) UpsertRole(c *gin.Context) {
	var req roleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	role, err := h.roles.UpsertRole(c.Request.Context(), sessionOf(c), req.Name, req.Permissions)
	if err != nil {
		sendServiceError(c, err)
		return
	}
	sendData(c, http.StatusOK, role)
}

// DeleteRole handles DELETE /api/admin/roles/:name
func (h *AdminHandler) DeleteRole(c *gin.Context) {
	name := c.Param("name")
	if err := h.roles.DeleteRole(c.Request.Context(), sessionOf(c), name); err != nil {
		sendServiceError(c, err)
		return
	}
	sendData(c, http.StatusOK, gin.H{"name": name, "deleted": true})
}

// ListUsers handles GET /api/admin/users, used by the lead assignment picker.
func (h *AdminHandler) ListUsers(c *gin.Context) {
	users, err := h.users.List(c.Request.Context(), strings.TrimSpace(c.Query("role")), queryLimit(c))
	if err != nil {
		sendServiceError(c, err)
		return
	}
	sendData(c, http.StatusOK, users)
}

// CreateUser handles POST /api/admin/users
func (h *AdminHandler) CreateUser(c *gin.Context) {
	var in services.NewUserInput
	if err := c.ShouldBindJSON(&in); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	user, err := h.users.CreateUser(c.Request.Context(), sessionOf(c), in)
	if err != nil {
		sendServiceError(c, err)
		return
	}
	sendData(c, http.StatusCreated, user)
}
