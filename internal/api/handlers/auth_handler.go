package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"realtyhub/backend/internal/auth"
	"realtyhub/backend/internal/config"
	"realtyhub/backend/internal/services"
)

// AuthHandler issues tokens and serves the caller's own account.
type AuthHandler struct {
	cfg   *config.Config
	users services.IUserService
	roles services.IRoleService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(cfg *config.Config, users services.IUserService, roles services.IRoleService) *AuthHandler {
	return &AuthHandler{cfg: cfg, users: users, roles: roles}
}

// LoginArgs is the body of POST /api/auth/login.
type LoginArgs struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionView struct {
	UserID      string   `json:"uid"`
	Email       string   `json:"email"`
	Name        string   `json:"name"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var args LoginArgs
	if err := c.ShouldBindJSON(&args); err != nil || strings.TrimSpace(args.Email) == "" || args.Password == "" {
		sendError(c, http.StatusBadRequest, "email and password are required")
		return
	}
	ctx := c.Request.Context()

	user, err := h.users.Authenticate(ctx, args.Email, args.Password)
	if err != nil {
		log.Info().Str("email", args.Email).Msg("Login attempt failed")
		sendServiceError(c, err)
		return
	}
	token, err := auth.GenerateJWT(user, h.cfg.JwtSecret, h.cfg.JwtTTL)
	if err != nil {
		sendServiceError(c, err)
		return
	}
	role, perms, err := h.roles.PermissionsFor(ctx, user.Role, user.Email)
	if err != nil {
		sendServiceError(c, err)
		return
	}

	sendData(c, http.StatusOK, gin.H{
		"token":      token,
		"expires_at": time.Now().Add(h.cfg.JwtTTL).UTC(),
		"user": sessionView{
			UserID:      user.ID,
			Email:       user.Email,
			Name:        user.Name,
			Role:        role,
			Permissions: perms,
		},
	})
}

// Me handles GET /api/me
func (h *AuthHandler) Me(c *gin.Context) {
	s := sessionOf(c)
	sendData(c, http.StatusOK, sessionView{
		UserID:      s.UserID,
		Email:       s.Email,
		Name:        s.Name,
		Role:        s.Role,
		Permissions: s.PermissionList(),
	})
}

// DeleteAccount handles DELETE /api/account. Managers may pass ?id= to
// remove someone else's account.
func (h *AuthHandler) DeleteAccount(c *gin.Context) {
	s := sessionOf(c)
	id := idFromQueryOrBody(c)
	if id == "" {
		id = s.UserID
	}
	if err := h.users.DeleteAccountData(c.Request.Context(), s, id); err != nil {
		sendServiceError(c, err)
		return
	}
	sendData(c, http.StatusOK, gin.H{"id": id, "deleted": true})
}
