package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"realtyhub/backend/internal/auth"
)

// ContextKeySession holds the *auth.Session in the Gin context.
const ContextKeySession = "session"

// PermissionResolver turns a token's role and email into the effective role
// and its permission list.
type PermissionResolver interface {
	PermissionsFor(ctx context.Context, role, email string) (string, []string, error)
}

// AccountChecker reports whether the account behind a token may still act.
type AccountChecker interface {
	IsActive(ctx context.Context, userID string) (bool, error)
}

// RequireSession validates the bearer token and stores the resulting session.
// The websocket endpoint cannot send headers from browsers, so a "token"
// query parameter is accepted as well. Tokens of deleted or disabled accounts
// are rejected when accounts is set.
func RequireSession(jwtSecret string, resolver PermissionResolver, accounts AccountChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			abortJSON(c, http.StatusUnauthorized, "Authorization header required")
			return
		}

		claims, err := auth.ValidateJWT(tokenString, jwtSecret)
		if err != nil {
			abortJSON(c, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		if accounts != nil {
			active, err := accounts.IsActive(c.Request.Context(), claims.UserID)
			if err != nil {
				log.Error().Err(err).Str("uid", claims.UserID).Msg("Failed to check account")
				abortJSON(c, http.StatusInternalServerError, "Failed to check account")
				return
			}
			if !active {
				abortJSON(c, http.StatusUnauthorized, "Account is no longer active")
				return
			}
		}

		role, perms, err := resolver.PermissionsFor(c.Request.Context(), claims.Role, claims.Email)
		if err != nil {
			log.Error().Err(err).Str("uid", claims.UserID).Str("role", claims.Role).Msg("Failed to resolve permissions")
			abortJSON(c, http.StatusInternalServerError, "Failed to resolve permissions")
			return
		}

		c.Set(ContextKeySession, auth.NewSession(claims, role, perms))
		c.Next()
	}
}

// RequirePermission aborts with 403 unless the session holds every permission.
// Assumes RequireSession runs first.
func RequirePermission(perms ...auth.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := SessionFrom(c)
		if session == nil {
			abortJSON(c, http.StatusUnauthorized, "Authentication required")
			return
		}
		if !session.Can(perms...) {
			abortJSON(c, http.StatusForbidden, "Insufficient permissions")
			return
		}
		c.Next()
	}
}

// SessionFrom returns the session stored by RequireSession, or nil.
func SessionFrom(c *gin.Context) *auth.Session {
	v, exists := c.Get(ContextKeySession)
	if !exists {
		return nil
	}
	session, _ := v.(*auth.Session)
	return session
}

func bearerToken(c *gin.Context) (string, bool) {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.Split(header, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
			return "", false
		}
		return parts[1], true
	}
	if token := c.Query("token"); token != "" {
		return token, true
	}
	return "", false
}

func abortJSON(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"ok": false, "error": msg})
}
