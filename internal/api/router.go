package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"realtyhub/backend/internal/api/handlers"
	"realtyhub/backend/internal/api/middleware"
	"realtyhub/backend/internal/auth"
	"realtyhub/backend/internal/captcha"
	"realtyhub/backend/internal/config"
	"realtyhub/backend/internal/email"
	"realtyhub/backend/internal/models"
	"realtyhub/backend/internal/realtime"
	"realtyhub/backend/internal/services"
)

// RouterDeps are the services the HTTP API is built from.
type RouterDeps struct {
	Config       *config.Config
	Review       services.IReviewService
	Applications services.IApplicationService
	Leads        services.ILeadService
	Properties   services.IPropertyService
	Users        services.IUserService
	Roles        services.IRoleService
	Audit        services.IAuditService
	Media        services.IMediaService
	Captcha      captcha.ITurnstileVerifier
	Hub          *realtime.Hub // nil disables the live feed
}

// SetupRouter configures and returns the main Gin engine. ctx bounds the
// rate limiter's background cleanup.
func SetupRouter(ctx context.Context, deps RouterDeps) *gin.Engine {
	cfg := deps.Config

	r := gin.New()
	r.Use(middleware.Recoverer(), middleware.RequestLogger())
	r.Use(middleware.CORSMiddleware(cfg.CorsOrigins))

	rateLimiter := middleware.NewRateLimiterMiddleware(ctx, cfg)
	var accounts middleware.AccountChecker
	if deps.Users != nil {
		accounts = deps.Users
	}
	requireSession := middleware.RequireSession(cfg.JwtSecret, deps.Roles, accounts)
	can := middleware.RequirePermission

	intakeHandler := handlers.NewIntakeHandler(deps.Review, deps.Properties)
	authHandler := handlers.NewAuthHandler(cfg, deps.Users, deps.Roles)
	propertyHandler := handlers.NewPropertyHandler(deps.Review, deps.Properties, deps.Media)
	recordHandler := handlers.NewRecordHandler(deps.Review, deps.Applications, deps.Leads, deps.Properties)
	adminHandler := handlers.NewAdminHandler(deps.Audit, deps.Roles, deps.Users)

	v1 := r.Group("/api")
	{
		// Public routes
		v1.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, handlers.APIResponse{OK: true, Data: "pong"})
		})
		v1.GET("/properties", intakeHandler.ListProperties)
		v1.GET("/properties/:id", intakeHandler.GetProperty)

		// Public forms: captcha token first, then the token buckets.
		forms := v1.Group("/")
		forms.Use(middleware.CaptchaMiddleware(cfg, deps.Captcha), rateLimiter.Limit())
		{
			forms.POST("/auth/login", authHandler.Login)
			forms.POST("/applications", intakeHandler.SubmitApplication)
			forms.POST("/leads", intakeHandler.SubmitLead)
		}

		// Authenticated routes (any role)
		authRequired := v1.Group("/")
		authRequired.Use(requireSession)
		{
			authRequired.GET("/me", authHandler.Me)
			authRequired.DELETE("/account", authHandler.DeleteAccount)
			authRequired.GET("/my/properties", propertyHandler.Mine)
			authRequired.POST("/properties", can(auth.PermPropertiesWrite), propertyHandler.Create)
			authRequired.POST("/properties/:id/upload-url", propertyHandler.UploadURL)
			authRequired.POST("/properties/:id/images", propertyHandler.QueueImage)
		}

		// Admin routes, gated per permission
		admin := v1.Group("/admin")
		admin.Use(requireSession)
		{
			admin.GET("/applications", can(auth.PermApplicationsRead), recordHandler.ListApplications)
			admin.PATCH("/applications", can(auth.PermApplicationsReview), recordHandler.UpdateStatus(models.KindApplication))
			admin.DELETE("/applications", can(auth.PermApplicationsDelete), recordHandler.Delete(models.KindApplication))

			admin.GET("/leads", can(auth.PermLeadsRead), recordHandler.ListLeads)
			admin.POST("/leads", can(auth.PermLeadsWrite), recordHandler.CreateLead)
			admin.PATCH("/leads", can(auth.PermLeadsWrite), recordHandler.UpdateStatus(models.KindLead))
			admin.DELETE("/leads", can(auth.PermLeadsDelete), recordHandler.Delete(models.KindLead))
			admin.POST("/leads/assign", can(auth.PermLeadsAssign), recordHandler.AssignLead)

			admin.GET("/properties", can(auth.PermPropertiesReview), recordHandler.ListProperties)
			admin.PATCH("/properties", can(auth.PermPropertiesReview), recordHandler.UpdateStatus(models.KindProperty))
			admin.DELETE("/properties", can(auth.PermPropertiesDelete), recordHandler.Delete(models.KindProperty))

			admin.GET("/audit-logs", can(auth.PermAuditRead), adminHandler.ListAuditLogs)
			admin.GET("/workflow", recordHandler.Workflow)

			admin.GET("/permissions", can(auth.PermRolesManage), adminHandler.ListPermissions)
			admin.GET("/roles", can(auth.PermRolesManage), adminHandler.ListRoles)
			admin.PUT("/roles", can(auth.PermRolesManage), adminHandler.UpsertRole)
			admin.DELETE("/roles/:name", can(auth.PermRolesManage), adminHandler.DeleteRole)

			admin.GET("/users", can(auth.PermLeadsAssign), adminHandler.ListUsers)
			admin.POST("/users", can(auth.PermRolesManage), adminHandler.CreateUser)

			if deps.Hub != nil {
				hub := deps.Hub
				admin.GET("/ws", func(c *gin.Context) {
					hub.ServeWS(c.Writer, c.Request, middleware.SessionFrom(c).UserID)
				})
			}
		}
	}

	return r
}

// SetupServiceRouter configures the internal service API used by operators
// and integration tests.
func SetupServiceRouter(rdb *redis.Client, shutdownChan chan<- struct{}) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recoverer(), middleware.RequestLogger())

	r.POST("/api", func(c *gin.Context) {
		var req struct {
			Method    string          `json:"method"`
			Arguments json.RawMessage `json:"arguments"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, handlers.APIResponse{Error: "Invalid request format"})
			return
		}

		switch req.Method {
		case "shutdown":
			log.Info().Msg("Shutdown requested via service API")
			c.JSON(http.StatusOK, handlers.APIResponse{OK: true, Data: "Shutdown initiated"})
			select {
			case shutdownChan <- struct{}{}:
			default:
				log.Warn().Msg("Shutdown already signaled")
			}
		case "getTestEmail":
			var args []string // [template_id, email]
			if err := json.Unmarshal(req.Arguments, &args); err != nil || len(args) != 2 {
				c.JSON(http.StatusBadRequest, handlers.APIResponse{Error: "Invalid arguments: expected JSON array [templateID, email]"})
				return
			}
			data, err := waitForTestEmail(c.Request.Context(), rdb, email.MockEmailKey(args[1], args[0]))
			if err != nil {
				status := http.StatusInternalServerError
				if err == redis.Nil {
					status = http.StatusNotFound
				}
				c.JSON(status, handlers.APIResponse{Error: fmt.Sprintf("Test email not available: %v", err)})
				return
			}
			c.JSON(http.StatusOK, handlers.APIResponse{OK: true, Data: data})
		default:
			c.JSON(http.StatusNotFound, handlers.APIResponse{Error: fmt.Sprintf("Unknown service method: %s", req.Method)})
		}
	})
	return r
}

// waitForTestEmail polls Redis for a captured email for up to two seconds and
// deletes it once read.
func waitForTestEmail(ctx context.Context, rdb *redis.Client, key string) (map[string]interface{}, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var raw string
	var err error
	for i := 0; i < 10; i++ {
		raw, err = rdb.Get(ctx, key).Result()
		if err == nil {
			rdb.Del(ctx, key)
			break
		}
		if err != redis.Nil {
			return nil, err
		}
		time.Sleep(200 * time.Millisecond)
	}
	if err != nil {
		return nil, err
	}

	var data map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, fmt.Errorf("failed to parse stored email: %w", err)
	}
	return data, nil
}
