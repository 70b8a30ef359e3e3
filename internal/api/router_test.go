package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realtyhub/backend/internal/auth"
	"realtyhub/backend/internal/config"
	"realtyhub/backend/internal/models"
	"realtyhub/backend/internal/services"
)

const routerSecret = "router-secret"

type builtInRoles struct {
	services.IRoleService
}

func (builtInRoles) PermissionsFor(_ context.Context, role, _ string) (string, []string, error) {
	return role, auth.Strings(auth.BuiltInRoles()[role]), nil
}

type emptyApplications struct {
	services.IApplicationService
}

func (emptyApplications) List(context.Context, services.RecordFilter) ([]models.Application, error) {
	return []models.Application{}, nil
}

type knownUsers struct {
	services.IUserService
	active map[string]bool
}

func (u knownUsers) IsActive(_ context.Context, uid string) (bool, error) {
	return u.active[uid], nil
}

func newTestRouter(t *testing.T) *gin.Engine {
	return newTestRouterWithUsers(t, nil)
}

func newTestRouterWithUsers(t *testing.T, users services.IUserService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return SetupRouter(ctx, RouterDeps{
		Config:       &config.Config{JwtSecret: routerSecret, JwtTTL: time.Hour},
		Roles:        builtInRoles{},
		Users:        users,
		Applications: emptyApplications{},
	})
}

func bearer(t *testing.T, role string) string {
	t.Helper()
	tok, err := auth.GenerateJWT(&models.User{Base: models.Base{ID: "0000000U01"}, Email: "u@example.com", Role: role}, routerSecret, time.Minute)
	require.NoError(t, err)
	return "Bearer " + tok
}

func serve(r http.Handler, method, path, authz string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestPing(t *testing.T) {
	w := serve(newTestRouter(t), http.MethodGet, "/api/ping", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true,"data":"pong"}`, w.Body.String())
}

func TestAdminRoutes_AuthAndPermissions(t *testing.T) {
	r := newTestRouter(t)

	w := serve(r, http.MethodGet, "/api/admin/applications", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(r, http.MethodGet, "/api/admin/applications", "Bearer not-a-token")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Agents hold no application permissions.
	w = serve(r, http.MethodGet, "/api/admin/applications", bearer(t, auth.RoleAgent))
	assert.Equal(t, http.StatusForbidden, w.Code)
	var env struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.False(t, env.OK)
	assert.NotEmpty(t, env.Error)

	w = serve(r, http.MethodGet, "/api/admin/applications", bearer(t, auth.RoleReviewer))
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(r, http.MethodPut, "/api/admin/roles", bearer(t, auth.RoleReviewer))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAdminRoutes_RejectInactiveAccounts(t *testing.T) {
	r := newTestRouterWithUsers(t, knownUsers{active: map[string]bool{"0000000U01": false}})
	w := serve(r, http.MethodGet, "/api/admin/applications", bearer(t, auth.RoleReviewer))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	r = newTestRouterWithUsers(t, knownUsers{active: map[string]bool{"0000000U01": true}})
	w = serve(r, http.MethodGet, "/api/admin/applications", bearer(t, auth.RoleReviewer))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServiceRouter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	shutdown := make(chan struct{}, 1)
	r := SetupServiceRouter(nil, shutdown)

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := post(`{"method":"shutdown"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	select {
	case <-shutdown:
	default:
		t.Fatal("shutdown was not signaled")
	}

	w = post(`{"method":"getTestEmail","arguments":["only-one"]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = post(`{"method":"nope"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = post(`not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
