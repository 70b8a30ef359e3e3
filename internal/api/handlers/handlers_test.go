package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"realtyhub/backend/internal/api/middleware"
	"realtyhub/backend/internal/auth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// sessionWith builds a verified session holding perms.
func sessionWith(uid, role string, perms ...auth.Permission) *auth.Session {
	return auth.NewSession(&auth.Claims{UserID: uid, Email: uid + "@example.com", Name: "User " + uid, Role: role}, role, auth.Strings(perms))
}

func reviewer() *auth.Session {
	return sessionWith("0000000R01", auth.RoleReviewer, auth.BuiltInRoles()[auth.RoleReviewer]...)
}

// newEngine returns a router whose requests carry session, as if
// RequireSession had run. A nil session leaves the request anonymous.
func newEngine(session *auth.Session) *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if session != nil {
			c.Set(middleware.ContextKeySession, session)
		}
		c.Next()
	})
	return r
}

func doJSON(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			_ = json.NewEncoder(&buf).Encode(body)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type envelope struct {
	OK    bool            `json:"ok"`
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	env := decode(t, w)
	require.True(t, env.OK, env.Error)
	require.NoError(t, json.Unmarshal(env.Data, out))
}

