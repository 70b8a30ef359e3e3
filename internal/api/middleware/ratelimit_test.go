package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realtyhub/backend/internal/config"
)

func setupRateLimitEngine(t *testing.T, cfg *config.Config, verifier *MockTurnstileVerifier) (*gin.Engine, *RateLimiterMiddleware) {
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	rl := NewRateLimiterMiddleware(ctx, cfg)
	r := gin.New()
	r.Use(CaptchaMiddleware(cfg, verifier))
	r.Use(rl.Limit())
	r.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	return r, rl
}

func doLimitedRequest(r *gin.Engine, ip string, headers map[string]string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/test", nil)
	req.RemoteAddr = ip + ":12345"
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimiterMiddleware_HardLimit(t *testing.T) {
	cfg := &config.Config{
		RateLimitHardRefillRate: 1,
		RateLimitHardBucketSize: 1,
		RateLimitSoftRefillRate: 10,
		RateLimitSoftBucketSize: 10,
	}
	router, _ := setupRateLimitEngine(t, cfg, new(MockTurnstileVerifier))

	assert.Equal(t, http.StatusOK, doLimitedRequest(router, "1.2.3.4", nil).Code)
	w := doLimitedRequest(router, "1.2.3.4", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	// other clients keep their own bucket
	assert.Equal(t, http.StatusOK, doLimitedRequest(router, "9.9.9.9", nil).Code)
}

func TestRateLimiterMiddleware_SoftLimitRequiresCaptcha(t *testing.T) {
	cfg := &config.Config{
		RateLimitHardRefillRate: 10,
		RateLimitHardBucketSize: 10,
		RateLimitSoftRefillRate: 1,
		RateLimitSoftBucketSize: 1,
	}
	router, _ := setupRateLimitEngine(t, cfg, new(MockTurnstileVerifier))

	assert.Equal(t, http.StatusOK, doLimitedRequest(router, "5.6.7.8", nil).Code)

	w := doLimitedRequest(router, "5.6.7.8", nil)
	assert.Equal(t, http.StatusTeapot, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, false, body["ok"])
	assert.Contains(t, body["error"], "Captcha validation required")
}

func TestRateLimiterMiddleware_HumanBypassesSoftLimit(t *testing.T) {
	cfg := &config.Config{
		RateLimitHardRefillRate: 10,
		RateLimitHardBucketSize: 10,
		RateLimitSoftRefillRate: 1,
		RateLimitSoftBucketSize: 1,
	}
	verifier := new(MockTurnstileVerifier)
	verifier.On("ValidateHumanToken", "human", "9.1.2.3", "").Return(true)
	router, _ := setupRateLimitEngine(t, cfg, verifier)

	assert.Equal(t, http.StatusOK, doLimitedRequest(router, "9.1.2.3", nil).Code)
	assert.Equal(t, http.StatusOK, doLimitedRequest(router, "9.1.2.3", map[string]string{"X-C-T": "human"}).Code)
	verifier.AssertNotCalled(t, "Verify")
}

func TestRateLimiterMiddleware_EvictIdle(t *testing.T) {
	cfg := &config.Config{RateLimitHardBucketSize: 1, RateLimitSoftBucketSize: 1}
	rl := NewRateLimiterMiddleware(context.Background(), cfg)

	rl.getClientLimiter("old")
	rl.getClientLimiter("fresh")
	rl.mu.Lock()
	rl.clients["old"].lastSeen = time.Now().Add(-time.Hour)
	rl.mu.Unlock()

	assert.Equal(t, 1, rl.evictIdle(time.Now()))
	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.Contains(t, rl.clients, "fresh")
	assert.NotContains(t, rl.clients, "old")
}
