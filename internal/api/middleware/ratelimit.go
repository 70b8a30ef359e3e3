package middleware

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"realtyhub/backend/internal/config"
)

const (
	limiterCleanupInterval = 10 * time.Minute
	limiterIdleTTL         = 30 * time.Minute
)

type clientLimiter struct {
	softLimiter *rate.Limiter
	hardLimiter *rate.Limiter
	lastSeen    time.Time
}

// RateLimiterMiddleware keeps a soft and a hard token bucket per client.
// The hard bucket always applies; the soft one only for clients that have not
// passed the captcha.
type RateLimiterMiddleware struct {
	clients map[string]*clientLimiter
	mu      sync.Mutex
	cfg     *config.Config
}

// NewRateLimiterMiddleware creates the limiter and starts its cleanup loop,
// which stops when ctx is cancelled.
func NewRateLimiterMiddleware(ctx context.Context, cfg *config.Config) *RateLimiterMiddleware {
	rm := &RateLimiterMiddleware{
		clients: make(map[string]*clientLimiter),
		cfg:     cfg,
	}
	go rm.cleanupClients(ctx)
	return rm
}

func getClientIdentifier(c *gin.Context) string {
	return fmt.Sprintf("%s|%s", c.ClientIP(), c.GetHeader("X-BFP"))
}

func (rm *RateLimiterMiddleware) getClientLimiter(identifier string) *clientLimiter {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	limiter, exists := rm.clients[identifier]
	if !exists {
		limiter = &clientLimiter{
			softLimiter: rate.NewLimiter(rate.Limit(rm.cfg.RateLimitSoftRefillRate), rm.cfg.RateLimitSoftBucketSize),
			hardLimiter: rate.NewLimiter(rate.Limit(rm.cfg.RateLimitHardRefillRate), rm.cfg.RateLimitHardBucketSize),
		}
		rm.clients[identifier] = limiter
	}
	limiter.lastSeen = time.Now()
	return limiter
}

func (rm *RateLimiterMiddleware) cleanupClients(ctx context.Context) {
	ticker := time.NewTicker(limiterCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := rm.evictIdle(time.Now()); n > 0 {
				log.Debug().Int("removed", n).Msg("Rate limiter cleanup")
			}
		}
	}
}

func (rm *RateLimiterMiddleware) evictIdle(now time.Time) int {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	count := 0
	for id, client := range rm.clients {
		if now.Sub(client.lastSeen) > limiterIdleTTL {
			delete(rm.clients, id)
			count++
		}
	}
	return count
}

// Limit returns the Gin handler. Run it after CaptchaMiddleware.
func (rm *RateLimiterMiddleware) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientKey := getClientIdentifier(c)
		limiter := rm.getClientLimiter(clientKey)

		if !limiter.hardLimiter.Allow() {
			log.Warn().Str("client", clientKey).Str("path", c.FullPath()).Msg("Hard rate limit exceeded")
			abortJSON(c, http.StatusTooManyRequests, "Rate limit exceeded")
			return
		}

		if !c.GetBool(ContextKeyIsHumanVerified) && !limiter.softLimiter.Allow() {
			log.Info().Str("client", clientKey).Str("path", c.FullPath()).Msg("Soft rate limit exceeded, captcha required")
			abortJSON(c, http.StatusTeapot, "Captcha validation required")
			return
		}

		c.Next()
	}
}
