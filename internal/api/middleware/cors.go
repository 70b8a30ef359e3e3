package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORSMiddleware allows the configured origins. An empty list or "*" allows
// any origin. Requests from other origins are rejected with 403.
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Content-Length", "Accept-Encoding", "Authorization", "Accept", "Cache-Control", "X-Requested-With", "X-BFP", "X-C-V", "X-C-T"},
		ExposeHeaders: []string{"X-C-T"},
		MaxAge:        12 * time.Hour,
	}

	var origins []string
	for _, o := range allowedOrigins {
		if o == "*" {
			origins = nil
			break
		}
		origins = append(origins, o)
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}
