package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"realtyhub/backend/internal/captcha"
	"realtyhub/backend/internal/config"
)

// ContextKeyIsHumanVerified holds the captcha status in the Gin context.
const ContextKeyIsHumanVerified = "isHumanVerified"

// CaptchaMiddleware handles Turnstile challenges (X-C-V) and previously issued
// human tokens (X-C-T). It never aborts; the rate limiter reads the result.
func CaptchaMiddleware(cfg *config.Config, verifier captcha.ITurnstileVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		fingerprint := c.GetHeader("X-BFP")
		humanToken := c.GetHeader("X-C-T")
		challenge := c.GetHeader("X-C-V")

		isHuman := false

		if humanToken != "" && verifier.ValidateHumanToken(humanToken, clientIP, fingerprint) {
			isHuman = true
		}

		if !isHuman && challenge != "" {
			verified, err := verifier.Verify(c.Request.Context(), challenge, clientIP)
			if err != nil {
				log.Warn().Err(err).Str("ip", clientIP).Msg("Turnstile verification failed")
			} else if verified {
				isHuman = true
				newToken, tokenErr := verifier.GenerateHumanToken(clientIP, fingerprint, cfg.CaptchaTokenTTL)
				if tokenErr != nil {
					log.Error().Err(tokenErr).Msg("Failed to issue X-C-T token")
				} else {
					c.Header("X-C-T", newToken)
				}
			}
		}

		c.Set(ContextKeyIsHumanVerified, isHuman)
		c.Next()
	}
}
