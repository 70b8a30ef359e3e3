package captcha

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

const humanTokenIssuer = "realtyhub-captcha"

// ITurnstileVerifier verifies Cloudflare Turnstile answers and issues short-lived
// "human" tokens so a visitor solves the challenge once per session.
type ITurnstileVerifier interface {
	Verify(ctx context.Context, token, remoteIP string) (bool, error)
	GenerateHumanToken(ip, fingerprint string, ttl time.Duration) (string, error)
	ValidateHumanToken(tokenString, ip, fingerprint string) bool
}

// CloudflareResponse is the siteverify response body.
type CloudflareResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
	Hostname   string   `json:"hostname"`
	Action     string   `json:"action"`
}

type turnstileVerifier struct {
	secretKey  string
	verifyURL  string
	signingKey []byte
	httpClient *http.Client
}

// NewTurnstileVerifier creates a verifier. An empty secretKey disables the
// remote check (every answer passes), which is how local development runs.
func NewTurnstileVerifier(secretKey, verifyURL, signingKey string) ITurnstileVerifier {
	return &turnstileVerifier{
		secretKey:  secretKey,
		verifyURL:  verifyURL,
		signingKey: []byte(signingKey),
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

func (v *turnstileVerifier) Verify(ctx context.Context, token, remoteIP string) (bool, error) {
	if v.secretKey == "" {
		log.Warn().Msg("captcha: Turnstile secret key not configured, skipping verification")
		return true, nil
	}
	if token == "" {
		return false, nil
	}

	form := map[string]string{"secret": v.secretKey, "response": token}
	if remoteIP != "" {
		form["remoteip"] = remoteIP
	}
	body, _ := json.Marshal(form)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("failed to create turnstile request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to contact turnstile service: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return false, fmt.Errorf("failed to read turnstile response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("turnstile verification failed with status %d", resp.StatusCode)
	}

	var cf CloudflareResponse
	if err := json.Unmarshal(raw, &cf); err != nil {
		return false, fmt.Errorf("failed to parse turnstile response: %w", err)
	}
	if !cf.Success {
		log.Info().Strs("codes", cf.ErrorCodes).Msg("captcha: Turnstile rejected answer")
	}
	return cf.Success, nil
}

// HumanTokenClaims binds a solved challenge to the visitor's IP and browser fingerprint.
type HumanTokenClaims struct {
	IP          string `json:"ip"`
	Fingerprint string `json:"bfp"`
	jwt.RegisteredClaims
}

func (v *turnstileVerifier) GenerateHumanToken(ip, fingerprint string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &HumanTokenClaims{
		IP:          ip,
		Fingerprint: fingerprint,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    humanTokenIssuer,
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.signingKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign human token: %w", err)
	}
	return s, nil
}

func (v *turnstileVerifier) ValidateHumanToken(tokenString, ip, fingerprint string) bool {
	if tokenString == "" {
		return false
	}
	claims := &HumanTokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return v.signingKey, nil
	}, jwt.WithIssuer(humanTokenIssuer))
	if err != nil || !token.Valid {
		log.Debug().Err(err).Msg("captcha: invalid human token")
		return false
	}
	if claims.IP != ip || claims.Fingerprint != fingerprint {
		log.Debug().Str("ip", ip).Msg("captcha: human token bound to another client")
		return false
	}
	return true
}
