package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	// Environment
	RunMode string // Set via flag, not env
	AppEnv  string
	AppName string
	BaseURL string

	// MongoDB
	MongoURI    string
	MongoDbName string

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// JWT
	JwtSecret       string
	JwtTTL          time.Duration
	CaptchaTokenTTL time.Duration

	// Server
	ApiPort        string
	ServiceApiPort string
	CorsOrigins    []string

	// Access
	AdminEmails            []string
	AdminBootstrapPassword string // creates missing ADMIN_EMAILS accounts at start-up when set
	RoleCacheTTL           time.Duration

	// Cloudflare
	CloudflareTurnstileSecretKey string
	CloudflareSiteVerifyURL      string

	// Email providers, tried in order: Resend, SendGrid, SMTP
	ResendAPIKey     string
	ResendAPIURL     string
	SendGridAPIKey   string
	SendGridAPIURL   string
	SmtpHost         string
	SmtpPort         int
	SmtpUsername     string
	SmtpPassword     string
	EmailFromAddress string
	EmailTimeout     time.Duration

	// AWS S3
	AwsAccessKeyID     string
	AwsSecretAccessKey string
	AwsRegion          string
	AwsS3Bucket        string
	ImageBaseS3URL     string
	ImageMaxDimension  int
	ImageMaxSizeMB     int

	// Dashboard lists
	ListLimitDefault int
	ListLimitMax     int

	// Workflow
	WorkflowStrict bool
	WorkflowFile   string

	// Events
	RabbitMQURL            string
	RabbitMQEventsExchange string

	// Rate Limiting
	RateLimitSoftBucketSize int
	RateLimitSoftRefillRate int // tokens per second
	RateLimitHardBucketSize int
	RateLimitHardRefillRate int // tokens per second
}

// IsAdminEmail reports whether email is on the ADMIN_EMAILS allow-list.
func (c *Config) IsAdminEmail(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return false
	}
	for _, e := range c.AdminEmails {
		if e == email {
			return true
		}
	}
	return false
}

// Load configuration from environment variables (and .env when present).
// RunMode comes from the command line.
func Load(runMode string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{RunMode: runMode}

	getEnv := func(key, defaultValue string) string {
		if value, exists := os.LookupEnv(key); exists {
			return value
		}
		return defaultValue
	}

	getRequiredEnv := func(key string) (string, error) {
		value, exists := os.LookupEnv(key)
		if !exists || value == "" {
			return "", fmt.Errorf("missing required environment variable: %s", key)
		}
		return value, nil
	}

	getInt := func(key, defaultValue string) (int, error) {
		v, err := strconv.Atoi(getEnv(key, defaultValue))
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", key, err)
		}
		return v, nil
	}

	getSeconds := func(key, defaultValue string) (time.Duration, error) {
		v, err := strconv.ParseInt(getEnv(key, defaultValue), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", key, err)
		}
		return time.Duration(v) * time.Second, nil
	}

	var err error

	cfg.MongoURI, err = getRequiredEnv("MONGO_URI")
	if err != nil {
		return nil, err
	}
	cfg.JwtSecret, err = getRequiredEnv("JWT_SECRET")
	if err != nil {
		return nil, err
	}

	cfg.AppEnv = getEnv("APP_ENV", "production")
	cfg.AppName = getEnv("APP_NAME", "RealtyHub")
	cfg.BaseURL = strings.TrimRight(getEnv("APP_BASE_URL", "http://localhost:3000"), "/")
	cfg.MongoDbName = getEnv("MONGO_DB_NAME", "realtyhub")
	cfg.RedisAddr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	cfg.ApiPort = getEnv("API_PORT", "8080")
	cfg.ServiceApiPort = getEnv("SERVICE_API_PORT", "12345")
	cfg.CorsOrigins = splitList(getEnv("CORS_ORIGINS", "*"), false)
	cfg.AdminEmails = splitList(getEnv("ADMIN_EMAILS", ""), true)
	cfg.AdminBootstrapPassword = getEnv("ADMIN_BOOTSTRAP_PASSWORD", "")
	cfg.CloudflareTurnstileSecretKey = getEnv("CLOUDFLARE_TURNSTILE_SECRET_KEY", "")
	cfg.CloudflareSiteVerifyURL = getEnv("CLOUDFLARE_SITEVERIFY_URL", "https://challenges.cloudflare.com/turnstile/v0/siteverify")
	cfg.ResendAPIKey = getEnv("RESEND_API_KEY", "")
	cfg.ResendAPIURL = getEnv("RESEND_API_URL", "https://api.resend.com/emails")
	cfg.SendGridAPIKey = getEnv("SENDGRID_API_KEY", "")
	cfg.SendGridAPIURL = getEnv("SENDGRID_API_URL", "https://api.sendgrid.com/v3/mail/send")
	cfg.SmtpHost = getEnv("SMTP_HOST", "")
	cfg.SmtpUsername = getEnv("SMTP_USERNAME", "")
	cfg.SmtpPassword = getEnv("SMTP_PASSWORD", "")
	cfg.EmailFromAddress = getEnv("EMAIL_FROM_ADDRESS", "noreply@realtyhub.example.com")
	cfg.AwsAccessKeyID = getEnv("AWS_ACCESS_KEY_ID", "")
	cfg.AwsSecretAccessKey = getEnv("AWS_SECRET_ACCESS_KEY", "")
	cfg.AwsRegion = getEnv("AWS_REGION", "")
	cfg.AwsS3Bucket = getEnv("AWS_S3_BUCKET", "")
	cfg.ImageBaseS3URL = getEnv("IMAGE_BASE_S3_URL", "")
	cfg.WorkflowFile = getEnv("WORKFLOW_FILE", "")
	cfg.RabbitMQURL = getEnv("RABBITMQ_URL", "")
	cfg.RabbitMQEventsExchange = getEnv("RABBITMQ_EVENTS_EXCHANGE", "realtyhub.records")

	cfg.WorkflowStrict, err = strconv.ParseBool(getEnv("WORKFLOW_STRICT", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid WORKFLOW_STRICT: %w", err)
	}

	if cfg.RedisDB, err = getInt("REDIS_DB", "0"); err != nil {
		return nil, err
	}
	if cfg.SmtpPort, err = getInt("SMTP_PORT", "587"); err != nil {
		return nil, err
	}
	if cfg.ImageMaxDimension, err = getInt("IMAGE_MAX_DIMENSION", "2048"); err != nil {
		return nil, err
	}
	if cfg.ImageMaxSizeMB, err = getInt("IMAGE_MAX_SIZE_MB", "10"); err != nil {
		return nil, err
	}
	if cfg.ListLimitDefault, err = getInt("LIST_LIMIT_DEFAULT", "100"); err != nil {
		return nil, err
	}
	if cfg.ListLimitMax, err = getInt("LIST_LIMIT_MAX", "500"); err != nil {
		return nil, err
	}
	if cfg.ListLimitDefault > cfg.ListLimitMax {
		cfg.ListLimitDefault = cfg.ListLimitMax
	}

	if cfg.JwtTTL, err = getSeconds("JWT_TTL_SECONDS", "3600"); err != nil {
		return nil, err
	}
	if cfg.CaptchaTokenTTL, err = getSeconds("CAPTCHA_TOKEN_TTL", "1200"); err != nil {
		return nil, err
	}
	if cfg.RoleCacheTTL, err = getSeconds("ROLE_CACHE_TTL_SECONDS", "300"); err != nil {
		return nil, err
	}
	if cfg.EmailTimeout, err = getSeconds("EMAIL_TIMEOUT_SECONDS", "10"); err != nil {
		return nil, err
	}

	if cfg.RateLimitSoftBucketSize, err = getInt("RATE_LIMIT_SOFT_BUCKET_SIZE", "2"); err != nil {
		return nil, err
	}
	if cfg.RateLimitSoftRefillRate, err = getInt("RATE_LIMIT_SOFT_REFILL_RATE", "1"); err != nil {
		return nil, err
	}
	if cfg.RateLimitHardBucketSize, err = getInt("RATE_LIMIT_HARD_BUCKET_SIZE", "8"); err != nil {
		return nil, err
	}
	if cfg.RateLimitHardRefillRate, err = getInt("RATE_LIMIT_HARD_REFILL_RATE", "4"); err != nil {
		return nil, err
	}

	return cfg, nil
}

func splitList(s string, lower bool) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if lower {
			part = strings.ToLower(part)
		}
		out = append(out, part)
	}
	return out
}
