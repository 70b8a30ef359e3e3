package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("JWT_SECRET", "test-secret")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load("api")
	require.NoError(t, err)

	assert.Equal(t, "api", cfg.RunMode)
	assert.Equal(t, "8080", cfg.ApiPort)
	assert.Equal(t, 100, cfg.ListLimitDefault)
	assert.Equal(t, 500, cfg.ListLimitMax)
	assert.False(t, cfg.WorkflowStrict)
	assert.Equal(t, time.Hour, cfg.JwtTTL)
	assert.Equal(t, "https://api.resend.com/emails", cfg.ResendAPIURL)
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("MONGO_URI", "")
	t.Setenv("JWT_SECRET", "x")

	_, err := Load("api")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MONGO_URI")
}

func TestLoad_InvalidNumber(t *testing.T) {
	setRequired(t)
	t.Setenv("LIST_LIMIT_MAX", "lots")

	_, err := Load("api")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid LIST_LIMIT_MAX")
}

func TestLoad_InvalidWorkflowStrict(t *testing.T) {
	setRequired(t)
	t.Setenv("WORKFLOW_STRICT", "maybe")

	_, err := Load("api")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WORKFLOW_STRICT")
}

func TestLoad_DefaultLimitClampedToMax(t *testing.T) {
	setRequired(t)
	t.Setenv("LIST_LIMIT_DEFAULT", "900")
	t.Setenv("LIST_LIMIT_MAX", "200")

	cfg, err := Load("api")
	require.NoError(t, err)
	assert.Equal(t, 200, cfg.ListLimitDefault)
}

func TestIsAdminEmail(t *testing.T) {
	setRequired(t)
	t.Setenv("ADMIN_EMAILS", " Boss@Example.com, ops@example.com ,")
	t.Setenv("ADMIN_BOOTSTRAP_PASSWORD", "first-login-pass")

	cfg, err := Load("api")
	require.NoError(t, err)

	assert.Equal(t, []string{"boss@example.com", "ops@example.com"}, cfg.AdminEmails)
	assert.Equal(t, "first-login-pass", cfg.AdminBootstrapPassword)
	assert.True(t, cfg.IsAdminEmail("BOSS@example.com"))
	assert.True(t, cfg.IsAdminEmail(" ops@example.com"))
	assert.False(t, cfg.IsAdminEmail("someone@example.com"))
	assert.False(t, cfg.IsAdminEmail(""))
}
