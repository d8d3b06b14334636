package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SESSION_STORE", "")
	t.Setenv("GIN_MODE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, SessionStoreMemory, cfg.SessionStore)
	assert.Equal(t, 1800*time.Second, cfg.SessionRotateAfter)
	assert.Equal(t, 30*time.Minute, cfg.SessionIdleTimeout)
	assert.Equal(t, "pp_session", cfg.SessionCookieName)
	assert.True(t, cfg.TrustProxyHeaders)
	assert.Equal(t, 24*time.Hour, cfg.JobRecordTTL)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SESSION_ROTATE_SECONDS", "60")
	t.Setenv("TRUST_PROXY_HEADERS", "false")
	t.Setenv("BASE_URL", "https://pawsitive.example/")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, time.Minute, cfg.SessionRotateAfter)
	assert.False(t, cfg.TrustProxyHeaders)
	assert.Equal(t, "https://pawsitive.example", cfg.BaseURL)
}

func TestValidateReleaseRequiresSecret(t *testing.T) {
	cfg := &Config{
		GinMode:            "release",
		SessionStore:       SessionStoreMemory,
		SessionRotateAfter: time.Minute,
		SessionIdleTimeout: time.Minute,
		DatabaseDSN:        "user:pass@tcp(localhost:3306)/pets",
	}
	assert.Error(t, cfg.Validate())

	cfg.SessionSecret = "short"
	assert.Error(t, cfg.Validate())

	cfg.SessionSecret = "0123456789abcdef0123456789abcdef"
	assert.NoError(t, cfg.Validate())
}

func TestValidateUnknownStore(t *testing.T) {
	cfg := &Config{
		SessionStore:       "memcached",
		SessionRotateAfter: time.Minute,
		SessionIdleTimeout: time.Minute,
	}
	assert.Error(t, cfg.Validate())
}

func TestAllowedOrigins(t *testing.T) {
	cfg := &Config{CORSAllowedOrigins: " https://a.example , ,https://b.example"}
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins())

	cfg = &Config{BaseURL: "https://pawsitive.example"}
	assert.Equal(t, []string{"https://pawsitive.example"}, cfg.AllowedOrigins())
}
