package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoad_MissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET_KEY")
}

func TestLoad_ShortSecret(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "too-short")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 32 bytes")
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", testSecret)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 15*time.Minute, cfg.JWT.AccessExpiry)
	assert.Equal(t, 7*24*time.Hour, cfg.JWT.RefreshExpiry)
	assert.Equal(t, 15*time.Minute, cfg.Reset.TokenExpiry)
	assert.Equal(t, 24*time.Hour, cfg.Reset.SweepInterval)
	assert.Equal(t, "redis", cfg.Revocation.Backend)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", testSecret)
	t.Setenv("JWT_ACCESS_EXPIRY", "30m")
	t.Setenv("RESET_TOKEN_EXPIRY", "5m")
	t.Setenv("REVOCATION_BACKEND", "dynamodb")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 30*time.Minute, cfg.JWT.AccessExpiry)
	assert.Equal(t, 5*time.Minute, cfg.Reset.TokenExpiry)
	assert.Equal(t, "dynamodb", cfg.Revocation.Backend)
}

func TestLoad_InvalidRevocationBackend(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", testSecret)
	t.Setenv("REVOCATION_BACKEND", "memcached")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REVOCATION_BACKEND")
}
