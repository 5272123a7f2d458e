package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("JWT_REFRESH_SECRET", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.Port)
	assert.Equal(t, "storefront", cfg.MongoDB)
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTokenTTL)
	assert.Equal(t, "s3cret.refresh", cfg.JWTRefreshSecret)
	assert.False(t, cfg.MongoTransactions)
	assert.Empty(t, cfg.EmailProvider)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("JWT_REFRESH_SECRET", "other")
	t.Setenv("PORT", "9090")
	t.Setenv("MONGO_TRANSACTIONS", "true")
	t.Setenv("ACCESS_TOKEN_TTL", "5m")
	t.Setenv("EMAIL_PROVIDER", "postmark")
	t.Setenv("POSTMARK_API_TOKEN", "pm-token")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.True(t, cfg.MongoTransactions)
	assert.Equal(t, 5*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, "other", cfg.JWTRefreshSecret)
	assert.Equal(t, "postmark", cfg.EmailProvider)
	assert.Equal(t, "pm-token", cfg.PostmarkAPIToken)
}

func TestLoadFromDotEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	os.Unsetenv("JWT_SECRET")
	t.Setenv("MONGO_DB", "")
	os.Unsetenv("MONGO_DB")

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("JWT_SECRET=fromfile\nMONGO_DB=shop\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "fromfile", cfg.JWTSecret)
	assert.Equal(t, "shop", cfg.MongoDB)

	// godotenv writes into the process environment.
	os.Unsetenv("JWT_SECRET")
	os.Unsetenv("MONGO_DB")
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.EqualError(t, err, "JWT_SECRET is required")
}
