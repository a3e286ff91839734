package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_parseEnv(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_SECRET", "env-access")
	t.Setenv("ACCESS_TOKEN_EXPIRY", "86400")
	t.Setenv("REFRESH_TOKEN_SECRET", "env-refresh")
	t.Setenv("REFRESH_TOKEN_EXPIRY", "168h")
	t.Setenv("DEFAULT_AVATAR_URL", "https://cdn.example/default.png")
	t.Setenv("MONGO_URI", "mongodb://mongo:27017/app")
	t.Setenv("NODE_ENV", "production")
	t.Setenv("PORT", "8080")
	t.Setenv("BCRYPT_COST", "11")

	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)

	assert.Equal(t, "env-access", cfg.AccessTokenSecret)
	assert.Equal(t, 24*time.Hour, cfg.AccessTokenValidityDuration)
	assert.Equal(t, "env-refresh", cfg.RefreshTokenSecret)
	assert.Equal(t, 168*time.Hour, cfg.RefreshTokenValidityDuration)
	assert.Equal(t, "https://cdn.example/default.png", cfg.DefaultAvatarURL)
	assert.Equal(t, "mongodb://mongo:27017/app", cfg.DatabaseDSN)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, ":8080", cfg.ServerAddr)
	assert.Equal(t, 11, cfg.BcryptCost)
}

func Test_parseEnv_ExplicitNamesWinOverAliases(t *testing.T) {
	t.Setenv("MONGO_URI", "mongodb://alias")
	t.Setenv("DATABASE_DSN", "postgres://explicit")
	t.Setenv("NODE_ENV", "production")
	t.Setenv("ENVIRONMENT", "staging")

	cfg := &Config{}
	parseEnv(cfg)

	assert.Equal(t, "postgres://explicit", cfg.DatabaseDSN)
	assert.Equal(t, "staging", cfg.Environment)
}

func Test_parseEnv_BadDurationPanics(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_EXPIRY", "whenever")
	require.Panics(t, func() { parseEnv(&Config{}) })
}

func Test_parseDuration(t *testing.T) {
	d, err := parseDuration("90")
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d)

	d, err = parseDuration("2h")
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, d)

	_, err = parseDuration("x")
	assert.Error(t, err)
}
