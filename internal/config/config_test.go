package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	t.Setenv("DB_URI", "mongodb://db:27017/blog")
	t.Setenv("MONGO_MAX_POOL_SIZE", "20")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("ACCESS_TOKEN_EXPIRY", "30m")
	t.Setenv("REFRESH_TOKEN_EXPIRY", "7d")

	cfg := Load()

	assert.Equal(t, "mongodb://db:27017/blog", cfg.Database.URI)
	assert.Equal(t, 20, cfg.Database.MaxPoolSize)
	assert.Equal(t, 10, cfg.Database.ConnectTimeoutSec)
	assert.True(t, cfg.MinIO.UseSSL)
	assert.Equal(t, "secret", cfg.JWT.Secret)
	assert.Equal(t, 30*time.Minute, cfg.JWT.AccessTokenExpiry)
	assert.Equal(t, 7*24*time.Hour, cfg.JWT.RefreshTokenExpiry)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "DB_URI", "ACCESS_TOKEN_EXPIRY", "REFRESH_TOKEN_EXPIRY", "LOG_ENV"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "mongodb://localhost/mentored", cfg.Database.URI)
	assert.Equal(t, 24*time.Hour, cfg.JWT.AccessTokenExpiry)
	assert.Equal(t, 14*24*time.Hour, cfg.JWT.RefreshTokenExpiry)
	assert.Equal(t, "dev", cfg.Log.Env)
}

func TestValidate(t *testing.T) {
	cfg := &AppConfig{
		Database: DatabaseConfig{URI: "mongodb://localhost"},
		MinIO:    MinIOConfig{Endpoint: "minio:9000"},
	}
	err := cfg.Validate()
	assert.ErrorContains(t, err, "JWT_SECRET")
	assert.ErrorContains(t, err, "MINIO_BUCKET")

	cfg.JWT.Secret = "s"
	cfg.MinIO.Bucket = "covers"
	assert.NoError(t, cfg.Validate())
}

func TestGetEnv(t *testing.T) {
	key := "TEST_ENV_VAR"
	t.Setenv(key, "value")

	assert.Equal(t, "value", getEnv(key, "default"))
	assert.Equal(t, "default", getEnv("NON_EXISTENT", "default"))
}

func TestGetEnvBool(t *testing.T) {
	key := "TEST_BOOL_VAR"

	t.Setenv(key, "true")
	assert.True(t, getEnvBool(key, false))

	t.Setenv(key, "false")
	assert.False(t, getEnvBool(key, true))

	t.Setenv(key, "invalid")
	assert.True(t, getEnvBool(key, true))

	t.Setenv(key, "")
	assert.True(t, getEnvBool(key, true))
}

func TestGetEnvInt(t *testing.T) {
	key := "TEST_INT_VAR"

	t.Setenv(key, "123")
	assert.Equal(t, 123, getEnvInt(key, 0))

	t.Setenv(key, "invalid")
	assert.Equal(t, 10, getEnvInt(key, 10))

	t.Setenv(key, "")
	assert.Equal(t, 10, getEnvInt(key, 10))
}

func TestGetEnvDuration(t *testing.T) {
	key := "TEST_DURATION_VAR"
	def := time.Minute

	tests := []struct {
		in   string
		want time.Duration
	}{
		{"1d", 24 * time.Hour},
		{"14d", 14 * 24 * time.Hour},
		{"90m", 90 * time.Minute},
		{"30s", 30 * time.Second},
		{"45", 45 * time.Second},
		{"0d", def},
		{"-5m", def},
		{"xd", def},
		{"soon", def},
		{"", def},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Setenv(key, tt.in)
			assert.Equal(t, tt.want, getEnvDuration(key, def))
		})
	}
}
