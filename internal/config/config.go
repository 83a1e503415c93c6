package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// DatabaseConfig holds MongoDB connection settings.
type DatabaseConfig struct {
	URI string
	// Name overrides the database named in URI.
	Name                string
	ConnectTimeoutSec   int
	OperationTimeoutSec int
	MaxPoolSize         int
}

// JWTConfig holds token signing settings.
type JWTConfig struct {
	Secret             string
	Issuer             string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
}

// MinIOConfig holds object storage settings for MinIO. Cover images are
// disabled when Endpoint is empty.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type LogConfig struct {
	Env   string
	Level string
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppName          string
	AppHost          string
	Port             string
	CORSAllowOrigins string
	Database         DatabaseConfig
	JWT              JWTConfig
	MinIO            MinIOConfig
	Log              LogConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppName:          getEnv("APP_NAME", "blogapi"),
		AppHost:          getEnv("APP_HOST", "localhost:3000"),
		Port:             getEnv("PORT", "3000"),
		CORSAllowOrigins: getEnv("CORS_ALLOW_ORIGINS", "*"),
		Database: DatabaseConfig{
			URI:                 getEnv("DB_URI", "mongodb://localhost/mentored"),
			Name:                getEnv("DB_NAME", ""),
			ConnectTimeoutSec:   getEnvInt("MONGO_CONNECT_TIMEOUT_SEC", 10),
			OperationTimeoutSec: getEnvInt("MONGO_OPERATION_TIMEOUT_SEC", 0),
			MaxPoolSize:         getEnvInt("MONGO_MAX_POOL_SIZE", 100),
		},
		JWT: JWTConfig{
			Secret:             getEnv("JWT_SECRET", ""),
			Issuer:             getEnv("JWT_ISSUER", ""),
			AccessTokenExpiry:  getEnvDuration("ACCESS_TOKEN_EXPIRY", 24*time.Hour),
			RefreshTokenExpiry: getEnvDuration("REFRESH_TOKEN_EXPIRY", 14*24*time.Hour),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		Log: LogConfig{
			Env:   getEnv("LOG_ENV", "dev"),
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}
}

// Validate reports settings the server cannot start without.
func (c *AppConfig) Validate() error {
	var errs []error
	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.Database.URI == "" {
		errs = append(errs, errors.New("DB_URI is required"))
	}
	if c.MinIO.Endpoint != "" && c.MinIO.Bucket == "" {
		errs = append(errs, errors.New("MINIO_BUCKET is required when MINIO_ENDPOINT is set"))
	}
	return errors.Join(errs...)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

// getEnvDuration accepts Go durations ("90m") plus a day suffix ("14d").
// A bare number is read as seconds.
func getEnvDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	if d, ok := parseDuration(v); ok {
		return d
	}
	return def
}

func parseDuration(v string) (time.Duration, bool) {
	if days, ok := strings.CutSuffix(v, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n <= 0 {
			return 0, false
		}
		return time.Duration(n) * 24 * time.Hour, true
	}
	if n, err := strconv.Atoi(v); err == nil {
		if n <= 0 {
			return 0, false
		}
		return time.Duration(n) * time.Second, true
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, false
	}
	return d, true
}
