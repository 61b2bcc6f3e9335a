package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Backend names accepted by the *_STORE variables.
const (
	UserStoreMongo    = "mongo"
	UserStorePostgres = "postgres"

	BlobStoreGridFS = "gridfs"
	BlobStoreMinio  = "minio"

	SessionStoreRedis  = "redis"
	SessionStoreMemory = "memory"
)

// Config holds all service configuration loaded from environment variables.
type Config struct {
	Port     string
	AppEnv   string
	LogLevel string

	SecretKey    string
	CookieSecure bool

	MongoURI string
	MongoDB  string

	UserStore   string
	PostgresDSN string

	BlobStore      string
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	SessionStore  string
	RedisAddr     string
	RedisPassword string

	CorsAllowedOrigins []string
}

// Load reads a local .env file when present, then the process environment.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:               getenv("PORT", "8080"),
		AppEnv:             getenv("APP_ENV", "development"),
		LogLevel:           getenv("LOG_LEVEL", ""),
		SecretKey:          getenv("SECRET_KEY", ""),
		CookieSecure:       getenv("COOKIE_SECURE", "false") == "true",
		MongoURI:           getenv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:            getenv("MONGO_DB", "snapshare"),
		UserStore:          getenv("USER_STORE", UserStoreMongo),
		PostgresDSN:        getenv("POSTGRES_DSN", ""),
		BlobStore:          getenv("BLOB_STORE", BlobStoreGridFS),
		MinioEndpoint:      getenv("MINIO_ENDPOINT", "minio:9000"),
		MinioAccessKey:     getenv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey:     getenv("MINIO_SECRET_KEY", ""),
		MinioBucket:        getenv("MINIO_BUCKET", "snapshare-images"),
		MinioUseSSL:        getenv("MINIO_USE_SSL", "false") == "true",
		SessionStore:       getenv("SESSION_STORE", SessionStoreRedis),
		RedisAddr:          getenv("REDIS_ADDR", "redis:6379"),
		RedisPassword:      getenv("REDIS_PASSWORD", ""),
		CorsAllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
	}
}

// Validate reports every missing or inconsistent setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.SecretKey == "" {
		errs = append(errs, errors.New("SECRET_KEY is required"))
	}

	switch c.UserStore {
	case UserStoreMongo:
	case UserStorePostgres:
		if c.PostgresDSN == "" {
			errs = append(errs, errors.New("POSTGRES_DSN is required when USER_STORE=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown USER_STORE %q", c.UserStore))
	}

	switch c.BlobStore {
	case BlobStoreGridFS:
	case BlobStoreMinio:
		if c.MinioAccessKey == "" || c.MinioSecretKey == "" {
			errs = append(errs, errors.New("MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required when BLOB_STORE=minio"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown BLOB_STORE %q", c.BlobStore))
	}

	switch c.SessionStore {
	case SessionStoreRedis, SessionStoreMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown SESSION_STORE %q", c.SessionStore))
	}

	return errors.Join(errs...)
}

// Production reports whether APP_ENV selects production behaviour.
func (c *Config) Production() bool {
	switch strings.ToLower(c.AppEnv) {
	case "prod", "production":
		return true
	}
	return false
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if item := strings.TrimSpace(part); item != "" {
			out = append(out, item)
		}
	}
	return out
}
