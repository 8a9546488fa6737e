package config

import (
	"os"
	"strconv"
	"time"

	"github.com/docker/go-units"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// RedisConfig holds settings for the Redis-backed metadata store.
type RedisConfig struct {
	URL       string
	KeyPrefix string
}

// AuthConfig holds token signing and identity directory settings.
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
	// UsersFile is the YAML identity directory. Empty selects the built-in development users.
	UsersFile        string
	DirectoryTimeout time.Duration
	// LoginRateLimit is the number of login attempts allowed per client IP per minute. Zero disables limiting.
	LoginRateLimit int
}

// StoreConfig selects the metadata store backend.
type StoreConfig struct {
	// Backend is one of "csv", "postgres" or "redis".
	Backend string
	CSVPath string
}

// BlobConfig selects the document content backend.
type BlobConfig struct {
	// Backend is one of "filesystem" or "minio".
	Backend  string
	BasePath string
	MaxSize  int64
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost  string
	Port     string
	TimeZone string
	LogLevel string
	Auth     AuthConfig
	Store    StoreConfig
	Blob     BlobConfig
	Database DatabaseConfig
	Redis    RedisConfig
	MinIO    MinIOConfig
}

// Location resolves TimeZone, falling back to UTC when it is empty or unknown.
func (c *AppConfig) Location() *time.Location {
	if c.TimeZone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost:  getEnv("APP_HOST", "localhost:8080"),
		Port:     getEnv("PORT", "8080"), // default only for non-sensitive value
		TimeZone: getEnv("APP_TIMEZONE", "UTC"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Auth: AuthConfig{
			JWTSecret:        getEnv("AUTH_JWT_SECRET", ""),
			TokenTTL:         time.Duration(getEnvInt("AUTH_TOKEN_TTL_MINUTES", 30)) * time.Minute,
			UsersFile:        getEnv("AUTH_USERS_FILE", ""),
			DirectoryTimeout: getEnvDuration("AUTH_DIRECTORY_TIMEOUT", 3*time.Second),
			LoginRateLimit:   getEnvInt("AUTH_LOGIN_RATE_LIMIT", 10),
		},
		Store: StoreConfig{
			Backend: getEnv("STORE_BACKEND", "csv"),
			CSVPath: getEnv("STORE_CSV_PATH", "documents.csv"),
		},
		Blob: BlobConfig{
			Backend:  getEnv("BLOB_BACKEND", "filesystem"),
			BasePath: getEnv("BLOB_BASE_PATH", "documents"),
			MaxSize:  getEnvSize("BLOB_MAX_SIZE", 32*units.MiB),
		},
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		Redis: RedisConfig{
			URL:       getEnv("REDIS_URL", "redis://localhost:6379/0"),
			KeyPrefix: getEnv("REDIS_KEY_PREFIX", "docregistry:"),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
	}
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

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return def
}

// getEnvSize accepts human readable sizes such as "10MB" or "512KiB"; binary
// prefixes are honoured (MB and MiB are both 1024*1024).
func getEnvSize(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		n, err := units.RAMInBytes(v)
		if err == nil && n > 0 {
			return n
		}
	}
	return def
}
