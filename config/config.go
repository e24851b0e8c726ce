package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config stores the application configuration.
type Config struct {
	Host        string
	Port        string
	StorageRoot string // Directory that holds every artifact ever served
	WebAppDir   string // Path to the frontend files

	// Admission
	MaxRequestsPerWindow int
	RateLimitWindow      time.Duration
	RateLimitCleanup     time.Duration
	RateLimitBackend     string // "memory" or "redis"
	AllowedDomains       []string

	// Delegated fetch
	MaxArtifactSizeBytes int64
	YtdlpPath            string
	ValidateTimeout      time.Duration
	FetchTimeout         time.Duration
	InfoCacheTTL         time.Duration // metadata cache in Redis; 0 disables

	SecretKey         string
	AdminPasswordHash string // bcrypt; empty disables /api/admin/login
	AdminTokenTTL     time.Duration

	// Redis配置
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// MySQL (download history). Empty DBHost disables it.
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// MinIO (artifact archive). Empty MinioEndpoint disables it.
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
	MinioRegion    string

	LogLevel      string
	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
}

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// DefaultSecretKey is public; admin endpoints stay disabled while it is in use.
const DefaultSecretKey = "dev-secret-key-change-in-production"

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return intVal
		}
		log.Printf("Invalid integer for %s: %q, using default %d", key, value, fallback)
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvList splits a comma separated variable, dropping blanks.
func getEnvList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// godotenv.Load() will not override existing env vars.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading .env, relying on existing environment variables and defaults.")
	}

	maxRequests := getEnvInt("MAX_REQUESTS_PER_HOUR", 10)
	maxRequests = getEnvInt("MAX_REQUESTS_PER_WINDOW", maxRequests)

	return &Config{
		Host:        getEnv("HOST", "0.0.0.0"),
		Port:        getEnv("PORT", "5000"),
		StorageRoot: getEnv("STORAGE_ROOT", "downloads"),
		WebAppDir:   getEnv("WEB_APP_DIR", "web"),

		MaxRequestsPerWindow: maxRequests,
		RateLimitWindow:      seconds(getEnvInt("RATE_LIMIT_WINDOW_SECONDS", 3600)),
		RateLimitCleanup:     seconds(getEnvInt("RATE_LIMIT_CLEANUP_SECONDS", 300)),
		RateLimitBackend:     strings.ToLower(getEnv("RATE_LIMIT_BACKEND", BackendMemory)),
		AllowedDomains:       getEnvList("ALLOWED_DOMAINS"),

		MaxArtifactSizeBytes: int64(getEnvInt("MAX_DOWNLOAD_SIZE_MB", 500)) * 1024 * 1024,
		YtdlpPath:            getEnv("YTDLP_PATH", ""),
		ValidateTimeout:      seconds(getEnvInt("VALIDATE_TIMEOUT_SECONDS", 60)),
		FetchTimeout:         seconds(getEnvInt("FETCH_TIMEOUT_SECONDS", 900)),
		InfoCacheTTL:         seconds(getEnvInt("INFO_CACHE_TTL_SECONDS", 600)),

		SecretKey:         getEnv("SECRET_KEY", DefaultSecretKey),
		AdminPasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),
		AdminTokenTTL:     seconds(getEnvInt("ADMIN_TOKEN_TTL_SECONDS", 86400)),

		RedisHost:     getEnv("REDIS_HOST", "127.0.0.1"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""), // 默认无密码
		RedisDB:       getEnvInt("REDIS_DB", 0),

		DBHost:     getEnv("DB_HOST", ""),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "root"),
		DBPassword: os.Getenv("DB_PASSWORD"), // For password, better not to have a hardcoded default
		DBName:     getEnv("DB_NAME", "mediagate"),

		MinioEndpoint:  getEnv("MINIO_ENDPOINT", ""),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getEnv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getEnv("MINIO_BUCKET", "mediagate"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),
		MinioRegion:    getEnv("MINIO_REGION", "us-east-1"),

		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFile:       getEnv("LOG_FILE", ""),
		LogMaxSizeMB:  getEnvInt("LOG_MAX_SIZE_MB", 100),
		LogMaxBackups: getEnvInt("LOG_MAX_BACKUPS", 3),
		LogMaxAgeDays: getEnvInt("LOG_MAX_AGE_DAYS", 28),
	}
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}

// HistoryEnabled reports whether a MySQL database is configured.
func (c *Config) HistoryEnabled() bool {
	return c.DBHost != ""
}

// SecretKeyConfigured reports whether SECRET_KEY was set to something other
// than the built-in default.
func (c *Config) SecretKeyConfigured() bool {
	return c.SecretKey != "" && c.SecretKey != DefaultSecretKey
}

// AdminEnabled reports whether /api/admin/* is served. Both a password hash
// and a private signing key are required.
func (c *Config) AdminEnabled() bool {
	return c.AdminPasswordHash != "" && c.SecretKeyConfigured()
}

// ArchiveEnabled reports whether a MinIO endpoint is configured.
func (c *Config) ArchiveEnabled() bool {
	return c.MinioEndpoint != ""
}
