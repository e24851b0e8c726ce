package config

import (
	"os"
	"reflect"
	"testing"
	"time"
)

// unsetEnv clears keys for the duration of the test.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		if old, ok := os.LookupEnv(k); ok {
			os.Unsetenv(k)
			t.Cleanup(func() { os.Setenv(k, old) })
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	unsetEnv(t, "HOST", "PORT", "STORAGE_ROOT", "MAX_REQUESTS_PER_HOUR", "MAX_REQUESTS_PER_WINDOW",
		"RATE_LIMIT_WINDOW_SECONDS", "RATE_LIMIT_BACKEND", "ALLOWED_DOMAINS", "MAX_DOWNLOAD_SIZE_MB",
		"DB_HOST", "MINIO_ENDPOINT", "ADMIN_TOKEN_TTL_SECONDS")

	cfg := Load()
	if cfg.Addr() != "0.0.0.0:5000" {
		t.Errorf("Addr = %q", cfg.Addr())
	}
	if cfg.StorageRoot != "downloads" {
		t.Errorf("StorageRoot = %q", cfg.StorageRoot)
	}
	if cfg.MaxRequestsPerWindow != 10 || cfg.RateLimitWindow != time.Hour {
		t.Errorf("rate limit = %d per %v", cfg.MaxRequestsPerWindow, cfg.RateLimitWindow)
	}
	if cfg.RateLimitBackend != BackendMemory {
		t.Errorf("backend = %q", cfg.RateLimitBackend)
	}
	if cfg.AllowedDomains != nil {
		t.Errorf("AllowedDomains = %v, want nil", cfg.AllowedDomains)
	}
	if cfg.MaxArtifactSizeBytes != 500*1024*1024 {
		t.Errorf("MaxArtifactSizeBytes = %d", cfg.MaxArtifactSizeBytes)
	}
	if cfg.AdminTokenTTL != 24*time.Hour {
		t.Errorf("AdminTokenTTL = %v", cfg.AdminTokenTTL)
	}
	if cfg.HistoryEnabled() || cfg.ArchiveEnabled() {
		t.Error("history and archive should be off without hosts")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("MAX_REQUESTS_PER_HOUR", "20")
	t.Setenv("MAX_REQUESTS_PER_WINDOW", "3")
	t.Setenv("RATE_LIMIT_WINDOW_SECONDS", "60")
	t.Setenv("RATE_LIMIT_BACKEND", "Redis")
	t.Setenv("ALLOWED_DOMAINS", " youtube.com, ,youtu.be ,")
	t.Setenv("MAX_DOWNLOAD_SIZE_MB", "1")
	t.Setenv("DB_HOST", "db")
	t.Setenv("MINIO_ENDPOINT", "minio:9000")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("PORT", "8080")

	cfg := Load()
	if cfg.MaxRequestsPerWindow != 3 {
		t.Errorf("window override should win, got %d", cfg.MaxRequestsPerWindow)
	}
	if cfg.RateLimitWindow != time.Minute {
		t.Errorf("RateLimitWindow = %v", cfg.RateLimitWindow)
	}
	if cfg.RateLimitBackend != BackendRedis {
		t.Errorf("backend = %q", cfg.RateLimitBackend)
	}
	if want := []string{"youtube.com", "youtu.be"}; !reflect.DeepEqual(cfg.AllowedDomains, want) {
		t.Errorf("AllowedDomains = %v, want %v", cfg.AllowedDomains, want)
	}
	if cfg.MaxArtifactSizeBytes != 1<<20 {
		t.Errorf("MaxArtifactSizeBytes = %d", cfg.MaxArtifactSizeBytes)
	}
	if !cfg.HistoryEnabled() || !cfg.ArchiveEnabled() || !cfg.MinioUseSSL {
		t.Error("expected history and archive enabled")
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q", cfg.Port)
	}
}

func TestLegacyHourlyLimit(t *testing.T) {
	unsetEnv(t, "MAX_REQUESTS_PER_WINDOW")
	t.Setenv("MAX_REQUESTS_PER_HOUR", "7")
	if got := Load().MaxRequestsPerWindow; got != 7 {
		t.Fatalf("MaxRequestsPerWindow = %d, want 7", got)
	}
}

func TestInvalidIntFallsBack(t *testing.T) {
	t.Setenv("REDIS_DB", "two")
	if got := getEnvInt("REDIS_DB", 4); got != 4 {
		t.Fatalf("getEnvInt = %d, want fallback", got)
	}
	t.Setenv("MINIO_USE_SSL", "maybe")
	if getEnvBool("MINIO_USE_SSL", false) {
		t.Fatal("invalid bool should fall back")
	}
}

func TestAdminEnabled(t *testing.T) {
	tests := []struct {
		secret, hash string
		want         bool
	}{
		{DefaultSecretKey, "$2a$10$hash", false},
		{"", "$2a$10$hash", false},
		{"private", "", false},
		{"private", "$2a$10$hash", true},
	}
	for _, tt := range tests {
		cfg := &Config{SecretKey: tt.secret, AdminPasswordHash: tt.hash}
		if got := cfg.AdminEnabled(); got != tt.want {
			t.Errorf("AdminEnabled(%q, %q) = %v, want %v", tt.secret, tt.hash, got, tt.want)
		}
	}

	unsetEnv(t, "SECRET_KEY")
	if Load().SecretKeyConfigured() {
		t.Fatal("unset SECRET_KEY must not count as configured")
	}
}
