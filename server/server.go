package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mediagate/cache"
	"mediagate/config"
	"mediagate/core/download"
	"mediagate/core/limiter"
	"mediagate/core/media"
	"mediagate/core/progress"
	"mediagate/db"
	"mediagate/logger"
	"mediagate/repository"
	"mediagate/storage"

	"github.com/gorilla/mux"
)

const (
	shutdownTimeout = 10 * time.Second
	historyCapacity = 500
)

// NewRouter registers every route on a fresh router and wraps it with the
// request id, logging and CORS middleware.
func NewRouter(h *APIHandler, webAppDir string) http.Handler {
	// 保留编码后的路径，%2F 之类的文件名交给 FileHandler 清洗
	router := mux.NewRouter().UseEncodedPath()
	router.NotFoundHandler = http.HandlerFunc(NotFoundHandler)
	router.MethodNotAllowedHandler = http.HandlerFunc(MethodNotAllowedHandler)

	router.HandleFunc("/api/validate", h.ValidateHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/download", h.DownloadHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/file/{filename}", h.FileHandler).Methods(http.MethodGet, http.MethodHead)
	router.HandleFunc("/api/health", h.HealthHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/progress/{id}", h.ProgressHandler).Methods(http.MethodGet)

	// 管理接口
	router.HandleFunc("/api/admin/login", h.LoginHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/admin/history", h.AdminMiddleware(h.HistoryHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/admin/limits/{client}", h.AdminMiddleware(h.ResetLimitHandler)).Methods(http.MethodDelete)

	// Frontend UI serving
	router.PathPrefix("/").Handler(NewStaticHandler(webAppDir)).Methods(http.MethodGet, http.MethodHead)

	return corsMiddleware(requestIDMiddleware(loggingMiddleware(router)))
}

// newLimiter picks the admission backend from cfg.
func newLimiter(cfg *config.Config) (limiter.Limiter, error) {
	opts := limiter.Options{
		MaxRequests:     cfg.MaxRequestsPerWindow,
		Window:          cfg.RateLimitWindow,
		CleanupInterval: cfg.RateLimitCleanup,
	}
	switch cfg.RateLimitBackend {
	case config.BackendRedis:
		if err := db.ConnectRedis(cfg); err != nil {
			return nil, err
		}
		logger.Info("Using Redis rate limiter",
			logger.String("addr", cfg.RedisHost+":"+cfg.RedisPort))
		return limiter.NewRedisLimiter(db.RedisClient, opts), nil
	case config.BackendMemory, "":
		return limiter.NewMemoryLimiter(opts), nil
	default:
		return nil, fmt.Errorf("unknown rate limit backend %q", cfg.RateLimitBackend)
	}
}

func newHistory(cfg *config.Config) (repository.DownloadRepository, error) {
	if !cfg.HistoryEnabled() {
		return repository.NewMemoryDownloadRepository(historyCapacity), nil
	}
	if err := db.ConnectGormDB(cfg); err != nil {
		return nil, err
	}
	return repository.NewGormDownloadRepository(db.GormDB), nil
}

func newArchive(ctx context.Context, cfg *config.Config) download.Archiver {
	if !cfg.ArchiveEnabled() {
		return nil
	}
	archive, err := storage.NewArchive(ctx, cfg)
	if err != nil {
		// 归档是可选功能，连接失败不影响下载
		logger.Warn("MinIO archive disabled", logger.ErrorField(err))
		return nil
	}
	logger.Info("Archiving artifacts to MinIO", logger.String("bucket", archive.Bucket()))
	return archive
}

// Start initializes and starts the HTTP server. It blocks until SIGINT or
// SIGTERM and then drains in-flight requests.
func Start(cfg *config.Config) error {
	if err := ensureDirExists(cfg.StorageRoot); err != nil {
		return err
	}

	lim, err := newLimiter(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize rate limiter: %w", err)
	}
	defer db.CloseRedis()

	history, err := newHistory(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize download history: %w", err)
	}
	defer db.CloseGormDB()

	hub := progress.NewHub()
	var fetcher media.Fetcher = media.NewYtdlpFetcher(media.YtdlpConfig{
		Executable:      cfg.YtdlpPath,
		StorageRoot:     cfg.StorageRoot,
		ValidateTimeout: cfg.ValidateTimeout,
		FetchTimeout:    cfg.FetchTimeout,
	})
	// 只有Redis已连接时才启用元数据缓存
	if db.RedisClient != nil && cfg.InfoCacheTTL > 0 {
		fetcher = cache.NewCachingFetcher(fetcher, cache.NewInfoCache(db.RedisClient, cfg.InfoCacheTTL))
		logger.Info("Caching video info in Redis", logger.Duration("ttl", cfg.InfoCacheTTL))
	}
	svc := download.NewService(download.Options{
		StorageRoot:     cfg.StorageRoot,
		AllowedDomains:  cfg.AllowedDomains,
		MaxArtifactSize: cfg.MaxArtifactSizeBytes,
	}, lim, fetcher, history, newArchive(context.Background(), cfg), hub)

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           NewRouter(NewAPIHandler(svc, hub, cfg), cfg.WebAppDir),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      writeTimeout(cfg),
		IdleTimeout:       120 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting",
			logger.String("addr", server.Addr),
			logger.String("storage_root", cfg.StorageRoot),
			logger.String("rate_limit_backend", cfg.RateLimitBackend),
			logger.Int("max_requests", cfg.MaxRequestsPerWindow),
			logger.Duration("window", cfg.RateLimitWindow))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case sig := <-stop:
		logger.Info("Shutting down server...", logger.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	svc.Wait()

	logger.Info("Server stopped")
	return nil
}

// writeTimeout covers a whole /api/download: validation strategies, then the
// fetch, then writing the response.
func writeTimeout(cfg *config.Config) time.Duration {
	return media.ValidationBudget(cfg.ValidateTimeout) + cfg.FetchTimeout + time.Minute
}

func ensureDirExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		logger.Info("Creating directory", logger.String("path", path))
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", path, err)
		}
	} else if err != nil {
		return fmt.Errorf("failed to check directory %s: %w", path, err)
	}
	return nil
}
