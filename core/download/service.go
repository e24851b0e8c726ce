// Package download orders the admission path for media requests and resolves
// stored artifacts for serving.
package download

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"mediagate/core/apperr"
	"mediagate/core/limiter"
	"mediagate/core/media"
	"mediagate/core/pathguard"
	"mediagate/core/progress"
	"mediagate/logger"
	"mediagate/model"
	"mediagate/repository"
)

const archiveTimeout = 10 * time.Minute

// Archiver mirrors a completed artifact somewhere durable.
type Archiver interface {
	Upload(ctx context.Context, localPath, filename string) error
}

// Options holds the admission settings.
type Options struct {
	StorageRoot     string
	AllowedDomains  []string
	MaxArtifactSize int64 // bytes; <= 0 disables the ceiling
}

// Service is the admission pipeline behind the HTTP handlers.
type Service struct {
	opts    Options
	limiter limiter.Limiter
	fetcher media.Fetcher
	history repository.DownloadRepository
	archive Archiver
	hub     *progress.Hub

	archiving sync.WaitGroup
}

// NewService wires the pipeline. history, archive and hub may be nil.
func NewService(opts Options, lim limiter.Limiter, fetcher media.Fetcher, history repository.DownloadRepository, archive Archiver, hub *progress.Hub) *Service {
	return &Service{
		opts:    opts,
		limiter: lim,
		fetcher: fetcher,
		history: history,
		archive: archive,
		hub:     hub,
	}
}

// ValidationResult is the outcome of a successful validation. Info is nil
// when metadata extraction failed after the URL itself was accepted.
type ValidationResult struct {
	Info      *model.VideoInfo
	InfoError string
}

// StorageRoot returns the configured artifact directory.
func (s *Service) StorageRoot() string {
	return s.opts.StorageRoot
}

// Limiter exposes the admission limiter for health and admin views.
func (s *Service) Limiter() limiter.Limiter {
	return s.limiter
}

func (s *Service) admitURL(ctx context.Context, rawURL string) error {
	if strings.TrimSpace(rawURL) == "" {
		return apperr.Validation("URL is required")
	}
	if !media.DomainAllowed(rawURL, s.opts.AllowedDomains) {
		return apperr.DomainRejected()
	}
	return s.fetcher.Validate(ctx, rawURL)
}

// Validate checks rawURL without consuming rate-limit budget.
func (s *Service) Validate(ctx context.Context, rawURL string) (*ValidationResult, error) {
	if err := s.admitURL(ctx, rawURL); err != nil {
		return nil, err
	}

	info, err := s.fetcher.Info(ctx, rawURL)
	if err != nil {
		logger.Warn("URL valid but info unavailable",
			logger.String("url", rawURL),
			logger.ErrorField(err))
		return &ValidationResult{InfoError: apperr.PublicMessage(err)}, nil
	}
	return &ValidationResult{Info: info}, nil
}

// Download runs the metered path: domain, validation, admission, fetch, size.
func (s *Service) Download(ctx context.Context, req model.DownloadRequest) (*model.MediaArtifact, error) {
	if err := s.admitURL(ctx, req.URL); err != nil {
		return nil, err
	}

	decision, err := s.limiter.Allow(ctx, req.ClientID)
	if err != nil {
		logger.Error("Rate limiter unavailable",
			logger.String("client", req.ClientID),
			logger.ErrorField(err))
		return nil, apperr.Unavailable("Rate limiter unavailable", err)
	}
	if !decision.Allowed {
		logger.Info("Download rejected by rate limit",
			logger.String("client", req.ClientID),
			logger.Duration("retry_after", decision.RetryAfter))
		s.record(ctx, req, nil, model.ArtifactRejected, decision.Message())
		return nil, apperr.RateLimited(decision.Message(), decision.RetryAfter)
	}

	s.publish(req.ProgressID, progress.Event{Status: progress.StatusStarted})

	start := time.Now()
	artifact, err := s.fetcher.Fetch(ctx, req, s.progressFunc(req.ProgressID))
	if err != nil {
		return nil, s.fail(ctx, req, nil, err)
	}

	if !pathguard.IsContained(artifact.Path, s.opts.StorageRoot) {
		logger.Error("Fetched artifact outside storage root",
			logger.String("path", artifact.Path),
			logger.String("root", s.opts.StorageRoot))
		return nil, s.fail(ctx, req, artifact, apperr.Fetch("Download error", errors.New("artifact outside storage root")))
	}

	if s.opts.MaxArtifactSize > 0 && artifact.Size > s.opts.MaxArtifactSize {
		if rmErr := os.Remove(artifact.Path); rmErr != nil && !os.IsNotExist(rmErr) {
			logger.Error("Failed to delete oversized artifact",
				logger.String("path", artifact.Path),
				logger.ErrorField(rmErr))
		}
		return nil, s.fail(ctx, req, artifact, apperr.Oversized(artifact.Size, s.opts.MaxArtifactSize))
	}

	logger.Info("Download completed",
		logger.String("client", req.ClientID),
		logger.String("filename", artifact.Filename),
		logger.Int64("size", artifact.Size),
		logger.Duration("elapsed", time.Since(start)))

	artifact.Status = model.ArtifactCompleted
	s.record(ctx, req, artifact, model.ArtifactCompleted, "")
	s.publish(req.ProgressID, progress.Event{
		Status:          progress.StatusFinished,
		Percent:         100,
		DownloadedBytes: artifact.Size,
		TotalBytes:      artifact.Size,
		Filename:        artifact.Filename,
		Done:            true,
	})
	s.archiveAsync(artifact)
	return artifact, nil
}

func (s *Service) fail(ctx context.Context, req model.DownloadRequest, artifact *model.MediaArtifact, err error) error {
	msg := apperr.PublicMessage(err)
	logger.Warn("Download failed",
		logger.String("client", req.ClientID),
		logger.String("url", req.URL),
		logger.ErrorField(err))
	s.record(ctx, req, artifact, model.ArtifactFailed, msg)
	s.publish(req.ProgressID, progress.Event{Status: progress.StatusError, Message: msg, Done: true})
	return err
}

// Open resolves a client supplied name to a servable file.
func (s *Service) Open(name string) (*ServedFile, error) {
	safe := pathguard.Sanitize(name)
	if safe == "" || safe == "." || safe == ".." {
		return nil, apperr.PathRejected()
	}

	full := filepath.Join(s.opts.StorageRoot, safe)
	if !pathguard.IsContained(full, s.opts.StorageRoot) {
		logger.Warn("Rejected file path",
			logger.String("requested", name),
			logger.String("resolved", full))
		return nil, apperr.PathRejected()
	}

	st, err := os.Stat(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperr.NotFound()
		}
		logger.Error("Failed to stat artifact", logger.String("path", full), logger.ErrorField(err))
		return nil, apperr.NotFound()
	}
	if !st.Mode().IsRegular() {
		return nil, apperr.NotFound()
	}

	return &ServedFile{Name: safe, Path: full, Size: st.Size(), ModTime: st.ModTime()}, nil
}

// ServedFile is a resolved artifact ready to stream.
type ServedFile struct {
	Name    string
	Path    string
	Size    int64
	ModTime time.Time
}

// Remaining reports the client's remaining metered requests.
func (s *Service) Remaining(ctx context.Context, clientID string) (int, error) {
	return s.limiter.Remaining(ctx, clientID)
}

// ResetClient clears a client's admission window.
func (s *Service) ResetClient(ctx context.Context, clientID string) error {
	return s.limiter.Reset(ctx, clientID)
}

// History lists recent download attempts.
func (s *Service) History(ctx context.Context, limit int) ([]*model.DownloadRecord, error) {
	if s.history == nil {
		return []*model.DownloadRecord{}, nil
	}
	return s.history.ListRecent(ctx, limit)
}

// HistoryCounts aggregates download attempts by status.
func (s *Service) HistoryCounts(ctx context.Context) (map[model.ArtifactStatus]int64, error) {
	if s.history == nil {
		return map[model.ArtifactStatus]int64{}, nil
	}
	return s.history.CountByStatus(ctx)
}

// Wait blocks until background archive uploads finish.
func (s *Service) Wait() {
	s.archiving.Wait()
}

func (s *Service) record(ctx context.Context, req model.DownloadRequest, artifact *model.MediaArtifact, status model.ArtifactStatus, msg string) {
	if s.history == nil {
		return
	}
	rec := &model.DownloadRecord{
		ClientID:  req.ClientID,
		URL:       req.URL,
		FormatID:  req.FormatID,
		AudioOnly: req.AudioOnly,
		Status:    status,
		Error:     msg,
	}
	if artifact != nil {
		rec.Title = artifact.Title
		rec.Filename = artifact.Filename
		rec.Size = artifact.Size
	}
	if err := s.history.Create(context.WithoutCancel(ctx), rec); err != nil {
		logger.Error("Failed to record download", logger.ErrorField(err))
	}
}

func (s *Service) publish(id string, ev progress.Event) {
	if s.hub == nil || id == "" {
		return
	}
	s.hub.Publish(id, ev)
}

func (s *Service) progressFunc(id string) media.ProgressFunc {
	if s.hub == nil || id == "" {
		return nil
	}
	return func(p media.Progress) {
		s.hub.Publish(id, progress.Event{
			Status:          progress.StatusDownloading,
			Percent:         p.Percent(),
			DownloadedBytes: p.DownloadedBytes,
			TotalBytes:      p.TotalBytes,
		})
	}
}

func (s *Service) archiveAsync(artifact *model.MediaArtifact) {
	if s.archive == nil {
		return
	}
	s.archiving.Add(1)
	go func() {
		defer s.archiving.Done()
		ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
		defer cancel()
		if err := s.archive.Upload(ctx, artifact.Path, artifact.Filename); err != nil {
			logger.Warn("Archive upload failed",
				logger.String("filename", artifact.Filename),
				logger.ErrorField(err))
		}
	}()
}
