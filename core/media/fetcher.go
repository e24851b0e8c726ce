// Package media is the boundary to the external media extraction tool. Nothing
// here extracts, negotiates formats or transcodes by itself; it builds yt-dlp
// invocations, interprets their output and classifies their failures.
package media

import (
	"context"

	"mediagate/model"
)

// Progress is one download progress sample reported by the tool.
type Progress struct {
	Status          string
	DownloadedBytes int64
	TotalBytes      int64
}

// Percent returns progress in [0,100], or 0 when the total is unknown.
func (p Progress) Percent() float64 {
	if p.TotalBytes <= 0 {
		return 0
	}
	pct := float64(p.DownloadedBytes) / float64(p.TotalBytes) * 100
	if pct > 100 {
		pct = 100
	}
	return pct
}

// ProgressFunc receives progress samples. It may be nil.
type ProgressFunc func(Progress)

// Fetcher is the delegated media collaborator.
type Fetcher interface {
	// Validate reports whether the tool can extract rawURL. Failures are
	// *apperr.Error values of kind Validation.
	Validate(ctx context.Context, rawURL string) error
	// Info extracts metadata without downloading.
	Info(ctx context.Context, rawURL string) (*model.VideoInfo, error)
	// Fetch downloads into the storage root and returns the produced artifact.
	// Failures are *apperr.Error values of kind Fetch.
	Fetch(ctx context.Context, req model.DownloadRequest, onProgress ProgressFunc) (*model.MediaArtifact, error)
}
