package model

// DownloadRequest is one client request to fetch a URL. It lives only for the
// duration of the HTTP request.
type DownloadRequest struct {
	URL        string `json:"url"`
	FormatID   string `json:"format_id,omitempty"`
	AudioOnly  bool   `json:"audio_only,omitempty"`
	ProgressID string `json:"progress_id,omitempty"`
	ClientID   string `json:"-"`
}

// ArtifactStatus describes the state of a fetched artifact.
type ArtifactStatus string

const (
	ArtifactCompleted ArtifactStatus = "completed"
	ArtifactFailed    ArtifactStatus = "failed"
	ArtifactRejected  ArtifactStatus = "rejected"
)

// MediaArtifact is the file produced by the media collaborator.
type MediaArtifact struct {
	Filename string         `json:"filename"`
	Path     string         `json:"-"` // Storage path on disk, never exposed in API responses
	Size     int64          `json:"filesize"`
	Title    string         `json:"title"`
	Status   ArtifactStatus `json:"status"`
}

// Format is one selectable rendition of a video.
type Format struct {
	FormatID   string `json:"format_id"`
	Resolution string `json:"resolution"`
	Ext        string `json:"ext"`
	Filesize   int64  `json:"filesize"`
}

// VideoInfo is the metadata shown to a client before downloading.
type VideoInfo struct {
	Title     string   `json:"title"`
	Duration  float64  `json:"duration"` // seconds
	Thumbnail string   `json:"thumbnail"`
	Uploader  string   `json:"uploader"`
	ViewCount int64    `json:"view_count"`
	Formats   []Format `json:"formats"`
}
