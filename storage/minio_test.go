package storage

import (
	"context"
	"testing"

	"mediagate/config"
)

func TestFormatSize(t *testing.T) {
	tests := []struct {
		size int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
		{3 * 1024 * 1024 * 1024, "3.0 GB"},
	}
	for _, tt := range tests {
		if got := FormatSize(tt.size); got != tt.want {
			t.Errorf("FormatSize(%d) = %q, want %q", tt.size, got, tt.want)
		}
	}
}

func TestCategory(t *testing.T) {
	tests := map[string]string{
		"artifacts/song.MP3":  "audio",
		"artifacts/clip.mp4":  "video",
		"artifacts/clip.webm": "video",
		"artifacts/cover.jpg": "image",
		"artifacts/notes":     "other",
	}
	for name, want := range tests {
		if got := Category(name); got != want {
			t.Errorf("Category(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestObjectKey(t *testing.T) {
	if got := ObjectKey("clip.mp4"); got != "artifacts/clip.mp4" {
		t.Errorf("ObjectKey = %q", got)
	}
	if got := ObjectKey("nested/dir/clip.mp4"); got != "artifacts/clip.mp4" {
		t.Errorf("ObjectKey keeps only the base name, got %q", got)
	}
}

func TestNewArchiveDisabled(t *testing.T) {
	if _, err := NewArchive(context.Background(), &config.Config{}); err == nil {
		t.Fatal("expected error when endpoint is empty")
	}
}
