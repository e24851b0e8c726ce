package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{Validation("bad"), http.StatusBadRequest},
		{DomainRejected(), http.StatusForbidden},
		{PathRejected(), http.StatusForbidden},
		{RateLimited("slow down", time.Second), http.StatusTooManyRequests},
		{Oversized(600<<20, 500<<20), http.StatusRequestEntityTooLarge},
		{NotFound(), http.StatusNotFound},
		{Unavailable("redis down", errors.New("dial")), http.StatusServiceUnavailable},
		{Fetch("Download failed", errors.New("boom")), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
		{fmt.Errorf("wrapped: %w", NotFound()), http.StatusNotFound},
	}
	for _, tt := range tests {
		if got := HTTPStatus(tt.err); got != tt.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestPublicMessage(t *testing.T) {
	if got := PublicMessage(errors.New("secret /var/path")); got != "Internal server error" {
		t.Fatalf("PublicMessage = %q", got)
	}
	if got := PublicMessage(PathRejected()); got != "Invalid file path" {
		t.Fatalf("PublicMessage = %q", got)
	}
	if got := PublicMessage(DomainRejected()); got != "Domain not allowed" {
		t.Fatalf("PublicMessage = %q", got)
	}
}

func TestOversizedMessage(t *testing.T) {
	got := Oversized(600*1024*1024+512*1024, 500*1024*1024).Message
	if got != "File too large: 600.50MB (max: 500MB)" {
		t.Fatalf("message = %q", got)
	}
}

func TestFetchTruncates(t *testing.T) {
	cause := errors.New(strings.Repeat("x", 300))
	e := Fetch("Download failed", cause)
	if !strings.HasPrefix(e.Message, "Download failed: ") || !strings.HasSuffix(e.Message, "...") {
		t.Fatalf("message = %q", e.Message)
	}
	if len(e.Message) != len("Download failed: ")+MaxMessageLen+3 {
		t.Fatalf("message length = %d", len(e.Message))
	}
	if !errors.Is(e, cause) {
		t.Fatal("Fetch must wrap its cause")
	}
	if Fetch("Download failed", nil).Message != "Download failed" {
		t.Fatal("nil cause should keep bare prefix")
	}
}

func TestTruncateRunes(t *testing.T) {
	if got := Truncate("短文本", 5); got != "短文本" {
		t.Fatalf("Truncate = %q", got)
	}
	if got := Truncate("下载失败了", 2); got != "下载..." {
		t.Fatalf("Truncate = %q", got)
	}
}

func TestKindOf(t *testing.T) {
	if KindOf(nil) != KindInternal {
		t.Fatal("nil should be internal")
	}
	e := RateLimited("x", 58*time.Second)
	if KindOf(e) != KindRateLimited || e.RetryAfter != 58*time.Second {
		t.Fatalf("unexpected %+v", e)
	}
}
