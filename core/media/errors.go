package media

import (
	"strings"

	"mediagate/core/apperr"
)

const (
	msgBotBlocked  = "YouTube is blocking automated requests. Please try again in a few minutes or use a different video."
	msgPrivate     = "This video is private and cannot be downloaded"
	msgUnavailable = "Video is unavailable or has been removed"
	msgUnsupported = "This URL is not supported"
)

// validationMessage turns raw tool output into a user-facing reason.
func validationMessage(raw string) string {
	lower := strings.ToLower(raw)
	switch {
	case strings.Contains(raw, "Sign in to confirm") || strings.Contains(lower, "bot"):
		return msgBotBlocked
	case strings.Contains(raw, "Private video"):
		return msgPrivate
	case strings.Contains(raw, "Video unavailable"):
		return msgUnavailable
	case strings.Contains(raw, "Unsupported URL"):
		return msgUnsupported
	}
	return "URL validation failed: " + apperr.Truncate(errorPart(raw), apperr.MaxMessageLen)
}

// errorPart keeps the text after the last "ERROR:" marker when there is one.
func errorPart(raw string) string {
	if i := strings.LastIndex(raw, "ERROR:"); i >= 0 {
		return strings.TrimSpace(raw[i+len("ERROR:"):])
	}
	return strings.TrimSpace(raw)
}

// fetchReason trims tool output to the part worth showing.
func fetchReason(raw string) string {
	lower := strings.ToLower(raw)
	if strings.Contains(raw, "Sign in to confirm") || strings.Contains(lower, "bot") {
		return msgBotBlocked
	}
	return errorPart(raw)
}
