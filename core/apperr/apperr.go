// Package apperr defines the error kinds that cross the HTTP boundary.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Kind classifies a failure for status mapping.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindDomainRejected
	KindRateLimited
	KindFetch
	KindOversized
	KindPathRejected
	KindNotFound
	KindUnavailable
)

// MaxMessageLen bounds delegated error text shown to users.
const MaxMessageLen = 200

// Error is a classified, user-presentable failure.
type Error struct {
	Kind       Kind
	Message    string
	RetryAfter time.Duration // set for KindRateLimited
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

func DomainRejected() *Error {
	return &Error{Kind: KindDomainRejected, Message: "Domain not allowed"}
}

func RateLimited(msg string, retryAfter time.Duration) *Error {
	return &Error{Kind: KindRateLimited, Message: msg, RetryAfter: retryAfter}
}

// Fetch wraps a delegated library failure. The message is truncated for display.
func Fetch(prefix string, err error) *Error {
	msg := prefix
	if err != nil {
		msg = prefix + ": " + Truncate(err.Error(), MaxMessageLen)
	}
	return &Error{Kind: KindFetch, Message: msg, Err: err}
}

func Oversized(size, limit int64) *Error {
	return &Error{
		Kind: KindOversized,
		Message: fmt.Sprintf("File too large: %.2fMB (max: %dMB)",
			float64(size)/1024/1024, limit/1024/1024),
	}
}

// PathRejected never carries path details; the caller logs them instead.
func PathRejected() *Error {
	return &Error{Kind: KindPathRejected, Message: "Invalid file path"}
}

func NotFound() *Error {
	return &Error{Kind: KindNotFound, Message: "File not found"}
}

func Unavailable(msg string, err error) *Error {
	return &Error{Kind: KindUnavailable, Message: msg, Err: err}
}

// Truncate shortens s to max runes, appending "..." when cut.
func Truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}

// KindOf returns the kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// HTTPStatus maps an error to a response status code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindDomainRejected, KindPathRejected:
		return http.StatusForbidden
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindOversized:
		return http.StatusRequestEntityTooLarge
	case KindNotFound:
		return http.StatusNotFound
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns text safe to show a client.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "Internal server error"
}
