// Package limiter implements sliding-window admission control keyed by client
// identity. Two backends share the same contract: an in-process one and a
// Redis one for deployments running several replicas.
package limiter

import (
	"context"
	"fmt"
	"time"
)

// Default admission policy: 10 requests per hour.
const (
	DefaultMaxRequests     = 10
	DefaultWindow          = time.Hour
	DefaultCleanupInterval = 5 * time.Minute
)

// Clock reads the current time. Tests substitute a controllable one.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration // zero when allowed
}

// RetryAfterSeconds is RetryAfter in whole seconds, floored.
func (d Decision) RetryAfterSeconds() int {
	if d.RetryAfter <= 0 {
		return 0
	}
	return int(d.RetryAfter / time.Second)
}

// Message is the human-readable detail for the decision.
func (d Decision) Message() string {
	if d.Allowed {
		return "OK"
	}
	return fmt.Sprintf("Rate limit exceeded. Try again in %d seconds.", d.RetryAfterSeconds())
}

// Limiter decides whether a client may start another metered request.
type Limiter interface {
	// Allow atomically prunes, checks and, when admitted, records a request.
	Allow(ctx context.Context, clientID string) (Decision, error)
	// Remaining reports how many requests the client has left. Read-only.
	Remaining(ctx context.Context, clientID string) (int, error)
	// Reset forgets every recorded request for the client.
	Reset(ctx context.Context, clientID string) error
	// Limit is the configured maximum per window.
	Limit() int
	// Window is the configured window length.
	Window() time.Duration
}

// Options configures a limiter backend.
type Options struct {
	MaxRequests     int
	Window          time.Duration
	CleanupInterval time.Duration
	Clock           Clock
}

func (o Options) withDefaults() Options {
	if o.MaxRequests <= 0 {
		o.MaxRequests = DefaultMaxRequests
	}
	if o.Window <= 0 {
		o.Window = DefaultWindow
	}
	if o.CleanupInterval <= 0 {
		o.CleanupInterval = DefaultCleanupInterval
	}
	if o.Clock == nil {
		o.Clock = SystemClock
	}
	return o
}

func remaining(limit, count int) int {
	if count >= limit {
		return 0
	}
	return limit - count
}

func clampRetry(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
