package limiter

import (
	"context"
	"sync"
	"time"
)

// window is a fixed-capacity ring of request timestamps in chronological order.
// Capacity equals the request limit, so memory per client is bounded.
type window struct {
	buf  []time.Time
	head int
	size int
}

func newWindow(capacity int) *window {
	return &window{buf: make([]time.Time, capacity)}
}

// prune drops timestamps at or before cutoff.
func (w *window) prune(cutoff time.Time) {
	for w.size > 0 && !w.buf[w.head].After(cutoff) {
		w.buf[w.head] = time.Time{}
		w.head = (w.head + 1) % len(w.buf)
		w.size--
	}
}

// countAfter counts timestamps strictly after cutoff without mutating.
func (w *window) countAfter(cutoff time.Time) int {
	n := 0
	for i := 0; i < w.size; i++ {
		if w.buf[(w.head+i)%len(w.buf)].After(cutoff) {
			n++
		}
	}
	return n
}

func (w *window) push(t time.Time) {
	w.buf[(w.head+w.size)%len(w.buf)] = t
	w.size++
}

func (w *window) oldest() time.Time {
	return w.buf[w.head]
}

func (w *window) newest() time.Time {
	return w.buf[(w.head+w.size-1)%len(w.buf)]
}

// MemoryLimiter keeps windows in process memory behind one mutex.
type MemoryLimiter struct {
	opts Options

	mu          sync.Mutex
	windows     map[string]*window
	lastCleanup time.Time
}

// NewMemoryLimiter creates an in-process limiter.
func NewMemoryLimiter(opts Options) *MemoryLimiter {
	opts = opts.withDefaults()
	return &MemoryLimiter{
		opts:        opts,
		windows:     make(map[string]*window),
		lastCleanup: opts.Clock.Now(),
	}
}

func (l *MemoryLimiter) Limit() int            { return l.opts.MaxRequests }
func (l *MemoryLimiter) Window() time.Duration { return l.opts.Window }

// Allow implements Limiter.
func (l *MemoryLimiter) Allow(_ context.Context, clientID string) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.opts.Clock.Now()
	if now.Sub(l.lastCleanup) > l.opts.CleanupInterval {
		l.reclaim(now)
		l.lastCleanup = now
	}

	w, ok := l.windows[clientID]
	if !ok {
		w = newWindow(l.opts.MaxRequests)
		l.windows[clientID] = w
	}
	w.prune(now.Add(-l.opts.Window))

	if w.size >= l.opts.MaxRequests {
		return Decision{
			Allowed:    false,
			Limit:      l.opts.MaxRequests,
			Remaining:  0,
			RetryAfter: clampRetry(w.oldest().Add(l.opts.Window).Sub(now)),
		}, nil
	}

	w.push(now)
	return Decision{
		Allowed:   true,
		Limit:     l.opts.MaxRequests,
		Remaining: remaining(l.opts.MaxRequests, w.size),
	}, nil
}

// Remaining implements Limiter.
func (l *MemoryLimiter) Remaining(_ context.Context, clientID string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[clientID]
	if !ok {
		return l.opts.MaxRequests, nil
	}
	cutoff := l.opts.Clock.Now().Add(-l.opts.Window)
	return remaining(l.opts.MaxRequests, w.countAfter(cutoff)), nil
}

// Reset implements Limiter.
func (l *MemoryLimiter) Reset(_ context.Context, clientID string) error {
	l.mu.Lock()
	delete(l.windows, clientID)
	l.mu.Unlock()
	return nil
}

// Len returns the number of tracked clients.
func (l *MemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

// reclaim drops clients with nothing newer than twice the window.
// Caller holds l.mu.
func (l *MemoryLimiter) reclaim(now time.Time) {
	cutoff := now.Add(-2 * l.opts.Window)
	for id, w := range l.windows {
		if w.size == 0 || w.newest().Before(cutoff) {
			delete(l.windows, id)
		}
	}
}
