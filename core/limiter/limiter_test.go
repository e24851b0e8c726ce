package limiter

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// backends runs fn against every Limiter implementation, each with its own
// fake clock.
func backends(t *testing.T, opts Options, fn func(t *testing.T, l Limiter, clock *fakeClock)) {
	t.Run("memory", func(t *testing.T) {
		clock := newFakeClock()
		o := opts
		o.Clock = clock
		fn(t, NewMemoryLimiter(o), clock)
	})
	t.Run("redis", func(t *testing.T) {
		clock := newFakeClock()
		o := opts
		o.Clock = clock
		fn(t, newTestRedisLimiter(t, o), clock)
	})
}

func TestDecisionMessage(t *testing.T) {
	d := Decision{Allowed: false, RetryAfter: 58*time.Second + 900*time.Millisecond}
	if got := d.Message(); got != "Rate limit exceeded. Try again in 58 seconds." {
		t.Fatalf("Message = %q", got)
	}
	if got := (Decision{Allowed: true}).Message(); got != "OK" {
		t.Fatalf("Message = %q", got)
	}
	if got := (Decision{RetryAfter: -time.Second}).RetryAfterSeconds(); got != 0 {
		t.Fatalf("RetryAfterSeconds = %d", got)
	}
}

func TestOptionsDefaults(t *testing.T) {
	o := Options{}.withDefaults()
	if o.MaxRequests != DefaultMaxRequests || o.Window != DefaultWindow || o.CleanupInterval != DefaultCleanupInterval || o.Clock == nil {
		t.Fatalf("defaults = %+v", o)
	}
}

func TestAllowDenyRetryAfter(t *testing.T) {
	backends(t, Options{MaxRequests: 2, Window: 60 * time.Second}, func(t *testing.T, l Limiter, clock *fakeClock) {
		ctx := context.Background()

		d, err := l.Allow(ctx, "a")
		if err != nil || !d.Allowed || d.Remaining != 1 {
			t.Fatalf("t=0: %+v %v", d, err)
		}
		clock.Advance(time.Second)
		d, _ = l.Allow(ctx, "a")
		if !d.Allowed || d.Remaining != 0 {
			t.Fatalf("t=1: %+v", d)
		}
		clock.Advance(time.Second)
		d, _ = l.Allow(ctx, "a")
		if d.Allowed {
			t.Fatalf("t=2 should be denied: %+v", d)
		}
		if d.RetryAfter != 58*time.Second {
			t.Fatalf("retry after = %v, want 58s", d.RetryAfter)
		}
		if d.Message() != "Rate limit exceeded. Try again in 58 seconds." {
			t.Fatalf("message = %q", d.Message())
		}
	})
}

func TestWindowSlides(t *testing.T) {
	backends(t, Options{MaxRequests: 2, Window: 60 * time.Second}, func(t *testing.T, l Limiter, clock *fakeClock) {
		ctx := context.Background()

		l.Allow(ctx, "a")
		clock.Advance(30 * time.Second)
		l.Allow(ctx, "a")
		if d, _ := l.Allow(ctx, "a"); d.Allowed {
			t.Fatal("third request inside window must be denied")
		}

		// first timestamp leaves the window exactly at t=60
		clock.Advance(30 * time.Second)
		d, _ := l.Allow(ctx, "a")
		if !d.Allowed {
			t.Fatalf("expected admission once the oldest expired: %+v", d)
		}
		if d, _ := l.Allow(ctx, "a"); d.Allowed || d.RetryAfter != 30*time.Second {
			t.Fatalf("expected deny with 30s retry, got %+v", d)
		}
	})
}

func TestRemainingIsReadOnly(t *testing.T) {
	backends(t, Options{MaxRequests: 3, Window: time.Minute}, func(t *testing.T, l Limiter, clock *fakeClock) {
		ctx := context.Background()

		for i := 0; i < 5; i++ {
			if n, err := l.Remaining(ctx, "a"); err != nil || n != 3 {
				t.Fatalf("Remaining = %d, %v; want 3", n, err)
			}
		}
		l.Allow(ctx, "a")
		if n, _ := l.Remaining(ctx, "a"); n != 2 {
			t.Fatalf("Remaining = %d, want 2", n)
		}
		clock.Advance(time.Minute)
		if n, _ := l.Remaining(ctx, "a"); n != 3 {
			t.Fatalf("Remaining after window = %d, want 3", n)
		}
	})
}

func TestClientsAreIndependent(t *testing.T) {
	backends(t, Options{MaxRequests: 1, Window: time.Minute}, func(t *testing.T, l Limiter, clock *fakeClock) {
		ctx := context.Background()
		if d, _ := l.Allow(ctx, "a"); !d.Allowed {
			t.Fatal("a denied")
		}
		if d, _ := l.Allow(ctx, "b"); !d.Allowed {
			t.Fatal("b denied")
		}
		if d, _ := l.Allow(ctx, "a"); d.Allowed {
			t.Fatal("a admitted twice")
		}
	})
}

func TestReset(t *testing.T) {
	backends(t, Options{MaxRequests: 1, Window: time.Minute}, func(t *testing.T, l Limiter, clock *fakeClock) {
		ctx := context.Background()
		l.Allow(ctx, "a")
		if err := l.Reset(ctx, "a"); err != nil {
			t.Fatalf("Reset: %v", err)
		}
		if d, _ := l.Allow(ctx, "a"); !d.Allowed {
			t.Fatal("expected admission after reset")
		}
	})
}

func TestConcurrentAdmission(t *testing.T) {
	const k, n = 5, 50
	backends(t, Options{MaxRequests: k, Window: time.Hour}, func(t *testing.T, l Limiter, clock *fakeClock) {
		var admitted int64
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				d, err := l.Allow(context.Background(), "burst")
				if err != nil {
					t.Error(err)
					return
				}
				if d.Allowed {
					atomic.AddInt64(&admitted, 1)
				}
			}()
		}
		wg.Wait()
		if admitted != k {
			t.Fatalf("admitted %d, want %d", admitted, k)
		}
	})
}

func TestMemoryReclaimsIdleClients(t *testing.T) {
	clock := newFakeClock()
	l := NewMemoryLimiter(Options{MaxRequests: 2, Window: time.Minute, CleanupInterval: 5 * time.Minute, Clock: clock})
	ctx := context.Background()

	l.Allow(ctx, "idle")
	clock.Advance(5 * time.Minute)
	l.Allow(ctx, "recent")
	if l.Len() != 2 {
		t.Fatalf("Len = %d, want 2", l.Len())
	}

	// cleanup interval elapsed: idle is older than two windows, recent is not
	clock.Advance(time.Second)
	if d, _ := l.Allow(ctx, "fresh"); !d.Allowed {
		t.Fatal("reclamation must not reject")
	}
	if l.Len() != 2 {
		t.Fatalf("Len after reclaim = %d, want 2", l.Len())
	}
	if _, ok := l.windows["idle"]; ok {
		t.Fatal("idle client was not reclaimed")
	}
	if n, _ := l.Remaining(ctx, "idle"); n != 2 {
		t.Fatalf("reclaimed client remaining = %d, want 2", n)
	}
}

func TestMemoryWindowBounded(t *testing.T) {
	clock := newFakeClock()
	l := NewMemoryLimiter(Options{MaxRequests: 3, Window: time.Minute, Clock: clock})
	ctx := context.Background()
	for i := 0; i < 100; i++ {
		l.Allow(ctx, "a")
		clock.Advance(10 * time.Second)
	}
	w := l.windows["a"]
	if len(w.buf) != 3 || w.size > 3 {
		t.Fatalf("window grew: cap=%d size=%d", len(w.buf), w.size)
	}
}
