package limiter

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedisLimiter(t *testing.T, opts Options) *RedisLimiter {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewRedisLimiter(rdb, opts)
}

func TestRedisKeysExpire(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	l := NewRedisLimiter(rdb, Options{MaxRequests: 2, Window: time.Minute})
	ctx := context.Background()

	if _, err := l.Allow(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Allow(ctx, "b"); err != nil {
		t.Fatal(err)
	}
	if n, err := CountKeys(ctx, rdb); err != nil || n != 2 {
		t.Fatalf("CountKeys = %d, %v", n, err)
	}
	if ttl := mr.TTL(KeyPrefix + "a"); ttl != 2*time.Minute {
		t.Fatalf("ttl = %v, want 2m", ttl)
	}

	mr.FastForward(2*time.Minute + time.Second)
	if n, _ := CountKeys(ctx, rdb); n != 0 {
		t.Fatalf("CountKeys after expiry = %d, want 0", n)
	}
}

func TestRedisUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer rdb.Close()
	l := NewRedisLimiter(rdb, Options{MaxRequests: 1, Window: time.Minute})
	mr.Close()

	if _, err := l.Allow(context.Background(), "a"); err == nil {
		t.Fatal("expected error when Redis is down")
	}
	if _, err := l.Remaining(context.Background(), "a"); err == nil {
		t.Fatal("expected error when Redis is down")
	}
}

func TestToInt64(t *testing.T) {
	if n, err := toInt64(int64(7)); err != nil || n != 7 {
		t.Fatalf("int64: %d %v", n, err)
	}
	if n, err := toInt64("1700000000123"); err != nil || n != 1700000000123 {
		t.Fatalf("string: %d %v", n, err)
	}
	if _, err := toInt64(3.5); err == nil {
		t.Fatal("expected error for float64")
	}
}
