package limiter

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces limiter keys in Redis.
const KeyPrefix = "ratelimit:"

// allowScript prunes, counts and appends in one atomic step. Scores are
// milliseconds. Keys expire after twice the window, which reclaims idle clients.
//
// Returns {allowed, count, oldest_score}.
var allowScript = redis.NewScript(`
local key    = KEYS[1]
local now    = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit  = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)
if count >= limit then
  local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
  return {0, count, oldest[2]}
end
redis.call('ZADD', key, now, ARGV[4])
redis.call('PEXPIRE', key, window * 2)
return {1, count + 1, '0'}
`)

// RedisLimiter keeps each client's window in a sorted set.
type RedisLimiter struct {
	rdb  redis.UniversalClient
	opts Options
}

// NewRedisLimiter creates a limiter backed by rdb. CleanupInterval is unused;
// key expiry does the reclamation.
func NewRedisLimiter(rdb redis.UniversalClient, opts Options) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, opts: opts.withDefaults()}
}

func (l *RedisLimiter) Limit() int            { return l.opts.MaxRequests }
func (l *RedisLimiter) Window() time.Duration { return l.opts.Window }

func key(clientID string) string {
	return KeyPrefix + clientID
}

// Allow implements Limiter.
func (l *RedisLimiter) Allow(ctx context.Context, clientID string) (Decision, error) {
	now := l.opts.Clock.Now()
	nowMs := now.UnixMilli()
	windowMs := l.opts.Window.Milliseconds()

	raw, err := allowScript.Run(ctx, l.rdb, []string{key(clientID)},
		nowMs, windowMs, l.opts.MaxRequests, uuid.NewString()).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit script: %w", err)
	}
	reply, ok := raw.([]interface{})
	if !ok || len(reply) != 3 {
		return Decision{}, fmt.Errorf("rate limit script: unexpected reply %v", raw)
	}

	allowed, err := toInt64(reply[0])
	if err != nil {
		return Decision{}, err
	}
	count, err := toInt64(reply[1])
	if err != nil {
		return Decision{}, err
	}

	d := Decision{
		Allowed:   allowed == 1,
		Limit:     l.opts.MaxRequests,
		Remaining: remaining(l.opts.MaxRequests, int(count)),
	}
	if !d.Allowed {
		oldestMs, err := toInt64(reply[2])
		if err != nil {
			return Decision{}, err
		}
		expiry := time.UnixMilli(oldestMs).Add(l.opts.Window)
		d.RetryAfter = clampRetry(expiry.Sub(now))
	}
	return d, nil
}

// Remaining implements Limiter.
func (l *RedisLimiter) Remaining(ctx context.Context, clientID string) (int, error) {
	cutoff := l.opts.Clock.Now().Add(-l.opts.Window).UnixMilli()
	count, err := l.rdb.ZCount(ctx, key(clientID), "("+strconv.FormatInt(cutoff, 10), "+inf").Result()
	if err != nil {
		return 0, fmt.Errorf("count requests: %w", err)
	}
	return remaining(l.opts.MaxRequests, int(count)), nil
}

// Reset implements Limiter.
func (l *RedisLimiter) Reset(ctx context.Context, clientID string) error {
	if err := l.rdb.Del(ctx, key(clientID)).Err(); err != nil {
		return fmt.Errorf("reset %s: %w", clientID, err)
	}
	return nil
}

// CountKeys returns how many client windows exist in Redis.
func CountKeys(ctx context.Context, rdb redis.UniversalClient) (int, error) {
	var (
		cursor uint64
		total  int
	)
	for {
		keys, next, err := rdb.Scan(ctx, cursor, KeyPrefix+"*", 500).Result()
		if err != nil {
			return 0, fmt.Errorf("scan limiter keys: %w", err)
		}
		total += len(keys)
		if next == 0 {
			return total, nil
		}
		cursor = next
	}
}

func toInt64(v interface{}) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, fmt.Errorf("rate limit script: bad number %q", n)
		}
		return int64(f), nil
	default:
		return 0, fmt.Errorf("rate limit script: unexpected value %T", v)
	}
}
