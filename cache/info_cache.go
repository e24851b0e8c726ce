// Package cache keeps extracted video metadata in Redis so repeated
// validations of the same URL skip the extraction tool.
package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"mediagate/core/media"
	"mediagate/logger"
	"mediagate/model"
)

// InfoKeyPrefix namespaces metadata entries.
const InfoKeyPrefix = "videoinfo:"

// opTimeout bounds each Redis round trip.
const opTimeout = 5 * time.Second

// InfoKey 根据URL生成缓存键
func InfoKey(rawURL string) string {
	sum := sha1.Sum([]byte(rawURL))
	return InfoKeyPrefix + hex.EncodeToString(sum[:])
}

// InfoCache stores VideoInfo JSON with a fixed TTL.
type InfoCache struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

func NewInfoCache(rdb redis.UniversalClient, ttl time.Duration) *InfoCache {
	return &InfoCache{rdb: rdb, ttl: ttl}
}

// Get returns nil, nil on a miss.
func (c *InfoCache) Get(ctx context.Context, rawURL string) (*model.VideoInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	data, err := c.rdb.Get(ctx, InfoKey(rawURL)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get video info cache: %w", err)
	}
	var info model.VideoInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("decode video info cache: %w", err)
	}
	return &info, nil
}

func (c *InfoCache) Set(ctx context.Context, rawURL string, info *model.VideoInfo) error {
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("encode video info: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	if err := c.rdb.Set(ctx, InfoKey(rawURL), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("set video info cache: %w", err)
	}
	return nil
}

// CachingFetcher serves Info from the cache and delegates everything else.
// Cache failures only cost a tool run; they never fail the request.
type CachingFetcher struct {
	media.Fetcher
	cache *InfoCache
}

func NewCachingFetcher(next media.Fetcher, cache *InfoCache) *CachingFetcher {
	return &CachingFetcher{Fetcher: next, cache: cache}
}

// Info implements media.Fetcher.
func (f *CachingFetcher) Info(ctx context.Context, rawURL string) (*model.VideoInfo, error) {
	info, err := f.cache.Get(ctx, rawURL)
	if err != nil {
		logger.Warn("视频信息缓存读取失败", logger.String("url", rawURL), logger.ErrorField(err))
	}
	if info != nil {
		logger.Debug("video info cache hit", logger.String("url", rawURL))
		return info, nil
	}

	info, err = f.Fetcher.Info(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if err := f.cache.Set(ctx, rawURL, info); err != nil {
		logger.Warn("视频信息缓存写入失败", logger.String("url", rawURL), logger.ErrorField(err))
	}
	return info, nil
}
