package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/mentorship-api/pkg/errors"
)

// Cache key prefixes. Invalidation deletes by prefix pattern.
const (
	cachePrefixDirectory = "directory"
	cachePrefixDashboard = "dashboard"
)

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CacheService wraps a CacheRepository with metrics. A disabled service
// behaves as an always-missing cache.
type CacheService struct {
	repo       CacheRepository
	metrics    *MetricsService
	defaultTTL time.Duration
	logger     *zap.Logger
	enabled    bool
}

// NewCacheService constructs a cache service.
func NewCacheService(repo CacheRepository, metrics *MetricsService, defaultTTL time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, defaultTTL: defaultTTL, logger: logger, enabled: enabled}
}

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// Get loads key into dest and reports whether it was a hit.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	start := time.Now()
	err := s.repo.Get(ctx, key, dest)
	hit := err == nil
	s.metrics.RecordCacheOperation(hit, time.Since(start))
	if err != nil {
		if appErrors.Is(err, appErrors.ErrCacheMiss) {
			return false, nil
		}
		s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		return false, err
	}
	return true, nil
}

// Set stores the value; a zero ttl uses the service default.
func (s *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	start := time.Now()
	err := s.repo.Set(ctx, key, value, ttl)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
	return err
}

// Invalidate removes every key under the given prefixes.
func (s *CacheService) Invalidate(ctx context.Context, prefixes ...string) {
	if !s.Enabled() {
		return
	}
	for _, prefix := range prefixes {
		if err := s.repo.DeleteByPattern(ctx, prefix+":*"); err != nil {
			s.logger.Warn("cache invalidate failed", zap.String("prefix", prefix), zap.Error(err))
		}
	}
}

// cached returns the value under key, loading and storing it on a miss. The
// boolean reports a cache hit. Cache failures fall through to load.
func cached[T any](ctx context.Context, cache *CacheService, key string, ttl time.Duration, load func() (T, error)) (T, bool, error) {
	var value T
	if hit, _ := cache.Get(ctx, key, &value); hit {
		return value, true, nil
	}
	value, err := load()
	if err != nil {
		return value, false, err
	}
	_ = cache.Set(ctx, key, value, ttl)
	return value, false, nil
}

func cacheKey(prefix string, parts ...interface{}) string {
	key := prefix
	for _, part := range parts {
		key += fmt.Sprintf(":%v", part)
	}
	return key
}
