package crisis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/whisperbox/pkg/logging"
)

const defaultCacheKey = "crisis:keywords:v1"

// CachedSource keeps the raw keyword document in Redis so replicas share one
// upstream fetch per TTL. Cache errors fall through to the wrapped source.
type CachedSource struct {
	inner  Source
	redis  *redis.Client
	key    string
	ttl    time.Duration
	logger *logging.Logger
}

// NewCachedSource wraps inner. A nil client disables caching.
func NewCachedSource(inner Source, client *redis.Client, ttl time.Duration, logger *logging.Logger) *CachedSource {
	if logger == nil {
		logger = logging.Default()
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CachedSource{inner: inner, redis: client, key: defaultCacheKey, ttl: ttl, logger: logger}
}

func (s *CachedSource) Fetch(ctx context.Context) ([]byte, error) {
	if s.redis != nil {
		data, err := s.redis.Get(ctx, s.key).Bytes()
		switch {
		case err == nil && len(data) > 0:
			return data, nil
		case err != nil && !errors.Is(err, redis.Nil):
			s.logger.Warn("crisis keyword cache read failed", "error", err)
		}
	}

	data, err := s.inner.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	if s.redis == nil {
		return data, nil
	}
	// Only documents that parse are shared; a proxy error page must not
	// outlive the upstream fault.
	if _, err := ParseDatabase(data); err != nil {
		s.logger.Warn("not caching unparseable crisis keyword document", "error", err)
		return data, nil
	}
	if err := s.redis.Set(ctx, s.key, data, s.ttl).Err(); err != nil {
		s.logger.Warn("crisis keyword cache write failed", "error", err)
	}
	return data, nil
}

// Invalidate drops the cached document.
func (s *CachedSource) Invalidate(ctx context.Context) error {
	if s.redis == nil {
		return nil
	}
	if err := s.redis.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("crisis: invalidate keyword cache: %w", err)
	}
	return nil
}

func (s *CachedSource) String() string { return "redis-cached:" + s.inner.String() }
