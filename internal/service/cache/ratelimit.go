package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/negraodenio/roast/internal/constants"
	"github.com/negraodenio/roast/pkg/errors"
)

// allowScript counts a hit and makes sure the key carries a window. A key
// left without a TTL gets one on its next hit.
var allowScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if redis.call("PTTL", KEYS[1]) < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

// RateLimiter is a fixed-window counter per key. The window starts with the
// first hit.
type RateLimiter struct {
	cache  *CacheService
	limit  int64
	window time.Duration
}

func NewRateLimiter(cache *CacheService, limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = constants.RoastConfig.AnonDailyLimit
	}
	if window <= 0 {
		window = constants.RoastConfig.AnonLimitWindow
	}
	return &RateLimiter{cache: cache, limit: int64(limit), window: window}
}

// Allow counts one attempt against key and reports whether it is within the
// limit.
func (r *RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	count, err := allowScript.Run(ctx, r.cache.client, []string{key}, r.window.Milliseconds()).Int64()
	if err != nil {
		return false, errors.NewCacheError("incr failed", "incr", key, err)
	}

	if count > r.limit {
		r.cache.logger.Info("Rate limit exceeded",
			zap.String("key", key),
			zap.Int64("count", count),
			zap.Int64("limit", r.limit))
		return false, nil
	}
	return true, nil
}
