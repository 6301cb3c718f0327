package cache

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/negraodenio/roast/internal/constants"
	"github.com/negraodenio/roast/internal/domain"
)

// WallCache keeps the public wall listing for a short TTL. Errors degrade to
// misses.
type WallCache struct {
	cache *CacheService
	ttl   time.Duration
}

func NewWallCache(cache *CacheService, ttl time.Duration) *WallCache {
	if ttl <= 0 {
		ttl = constants.RoastConfig.WallCacheTTL
	}
	return &WallCache{cache: cache, ttl: ttl}
}

func (w *WallCache) GetWall(ctx context.Context) ([]domain.WallEntry, bool) {
	var entries []domain.WallEntry
	found, err := w.cache.Get(ctx, constants.CacheKeys.Wall, &entries)
	if err != nil || !found || entries == nil {
		return nil, false
	}
	return entries, true
}

func (w *WallCache) SetWall(ctx context.Context, entries []domain.WallEntry) {
	if err := w.cache.Set(ctx, constants.CacheKeys.Wall, entries, w.ttl); err != nil {
		w.cache.logger.Warn("Failed to cache wall", zap.Error(err))
	}
}

// Invalidate drops the cached wall so a new public roast shows up at once.
func (w *WallCache) Invalidate(ctx context.Context) {
	if err := w.cache.Del(ctx, constants.CacheKeys.Wall); err != nil {
		w.cache.logger.Warn("Failed to invalidate wall cache", zap.Error(err))
	}
}
