package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ANANT0908/Medical-Clinic-Booking-System/pkg/logger"
	"github.com/ANANT0908/Medical-Clinic-Booking-System/pkg/redis"
)

const catalogCacheKey = "catalog:services"

// CachedCatalog is a Redis read-through cache over another catalog.
// The full service list is cached under a single key; lookups and
// gender filtering happen in process. Cache failures fall through to
// the inner catalog.
type CachedCatalog struct {
	inner Catalog
	redis *redis.Client
	ttl   time.Duration
}

// NewCached wraps a catalog with a Redis cache.
func NewCached(inner Catalog, client *redis.Client, ttl time.Duration) *CachedCatalog {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedCatalog{inner: inner, redis: client, ttl: ttl}
}

// ByIDs resolves ids against the cached list.
func (c *CachedCatalog) ByIDs(ctx context.Context, ids []int) ([]Service, error) {
	services, err := c.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	byID := make(map[int]Service, len(services))
	for _, s := range services {
		byID[s.ID] = s
	}

	result := make([]Service, 0, len(ids))
	for _, id := range ids {
		if s, ok := byID[id]; ok {
			result = append(result, s)
		}
	}
	return result, nil
}

// List filters the cached list by gender.
func (c *CachedCatalog) List(ctx context.Context, gender string) ([]Service, error) {
	services, err := c.loadAll(ctx)
	if err != nil {
		return nil, err
	}
	if gender == "" {
		return services, nil
	}
	var out []Service
	for _, s := range services {
		if s.AvailableFor(gender) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (c *CachedCatalog) loadAll(ctx context.Context) ([]Service, error) {
	cached, err := c.redis.Get(ctx, catalogCacheKey).Result()
	if err == nil {
		var services []Service
		if err := json.Unmarshal([]byte(cached), &services); err == nil {
			return services, nil
		}
		// Corrupt cache entry; drop it and reload.
		c.redis.Del(ctx, catalogCacheKey)
	} else if !errors.Is(err, goredis.Nil) {
		logger.Get().Warn("catalog cache read failed", zap.Error(err))
	}

	services, err := c.inner.List(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	if data, err := json.Marshal(services); err == nil {
		if err := c.redis.Set(ctx, catalogCacheKey, data, c.ttl).Err(); err != nil {
			logger.Get().Warn("catalog cache write failed", zap.Error(err))
		}
	}

	return services, nil
}

var _ Catalog = (*CachedCatalog)(nil)
