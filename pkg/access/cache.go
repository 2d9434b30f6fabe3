package access

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/opshub-io/opshub/pkg/observability"
	"github.com/opshub-io/opshub/pkg/registry"
)

const cacheName = "resolution"

// CachedService wraps a Service with a Redis read-through cache. Admin
// writes call the invalidation hooks synchronously before returning, so a
// read that follows a completed write never sees the pre-write state.
//
// Redis failures degrade to direct resolution: a dead cache slows the
// system down, it never changes an answer.
type CachedService struct {
	inner   Service
	redis   *redis.Client
	logger  *observability.Logger
	metrics *observability.Metrics
	ttl     map[string]time.Duration
}

// NewCachedService creates a caching layer over the resolver.
func NewCachedService(inner Service, client *redis.Client, logger *observability.Logger, metrics *observability.Metrics) *CachedService {
	return &CachedService{
		inner:   inner,
		redis:   client,
		logger:  logger,
		metrics: metrics,
		ttl: map[string]time.Duration{
			"enabled":   5 * time.Minute,
			"effective": 5 * time.Minute,
		},
	}
}

func enabledKey(tenantID uuid.UUID) string {
	return fmt.Sprintf("access:enabled:%s", tenantID)
}

func effectiveKey(tenantID, userID uuid.UUID) string {
	return fmt.Sprintf("access:effective:%s:%s", tenantID, userID)
}

// EnabledModules implements Service with caching.
func (c *CachedService) EnabledModules(ctx context.Context, tenantID uuid.UUID) (registry.ModuleSet, error) {
	key := enabledKey(tenantID)
	if set, ok := c.get(ctx, key); ok {
		return set, nil
	}

	set, err := c.inner.EnabledModules(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	c.put(ctx, key, set, c.ttl["enabled"])
	return set, nil
}

// EffectiveModules implements Service with caching. Super-admin resolutions
// are not cached: the bypass is an in-memory registry read and keying on
// the flag would double the key space.
func (c *CachedService) EffectiveModules(ctx context.Context, tenantID uuid.UUID, subject Subject) (registry.ModuleSet, error) {
	if subject.SuperAdmin {
		return c.inner.EffectiveModules(ctx, tenantID, subject)
	}

	key := effectiveKey(tenantID, subject.UserID)
	if set, ok := c.get(ctx, key); ok {
		return set, nil
	}

	set, err := c.inner.EffectiveModules(ctx, tenantID, subject)
	if err != nil {
		return nil, err
	}
	c.put(ctx, key, set, c.ttl["effective"])
	return set, nil
}

// InvalidateTenant drops every cached resolution for the tenant. Called
// after a matrix save, which can change any member's effective set.
func (c *CachedService) InvalidateTenant(ctx context.Context, tenantID uuid.UUID) {
	c.metrics.CacheInvalidationsTotal.WithLabelValues(cacheName, "tenant").Inc()

	pattern := fmt.Sprintf("access:effective:%s:*", tenantID)
	iter := c.redis.Scan(ctx, 0, pattern, 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.logger.WithError(err).WithField("tenant_id", tenantID.String()).
			Warn("Cache scan failed during tenant invalidation")
	}
	keys = append(keys, enabledKey(tenantID))

	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		c.logger.WithError(err).WithField("tenant_id", tenantID.String()).
			Warn("Cache invalidation failed, entries will age out")
	}
}

// InvalidateUser drops the cached resolution for one member. Called after
// an override save.
func (c *CachedService) InvalidateUser(ctx context.Context, tenantID, userID uuid.UUID) {
	c.metrics.CacheInvalidationsTotal.WithLabelValues(cacheName, "user").Inc()

	if err := c.redis.Del(ctx, effectiveKey(tenantID, userID)).Err(); err != nil {
		c.logger.WithError(err).
			WithField("tenant_id", tenantID.String()).
			WithField("user_id", userID.String()).
			Warn("Cache invalidation failed, entry will age out")
	}
}

func (c *CachedService) get(ctx context.Context, key string) (registry.ModuleSet, bool) {
	cached, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.WithError(err).WithField("key", key).Debug("Cache read failed")
		}
		c.metrics.CacheMissesTotal.WithLabelValues(cacheName).Inc()
		return nil, false
	}

	var ids []registry.ModuleID
	if err := json.Unmarshal([]byte(cached), &ids); err != nil {
		c.metrics.CacheMissesTotal.WithLabelValues(cacheName).Inc()
		return nil, false
	}

	c.metrics.CacheHitsTotal.WithLabelValues(cacheName).Inc()
	return registry.NewModuleSet(ids...), true
}

func (c *CachedService) put(ctx context.Context, key string, set registry.ModuleSet, ttl time.Duration) {
	ids := set.IDs()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	data, err := json.Marshal(ids)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, key, data, ttl).Err(); err != nil {
		c.logger.WithError(err).WithField("key", key).Debug("Cache write failed")
	}
}

// WithTTL overrides the default entry lifetimes for both key families.
func (c *CachedService) WithTTL(d time.Duration) *CachedService {
	if d > 0 {
		c.ttl["enabled"] = d
		c.ttl["effective"] = d
	}
	return c
}
