package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/scheduling-api/internal/model"
	"github.com/jwalitptl/scheduling-api/pkg/metrics"
)

// RedisSlotCache shares generated slots between API replicas. Cache errors
// are logged and treated as misses.
type RedisSlotCache struct {
	client  redis.Cmdable
	ttl     time.Duration
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

func NewRedisSlotCache(client redis.Cmdable, ttl time.Duration, logger zerolog.Logger, m *metrics.Metrics) *RedisSlotCache {
	return &RedisSlotCache{client: client, ttl: ttl, logger: logger, metrics: m}
}

func (c *RedisSlotCache) Lookup(ctx context.Context, doctorID uuid.UUID, date model.Date) ([]model.Slot, string, bool) {
	v, err := c.client.Get(ctx, versionKey(doctorID)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		c.logger.Warn().Err(err).Str("doctor_id", doctorID.String()).Msg("slot cache version lookup failed")
		return nil, "", false
	}

	key := entryKey(doctorID, v, date)
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn().Err(err).Str("key", key).Msg("slot cache get failed")
			return nil, "", false
		}
		c.metrics.CacheResult("slots", false)
		return nil, key, false
	}

	var slots []model.Slot
	if err := json.Unmarshal(data, &slots); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("slot cache entry corrupt")
		return nil, key, false
	}
	c.metrics.CacheResult("slots", true)
	return slots, key, true
}

func (c *RedisSlotCache) Store(ctx context.Context, key string, slots []model.Slot) {
	if key == "" {
		return
	}
	if slots == nil {
		slots = []model.Slot{}
	}
	data, err := json.Marshal(slots)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("slot cache set failed")
	}
}

func (c *RedisSlotCache) Invalidate(ctx context.Context, doctorID uuid.UUID) error {
	return c.client.Incr(ctx, versionKey(doctorID)).Err()
}
