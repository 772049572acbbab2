package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/jwalitptl/scheduling-api/internal/model"
	"github.com/jwalitptl/scheduling-api/pkg/metrics"
)

// MemorySlotCache keeps entries in process with go-cache. Versions never
// expire so an invalidation cannot be lost to eviction.
type MemorySlotCache struct {
	entries *gocache.Cache
	mu      sync.Mutex
	version map[uuid.UUID]int64
	metrics *metrics.Metrics
}

func NewMemorySlotCache(ttl time.Duration, m *metrics.Metrics) *MemorySlotCache {
	return &MemorySlotCache{
		entries: gocache.New(ttl, 2*ttl),
		version: make(map[uuid.UUID]int64),
		metrics: m,
	}
}

func (c *MemorySlotCache) Lookup(ctx context.Context, doctorID uuid.UUID, date model.Date) ([]model.Slot, string, bool) {
	c.mu.Lock()
	v := c.version[doctorID]
	c.mu.Unlock()

	key := entryKey(doctorID, v, date)
	if cached, found := c.entries.Get(key); found {
		c.metrics.CacheResult("slots", true)
		slots := cached.([]model.Slot)
		return append([]model.Slot(nil), slots...), key, true
	}
	c.metrics.CacheResult("slots", false)
	return nil, key, false
}

func (c *MemorySlotCache) Store(ctx context.Context, key string, slots []model.Slot) {
	if key == "" {
		return
	}
	c.entries.Set(key, append([]model.Slot(nil), slots...), gocache.DefaultExpiration)
}

func (c *MemorySlotCache) Invalidate(ctx context.Context, doctorID uuid.UUID) error {
	c.mu.Lock()
	c.version[doctorID]++
	c.mu.Unlock()
	return nil
}
