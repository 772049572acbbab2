package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/jwalitptl/scheduling-api/internal/model"
	"github.com/jwalitptl/scheduling-api/internal/repository"
	"github.com/jwalitptl/scheduling-api/pkg/metrics"
)

// DoctorDirectory caches doctor lookups. Misses are not cached.
type DoctorDirectory struct {
	next    repository.DoctorRepository
	cache   *gocache.Cache
	metrics *metrics.Metrics
}

var _ repository.DoctorRepository = (*DoctorDirectory)(nil)

func NewDoctorDirectory(next repository.DoctorRepository, ttl time.Duration, m *metrics.Metrics) *DoctorDirectory {
	return &DoctorDirectory{
		next:    next,
		cache:   gocache.New(ttl, 2*ttl),
		metrics: m,
	}
}

func (d *DoctorDirectory) Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	if cached, found := d.cache.Get(id.String()); found {
		d.metrics.CacheResult("doctors", true)
		doc := *cached.(*model.Doctor)
		return &doc, nil
	}
	d.metrics.CacheResult("doctors", false)

	doc, err := d.next.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	stored := *doc
	d.cache.Set(id.String(), &stored, gocache.DefaultExpiration)
	return doc, nil
}
