package cache

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/scheduling-api/internal/model"
	"github.com/jwalitptl/scheduling-api/pkg/metrics"
)

func TestMemorySlotCacheInvalidate(t *testing.T) {
	c := NewMemorySlotCache(time.Minute, metrics.Discard())
	ctx := context.Background()
	doctorID := uuid.New()
	date := model.MustParseDate("2025-03-10")
	slots := []model.Slot{{Start: model.MustParseTimeOfDay("09:00"), End: model.MustParseTimeOfDay("09:30")}}

	_, key, hit := c.Lookup(ctx, doctorID, date)
	assert.False(t, hit)
	c.Store(ctx, key, slots)

	got, _, hit := c.Lookup(ctx, doctorID, date)
	require.True(t, hit)
	assert.Equal(t, slots, got)

	require.NoError(t, c.Invalidate(ctx, doctorID))
	_, _, hit = c.Lookup(ctx, doctorID, date)
	assert.False(t, hit)
}

func TestMemorySlotCacheStaleStoreIsIgnored(t *testing.T) {
	c := NewMemorySlotCache(time.Minute, nil)
	ctx := context.Background()
	doctorID := uuid.New()
	date := model.MustParseDate("2025-03-10")

	// a reader misses, a writer invalidates, then the reader stores its
	// now stale result
	_, staleKey, _ := c.Lookup(ctx, doctorID, date)
	require.NoError(t, c.Invalidate(ctx, doctorID))
	c.Store(ctx, staleKey, []model.Slot{{Start: 540, End: 570}})

	_, _, hit := c.Lookup(ctx, doctorID, date)
	assert.False(t, hit)
}

type mockDoctorRepo struct {
	mock.Mock
}

func (m *mockDoctorRepo) Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	args := m.Called(ctx, id)
	if doc, ok := args.Get(0).(*model.Doctor); ok {
		return doc, args.Error(1)
	}
	return nil, args.Error(1)
}

func TestDoctorDirectoryCachesHits(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()
	repo := new(mockDoctorRepo)
	repo.On("Get", ctx, id).Return(&model.Doctor{ID: id, Name: "Dr. Okafor", Active: true}, nil).Once()

	dir := NewDoctorDirectory(repo, time.Minute, metrics.Discard())
	for i := 0; i < 3; i++ {
		doc, err := dir.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "Dr. Okafor", doc.Name)
	}
	repo.AssertExpectations(t)
}
