package worker

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/scheduling-api/internal/model"
	"github.com/jwalitptl/scheduling-api/internal/repository/memory"
	"github.com/jwalitptl/scheduling-api/pkg/metrics"
)

func TestCleanupDeletesOnlyOldProcessedEvents(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2030, 6, 1, 12, 0, 0, 0, time.UTC)
	db := memory.New(memory.Options{Now: func() time.Time { return clock }})

	create := func() *model.OutboxEvent {
		e := &model.OutboxEvent{DoctorID: uuid.New(), EventType: model.EventSlotDeleted, Payload: []byte(`{}`)}
		require.NoError(t, db.Outbox().Create(ctx, e))
		return e
	}

	old := create()
	require.NoError(t, db.Outbox().MarkProcessed(ctx, old.ID))
	failed := create()
	require.NoError(t, db.Outbox().MarkFailed(ctx, failed.ID, "boom", true))

	clock = clock.Add(48 * time.Hour)
	recent := create()
	require.NoError(t, db.Outbox().MarkProcessed(ctx, recent.ID))
	pending := create()

	w := NewOutboxCleanupWorker(db.Outbox(), 24*time.Hour, time.Hour, metrics.Discard(), zerolog.Nop())
	w.now = func() time.Time { return clock }

	n, err := w.Cleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	left, err := db.Outbox().GetPending(ctx, 10, 5)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, pending.ID, left[0].ID)
}
