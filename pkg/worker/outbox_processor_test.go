package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/scheduling-api/internal/model"
	"github.com/jwalitptl/scheduling-api/internal/repository/memory"
	"github.com/jwalitptl/scheduling-api/pkg/logger"
	"github.com/jwalitptl/scheduling-api/pkg/messaging"
	"github.com/jwalitptl/scheduling-api/pkg/metrics"
)

func testConfig() OutboxProcessorConfig {
	return OutboxProcessorConfig{
		BatchSize:     10,
		PollInterval:  time.Second,
		RetryAttempts: 1,
		MaxRetries:    2,
		Channel:       "scheduling.events",
	}
}

func testLogger() *logger.Logger {
	return logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Format: "json", Output: &bytes.Buffer{}})
}

func seedEvent(t *testing.T, db *memory.Database, eventType string) *model.OutboxEvent {
	t.Helper()
	e := &model.OutboxEvent{DoctorID: uuid.New(), EventType: eventType, Payload: json.RawMessage(`{"ok":true}`)}
	require.NoError(t, db.Outbox().Create(context.Background(), e))
	return e
}

func TestProcessOncePublishesAndMarksProcessed(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db := memory.New(memory.Options{})
	broker := messaging.NewMemoryBroker()
	sub, err := broker.Subscribe(ctx, "scheduling.events")
	require.NoError(t, err)

	var handled []string
	p, err := NewOutboxProcessor(db.Outbox(), broker, testConfig(), testLogger(), metrics.Discard(),
		func(_ context.Context, e *model.OutboxEvent) error {
			handled = append(handled, e.EventType)
			return nil
		})
	require.NoError(t, err)

	seeded := seedEvent(t, db, model.EventSlotBlocked)

	n, err := p.ProcessOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{model.EventSlotBlocked}, handled)

	select {
	case raw := <-sub:
		var msg messaging.Message
		require.NoError(t, json.Unmarshal(raw, &msg))
		assert.Equal(t, seeded.ID.String(), msg.ID)
		assert.Equal(t, model.EventSlotBlocked, msg.Type)
		assert.JSONEq(t, `{"ok":true}`, string(msg.Payload))
	case <-time.After(time.Second):
		t.Fatal("message was not published")
	}

	pending, err := db.Outbox().GetPending(ctx, 10, 5)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestProcessOnceMarksFailedAfterMaxRetries(t *testing.T) {
	ctx := context.Background()
	db := memory.New(memory.Options{})

	p, err := NewOutboxProcessor(db.Outbox(), messaging.NewMemoryBroker(), testConfig(), testLogger(), metrics.Discard(),
		func(context.Context, *model.OutboxEvent) error { return errors.New("smtp down") })
	require.NoError(t, err)

	seedEvent(t, db, model.EventAppointmentBooked)

	n, err := p.ProcessOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	pending, err := db.Outbox().GetPending(ctx, 10, 2)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 1, pending[0].RetryCount)
	assert.Equal(t, model.OutboxStatusPending, pending[0].Status)

	_, err = p.ProcessOnce(ctx)
	require.NoError(t, err)

	pending, err = db.Outbox().GetPending(ctx, 10, 10)
	require.NoError(t, err)
	assert.Empty(t, pending, "event should be FAILED after max retries")
}

func TestNewOutboxProcessorValidatesConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Channel = ""
	_, err := NewOutboxProcessor(nil, nil, cfg, testLogger(), metrics.Discard())
	assert.Error(t, err)
}
