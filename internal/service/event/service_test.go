package event

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/scheduling-api/internal/model"
	"github.com/jwalitptl/scheduling-api/internal/repository/memory"
	"github.com/jwalitptl/scheduling-api/pkg/auth"
)

func TestEmitWritesOutboxRow(t *testing.T) {
	db := memory.New(memory.Options{})
	ctx := auth.WithRequestID(context.Background(), "req-42")
	ctx = auth.WithActor(ctx, auth.Actor{Role: auth.RoleClinic, Subject: "front-desk"})
	doctorID := uuid.New()

	err := NewEventService().Emit(ctx, db.Outbox(), doctorID, model.EventSlotBlocked, map[string]string{"slot_start": "09:00"})
	require.NoError(t, err)

	events, err := db.Outbox().GetPending(ctx, 10, 3)
	require.NoError(t, err)
	require.Len(t, events, 1)

	e := events[0]
	assert.Equal(t, doctorID, e.DoctorID)
	assert.Equal(t, model.EventSlotBlocked, e.EventType)
	assert.Equal(t, "req-42", e.Headers["request_id"])
	assert.Equal(t, "clinic:front-desk", e.Headers["actor"])

	var payload map[string]string
	require.NoError(t, json.Unmarshal(e.Payload, &payload))
	assert.Equal(t, "09:00", payload["slot_start"])
}
