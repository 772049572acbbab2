package event

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/scheduling-api/internal/model"
	"github.com/jwalitptl/scheduling-api/internal/repository"
	"github.com/jwalitptl/scheduling-api/pkg/auth"
)

type EventService struct{}

var _ Emitter = (*EventService)(nil)

func NewEventService() *EventService {
	return &EventService{}
}

// Emit records the request id and actor from ctx as headers.
func (s *EventService) Emit(ctx context.Context, outbox repository.OutboxRepository, doctorID uuid.UUID, eventType string, payload interface{}) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	headers := model.JSONMap{}
	if rid := auth.RequestIDFrom(ctx); rid != "" {
		headers["request_id"] = rid
	}
	if actor, ok := auth.ActorFrom(ctx); ok {
		headers["actor"] = actor.String()
	}

	event := &model.OutboxEvent{
		ID:        uuid.New(),
		DoctorID:  doctorID,
		EventType: eventType,
		Payload:   payloadJSON,
		Headers:   headers,
	}

	if err := outbox.Create(ctx, event); err != nil {
		return fmt.Errorf("failed to create outbox event: %w", err)
	}
	return nil
}
