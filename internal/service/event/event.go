package event

import (
	"context"

	"github.com/google/uuid"

	"github.com/jwalitptl/scheduling-api/internal/repository"
)

// Emitter writes domain events to the outbox. It must be given the
// transaction-bound OutboxRepository so the event commits with the write.
type Emitter interface {
	Emit(ctx context.Context, outbox repository.OutboxRepository, doctorID uuid.UUID, eventType string, payload interface{}) error
}
