package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/scheduling-api/internal/model"
)

type outboxRepository struct {
	BaseRepository
}

func (r *outboxRepository) Create(ctx context.Context, event *model.OutboxEvent) (err error) {
	defer r.observe("outbox.create", time.Now(), &err)

	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}
	if event.Payload == nil {
		return fmt.Errorf("event payload cannot be nil")
	}

	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	now := time.Now().UTC()
	event.CreatedAt = now
	event.UpdatedAt = now
	event.Status = model.OutboxStatusPending

	query := `
		INSERT INTO outbox_events (
			id, doctor_id, event_type, payload, headers, status, retry_count, created_at, updated_at
		) VALUES (
			:id, :doctor_id, :event_type, :payload, :headers, :status, 0, :created_at, :updated_at
		)
	`
	if _, err = sqlx.NamedExecContext(ctx, r.q, query, event); err != nil {
		return fmt.Errorf("failed to create outbox event: %w", err)
	}
	return nil
}

func (r *outboxRepository) GetPending(ctx context.Context, limit, maxRetries int) (_ []*model.OutboxEvent, err error) {
	defer r.observe("outbox.get_pending", time.Now(), &err)

	query := `
		SELECT id, doctor_id, event_type, payload, headers, status, error_message,
			retry_count, created_at, processed_at, updated_at
		FROM outbox_events
		WHERE status = $1 AND retry_count < $2
		ORDER BY created_at ASC
		LIMIT $3
	`
	var events []*model.OutboxEvent
	if err = sqlx.SelectContext(ctx, r.q, &events, query, model.OutboxStatusPending, maxRetries, limit); err != nil {
		return nil, fmt.Errorf("failed to get pending events: %w", err)
	}
	return events, nil
}

func (r *outboxRepository) MarkProcessed(ctx context.Context, id uuid.UUID) (err error) {
	defer r.observe("outbox.mark_processed", time.Now(), &err)

	query := `
		UPDATE outbox_events
		SET status = $1, processed_at = NOW(), updated_at = NOW(), error_message = NULL
		WHERE id = $2
	`
	if _, err = r.q.ExecContext(ctx, query, model.OutboxStatusProcessed, id); err != nil {
		return fmt.Errorf("failed to mark event processed: %w", err)
	}
	return nil
}

func (r *outboxRepository) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string, final bool) (err error) {
	defer r.observe("outbox.mark_failed", time.Now(), &err)

	query := `
		UPDATE outbox_events
		SET retry_count = retry_count + 1,
			error_message = $1,
			status = CASE WHEN $2::boolean THEN $3 ELSE status END,
			updated_at = NOW()
		WHERE id = $4
	`
	if _, err = r.q.ExecContext(ctx, query, errMsg, final, model.OutboxStatusFailed, id); err != nil {
		return fmt.Errorf("failed to mark event failed: %w", err)
	}
	return nil
}

func (r *outboxRepository) DeleteProcessedBefore(ctx context.Context, before time.Time) (_ int64, err error) {
	defer r.observe("outbox.cleanup", time.Now(), &err)

	query := `
		DELETE FROM outbox_events
		WHERE status = $1
		AND processed_at < $2
	`
	result, err := r.q.ExecContext(ctx, query, model.OutboxStatusProcessed, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete processed events: %w", err)
	}

	return result.RowsAffected()
}
