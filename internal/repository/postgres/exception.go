package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/scheduling-api/internal/model"
	"github.com/jwalitptl/scheduling-api/internal/repository"
)

type exceptionRepository struct {
	BaseRepository
}

func (r *exceptionRepository) UpsertBlocked(ctx context.Context, slot *model.BlockedSlot) (err error) {
	defer r.observe("exceptions.upsert_blocked", time.Now(), &err)

	if slot.ID == uuid.Nil {
		slot.ID = uuid.New()
	}
	now := time.Now().UTC()
	slot.IsBlocked = true

	query := `
		INSERT INTO blocked_slots (id, doctor_id, slot_date, slot_start, slot_end, is_blocked, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, TRUE, $6, $6)
		ON CONFLICT ON CONSTRAINT blocked_slots_key
		DO UPDATE SET is_blocked = TRUE, updated_at = EXCLUDED.updated_at
		RETURNING id, created_at, updated_at
	`
	row := r.q.QueryRowxContext(ctx, query, slot.ID, slot.DoctorID, slot.Date, slot.SlotStart, slot.SlotEnd, now)
	if err = row.Scan(&slot.ID, &slot.CreatedAt, &slot.UpdatedAt); err != nil {
		return fmt.Errorf("failed to block slot: %w", err)
	}
	return nil
}

func (r *exceptionRepository) SetBlocked(ctx context.Context, slot *model.BlockedSlot, blocked bool) (err error) {
	defer r.observe("exceptions.set_blocked", time.Now(), &err)

	query := `
		UPDATE blocked_slots
		SET is_blocked = $5, updated_at = $6
		WHERE doctor_id = $1 AND slot_date = $2 AND slot_start = $3 AND slot_end = $4
		RETURNING id, created_at, updated_at
	`
	row := r.q.QueryRowxContext(ctx, query,
		slot.DoctorID, slot.Date, slot.SlotStart, slot.SlotEnd, blocked, time.Now().UTC())
	if err = row.Scan(&slot.ID, &slot.CreatedAt, &slot.UpdatedAt); err != nil {
		err = noRows(err)
		return fmt.Errorf("failed to update blocked slot: %w", err)
	}
	slot.IsBlocked = blocked
	return nil
}

func (r *exceptionRepository) ListBlocked(ctx context.Context, doctorID uuid.UUID, date model.Date) (_ []*model.BlockedSlot, err error) {
	defer r.observe("exceptions.list_blocked", time.Now(), &err)

	query := `
		SELECT id, doctor_id, slot_date, slot_start, slot_end, is_blocked, created_at, updated_at
		FROM blocked_slots
		WHERE doctor_id = $1 AND slot_date = $2
		ORDER BY slot_start, slot_end
	`
	var slots []*model.BlockedSlot
	if err = sqlx.SelectContext(ctx, r.q, &slots, query, doctorID, date); err != nil {
		return nil, fmt.Errorf("failed to list blocked slots: %w", err)
	}
	return slots, nil
}

func (r *exceptionRepository) CreateUnavailable(ctx context.Context, slot *model.UnavailableSlot) (err error) {
	defer r.observe("exceptions.create_unavailable", time.Now(), &err)

	if slot.ID == uuid.Nil {
		slot.ID = uuid.New()
	}
	slot.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO unavailable_slots (id, doctor_id, slot_date, slot_start, slot_end, created_at)
		VALUES (:id, :doctor_id, :slot_date, :slot_start, :slot_end, :created_at)
	`
	if _, err = sqlx.NamedExecContext(ctx, r.q, query, slot); err != nil {
		if isUniqueViolation(err) {
			err = repository.ErrDuplicate
		}
		return fmt.Errorf("failed to delete slot: %w", err)
	}
	return nil
}

func (r *exceptionRepository) ListUnavailable(ctx context.Context, doctorID uuid.UUID, date model.Date) (_ []*model.UnavailableSlot, err error) {
	defer r.observe("exceptions.list_unavailable", time.Now(), &err)

	query := `
		SELECT id, doctor_id, slot_date, slot_start, slot_end, created_at
		FROM unavailable_slots
		WHERE doctor_id = $1 AND slot_date = $2
		ORDER BY slot_start, slot_end
	`
	var slots []*model.UnavailableSlot
	if err = sqlx.SelectContext(ctx, r.q, &slots, query, doctorID, date); err != nil {
		return nil, fmt.Errorf("failed to list deleted slots: %w", err)
	}
	return slots, nil
}
