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

const ruleColumns = `id, doctor_id, weekdays, start_time, end_time, start_date, end_date,
	slot_duration, break_durations, notes, created_by, created_at, updated_at`

type availabilityRepository struct {
	BaseRepository
}

func (r *availabilityRepository) Create(ctx context.Context, rule *model.AvailabilityRule) (err error) {
	defer r.observe("availability.create", time.Now(), &err)

	if rule.ID == uuid.Nil {
		rule.ID = uuid.New()
	}
	now := time.Now().UTC()
	rule.CreatedAt = now
	rule.UpdatedAt = now
	if rule.BreakDurations == nil {
		rule.BreakDurations = []string{}
	}

	query := `
		INSERT INTO availability_rules (` + ruleColumns + `)
		VALUES (:id, :doctor_id, :weekdays, :start_time, :end_time, :start_date, :end_date,
			:slot_duration, :break_durations, :notes, :created_by, :created_at, :updated_at)
	`
	if _, err = sqlx.NamedExecContext(ctx, r.q, query, rule); err != nil {
		return fmt.Errorf("failed to create availability rule: %w", err)
	}
	return nil
}

func (r *availabilityRepository) Get(ctx context.Context, doctorID, id uuid.UUID) (_ *model.AvailabilityRule, err error) {
	defer r.observe("availability.get", time.Now(), &err)

	query := `SELECT ` + ruleColumns + ` FROM availability_rules WHERE id = $1 AND doctor_id = $2`

	var rule model.AvailabilityRule
	if err = sqlx.GetContext(ctx, r.q, &rule, query, id, doctorID); err != nil {
		err = noRows(err)
		return nil, fmt.Errorf("failed to get availability rule: %w", err)
	}
	return &rule, nil
}

func (r *availabilityRepository) Update(ctx context.Context, rule *model.AvailabilityRule) (err error) {
	defer r.observe("availability.update", time.Now(), &err)

	rule.UpdatedAt = time.Now().UTC()
	query := `
		UPDATE availability_rules
		SET weekdays = :weekdays, start_time = :start_time, end_time = :end_time,
			start_date = :start_date, end_date = :end_date, slot_duration = :slot_duration,
			break_durations = :break_durations, notes = :notes, updated_at = :updated_at
		WHERE id = :id AND doctor_id = :doctor_id
	`
	result, err := sqlx.NamedExecContext(ctx, r.q, query, rule)
	if err != nil {
		return fmt.Errorf("failed to update availability rule: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		err = repository.ErrNotFound
		return fmt.Errorf("failed to update availability rule: %w", err)
	}
	return nil
}

func (r *availabilityRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID) (_ []*model.AvailabilityRule, err error) {
	defer r.observe("availability.list", time.Now(), &err)

	query := `SELECT ` + ruleColumns + ` FROM availability_rules WHERE doctor_id = $1 ORDER BY start_time, id`

	var rules []*model.AvailabilityRule
	if err = sqlx.SelectContext(ctx, r.q, &rules, query, doctorID); err != nil {
		return nil, fmt.Errorf("failed to list availability rules: %w", err)
	}
	return rules, nil
}
