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

const appointmentColumns = `id, doctor_id, patient_id, appointment_date, start_time, end_time,
	status, reason, cancel_reason, booked_by, created_at, updated_at`

type appointmentRepository struct {
	BaseRepository
}

func (r *appointmentRepository) Create(ctx context.Context, appt *model.Appointment) (err error) {
	defer r.observe("appointments.create", time.Now(), &err)

	if appt.ID == uuid.Nil {
		appt.ID = uuid.New()
	}
	now := time.Now().UTC()
	appt.CreatedAt = now
	appt.UpdatedAt = now

	query := `
		INSERT INTO appointments (` + appointmentColumns + `)
		VALUES (:id, :doctor_id, :patient_id, :appointment_date, :start_time, :end_time,
			:status, :reason, :cancel_reason, :booked_by, :created_at, :updated_at)
	`
	if _, err = sqlx.NamedExecContext(ctx, r.q, query, appt); err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}
	return nil
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (_ *model.Appointment, err error) {
	defer r.observe("appointments.get", time.Now(), &err)

	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`

	var appt model.Appointment
	if err = sqlx.GetContext(ctx, r.q, &appt, query, id); err != nil {
		err = noRows(err)
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return &appt, nil
}

func (r *appointmentRepository) Update(ctx context.Context, appt *model.Appointment) (err error) {
	defer r.observe("appointments.update", time.Now(), &err)

	appt.UpdatedAt = time.Now().UTC()
	query := `
		UPDATE appointments
		SET appointment_date = :appointment_date, start_time = :start_time, end_time = :end_time,
			status = :status, reason = :reason, cancel_reason = :cancel_reason, updated_at = :updated_at
		WHERE id = :id
	`
	result, err := sqlx.NamedExecContext(ctx, r.q, query, appt)
	if err != nil {
		return fmt.Errorf("failed to update appointment: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		err = repository.ErrNotFound
		return fmt.Errorf("failed to update appointment: %w", err)
	}
	return nil
}

func (r *appointmentRepository) ListByDoctorDate(ctx context.Context, doctorID uuid.UUID, date model.Date) (_ []*model.Appointment, err error) {
	defer r.observe("appointments.list", time.Now(), &err)

	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE doctor_id = $1 AND appointment_date = $2
		ORDER BY start_time, id
	`
	var appts []*model.Appointment
	if err = sqlx.SelectContext(ctx, r.q, &appts, query, doctorID, date); err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appts, nil
}
