package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/scheduling-api/internal/model"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

// All repository interfaces in one file
type (
	// AvailabilityRepository stores recurring availability rules. Rules are
	// never hard deleted.
	AvailabilityRepository interface {
		Create(ctx context.Context, rule *model.AvailabilityRule) error
		Get(ctx context.Context, doctorID, id uuid.UUID) (*model.AvailabilityRule, error)
		Update(ctx context.Context, rule *model.AvailabilityRule) error
		ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.AvailabilityRule, error)
	}

	// ExceptionRepository stores blocked and deleted slots, keyed by
	// (doctor, date, start, end).
	ExceptionRepository interface {
		// UpsertBlocked creates the row or flips an existing one back to blocked.
		UpsertBlocked(ctx context.Context, slot *model.BlockedSlot) error
		// SetBlocked toggles an existing row; ErrNotFound if the key was never blocked.
		SetBlocked(ctx context.Context, slot *model.BlockedSlot, blocked bool) error
		ListBlocked(ctx context.Context, doctorID uuid.UUID, date model.Date) ([]*model.BlockedSlot, error)
		// CreateUnavailable fails with ErrDuplicate when the key already exists.
		CreateUnavailable(ctx context.Context, slot *model.UnavailableSlot) error
		ListUnavailable(ctx context.Context, doctorID uuid.UUID, date model.Date) ([]*model.UnavailableSlot, error)
	}

	AppointmentRepository interface {
		Create(ctx context.Context, appt *model.Appointment) error
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		Update(ctx context.Context, appt *model.Appointment) error
		ListByDoctorDate(ctx context.Context, doctorID uuid.UUID, date model.Date) ([]*model.Appointment, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		GetPending(ctx context.Context, limit, maxRetries int) ([]*model.OutboxEvent, error)
		MarkProcessed(ctx context.Context, id uuid.UUID) error
		// MarkFailed records an attempt; the event stays pending until
		// retryCount reaches the caller's limit and final is set.
		MarkFailed(ctx context.Context, id uuid.UUID, errMsg string, final bool) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}

	// DoctorRepository reads the doctor directory, which is owned elsewhere.
	DoctorRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error)
	}

	// Store groups the repositories that take part in one unit of work.
	Store interface {
		Availability() AvailabilityRepository
		Exceptions() ExceptionRepository
		Appointments() AppointmentRepository
		Outbox() OutboxRepository
	}

	// Transactor runs fn with a Store whose reads and writes are isolated
	// from every other WithDoctorLock call for the same doctor. Calls for
	// different doctors do not block each other. If fn returns an error
	// nothing it wrote is kept.
	Transactor interface {
		WithDoctorLock(ctx context.Context, doctorID uuid.UUID, fn func(Store) error) error
	}

	// Database is a complete storage backend.
	Database interface {
		Store
		Transactor
		Doctors() DoctorRepository
		Ping(ctx context.Context) error
		Close() error
	}
)
