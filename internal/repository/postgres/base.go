package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jwalitptl/scheduling-api/internal/repository"
	"github.com/jwalitptl/scheduling-api/pkg/metrics"
)

const uniqueViolation = "23505"

// BaseRepository provides common functionality for all repositories. q is
// either the pool or the transaction of a WithDoctorLock call.
type BaseRepository struct {
	q       sqlx.ExtContext
	metrics *metrics.Metrics
}

// observe is deferred with a pointer to the method's named error so the final
// value is recorded.
func (r BaseRepository) observe(op string, start time.Time, errp *error) {
	err := *errp
	if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrDuplicate) {
		err = nil
	}
	r.metrics.ObserveDB(op, time.Since(start).Seconds(), err)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func noRows(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	return err
}

type store struct {
	base BaseRepository
}

func (s store) Availability() repository.AvailabilityRepository {
	return &availabilityRepository{s.base}
}

func (s store) Exceptions() repository.ExceptionRepository {
	return &exceptionRepository{s.base}
}

func (s store) Appointments() repository.AppointmentRepository {
	return &appointmentRepository{s.base}
}

func (s store) Outbox() repository.OutboxRepository {
	return &outboxRepository{s.base}
}

// Database is the postgres backend.
type Database struct {
	store
	db *sqlx.DB
}

var _ repository.Database = (*Database)(nil)

func NewDatabase(db *sqlx.DB, m *metrics.Metrics) *Database {
	return &Database{
		store: store{base: BaseRepository{q: db, metrics: m}},
		db:    db,
	}
}

func (d *Database) Doctors() repository.DoctorRepository {
	return &doctorRepository{d.base}
}

func (d *Database) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

func (d *Database) Close() error {
	return d.db.Close()
}

// WithTx executes a function within a transaction
func (d *Database) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// WithDoctorLock runs fn in a transaction holding a transaction scoped
// advisory lock derived from the doctor id. Concurrent writers for the same
// doctor queue on the lock, so the second one reads the first one's rows.
func (d *Database) WithDoctorLock(ctx context.Context, doctorID uuid.UUID, fn func(repository.Store) error) error {
	return d.WithTx(ctx, func(tx *sqlx.Tx) error {
		start := time.Now()
		if _, err := tx.ExecContext(ctx,
			`SELECT pg_advisory_xact_lock(hashtextextended($1::text, 0))`, doctorID.String()); err != nil {
			return fmt.Errorf("failed to lock doctor %s: %w", doctorID, err)
		}
		if d.base.metrics != nil {
			d.base.metrics.LockWait.Observe(time.Since(start).Seconds())
		}

		return fn(store{base: BaseRepository{q: tx, metrics: d.base.metrics}})
	})
}
