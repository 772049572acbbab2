package appointment

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/scheduling-api/internal/model"
	"github.com/jwalitptl/scheduling-api/internal/repository"
	"github.com/jwalitptl/scheduling-api/internal/scheduling"
	"github.com/jwalitptl/scheduling-api/internal/service/event"
	"github.com/jwalitptl/scheduling-api/pkg/auth"
	"github.com/jwalitptl/scheduling-api/pkg/errors"
	"github.com/jwalitptl/scheduling-api/pkg/metrics"
)

type Storage interface {
	repository.Store
	repository.Transactor
}

// Options carry the booking policy. Location is the clinic's zone; "now"
// for the past-booking check is read in it.
type Options struct {
	Location       *time.Location
	MaxAdvanceDays int
	Now            func() time.Time
}

type Service struct {
	store   Storage
	doctors repository.DoctorRepository
	events  event.Emitter
	metrics *metrics.Metrics
	logger  zerolog.Logger
	opts    Options
}

func NewService(store Storage, doctors repository.DoctorRepository, events event.Emitter, m *metrics.Metrics, logger zerolog.Logger, opts Options) *Service {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		store:   store,
		doctors: doctors,
		events:  events,
		metrics: m,
		logger:  logger.With().Str("component", "appointment").Logger(),
		opts:    opts,
	}
}

type window struct {
	date       model.Date
	start, end model.TimeOfDay
}

func parseWindow(date, start, end string) (window, error) {
	d, err := model.ParseDate(date)
	if err != nil {
		return window{}, errors.Validation(errors.CodeInvalidDateFormat, "date must be YYYY-MM-DD", err)
	}
	st, err := model.ParseTimeOfDay(start)
	if err != nil {
		return window{}, errors.Validation(errors.CodeInvalidTimeFormat, "start time must be HH:MM", err)
	}
	en, err := model.ParseEndTimeOfDay(end)
	if err != nil {
		return window{}, errors.Validation(errors.CodeInvalidTimeFormat, "end time must be HH:MM", err)
	}
	return window{date: d, start: st, end: en}, nil
}

func (s *Service) validateWindow(w window) error {
	return scheduling.ValidateBookingWindow(w.date, w.start, w.end, s.opts.Now(), s.opts.Location, s.opts.MaxAdvanceDays)
}

// checkFree returns a Conflict error when an active appointment of doctorID
// overlaps w. excludeID skips the appointment being moved.
func (s *Service) checkFree(ctx context.Context, store repository.Store, doctorID uuid.UUID, w window, excludeID *uuid.UUID) error {
	existing, err := store.Appointments().ListByDoctorDate(ctx, doctorID, w.date)
	if err != nil {
		return err
	}
	if clash := scheduling.CheckBookingConflict(w.start, w.end, existing, excludeID); clash != nil {
		s.metrics.Conflict("booking")
		return scheduling.BookingConflictErr(clash)
	}
	return nil
}

// ValidateBooking checks a proposed booking without writing it. Only the
// appointment store is consulted; availability rules are not.
func (s *Service) ValidateBooking(ctx context.Context, req *model.BookingCheckRequest) error {
	w, err := parseWindow(req.Date, req.StartTime, req.EndTime)
	if err != nil {
		return err
	}
	if err := s.validateWindow(w); err != nil {
		return err
	}
	if err := s.checkFree(ctx, s.store, req.DoctorID, w, req.ExcludeID); err != nil {
		return toAppError(err)
	}
	return nil
}

// Book creates a confirmed appointment. The conflict check and the insert run
// under the doctor's lock, so two overlapping requests cannot both succeed.
func (s *Service) Book(ctx context.Context, req *model.CreateAppointmentRequest) (*model.Appointment, error) {
	w, err := parseWindow(req.Date, req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}
	if err := s.validateWindow(w); err != nil {
		return nil, err
	}
	if err := s.ensureDoctor(ctx, req.DoctorID); err != nil {
		return nil, err
	}

	appt := &model.Appointment{
		Base:      model.Base{ID: uuid.New()},
		DoctorID:  req.DoctorID,
		PatientID: req.PatientID,
		Date:      w.date,
		StartTime: w.start,
		EndTime:   w.end,
		Status:    model.AppointmentStatusConfirmed,
		Reason:    req.Reason,
	}
	if actor, ok := auth.ActorFrom(ctx); ok {
		appt.BookedBy = actor.String()
	}

	err = s.store.WithDoctorLock(ctx, req.DoctorID, func(tx repository.Store) error {
		if err := s.checkFree(ctx, tx, req.DoctorID, w, nil); err != nil {
			return err
		}
		if err := tx.Appointments().Create(ctx, appt); err != nil {
			return err
		}
		return s.events.Emit(ctx, tx.Outbox(), req.DoctorID, model.EventAppointmentBooked, appt)
	})
	if err != nil {
		return nil, toAppError(err)
	}

	s.logger.Info().
		Str("appointment_id", appt.ID.String()).
		Str("doctor_id", appt.DoctorID.String()).
		Str("date", appt.Date.String()).
		Str("start", appt.StartTime.String()).
		Msg("appointment booked")
	return appt, nil
}

// Reschedule moves an active appointment to a new window. The appointment
// does not conflict with its own current window.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, req *model.RescheduleRequest) (*model.Appointment, error) {
	w, err := parseWindow(req.Date, req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}
	if err := s.validateWindow(w); err != nil {
		return nil, err
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	var moved *model.Appointment
	err = s.store.WithDoctorLock(ctx, current.DoctorID, func(tx repository.Store) error {
		appt, err := tx.Appointments().Get(ctx, id)
		if err != nil {
			return err
		}
		if !appt.Status.Active() {
			return errors.Validation(errors.CodeInvalidInput, "cannot reschedule a cancelled appointment", nil)
		}
		if err := s.checkFree(ctx, tx, appt.DoctorID, w, &appt.ID); err != nil {
			return err
		}

		appt.Date = w.date
		appt.StartTime = w.start
		appt.EndTime = w.end
		if err := tx.Appointments().Update(ctx, appt); err != nil {
			return err
		}
		moved = appt
		return s.events.Emit(ctx, tx.Outbox(), appt.DoctorID, model.EventAppointmentRescheduled, appt)
	})
	if err != nil {
		return nil, toAppError(err)
	}
	return moved, nil
}

// Cancel releases the appointment's window.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, reason string) (*model.Appointment, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	var cancelled *model.Appointment
	err = s.store.WithDoctorLock(ctx, current.DoctorID, func(tx repository.Store) error {
		appt, err := tx.Appointments().Get(ctx, id)
		if err != nil {
			return err
		}
		switch appt.Status {
		case model.AppointmentStatusCancelled:
			return errors.Validation(errors.CodeInvalidInput, "appointment is already cancelled", nil)
		case model.AppointmentStatusCompleted:
			return errors.Validation(errors.CodeInvalidInput, "cannot cancel a completed appointment", nil)
		}

		appt.Status = model.AppointmentStatusCancelled
		if reason != "" {
			appt.CancelReason = &reason
		}
		if err := tx.Appointments().Update(ctx, appt); err != nil {
			return err
		}
		cancelled = appt
		return s.events.Emit(ctx, tx.Outbox(), appt.DoctorID, model.EventAppointmentCancelled, appt)
	})
	if err != nil {
		return nil, toAppError(err)
	}
	return cancelled, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	appt, err := s.store.Appointments().Get(ctx, id)
	if err != nil {
		return nil, toAppError(err)
	}
	return appt, nil
}

func (s *Service) ListForDoctorDate(ctx context.Context, doctorID uuid.UUID, date string) ([]*model.Appointment, error) {
	d, err := model.ParseDate(date)
	if err != nil {
		return nil, errors.Validation(errors.CodeInvalidDateFormat, "date must be YYYY-MM-DD", err)
	}
	appts, err := s.store.Appointments().ListByDoctorDate(ctx, doctorID, d)
	if err != nil {
		return nil, errors.Internal(err)
	}
	if appts == nil {
		appts = []*model.Appointment{}
	}
	return appts, nil
}

func (s *Service) ensureDoctor(ctx context.Context, doctorID uuid.UUID) error {
	doc, err := s.doctors.Get(ctx, doctorID)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return errors.NotFound("doctor", err)
		}
		return errors.Internal(err)
	}
	if !doc.Active {
		return errors.NotFound("doctor", nil)
	}
	return nil
}

func toAppError(err error) error {
	if _, ok := errors.As(err); ok {
		return err
	}
	if stderrors.Is(err, repository.ErrNotFound) {
		return errors.NotFound("appointment", err)
	}
	return errors.Internal(fmt.Errorf("appointment: %w", err))
}
