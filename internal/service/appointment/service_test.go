package appointment

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/scheduling-api/internal/model"
	"github.com/jwalitptl/scheduling-api/internal/repository/memory"
	"github.com/jwalitptl/scheduling-api/internal/service/event"
	"github.com/jwalitptl/scheduling-api/pkg/errors"
	"github.com/jwalitptl/scheduling-api/pkg/metrics"
)

var fixedNow = time.Date(2030, 6, 3, 8, 0, 0, 0, time.UTC)

type fixture struct {
	svc      *Service
	db       *memory.Database
	doctorID uuid.UUID
}

func newFixture(t *testing.T, maxAdvanceDays int) *fixture {
	t.Helper()
	now := func() time.Time { return fixedNow }
	db := memory.New(memory.Options{Now: now})
	doctorID := uuid.New()
	db.AddDoctor(model.Doctor{ID: doctorID, Name: "Dr. Silva", Active: true})

	svc := NewService(db, db.Doctors(), event.NewEventService(), metrics.Discard(), zerolog.Nop(), Options{
		Location:       time.UTC,
		MaxAdvanceDays: maxAdvanceDays,
		Now:            now,
	})
	return &fixture{svc: svc, db: db, doctorID: doctorID}
}

func (f *fixture) booking(date, start, end string) *model.CreateAppointmentRequest {
	return &model.CreateAppointmentRequest{
		DoctorID:  f.doctorID,
		PatientID: uuid.New(),
		Date:      date,
		StartTime: start,
		EndTime:   end,
	}
}

func TestBookAndConflict(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	first, err := f.svc.Book(ctx, f.booking("2030-06-04", "10:00", "10:30"))
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusConfirmed, first.Status)

	_, err = f.svc.Book(ctx, f.booking("2030-06-04", "10:15", "10:45"))
	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.KindConflict, appErr.Kind)
	assert.Equal(t, errors.CodeBookingConflict, appErr.Code)
	assert.Equal(t, first.ID.String(), appErr.Details["conflicting_appointment_id"])

	// back to back is allowed
	_, err = f.svc.Book(ctx, f.booking("2030-06-04", "10:30", "11:00"))
	assert.NoError(t, err)

	// another doctor is unaffected
	other := uuid.New()
	f.db.AddDoctor(model.Doctor{ID: other, Active: true})
	req := f.booking("2030-06-04", "10:00", "10:30")
	req.DoctorID = other
	_, err = f.svc.Book(ctx, req)
	assert.NoError(t, err)
}

func TestBookValidation(t *testing.T) {
	f := newFixture(t, 30)
	ctx := context.Background()

	tests := []struct {
		name string
		req  *model.CreateAppointmentRequest
		kind errors.Kind
		code errors.ErrorCode
	}{
		{"inverted", f.booking("2030-06-04", "11:00", "10:00"), errors.KindValidation, errors.CodeInvalidRange},
		{"empty", f.booking("2030-06-04", "10:00", "10:00"), errors.KindValidation, errors.CodeInvalidRange},
		{"past", f.booking("2030-06-03", "07:30", "08:00"), errors.KindPastBooking, ""},
		{"beyond horizon", f.booking("2030-07-04", "10:00", "10:30"), errors.KindValidation, errors.CodeBeyondHorizon},
		{"bad date", f.booking("04-06-2030", "10:00", "10:30"), errors.KindValidation, errors.CodeInvalidDateFormat},
		{"bad time", f.booking("2030-06-04", "25:00", "26:00"), errors.KindValidation, errors.CodeInvalidTimeFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Book(ctx, tt.req)
			appErr, ok := errors.As(err)
			require.True(t, ok, "got %v", err)
			assert.Equal(t, tt.kind, appErr.Kind)
			assert.Equal(t, tt.code, appErr.Code)
		})
	}

	// later today is still bookable
	_, err := f.svc.Book(ctx, f.booking("2030-06-03", "08:00", "08:30"))
	assert.NoError(t, err)
}

func TestBookUnknownDoctor(t *testing.T) {
	f := newFixture(t, 0)
	req := f.booking("2030-06-04", "10:00", "10:30")
	req.DoctorID = uuid.New()
	_, err := f.svc.Book(context.Background(), req)
	assert.True(t, errors.IsKind(err, errors.KindNotFound))
}

func TestValidateBooking(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	appt, err := f.svc.Book(ctx, f.booking("2030-06-04", "10:00", "10:30"))
	require.NoError(t, err)

	check := &model.BookingCheckRequest{DoctorID: f.doctorID, Date: "2030-06-04", StartTime: "10:00", EndTime: "10:30"}
	assert.True(t, errors.IsKind(f.svc.ValidateBooking(ctx, check), errors.KindConflict))

	check.ExcludeID = &appt.ID
	assert.NoError(t, f.svc.ValidateBooking(ctx, check))
}

func TestConcurrentBookingsOnlyOneWins(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	const n = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Book(ctx, f.booking("2030-06-05", "09:00", "09:30"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.IsKind(err, errors.KindConflict):
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, n-1, conflicts)

	appts, err := f.svc.ListForDoctorDate(ctx, f.doctorID, "2030-06-05")
	require.NoError(t, err)
	assert.Len(t, appts, 1)
}

func TestCancelFreesWindow(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	appt, err := f.svc.Book(ctx, f.booking("2030-06-04", "10:00", "10:30"))
	require.NoError(t, err)

	cancelled, err := f.svc.Cancel(ctx, appt.ID, "patient request")
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelReason)
	assert.Equal(t, "patient request", *cancelled.CancelReason)

	_, err = f.svc.Cancel(ctx, appt.ID, "")
	assert.True(t, errors.IsKind(err, errors.KindValidation))

	_, err = f.svc.Book(ctx, f.booking("2030-06-04", "10:00", "10:30"))
	assert.NoError(t, err)

	events, err := f.db.Outbox().GetPending(ctx, 10, 3)
	require.NoError(t, err)
	types := make([]string, 0, len(events))
	for _, e := range events {
		types = append(types, e.EventType)
	}
	assert.Equal(t, []string{
		model.EventAppointmentBooked,
		model.EventAppointmentCancelled,
		model.EventAppointmentBooked,
	}, types)
}

func TestReschedule(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	appt, err := f.svc.Book(ctx, f.booking("2030-06-04", "10:00", "10:30"))
	require.NoError(t, err)
	_, err = f.svc.Book(ctx, f.booking("2030-06-04", "11:00", "11:30"))
	require.NoError(t, err)

	// overlapping only itself is fine
	moved, err := f.svc.Reschedule(ctx, appt.ID, &model.RescheduleRequest{Date: "2030-06-04", StartTime: "10:15", EndTime: "10:45"})
	require.NoError(t, err)
	assert.Equal(t, model.MustParseTimeOfDay("10:15"), moved.StartTime)

	_, err = f.svc.Reschedule(ctx, appt.ID, &model.RescheduleRequest{Date: "2030-06-04", StartTime: "10:45", EndTime: "11:15"})
	assert.True(t, errors.IsKind(err, errors.KindConflict))

	stored, err := f.svc.Get(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MustParseTimeOfDay("10:15"), stored.StartTime)

	_, err = f.svc.Reschedule(ctx, uuid.New(), &model.RescheduleRequest{Date: "2030-06-04", StartTime: "12:00", EndTime: "12:30"})
	assert.True(t, errors.IsKind(err, errors.KindNotFound))
}
