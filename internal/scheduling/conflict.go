package scheduling

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/scheduling-api/internal/model"
	"github.com/jwalitptl/scheduling-api/pkg/errors"
)

// RuleConflict identifies the stored rule a candidate collides with.
type RuleConflict struct {
	RuleID              uuid.UUID
	OverlappingWeekdays model.WeekdaySet
}

// Err converts the conflict into the error returned to callers.
func (c *RuleConflict) Err() *errors.AppError {
	return errors.Conflict(errors.CodeRuleConflict,
		fmt.Sprintf("availability overlaps existing rule on %s", c.OverlappingWeekdays)).
		WithDetail("conflicting_rule_id", c.RuleID.String()).
		WithDetail("overlapping_weekdays", c.OverlappingWeekdays.Names())
}

// CheckRuleConflict returns the first existing rule that shares a weekday, a
// validity day and a time window with candidate, or nil. excludeID skips the
// rule being updated. Empty weekday sets on either side count as every day.
func CheckRuleConflict(candidate *model.AvailabilityRule, existing []*model.AvailabilityRule, excludeID *uuid.UUID) *RuleConflict {
	want := WeekdaysOrAll(candidate.Weekdays)

	for _, r := range existing {
		if excludeID != nil && r.ID == *excludeID {
			continue
		}
		shared := want.Intersect(WeekdaysOrAll(r.Weekdays))
		if shared.IsEmpty() {
			continue
		}
		if !DateRangesOverlap(candidate.StartDate, candidate.EndDate, r.StartDate, r.EndDate) {
			continue
		}
		if !WindowsOverlapOpen(&candidate.StartTime, &candidate.EndTime, &r.StartTime, &r.EndTime) {
			continue
		}
		return &RuleConflict{RuleID: r.ID, OverlappingWeekdays: shared}
	}
	return nil
}

// ValidateBookingWindow runs the checks that need no stored data: the range
// must be non-empty and must not start before now. maxAdvanceDays > 0 also
// rejects dates further ahead than that.
func ValidateBookingWindow(date model.Date, start, end model.TimeOfDay, now time.Time, loc *time.Location, maxAdvanceDays int) error {
	if end <= start {
		return errors.Validation(errors.CodeInvalidRange, "end time must be after start time", nil)
	}
	if loc == nil {
		loc = time.UTC
	}
	now = now.In(loc)
	if date.At(start, loc).Before(now) {
		return errors.PastBooking(fmt.Sprintf("cannot book %s %s in the past", date, start))
	}
	if maxAdvanceDays > 0 && date.After(model.DateOf(now).AddDays(maxAdvanceDays)) {
		return errors.Validation(errors.CodeBeyondHorizon,
			fmt.Sprintf("bookings open at most %d days ahead", maxAdvanceDays), nil)
	}
	return nil
}

// CheckBookingConflict returns the first active appointment in existing whose
// window overlaps [start, end). Back to back appointments do not conflict.
func CheckBookingConflict(start, end model.TimeOfDay, existing []*model.Appointment, excludeID *uuid.UUID) *model.Appointment {
	for _, a := range existing {
		if excludeID != nil && a.ID == *excludeID {
			continue
		}
		if !a.Status.Active() {
			continue
		}
		if SlotsOverlap(start, end, a.StartTime, a.EndTime) {
			return a
		}
	}
	return nil
}

// BookingConflictErr is the error returned for an overlapping appointment.
func BookingConflictErr(a *model.Appointment) *errors.AppError {
	return errors.Conflict(errors.CodeBookingConflict,
		fmt.Sprintf("doctor already has an appointment %s-%s", a.StartTime, a.EndTime)).
		WithDetail("conflicting_appointment_id", a.ID.String())
}
