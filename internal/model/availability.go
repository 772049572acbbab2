package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// AvailabilityRule is a recurring weekly window in which a doctor takes
// appointments. StartDate and EndDate bound the rule's validity; nil means
// open on that side.
type AvailabilityRule struct {
	ID             uuid.UUID      `db:"id" json:"id"`
	DoctorID       uuid.UUID      `db:"doctor_id" json:"doctor_id"`
	Weekdays       WeekdaySet     `db:"weekdays" json:"day_of_week"`
	StartTime      TimeOfDay      `db:"start_time" json:"start_time"`
	EndTime        TimeOfDay      `db:"end_time" json:"end_time"`
	StartDate      *Date          `db:"start_date" json:"start_date,omitempty"`
	EndDate        *Date          `db:"end_date" json:"end_date,omitempty"`
	SlotDuration   string         `db:"slot_duration" json:"slot_duration"`
	BreakDurations pq.StringArray `db:"break_durations" json:"break_duration"`
	Notes          string         `db:"notes" json:"notes,omitempty"`
	CreatedBy      string         `db:"created_by" json:"created_by,omitempty"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

// CoversDate reports whether date falls inside the rule's validity range.
func (r *AvailabilityRule) CoversDate(date Date) bool {
	if r.StartDate != nil && date.Before(*r.StartDate) {
		return false
	}
	if r.EndDate != nil && date.After(*r.EndDate) {
		return false
	}
	return true
}

// BlockedSlot is a toggleable exception. The row is kept after unblocking.
type BlockedSlot struct {
	ID        uuid.UUID `db:"id" json:"id"`
	DoctorID  uuid.UUID `db:"doctor_id" json:"doctor_id"`
	Date      Date      `db:"slot_date" json:"date"`
	SlotStart TimeOfDay `db:"slot_start" json:"slot_start"`
	SlotEnd   TimeOfDay `db:"slot_end" json:"slot_end"`
	IsBlocked bool      `db:"is_blocked" json:"is_blocked"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// UnavailableSlot is a deleted slot. Once created it is never restored.
type UnavailableSlot struct {
	ID        uuid.UUID `db:"id" json:"id"`
	DoctorID  uuid.UUID `db:"doctor_id" json:"doctor_id"`
	Date      Date      `db:"slot_date" json:"date"`
	SlotStart TimeOfDay `db:"slot_start" json:"slot_start"`
	SlotEnd   TimeOfDay `db:"slot_end" json:"slot_end"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Slot is one bookable interval on a given day.
type Slot struct {
	Start TimeOfDay `json:"start"`
	End   TimeOfDay `json:"end"`
}

type SlotList struct {
	DoctorID uuid.UUID `json:"doctor_id"`
	Date     Date      `json:"date"`
	Slots    []Slot    `json:"slots"`
}

// Exceptions groups the exception rows for one doctor and date.
type Exceptions struct {
	Blocked     []*BlockedSlot     `json:"blocked"`
	Unavailable []*UnavailableSlot `json:"unavailable"`
}

type CreateRuleRequest struct {
	Weekdays       WeekdaySet `json:"day_of_week"`
	StartTime      string     `json:"start_time" binding:"required,hhmm"`
	EndTime        string     `json:"end_time" binding:"required,hhmm_end"`
	StartDate      string     `json:"start_date" binding:"omitempty,ymd"`
	EndDate        string     `json:"end_date" binding:"omitempty,ymd"`
	SlotDuration   Duration   `json:"slot_duration" binding:"required"`
	BreakDurations Durations  `json:"break_duration"`
	Notes          string     `json:"notes" binding:"max=2000"`
}

// UpdateRuleRequest is a partial update; nil fields are left unchanged.
// ClearStartDate/ClearEndDate reopen a bound.
type UpdateRuleRequest struct {
	Weekdays       *WeekdaySet `json:"day_of_week"`
	StartTime      *string     `json:"start_time" binding:"omitempty,hhmm"`
	EndTime        *string     `json:"end_time" binding:"omitempty,hhmm_end"`
	StartDate      *string     `json:"start_date" binding:"omitempty,ymd"`
	EndDate        *string     `json:"end_date" binding:"omitempty,ymd"`
	ClearStartDate bool        `json:"clear_start_date"`
	ClearEndDate   bool        `json:"clear_end_date"`
	SlotDuration   *Duration   `json:"slot_duration"`
	BreakDurations *Durations  `json:"break_duration"`
	Notes          *string     `json:"notes" binding:"omitempty,max=2000"`
}

// SlotRequest addresses one exception key.
type SlotRequest struct {
	Date      string `json:"date" binding:"required,ymd"`
	SlotStart string `json:"slot_start" binding:"required,hhmm"`
	SlotEnd   string `json:"slot_end" binding:"required,hhmm_end"`
}
