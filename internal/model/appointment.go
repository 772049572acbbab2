package model

import (
	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "pending"
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
	AppointmentStatusCompleted AppointmentStatus = "completed"
)

// Active reports whether the appointment still holds its time window. Only
// cancelled appointments release it; pending and completed ones keep blocking
// bookings that overlap them.
func (s AppointmentStatus) Active() bool {
	return s != AppointmentStatusCancelled
}

type Appointment struct {
	Base
	DoctorID     uuid.UUID         `db:"doctor_id" json:"doctor_id"`
	PatientID    uuid.UUID         `db:"patient_id" json:"patient_id"`
	Date         Date              `db:"appointment_date" json:"date"`
	StartTime    TimeOfDay         `db:"start_time" json:"start_time"`
	EndTime      TimeOfDay         `db:"end_time" json:"end_time"`
	Status       AppointmentStatus `db:"status" json:"status"`
	Reason       string            `db:"reason" json:"reason,omitempty"`
	CancelReason *string           `db:"cancel_reason" json:"cancel_reason,omitempty"`
	BookedBy     string            `db:"booked_by" json:"booked_by,omitempty"`
}

type BookingCheckRequest struct {
	DoctorID  uuid.UUID  `json:"doctor_id" binding:"required"`
	Date      string     `json:"date" binding:"required,ymd"`
	StartTime string     `json:"start_time" binding:"required,hhmm"`
	EndTime   string     `json:"end_time" binding:"required,hhmm_end"`
	ExcludeID *uuid.UUID `json:"exclude_id"`
}

type CreateAppointmentRequest struct {
	DoctorID  uuid.UUID `json:"doctor_id" binding:"required"`
	PatientID uuid.UUID `json:"patient_id" binding:"required"`
	Date      string    `json:"date" binding:"required,ymd"`
	StartTime string    `json:"start_time" binding:"required,hhmm"`
	EndTime   string    `json:"end_time" binding:"required,hhmm_end"`
	Reason    string    `json:"reason" binding:"max=1000"`
}

type RescheduleRequest struct {
	Date      string `json:"date" binding:"required,ymd"`
	StartTime string `json:"start_time" binding:"required,hhmm"`
	EndTime   string `json:"end_time" binding:"required,hhmm_end"`
}

type CancelRequest struct {
	Reason string `json:"reason" binding:"max=1000"`
}
