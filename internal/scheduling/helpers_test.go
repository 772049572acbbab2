package scheduling

import (
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/scheduling-api/internal/model"
)

var doctorID = uuid.MustParse("7b0c1d1e-5f1a-4c55-9a57-1f2d3c4b5a69")

// 2025-03-10 is a Monday.
var monday = model.MustParseDate("2025-03-10")

func tod(s string) model.TimeOfDay { return model.MustParseTimeOfDay(s) }

func datePtr(s string) *model.Date {
	d := model.MustParseDate(s)
	return &d
}

func rule(start, end, duration string, days ...time.Weekday) *model.AvailabilityRule {
	return &model.AvailabilityRule{
		ID:           uuid.New(),
		DoctorID:     doctorID,
		Weekdays:     model.NewWeekdaySet(days...),
		StartTime:    tod(start),
		EndTime:      tod(end),
		SlotDuration: duration,
	}
}

func slot(start, end string) model.Slot {
	return model.Slot{Start: tod(start), End: tod(end)}
}

func appointment(start, end string, status model.AppointmentStatus) *model.Appointment {
	return &model.Appointment{
		Base:      model.Base{ID: uuid.New()},
		DoctorID:  doctorID,
		Date:      monday,
		StartTime: tod(start),
		EndTime:   tod(end),
		Status:    status,
	}
}
