package availability

import (
	"github.com/google/uuid"

	"github.com/jwalitptl/scheduling-api/internal/model"
	"github.com/jwalitptl/scheduling-api/internal/scheduling"
	"github.com/jwalitptl/scheduling-api/pkg/errors"
)

func parseDate(s string) (model.Date, error) {
	d, err := model.ParseDate(s)
	if err != nil {
		return model.Date{}, errors.Validation(errors.CodeInvalidDateFormat, "date must be YYYY-MM-DD", err)
	}
	return d, nil
}

func parseOptionalDate(s string) (*model.Date, error) {
	if s == "" {
		return nil, nil
	}
	d, err := parseDate(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func parseTime(s string) (model.TimeOfDay, error) {
	t, err := model.ParseTimeOfDay(s)
	if err != nil {
		return 0, errors.Validation(errors.CodeInvalidTimeFormat, "time must be HH:MM", err)
	}
	return t, nil
}

func parseEndTime(s string) (model.TimeOfDay, error) {
	t, err := model.ParseEndTimeOfDay(s)
	if err != nil {
		return 0, errors.Validation(errors.CodeInvalidTimeFormat, "time must be HH:MM", err)
	}
	return t, nil
}

func buildRule(doctorID uuid.UUID, req *model.CreateRuleRequest) (*model.AvailabilityRule, error) {
	start, err := parseTime(req.StartTime)
	if err != nil {
		return nil, err
	}
	end, err := parseEndTime(req.EndTime)
	if err != nil {
		return nil, err
	}
	startDate, err := parseOptionalDate(req.StartDate)
	if err != nil {
		return nil, err
	}
	endDate, err := parseOptionalDate(req.EndDate)
	if err != nil {
		return nil, err
	}

	rule := &model.AvailabilityRule{
		ID:             uuid.New(),
		DoctorID:       doctorID,
		Weekdays:       req.Weekdays,
		StartTime:      start,
		EndTime:        end,
		StartDate:      startDate,
		EndDate:        endDate,
		SlotDuration:   string(req.SlotDuration),
		BreakDurations: req.BreakDurations.Strings(),
		Notes:          req.Notes,
	}
	if err := validateRule(rule); err != nil {
		return nil, err
	}
	return rule, nil
}

func applyUpdate(current *model.AvailabilityRule, req *model.UpdateRuleRequest) (*model.AvailabilityRule, error) {
	rule := *current

	if req.Weekdays != nil {
		rule.Weekdays = *req.Weekdays
	}
	if req.StartTime != nil {
		t, err := parseTime(*req.StartTime)
		if err != nil {
			return nil, err
		}
		rule.StartTime = t
	}
	if req.EndTime != nil {
		t, err := parseEndTime(*req.EndTime)
		if err != nil {
			return nil, err
		}
		rule.EndTime = t
	}
	if req.ClearStartDate {
		rule.StartDate = nil
	} else if req.StartDate != nil {
		d, err := parseOptionalDate(*req.StartDate)
		if err != nil {
			return nil, err
		}
		rule.StartDate = d
	}
	if req.ClearEndDate {
		rule.EndDate = nil
	} else if req.EndDate != nil {
		d, err := parseOptionalDate(*req.EndDate)
		if err != nil {
			return nil, err
		}
		rule.EndDate = d
	}
	if req.SlotDuration != nil {
		rule.SlotDuration = string(*req.SlotDuration)
	}
	if req.BreakDurations != nil {
		rule.BreakDurations = req.BreakDurations.Strings()
	}
	if req.Notes != nil {
		rule.Notes = *req.Notes
	}

	if err := validateRule(&rule); err != nil {
		return nil, err
	}
	return &rule, nil
}

// validateRule enforces the invariants every stored rule satisfies.
func validateRule(rule *model.AvailabilityRule) error {
	if rule.Weekdays.IsEmpty() {
		return errors.Validation(errors.CodeInvalidWeekdays, "at least one valid weekday is required", nil)
	}
	if rule.StartTime >= rule.EndTime {
		return errors.Validation(errors.CodeInvalidRange, "end time must be after start time", nil)
	}
	if rule.StartDate != nil && rule.EndDate != nil && rule.EndDate.Before(*rule.StartDate) {
		return errors.Validation(errors.CodeInvalidRange, "end date must not be before start date", nil)
	}
	if _, err := scheduling.ParseDurationMinutes(rule.SlotDuration); err != nil {
		return errors.Validation(errors.CodeInvalidSlotDuration, "slot duration must be a positive number of minutes, at most one day", err)
	}
	for _, b := range rule.BreakDurations {
		if _, err := scheduling.ParseDurationMinutes(b); err != nil {
			return errors.Validation(errors.CodeInvalidSlotDuration, "break duration must be a positive number of minutes, at most one day", err).
				WithDetail("break_duration", b)
		}
	}
	if rule.BreakDurations == nil {
		rule.BreakDurations = []string{}
	}
	return nil
}
