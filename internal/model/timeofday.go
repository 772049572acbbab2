package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	MinutesPerDay = 24 * 60

	timeOfDayLayout = "15:04"
)

// TimeOfDay is a wall-clock time within a single day, stored as minutes since
// midnight. MinutesPerDay (24:00) is valid only as an exclusive end bound; see
// ParseEndTimeOfDay.
type TimeOfDay int

func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

// ParseTimeOfDay parses 24-hour "HH:MM". "HH:MM:SS" is accepted as well
// because postgres time columns come back with seconds; seconds must be zero.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("invalid time %q: expected HH:MM", s)
	}

	h, err := strconv.Atoi(parts[0])
	if err != nil || len(parts[0]) != 2 || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid time %q: bad hour", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || len(parts[1]) != 2 || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid time %q: bad minute", s)
	}
	if len(parts) == 3 {
		// postgres may append fractional seconds: 09:00:00.000000
		sec := strings.SplitN(parts[2], ".", 2)[0]
		if n, err := strconv.Atoi(sec); err != nil || n != 0 {
			return 0, fmt.Errorf("invalid time %q: seconds are not supported", s)
		}
	}

	return NewTimeOfDay(h, m), nil
}

// ParseEndTimeOfDay is ParseTimeOfDay for the end of a half-open range, where
// "24:00" means midnight at the end of the day.
func ParseEndTimeOfDay(s string) (TimeOfDay, error) {
	switch strings.TrimSpace(s) {
	case "24:00", "24:00:00":
		return MinutesPerDay, nil
	}
	return ParseTimeOfDay(s)
}

func MustParseTimeOfDay(s string) TimeOfDay {
	t, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

func (t TimeOfDay) Hour() int   { return int(t) / 60 }
func (t TimeOfDay) Minute() int { return int(t) % 60 }

func (t TimeOfDay) Add(minutes int) TimeOfDay {
	return t + TimeOfDay(minutes)
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("time must be a string in %s format", timeOfDayLayout)
	}
	parsed, err := ParseEndTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Value stores the time as "HH:MM:00" for a postgres time column.
func (t TimeOfDay) Value() (driver.Value, error) {
	return t.String() + ":00", nil
}

func (t *TimeOfDay) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		parsed, err := ParseEndTimeOfDay(v)
		if err != nil {
			return err
		}
		*t = parsed
	case []byte:
		parsed, err := ParseEndTimeOfDay(string(v))
		if err != nil {
			return err
		}
		*t = parsed
	case time.Time:
		// lib/pq decodes 24:00:00 as midnight of 0000-01-02
		if v.Year() == 0 && v.YearDay() == 2 && v.Hour() == 0 && v.Minute() == 0 {
			*t = MinutesPerDay
			return nil
		}
		*t = NewTimeOfDay(v.Hour(), v.Minute())
	default:
		return fmt.Errorf("cannot scan %T into TimeOfDay", src)
	}
	return nil
}
