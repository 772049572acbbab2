// Package scheduling holds the pure scheduling rules: slot generation and the
// rule and booking conflict checks. Nothing here touches storage; callers load
// the rows and hold whatever lock the write needs.
package scheduling

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/jwalitptl/scheduling-api/internal/model"
)

// DateRangesOverlap reports whether two validity ranges share at least one
// day. A nil start is open towards the past, a nil end towards the future.
// Bounds are inclusive.
func DateRangesOverlap(s1, e1, s2, e2 *model.Date) bool {
	// e1 >= s2
	if e1 != nil && s2 != nil && e1.Before(*s2) {
		return false
	}
	// e2 >= s1
	if e2 != nil && s1 != nil && e2.Before(*s1) {
		return false
	}
	return true
}

// SlotsOverlap is the strict same-day test on half-open intervals: touching
// intervals do not overlap.
func SlotsOverlap(s1, e1, s2, e2 model.TimeOfDay) bool {
	return s1 < e2 && s2 < e1
}

// WindowsOverlapOpen compares two rule windows where a bound may be missing.
// A missing start means 00:00 and a missing end means end of day. Only the
// rule conflict checker uses this; slot math always uses SlotsOverlap.
func WindowsOverlapOpen(s1, e1, s2, e2 *model.TimeOfDay) bool {
	return SlotsOverlap(startOrMidnight(s1), endOrEndOfDay(e1), startOrMidnight(s2), endOrEndOfDay(e2))
}

func startOrMidnight(t *model.TimeOfDay) model.TimeOfDay {
	if t == nil {
		return 0
	}
	return *t
}

func endOrEndOfDay(t *model.TimeOfDay) model.TimeOfDay {
	if t == nil {
		return model.MinutesPerDay
	}
	return *t
}

// WeekdaysOrAll widens an empty set to every day. Used by the rule conflict
// checker only; slot generation treats an empty set as matching nothing.
func WeekdaysOrAll(s model.WeekdaySet) model.WeekdaySet {
	if s.IsEmpty() {
		return model.AllWeekdays
	}
	return s
}

// ParseDurationMinutes keeps only the digits of raw, so "30 minutes", "30min"
// and "30" are all 30. Durations above one day are rejected.
func ParseDurationMinutes(raw string) (int, error) {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, raw)
	if digits == "" {
		return 0, fmt.Errorf("duration %q contains no digits", raw)
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, fmt.Errorf("duration %q is out of range", raw)
	}
	if n <= 0 {
		return 0, fmt.Errorf("duration %q must be positive", raw)
	}
	if n > model.MinutesPerDay {
		return 0, fmt.Errorf("duration %q is longer than a day", raw)
	}
	return n, nil
}
