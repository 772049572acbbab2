package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
)

// WeekdaySet is a set of days of the week, one bit per time.Weekday.
type WeekdaySet uint8

const AllWeekdays WeekdaySet = 1<<7 - 1

// weekOrder lists days Monday first; this is the order used on the wire.
var weekOrder = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
	time.Friday, time.Saturday, time.Sunday,
}

func NewWeekdaySet(days ...time.Weekday) WeekdaySet {
	var s WeekdaySet
	for _, d := range days {
		s = s.With(d)
	}
	return s
}

// ParseWeekday maps a single token to a weekday, case-insensitively. Full
// English names and three letter abbreviations are recognised.
func ParseWeekday(token string) (time.Weekday, bool) {
	token = strings.ToLower(strings.TrimSpace(token))
	if len(token) < 3 {
		return 0, false
	}
	for _, d := range weekOrder {
		name := strings.ToLower(d.String())
		if token == name || token == name[:3] {
			return d, true
		}
	}
	return 0, false
}

// NormalizeWeekdays turns any of the accepted input shapes (a list, a comma
// separated string, or a single value) into a set. Unrecognised tokens are
// dropped, so the result may be empty; callers decide what empty means.
func NormalizeWeekdays(raw interface{}) WeekdaySet {
	var tokens []string
	switch v := raw.(type) {
	case nil:
	case WeekdaySet:
		return v
	case time.Weekday:
		return NewWeekdaySet(v)
	case string:
		tokens = strings.Split(v, ",")
	case []string:
		for _, s := range v {
			tokens = append(tokens, strings.Split(s, ",")...)
		}
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok {
				tokens = append(tokens, strings.Split(s, ",")...)
			}
		}
	default:
		tokens = []string{fmt.Sprint(v)}
	}

	var set WeekdaySet
	for _, tok := range tokens {
		if d, ok := ParseWeekday(tok); ok {
			set = set.With(d)
		}
	}
	return set
}

// ParseWeekdaySet is the strict boundary parser: a rule needs at least one
// explicit day.
func ParseWeekdaySet(raw interface{}) (WeekdaySet, error) {
	set := NormalizeWeekdays(raw)
	if set.IsEmpty() {
		return 0, fmt.Errorf("at least one valid weekday is required")
	}
	return set, nil
}

func (s WeekdaySet) With(d time.Weekday) WeekdaySet {
	return s | 1<<uint(d)
}

func (s WeekdaySet) Has(d time.Weekday) bool {
	return s&(1<<uint(d)) != 0
}

func (s WeekdaySet) Intersect(other WeekdaySet) WeekdaySet {
	return s & other
}

func (s WeekdaySet) IsEmpty() bool {
	return s&AllWeekdays == 0
}

// Days returns the members Monday first.
func (s WeekdaySet) Days() []time.Weekday {
	days := make([]time.Weekday, 0, 7)
	for _, d := range weekOrder {
		if s.Has(d) {
			days = append(days, d)
		}
	}
	return days
}

func (s WeekdaySet) Names() []string {
	names := make([]string, 0, 7)
	for _, d := range s.Days() {
		names = append(names, d.String())
	}
	return names
}

func (s WeekdaySet) String() string {
	return strings.Join(s.Names(), ",")
}

func (s WeekdaySet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Names())
}

func (s *WeekdaySet) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = NormalizeWeekdays(raw)
	return nil
}

// Value stores the set as a text[] of full names.
func (s WeekdaySet) Value() (driver.Value, error) {
	return pq.StringArray(s.Names()).Value()
}

func (s *WeekdaySet) Scan(src interface{}) error {
	var arr pq.StringArray
	if err := arr.Scan(src); err != nil {
		return fmt.Errorf("scan weekdays: %w", err)
	}
	*s = NormalizeWeekdays([]string(arr))
	return nil
}
