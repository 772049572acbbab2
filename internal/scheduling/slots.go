package scheduling

import (
	"fmt"
	"sort"

	"github.com/jwalitptl/scheduling-api/internal/model"
	"github.com/jwalitptl/scheduling-api/pkg/errors"
)

type slotKey struct {
	start, end model.TimeOfDay
}

// ApplicableRules returns the rules whose validity range covers date and whose
// weekday set contains date's weekday, ordered by start time then id.
func ApplicableRules(date model.Date, rules []*model.AvailabilityRule) []*model.AvailabilityRule {
	weekday := date.Weekday()

	var out []*model.AvailabilityRule
	for _, r := range rules {
		if r.CoversDate(date) && r.Weekdays.Has(weekday) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].StartTime != out[j].StartTime {
			return out[i].StartTime < out[j].StartTime
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

// GenerateSlots cuts every rule that applies on date into fixed-length slots,
// drops those that overlap a break, then drops exact matches of active blocks
// and deleted slots. The result is ordered by start time. It is a pure
// function of its inputs.
func GenerateSlots(
	date model.Date,
	rules []*model.AvailabilityRule,
	blocked []*model.BlockedSlot,
	unavailable []*model.UnavailableSlot,
) ([]model.Slot, error) {
	applicable := ApplicableRules(date, rules)
	if len(applicable) == 0 {
		return nil, errors.NoAvailability(fmt.Sprintf("no availability on %s (%s)", date, date.Weekday()))
	}

	var raw []model.Slot
	for _, rule := range applicable {
		slots, err := RuleSlots(rule)
		if err != nil {
			return nil, err
		}
		raw = append(raw, slots...)
	}

	removed := make(map[slotKey]struct{}, len(blocked)+len(unavailable))
	for _, b := range blocked {
		if b.IsBlocked {
			removed[slotKey{b.SlotStart, b.SlotEnd}] = struct{}{}
		}
	}
	for _, u := range unavailable {
		removed[slotKey{u.SlotStart, u.SlotEnd}] = struct{}{}
	}

	out := make([]model.Slot, 0, len(raw))
	for _, s := range raw {
		if _, ok := removed[slotKey{s.Start, s.End}]; ok {
			continue
		}
		out = append(out, s)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out, nil
}

// RuleSlots steps through one rule's window. No partial trailing slot is
// emitted, and slots overlapping a break are dropped.
func RuleSlots(rule *model.AvailabilityRule) ([]model.Slot, error) {
	step, err := ParseDurationMinutes(rule.SlotDuration)
	if err != nil {
		return nil, errors.Validation(errors.CodeInvalidSlotDuration, "invalid slot duration", err).
			WithDetail("rule_id", rule.ID.String())
	}

	breaks := BreakWindows(rule)

	var out []model.Slot
	for start := rule.StartTime; start.Add(step) <= rule.EndTime; start = start.Add(step) {
		slot := model.Slot{Start: start, End: start.Add(step)}
		if overlapsAny(slot, breaks) {
			continue
		}
		out = append(out, slot)
	}
	return out, nil
}

// Break is a break window measured in half minutes since midnight, so the
// midpoint of an odd-length rule window is represented exactly.
type Break struct {
	Start, End int
}

// Overlaps reports whether slot intersects the half-open break window.
func (b Break) Overlaps(slot model.Slot) bool {
	return 2*int(slot.Start) < b.End && b.Start < 2*int(slot.End)
}

// BreakWindows places each break at the midpoint of the rule's window:
// [mid, mid+break). Breaks without a positive minute value are ignored.
func BreakWindows(rule *model.AvailabilityRule) []Break {
	mid := int(rule.StartTime + rule.EndTime)

	var out []Break
	for _, raw := range rule.BreakDurations {
		minutes, err := ParseDurationMinutes(raw)
		if err != nil {
			continue
		}
		out = append(out, Break{Start: mid, End: mid + 2*minutes})
	}
	return out
}

func overlapsAny(slot model.Slot, breaks []Break) bool {
	for _, b := range breaks {
		if b.Overlaps(slot) {
			return true
		}
	}
	return false
}

// ExcludeBooked drops slots that overlap an active appointment.
func ExcludeBooked(slots []model.Slot, appts []*model.Appointment) []model.Slot {
	out := make([]model.Slot, 0, len(slots))
	for _, s := range slots {
		taken := false
		for _, a := range appts {
			if a.Status.Active() && SlotsOverlap(s.Start, s.End, a.StartTime, a.EndTime) {
				taken = true
				break
			}
		}
		if !taken {
			out = append(out, s)
		}
	}
	return out
}
