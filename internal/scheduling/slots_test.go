package scheduling

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/scheduling-api/internal/model"
	"github.com/jwalitptl/scheduling-api/pkg/errors"
)

func TestGenerateSlotsCount(t *testing.T) {
	r := rule("09:00", "10:00", "30 minutes", time.Monday)

	slots, err := GenerateSlots(monday, []*model.AvailabilityRule{r}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []model.Slot{slot("09:00", "09:30"), slot("09:30", "10:00")}, slots)
}

func TestGenerateSlotsMidpointBreak(t *testing.T) {
	r := rule("09:00", "10:00", "30 minutes", time.Monday)
	r.BreakDurations = []string{"15 minutes"}

	// midpoint is 09:30, so the break is [09:30, 09:45) and takes the
	// second slot with it.
	assert.Equal(t, []Break{{Start: 2 * int(tod("09:30")), End: 2 * int(tod("09:45"))}}, BreakWindows(r))

	slots, err := GenerateSlots(monday, []*model.AvailabilityRule{r}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []model.Slot{slot("09:00", "09:30")}, slots)
}

func TestGenerateSlotsBreakOnOddLengthWindow(t *testing.T) {
	r := rule("09:00", "09:45", "15", time.Monday)
	r.BreakDurations = []string{"8"}

	// midpoint is 09:22:30, so the break [09:22:30, 09:30:30) reaches into
	// the 09:30 slot
	slots, err := GenerateSlots(monday, []*model.AvailabilityRule{r}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []model.Slot{slot("09:00", "09:15")}, slots)

	r.BreakDurations = []string{"7"}
	slots, err = GenerateSlots(monday, []*model.AvailabilityRule{r}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []model.Slot{slot("09:00", "09:15"), slot("09:30", "09:45")}, slots)
}

func TestBreakOverlaps(t *testing.T) {
	b := Break{Start: 2*int(tod("09:22")) + 1, End: 2*int(tod("09:30")) + 1}

	assert.True(t, b.Overlaps(slot("09:15", "09:30")))
	assert.True(t, b.Overlaps(slot("09:30", "09:45")))
	assert.False(t, b.Overlaps(slot("09:00", "09:15")))
	assert.False(t, b.Overlaps(slot("09:31", "09:45")))
}

func TestGenerateSlotsBreakInLongerWindow(t *testing.T) {
	r := rule("09:00", "13:00", "60", time.Monday)
	r.BreakDurations = []string{"30 minutes", "0 minutes", "lunch"}

	// midpoint 11:00, break [11:00, 11:30)
	slots, err := GenerateSlots(monday, []*model.AvailabilityRule{r}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []model.Slot{
		slot("09:00", "10:00"),
		slot("10:00", "11:00"),
		slot("12:00", "13:00"),
	}, slots)
}

func TestGenerateSlotsNoPartialTrailingSlot(t *testing.T) {
	r := rule("09:00", "09:50", "30 minutes", time.Monday)

	slots, err := GenerateSlots(monday, []*model.AvailabilityRule{r}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []model.Slot{slot("09:00", "09:30")}, slots)
}

func TestGenerateSlotsExactMatchExceptions(t *testing.T) {
	r := rule("09:00", "11:00", "30 minutes", time.Monday)
	blocked := []*model.BlockedSlot{
		{DoctorID: doctorID, Date: monday, SlotStart: tod("09:00"), SlotEnd: tod("09:30"), IsBlocked: true},
		// unblocked rows keep their history but no longer remove anything
		{DoctorID: doctorID, Date: monday, SlotStart: tod("10:00"), SlotEnd: tod("10:30"), IsBlocked: false},
		// partial overlap never removes a slot
		{DoctorID: doctorID, Date: monday, SlotStart: tod("10:15"), SlotEnd: tod("10:45"), IsBlocked: true},
	}
	unavailable := []*model.UnavailableSlot{
		{DoctorID: doctorID, Date: monday, SlotStart: tod("10:30"), SlotEnd: tod("11:00")},
	}

	slots, err := GenerateSlots(monday, []*model.AvailabilityRule{r}, blocked, unavailable)
	require.NoError(t, err)
	assert.Equal(t, []model.Slot{
		slot("09:30", "10:00"),
		slot("10:00", "10:30"),
	}, slots)
}

func TestGenerateSlotsRuleSelection(t *testing.T) {
	weekdayOnly := rule("09:00", "10:00", "30", time.Tuesday)
	expired := rule("09:00", "10:00", "30", time.Monday)
	expired.EndDate = datePtr("2025-03-09")
	future := rule("09:00", "10:00", "30", time.Monday)
	future.StartDate = datePtr("2025-03-11")

	_, err := GenerateSlots(monday, []*model.AvailabilityRule{weekdayOnly, expired, future}, nil, nil)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindNoAvailability))

	lastDay := rule("14:00", "15:00", "30", time.Monday)
	lastDay.StartDate = datePtr("2025-03-01")
	lastDay.EndDate = datePtr("2025-03-10")

	slots, err := GenerateSlots(monday, []*model.AvailabilityRule{weekdayOnly, expired, future, lastDay}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []model.Slot{slot("14:00", "14:30"), slot("14:30", "15:00")}, slots)
}

func TestGenerateSlotsEmptyWeekdaysMatchesNothing(t *testing.T) {
	r := rule("09:00", "10:00", "30")

	_, err := GenerateSlots(monday, []*model.AvailabilityRule{r}, nil, nil)
	assert.True(t, errors.IsKind(err, errors.KindNoAvailability))
}

func TestGenerateSlotsInvalidDuration(t *testing.T) {
	r := rule("09:00", "10:00", "half an hour", time.Monday)

	_, err := GenerateSlots(monday, []*model.AvailabilityRule{r}, nil, nil)
	require.Error(t, err)
	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.KindValidation, appErr.Kind)
	assert.Equal(t, errors.CodeInvalidSlotDuration, appErr.Code)
}

func TestGenerateSlotsRejectsOversizedDuration(t *testing.T) {
	r := rule("09:00", "10:00", "9223372036854775807 minutes", time.Monday)

	_, err := GenerateSlots(monday, []*model.AvailabilityRule{r}, nil, nil)
	require.Error(t, err)
	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.CodeInvalidSlotDuration, appErr.Code)
}

func TestGenerateSlotsUntilMidnight(t *testing.T) {
	r := rule("23:00", "09:00", "30", time.Monday)
	r.EndTime = model.MinutesPerDay

	slots, err := GenerateSlots(monday, []*model.AvailabilityRule{r}, nil, nil)
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, "24:00", slots[1].End.String())
}

func TestGenerateSlotsIsDeterministic(t *testing.T) {
	morning := rule("09:00", "12:00", "20 minutes", time.Monday)
	morning.BreakDurations = []string{"25 minutes"}
	evening := rule("16:00", "17:45", "15", time.Monday)
	evening.BreakDurations = []string{"8"}
	blocked := []*model.BlockedSlot{
		{DoctorID: doctorID, Date: monday, SlotStart: tod("09:20"), SlotEnd: tod("09:40"), IsBlocked: true},
	}
	unavailable := []*model.UnavailableSlot{
		{DoctorID: doctorID, Date: monday, SlotStart: tod("16:15"), SlotEnd: tod("16:30")},
	}

	first, err := GenerateSlots(monday, []*model.AvailabilityRule{morning, evening}, blocked, unavailable)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	second, err := GenerateSlots(monday, []*model.AvailabilityRule{evening, morning}, blocked, unavailable)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	for i := 1; i < len(first); i++ {
		assert.True(t, first[i-1].Start < first[i].Start, "slots out of order at %d", i)
	}
	assert.NotContains(t, first, slot("09:20", "09:40"))
	assert.NotContains(t, first, slot("16:15", "16:30"))
}

func TestGenerateSlotsOrderedAcrossRules(t *testing.T) {
	afternoon := rule("14:00", "15:00", "30", time.Monday)
	morning := rule("09:00", "10:00", "30", time.Monday)
	rules := []*model.AvailabilityRule{afternoon, morning}

	first, err := GenerateSlots(monday, rules, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []model.Slot{
		slot("09:00", "09:30"), slot("09:30", "10:00"),
		slot("14:00", "14:30"), slot("14:30", "15:00"),
	}, first)

	second, err := GenerateSlots(monday, rules, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestApplicableRulesOrderIsStable(t *testing.T) {
	a := rule("09:00", "10:00", "30", time.Monday)
	b := rule("09:00", "10:00", "30", time.Monday)
	a.ID = uuid.MustParse("00000000-0000-0000-0000-000000000002")
	b.ID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

	got := ApplicableRules(monday, []*model.AvailabilityRule{a, b})
	require.Len(t, got, 2)
	assert.Equal(t, b.ID, got[0].ID)
}

func TestExcludeBooked(t *testing.T) {
	slots := []model.Slot{slot("09:00", "09:30"), slot("09:30", "10:00"), slot("10:00", "10:30")}
	appts := []*model.Appointment{
		appointment("09:30", "10:00", model.AppointmentStatusConfirmed),
		appointment("10:00", "10:30", model.AppointmentStatusCancelled),
	}

	assert.Equal(t, []model.Slot{slot("09:00", "09:30"), slot("10:00", "10:30")}, ExcludeBooked(slots, appts))
}
