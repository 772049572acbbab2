package scheduling

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/scheduling-api/internal/model"
)

func TestDateRangesOverlap(t *testing.T) {
	tests := []struct {
		name           string
		s1, e1, s2, e2 *model.Date
		want           bool
	}{
		{"both open", nil, nil, nil, nil, true},
		{"disjoint", datePtr("2025-01-01"), datePtr("2025-01-31"), datePtr("2025-02-01"), datePtr("2025-02-28"), false},
		{"touching end is inclusive", datePtr("2025-01-01"), datePtr("2025-01-31"), datePtr("2025-01-31"), datePtr("2025-02-28"), true},
		{"open end reaches later range", datePtr("2025-01-01"), nil, datePtr("2030-01-01"), datePtr("2030-12-31"), true},
		{"open start reaches earlier range", nil, datePtr("2025-01-01"), datePtr("2020-01-01"), datePtr("2020-01-02"), true},
		{"open start still compared against end", nil, datePtr("2025-01-01"), datePtr("2025-01-02"), nil, false},
		{"second range ends before first starts", datePtr("2025-06-01"), nil, nil, datePtr("2025-05-31"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DateRangesOverlap(tt.s1, tt.e1, tt.s2, tt.e2))
			assert.Equal(t, tt.want, DateRangesOverlap(tt.s2, tt.e2, tt.s1, tt.e1), "overlap must be symmetric")
		})
	}
}

func TestSlotsOverlap(t *testing.T) {
	assert.True(t, SlotsOverlap(tod("10:00"), tod("10:30"), tod("10:15"), tod("10:45")))
	assert.True(t, SlotsOverlap(tod("10:00"), tod("10:30"), tod("09:45"), tod("10:05")))
	assert.True(t, SlotsOverlap(tod("10:00"), tod("11:00"), tod("10:15"), tod("10:30")))
	assert.False(t, SlotsOverlap(tod("10:00"), tod("10:30"), tod("10:30"), tod("11:00")))
	assert.False(t, SlotsOverlap(tod("10:00"), tod("10:30"), tod("09:00"), tod("10:00")))
}

func TestWindowsOverlapOpen(t *testing.T) {
	nine, ten, eleven := tod("09:00"), tod("10:00"), tod("11:00")

	assert.True(t, WindowsOverlapOpen(&nine, &ten, &nine, &ten))
	assert.False(t, WindowsOverlapOpen(&nine, &ten, &ten, &eleven))
	assert.True(t, WindowsOverlapOpen(&nine, nil, &ten, &eleven), "missing end runs to end of day")
	assert.True(t, WindowsOverlapOpen(nil, &ten, &nine, &eleven), "missing start runs from midnight")
	assert.False(t, WindowsOverlapOpen(nil, &nine, &ten, nil))
	assert.True(t, WindowsOverlapOpen(nil, nil, nil, nil))
}

func TestWeekdaysOrAll(t *testing.T) {
	assert.Equal(t, model.AllWeekdays, WeekdaysOrAll(0))
	assert.Equal(t, model.AllWeekdays, WeekdaysOrAll(model.NormalizeWeekdays("someday")))

	mon := model.NewWeekdaySet(monday.Weekday())
	assert.Equal(t, mon, WeekdaysOrAll(mon))
}

func TestParseDurationMinutes(t *testing.T) {
	for raw, want := range map[string]int{
		"30 minutes": 30,
		"30":         30,
		"15min":      15,
		" 45 mins ":  45,
	} {
		got, err := ParseDurationMinutes(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	got, err := ParseDurationMinutes("1440 minutes")
	require.NoError(t, err)
	assert.Equal(t, model.MinutesPerDay, got)

	for _, raw := range []string{"", "minutes", "0 minutes", "00", "1441", "9223372036854775807 minutes", "99999999999999999999"} {
		_, err := ParseDurationMinutes(raw)
		assert.Error(t, err, raw)
	}
}
