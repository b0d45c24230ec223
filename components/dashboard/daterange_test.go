package dashboard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNewDateRangeNormalizesBounds(t *testing.T) {
	r, err := NewDateRange(time.Date(2025, time.October, 1, 15, 30, 0, 0, time.UTC), time.Date(2025, time.October, 3, 8, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, day(2025, time.October, 1), r.Start)
	assert.Equal(t, 3, r.Days())
	assert.Equal(t, []string{"01.10", "02.10", "03.10"}, r.DailyLabels(time.Now()))
	assert.True(t, r.Contains(time.Date(2025, time.October, 3, 23, 59, 0, 0, time.UTC)))
	assert.False(t, r.Contains(day(2025, time.October, 4)))

	_, err = NewDateRange(day(2025, time.October, 3), day(2025, time.October, 1))
	assert.ErrorIs(t, err, errInvertedDateRange)
}

func TestNilDateRangeMatchesEverything(t *testing.T) {
	var r *DateRange
	now := day(2025, time.October, 15)
	assert.True(t, r.Contains(day(1999, time.January, 1)))
	assert.Equal(t, 0, r.Days())
	assert.Equal(t, []string{"15.10"}, r.DailyLabels(now))
	assert.Equal(t, "none", FormatPeriod(r, "none"))
	assert.True(t, r.Equal(nil))
}

func TestFormatPeriod(t *testing.T) {
	r, err := NewDateRange(day(2025, time.September, 1), day(2025, time.September, 30))
	require.NoError(t, err)
	assert.Equal(t, "01.09.2025 — 30.09.2025", FormatPeriod(r, ""))
}

func TestDateRangeUnmarshalRejectsInvertedBounds(t *testing.T) {
	var r DateRange
	require.NoError(t, r.UnmarshalJSON([]byte(`{"start":"2025-10-01","end":"2025-10-07T00:00:00Z"}`)))
	assert.Equal(t, 7, r.Days())

	err := r.UnmarshalJSON([]byte(`{"start":"2025-10-07","end":"2025-10-01"}`))
	assert.ErrorIs(t, err, errInvertedDateRange)
	assert.Error(t, r.UnmarshalJSON([]byte(`{"start":"07/10/2025","end":"2025-10-01"}`)))
}

func TestResolveDatePreset(t *testing.T) {
	now := time.Date(2025, time.October, 15, 14, 0, 0, 0, time.UTC)
	cases := []struct {
		preset     DatePreset
		weekStart  time.Weekday
		start, end time.Time
	}{
		{PresetToday, time.Sunday, day(2025, time.October, 15), day(2025, time.October, 15)},
		{PresetYesterday, time.Sunday, day(2025, time.October, 14), day(2025, time.October, 14)},
		{PresetThisWeek, time.Sunday, day(2025, time.October, 12), day(2025, time.October, 18)},
		{PresetThisWeek, time.Monday, day(2025, time.October, 13), day(2025, time.October, 19)},
		{PresetLastWeek, time.Monday, day(2025, time.October, 6), day(2025, time.October, 12)},
		{PresetThisMonth, time.Sunday, day(2025, time.October, 1), day(2025, time.October, 31)},
		{PresetLastMonth, time.Sunday, day(2025, time.September, 1), day(2025, time.September, 30)},
		{PresetSeptember, time.Sunday, day(2025, time.September, 1), day(2025, time.September, 30)},
		{PresetLastQuarter, time.Sunday, day(2025, time.July, 1), day(2025, time.October, 31)},
	}
	for _, tc := range cases {
		r, err := ResolveDatePreset(tc.preset, now, tc.weekStart)
		require.NoError(t, err, tc.preset)
		assert.Equal(t, tc.start, r.Start, "%s start", tc.preset)
		assert.Equal(t, tc.end, r.End, "%s end", tc.preset)
	}

	_, err := ResolveDatePreset("next_decade", now, time.Sunday)
	assert.Error(t, err)
	assert.Len(t, DatePresets(now, time.Sunday), 8)
}

func TestParseWeekday(t *testing.T) {
	d, err := ParseWeekday(" Monday ")
	require.NoError(t, err)
	assert.Equal(t, time.Monday, d)

	d, err = ParseWeekday("")
	require.NoError(t, err)
	assert.Equal(t, time.Sunday, d)

	_, err = ParseWeekday("funday")
	assert.Error(t, err)
}
