package search_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NoamTeshuva/pedestrian-web/internal/search"
)

func TestDefaultParameters_Seasons(t *testing.T) {
	tests := []struct {
		month time.Month
		want  search.Season
	}{
		{time.January, search.SeasonWinter},
		{time.February, search.SeasonWinter},
		{time.March, search.SeasonSpring},
		{time.May, search.SeasonSpring},
		{time.June, search.SeasonSummer},
		{time.August, search.SeasonSummer},
		{time.September, search.SeasonAutumn},
		{time.November, search.SeasonAutumn},
		{time.December, search.SeasonWinter},
	}

	for _, tt := range tests {
		now := time.Date(2026, tt.month, 15, 12, 0, 0, 0, time.UTC)
		assert.Equal(t, tt.want, search.DefaultParameters(now).Season, "month %s", tt.month)
	}
}

func TestDefaultParameters_WeekendRunsThursdayThroughSaturday(t *testing.T) {
	// 2026-08-24 is a Monday.
	monday := time.Date(2026, time.August, 24, 12, 0, 0, 0, time.UTC)

	want := map[time.Weekday]search.WeekType{
		time.Monday:    search.WeekTypeWeekday,
		time.Tuesday:   search.WeekTypeWeekday,
		time.Wednesday: search.WeekTypeWeekday,
		time.Thursday:  search.WeekTypeWeekend,
		time.Friday:    search.WeekTypeWeekend,
		time.Saturday:  search.WeekTypeWeekend,
		time.Sunday:    search.WeekTypeWeekday,
	}

	for i := 0; i < 7; i++ {
		day := monday.AddDate(0, 0, i)
		assert.Equal(t, want[day.Weekday()], search.DefaultParameters(day).WeekType, "%s", day.Weekday())
	}
}

func TestDefaultParameters_TimeOfDay(t *testing.T) {
	tests := []struct {
		hour int
		want search.TimeOfDay
	}{
		{4, search.TimeOfDayNight},
		{5, search.TimeOfDayMorning},
		{11, search.TimeOfDayMorning},
		{12, search.TimeOfDayAfternoon},
		{16, search.TimeOfDayAfternoon},
		{17, search.TimeOfDayEvening},
		{20, search.TimeOfDayEvening},
		{21, search.TimeOfDayNight},
		{0, search.TimeOfDayNight},
	}

	for _, tt := range tests {
		now := time.Date(2026, time.August, 24, tt.hour, 30, 0, 0, time.UTC)
		assert.Equal(t, tt.want, search.DefaultParameters(now).TimeOfDay, "hour %d", tt.hour)
	}
}

func TestParseParameters(t *testing.T) {
	now := time.Date(2026, time.August, 24, 9, 0, 0, 0, time.UTC)

	params, err := search.ParseParameters("Winter", "weekend", "NIGHT", now)
	require.NoError(t, err)
	assert.Equal(t, search.SeasonWinter, params.Season)
	assert.Equal(t, search.WeekTypeWeekend, params.WeekType)
	assert.Equal(t, search.TimeOfDayNight, params.TimeOfDay)

	params, err = search.ParseParameters("", "", "", now)
	require.NoError(t, err)
	assert.Equal(t, search.SeasonSummer, params.Season)
	assert.Equal(t, search.WeekTypeWeekday, params.WeekType)
	assert.Equal(t, search.TimeOfDayMorning, params.TimeOfDay)

	_, err = search.ParseParameters("monsoon", "", "", now)
	assert.Error(t, err)
	_, err = search.ParseParameters("", "holiday", "", now)
	assert.Error(t, err)
	_, err = search.ParseParameters("", "", "dawn", now)
	assert.Error(t, err)
}

func TestParameters_RepresentativeHour(t *testing.T) {
	assert.Equal(t, 9, search.Parameters{TimeOfDay: search.TimeOfDayMorning}.RepresentativeHour())
	assert.Equal(t, 14, search.Parameters{TimeOfDay: search.TimeOfDayAfternoon}.RepresentativeHour())
	assert.Equal(t, 19, search.Parameters{TimeOfDay: search.TimeOfDayEvening}.RepresentativeHour())
	assert.Equal(t, 23, search.Parameters{TimeOfDay: search.TimeOfDayNight}.RepresentativeHour())
}

func TestParameters_RequestTime(t *testing.T) {
	// 2026-08-24 is a Monday; the next weekend day is Thursday the 27th.
	monday := time.Date(2026, time.August, 24, 8, 0, 0, 0, time.UTC)

	params := search.Parameters{WeekType: search.WeekTypeWeekend, TimeOfDay: search.TimeOfDayEvening}
	got := params.RequestTime(monday)
	assert.Equal(t, time.Thursday, got.Weekday())
	assert.Equal(t, 27, got.Day())
	assert.Equal(t, 19, got.Hour())

	params = search.Parameters{WeekType: search.WeekTypeWeekday, TimeOfDay: search.TimeOfDayMorning}
	got = params.RequestTime(monday)
	assert.Equal(t, 24, got.Day(), "a matching day keeps today")
	assert.Equal(t, 9, got.Hour())
}
