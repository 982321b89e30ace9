package search

import (
	"fmt"
	"strings"
	"time"
)

// Season is a quarter of the year used to pick a prediction context.
type Season string

// WeekType distinguishes weekdays from the local weekend.
type WeekType string

// TimeOfDay is a coarse daypart.
type TimeOfDay string

const (
	SeasonWinter Season = "winter"
	SeasonSpring Season = "spring"
	SeasonSummer Season = "summer"
	SeasonAutumn Season = "autumn"

	WeekTypeWeekday WeekType = "weekday"
	WeekTypeWeekend WeekType = "weekend"

	TimeOfDayMorning   TimeOfDay = "morning"
	TimeOfDayAfternoon TimeOfDay = "afternoon"
	TimeOfDayEvening   TimeOfDay = "evening"
	TimeOfDayNight     TimeOfDay = "night"
)

// Seasons lists all valid seasons in calendar order.
func Seasons() []Season {
	return []Season{SeasonWinter, SeasonSpring, SeasonSummer, SeasonAutumn}
}

// WeekTypes lists both week types.
func WeekTypes() []WeekType {
	return []WeekType{WeekTypeWeekday, WeekTypeWeekend}
}

// TimesOfDay lists all dayparts in daily order.
func TimesOfDay() []TimeOfDay {
	return []TimeOfDay{TimeOfDayMorning, TimeOfDayAfternoon, TimeOfDayEvening, TimeOfDayNight}
}

// Parameters select the prediction context for a search.
type Parameters struct {
	Season    Season    `json:"season"`
	WeekType  WeekType  `json:"weekType"`
	TimeOfDay TimeOfDay `json:"timeOfDay"`
}

// DefaultParameters derives parameters from the given wall-clock time.
// The weekend runs Thursday through Saturday.
func DefaultParameters(now time.Time) Parameters {
	var season Season
	switch now.Month() {
	case time.December, time.January, time.February:
		season = SeasonWinter
	case time.March, time.April, time.May:
		season = SeasonSpring
	case time.June, time.July, time.August:
		season = SeasonSummer
	default:
		season = SeasonAutumn
	}

	weekType := WeekTypeWeekday
	switch now.Weekday() {
	case time.Thursday, time.Friday, time.Saturday:
		weekType = WeekTypeWeekend
	}

	var timeOfDay TimeOfDay
	switch h := now.Hour(); {
	case h >= 5 && h <= 11:
		timeOfDay = TimeOfDayMorning
	case h >= 12 && h <= 16:
		timeOfDay = TimeOfDayAfternoon
	case h >= 17 && h <= 20:
		timeOfDay = TimeOfDayEvening
	default:
		timeOfDay = TimeOfDayNight
	}

	return Parameters{Season: season, WeekType: weekType, TimeOfDay: timeOfDay}
}

// ParseParameters builds Parameters from raw query values. Empty fields fall
// back to defaults derived from now; populated fields must be valid.
func ParseParameters(season, weekType, timeOfDay string, now time.Time) (Parameters, error) {
	params := DefaultParameters(now)

	if season != "" {
		s := Season(strings.ToLower(season))
		if !validSeason(s) {
			return Parameters{}, fmt.Errorf("invalid season %q", season)
		}
		params.Season = s
	}
	if weekType != "" {
		w := WeekType(strings.ToLower(weekType))
		if !validWeekType(w) {
			return Parameters{}, fmt.Errorf("invalid week type %q", weekType)
		}
		params.WeekType = w
	}
	if timeOfDay != "" {
		d := TimeOfDay(strings.ToLower(timeOfDay))
		if !validTimeOfDay(d) {
			return Parameters{}, fmt.Errorf("invalid time of day %q", timeOfDay)
		}
		params.TimeOfDay = d
	}

	return params, nil
}

func validSeason(s Season) bool {
	switch s {
	case SeasonWinter, SeasonSpring, SeasonSummer, SeasonAutumn:
		return true
	}
	return false
}

func validWeekType(w WeekType) bool {
	return w == WeekTypeWeekday || w == WeekTypeWeekend
}

func validTimeOfDay(d TimeOfDay) bool {
	switch d {
	case TimeOfDayMorning, TimeOfDayAfternoon, TimeOfDayEvening, TimeOfDayNight:
		return true
	}
	return false
}

// RepresentativeHour maps a daypart to a single hour handed to the model.
func (p Parameters) RepresentativeHour() int {
	switch p.TimeOfDay {
	case TimeOfDayMorning:
		return 9
	case TimeOfDayAfternoon:
		return 14
	case TimeOfDayEvening:
		return 19
	default:
		return 23
	}
}

// RequestTime finds the next day on or after now whose weekday matches the
// requested week type, at the representative hour.
func (p Parameters) RequestTime(now time.Time) time.Time {
	day := now
	for i := 0; i < 7; i++ {
		isWeekend := false
		switch day.Weekday() {
		case time.Thursday, time.Friday, time.Saturday:
			isWeekend = true
		}
		if (p.WeekType == WeekTypeWeekend) == isWeekend {
			break
		}
		day = day.AddDate(0, 0, 1)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), p.RepresentativeHour(), 0, 0, 0, day.Location())
}
