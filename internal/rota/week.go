package rota

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidDate is returned when year, month and day do not name a real calendar date.
var ErrInvalidDate = errors.New("invalid date")

const dayLayout = "2006-01-02"

// Day is a calendar date without a time component.
type Day struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDay validates the triple and returns the matching Day.
func NewDay(year int, month time.Month, day int) (Day, error) {
	if year < 1 || month < time.January || month > time.December || day < 1 {
		return Day{}, fmt.Errorf("%w: %04d-%02d-%02d", ErrInvalidDate, year, int(month), day)
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != month || t.Day() != day {
		return Day{}, fmt.Errorf("%w: %04d-%02d-%02d", ErrInvalidDate, year, int(month), day)
	}
	return Day{Year: year, Month: month, Day: day}, nil
}

// DayOf truncates t to its calendar date in t's location.
func DayOf(t time.Time) Day {
	y, m, d := t.Date()
	return Day{Year: y, Month: m, Day: d}
}

// ParseDay parses a YYYY-MM-DD string.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(dayLayout, s)
	if err != nil {
		return Day{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return DayOf(t), nil
}

// Time returns midnight UTC of the day.
func (d Day) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// AddDays returns the day n calendar days away.
func (d Day) AddDays(n int) Day {
	return DayOf(d.Time().AddDate(0, 0, n))
}

// ISOWeekday returns 1 for Monday through 7 for Sunday.
func (d Day) ISOWeekday() int {
	wd := d.Time().Weekday()
	if wd == time.Sunday {
		return 7
	}
	return int(wd)
}

func (d Day) String() string {
	return d.Time().Format(dayLayout)
}

// Week holds Monday through Sunday of one calendar week.
type Week [7]Day

// CalculateWeek returns the Monday-starting week containing d.
func CalculateWeek(d Day) Week {
	monday := d.AddDays(-(d.ISOWeekday() - 1))
	var w Week
	for i := range w {
		w[i] = monday.AddDays(i)
	}
	return w
}

// ResolveWeek picks the requested week, falling back to the week of today when no
// date component is given.
func ResolveWeek(year, month, day int, today Day) (Week, error) {
	if year == 0 && month == 0 && day == 0 {
		return CalculateWeek(today), nil
	}
	d, err := NewDay(year, time.Month(month), day)
	if err != nil {
		return Week{}, err
	}
	return CalculateWeek(d), nil
}

func (w Week) Monday() Day { return w[0] }
func (w Week) Sunday() Day { return w[6] }

// Contains reports whether d falls inside the week.
func (w Week) Contains(d Day) bool {
	for _, wd := range w {
		if wd == d {
			return true
		}
	}
	return false
}

// Previous and Next step one week back or forward.
func (w Week) Previous() Week { return CalculateWeek(w[0].AddDays(-7)) }
func (w Week) Next() Week     { return CalculateWeek(w[0].AddDays(7)) }
