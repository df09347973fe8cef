package domain

import "time"

// CodeFreeze is a window during which changes are blocked by policy.
// Begins and Ends are calendar dates, see Day.
type CodeFreeze struct {
	ID           string
	Begins       time.Time
	DurationDays int
	Ends         time.Time
	InEffect     bool
}

// ActiveOn reports whether the freeze blocks changes on the given day.
func (f CodeFreeze) ActiveOn(day time.Time) bool {
	day = Day(day)
	return f.InEffect && !day.Before(Day(f.Begins)) && !day.After(Day(f.Ends))
}

// Day returns the calendar date of t as midnight UTC, the form DATE columns
// scan into.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
