// Package models holds the leave domain: holidays, work plans, leave types,
// leave and vacation requests, the rules a request is checked against and
// the vacation entitlement arithmetic.
//
// Every date in this package is a calendar day: midnight UTC.
package models

import "time"

// DateLayout is the wire format of calendar days.
const DateLayout = time.DateOnly

// Day truncates t to its calendar day in t's own location and returns it
// as midnight UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Date builds a calendar day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return Day(t), nil
}

// DaysInclusive counts the calendar days from from to to, both included.
// It is zero when to is before from.
func DaysInclusive(from, to time.Time) int {
	from, to = Day(from), Day(to)
	if to.Before(from) {
		return 0
	}
	return int(to.Sub(from).Hours()/24) + 1
}

// overlaps reports whether [aFrom, aTo] and [bFrom, bTo] share a day.
func overlaps(aFrom, aTo, bFrom, bTo time.Time) bool {
	return !aTo.Before(bFrom) && !bTo.Before(aFrom)
}
