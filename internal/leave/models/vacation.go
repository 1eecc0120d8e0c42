package models

import (
	"sort"
	"time"

	id "legajo/pkg/domain"
)

// CutoffDate is the reference day vacation entitlements for year are
// computed at: the end of the cycle.
func CutoffDate(year int) time.Time {
	return Date(year, time.December, 31)
}

// VacationDays is the vacation entitlement of an employee hired on hire,
// computed at ref.
//
// Seniority is measured on a 30/360 base: every month has 30 days, and the
// 31st as well as the last day of February count as the 30th. Employees
// hired in ref's year get 14 days when hired on or before June 1 and a
// pro-rated share otherwise; so does anyone with less than 180 base days.
// Everyone else gets 14, 21, 28 or 35 days for under 5, 10, 20 or more full
// calendar years of seniority.
func VacationDays(hire, ref time.Time) int {
	if hire.IsZero() {
		return 0
	}
	hire, ref = Day(hire), Day(ref)
	if hire.After(ref) {
		return 0
	}

	base := max(base360(ref)-base360(hire), 0)
	if hire.Year() == ref.Year() {
		if !hire.After(Date(ref.Year(), time.June, 1)) {
			return 14
		}
		return proRated(base)
	}
	if base < 180 {
		return proRated(base)
	}

	years := ref.Year() - hire.Year()
	if ref.Month() < hire.Month() || (ref.Month() == hire.Month() && ref.Day() < hire.Day()) {
		years--
	}
	switch {
	case years < 5:
		return 14
	case years < 10:
		return 21
	case years < 20:
		return 28
	default:
		return 35
	}
}

// proRated grants one day per 30 base days, rounding a remainder of 15 or
// more up.
func proRated(base int) int {
	days := base / 30
	if base%30 >= 15 {
		days++
	}
	return days
}

func base360(t time.Time) int {
	d := t.Day()
	switch {
	case t.Month() == time.February && d >= 28:
		d = 30
	case d > 30:
		d = 30
	}
	return t.Year()*360 + (int(t.Month())-1)*30 + d
}

// Grant is a period of vacation days an employee may consume.
type Grant struct {
	ID         id.VacationGrantID `json:"id"`
	EmployeeID id.EmployeeID      `json:"employee_id"`
	From       time.Time          `json:"from"`
	To         time.Time          `json:"to"`
	Available  int                `json:"available"`
	Consumed   int                `json:"consumed"`
}

// Remaining is the unconsumed part of g, never negative.
func (g *Grant) Remaining() int { return max(g.Available-g.Consumed, 0) }

// Yearly reports whether g is the calendar-year grant of year.
func (g *Grant) Yearly(year int) bool {
	return g.From.Equal(Date(year, time.January, 1)) && g.To.Equal(CutoffDate(year))
}

// YearlyGrant returns the grant of year for an employee, reusing existing
// when present so consumed days are kept.
func YearlyGrant(existing []*Grant, employeeID id.EmployeeID, year int, days int, newID func() id.VacationGrantID) *Grant {
	for _, g := range existing {
		if g.EmployeeID == employeeID && g.Yearly(year) {
			next := *g
			next.Available = days
			return &next
		}
	}
	return &Grant{
		ID:         newID(),
		EmployeeID: employeeID,
		From:       Date(year, time.January, 1),
		To:         CutoffDate(year),
		Available:  days,
	}
}

// ConsumeFunc turns an employee's current vacation grants into the grants
// to write back.
type ConsumeFunc func(current []*Grant) []*Grant

// Consume takes the days of an approved vacation from grants: periods
// starting before the vacation's year first, oldest first, then periods of
// that year. Periods of later years are not touched. Days no grant can
// cover are recorded as a new grant spanning the vacation, fully consumed.
//
// The returned grants are copies of the ones that changed, plus the new
// one if any. grants itself is not modified.
func Consume(grants []*Grant, r *Request, newID func() id.VacationGrantID) []*Grant {
	year := r.From.Year()
	var eligible []*Grant
	for _, g := range grants {
		if g.EmployeeID == r.EmployeeID && g.From.Year() <= year {
			eligible = append(eligible, g)
		}
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		return eligible[i].From.Before(eligible[j].From)
	})

	left := r.Days()
	var changed []*Grant
	for _, g := range eligible {
		if left == 0 {
			break
		}
		take := min(g.Remaining(), left)
		if take == 0 {
			continue
		}
		next := *g
		next.Consumed += take
		changed = append(changed, &next)
		left -= take
	}
	if left > 0 {
		changed = append(changed, &Grant{
			ID:         newID(),
			EmployeeID: r.EmployeeID,
			From:       r.From,
			To:         r.To,
			Available:  left,
			Consumed:   left,
		})
	}
	return changed
}
