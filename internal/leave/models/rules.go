package models

import (
	"fmt"
	"strings"
	"time"
)

// Warnings attached to an acceptable request.
const (
	WarnHolidays     = "range includes holidays"
	WarnFreeHolidays = "free leave requested on holidays only"
	WarnDaysOff      = "range includes days the employee does not work"
	WarnOthersAway   = "another employee has approved leave in this period"
)

// Rejection reasons.
const (
	ReasonPastDates   = "dates are in the past"
	ReasonAllHolidays = "every requested day is a holiday"
	ReasonNoWorkdays  = "no requested day is a workday for the employee"
	ReasonOwnOverlap  = "overlaps another leave or vacation of the same employee"
)

// Stage selects which of the employee's own requests block a new one.
type Stage int

const (
	// StageSubmit blocks on pending and approved requests.
	StageSubmit Stage = iota
	// StageApprove blocks on approved requests only; the request itself is
	// still pending and is skipped.
	StageApprove
)

// Rejection is returned by Check when a request cannot be accepted.
type Rejection struct {
	Reason string
}

func (e *Rejection) Error() string { return e.Reason }

// CheckInput is everything the rules look at. Holidays and Others need
// only cover the requested range; extra entries are ignored.
type CheckInput struct {
	Request  *Request
	Type     *LeaveType
	Plan     *WorkPlan
	Holidays []time.Time
	Others   []*Request
	Today    time.Time
	Stage    Stage
}

// Check applies the leave rules in order and returns the warnings of an
// acceptable request, or a *Rejection.
func Check(in CheckInput) ([]string, error) {
	r := in.Request
	var warnings []string

	if r.From.Before(Day(in.Today)) {
		return nil, &Rejection{Reason: ReasonPastDates}
	}

	days := r.Days()
	if in.Type != nil && !in.Type.Free() && days > in.Type.MaxDays {
		return nil, &Rejection{Reason: fmt.Sprintf("%s allows at most %d days, %d requested",
			strings.ToLower(in.Type.Description), in.Type.MaxDays, days)}
	}

	holidays := holidaySet(in.Holidays, r.From, r.To)
	if len(holidays) > 0 {
		switch {
		case len(holidays) < days:
			warnings = append(warnings, WarnHolidays)
		case in.Type != nil && in.Type.Free():
			warnings = append(warnings, WarnFreeHolidays)
		default:
			return nil, &Rejection{Reason: ReasonAllHolidays}
		}
	}

	workday, dayOff := false, false
	for d := r.From; !d.After(r.To); d = d.AddDate(0, 0, 1) {
		if in.Plan.Works(d) {
			workday = true
		} else {
			dayOff = true
		}
	}
	if !workday {
		return nil, &Rejection{Reason: ReasonNoWorkdays}
	}
	if dayOff && len(holidays) == 0 {
		warnings = append(warnings, WarnDaysOff)
	}

	othersAway := false
	for _, o := range in.Others {
		if o.ID == r.ID || !r.Overlaps(o) {
			continue
		}
		if o.EmployeeID == r.EmployeeID {
			if blocks(o.Status, in.Stage) {
				return nil, &Rejection{Reason: ReasonOwnOverlap}
			}
			continue
		}
		if o.Status == StatusApproved {
			othersAway = true
		}
	}
	if othersAway {
		warnings = append(warnings, WarnOthersAway)
	}
	return warnings, nil
}

func blocks(s Status, stage Stage) bool {
	switch s {
	case StatusApproved:
		return true
	case StatusPending:
		return stage == StageSubmit
	}
	return false
}

func holidaySet(holidays []time.Time, from, to time.Time) map[time.Time]struct{} {
	set := make(map[time.Time]struct{})
	for _, h := range holidays {
		h = Day(h)
		if h.Before(from) || h.After(to) {
			continue
		}
		set[h] = struct{}{}
	}
	return set
}

// WarningNote renders warnings the way they are kept on the manager note.
func WarningNote(warnings []string) string {
	if len(warnings) == 0 {
		return ""
	}
	return "Warnings: " + strings.Join(warnings, "; ")
}
