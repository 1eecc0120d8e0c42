package models

import (
	"time"

	id "legajo/pkg/domain"
	dErrors "legajo/pkg/domain-errors"
)

// ClockLayout is the format of work plan start and end times.
const ClockLayout = "15:04"

// WorkPlan lists the weekdays an employee works. Days is indexed Monday
// first. An employee without a plan is treated as working every day.
type WorkPlan struct {
	EmployeeID id.EmployeeID `json:"employee_id"`
	Days       [7]bool       `json:"days"`
	Start      string        `json:"start"`
	End        string        `json:"end"`
}

// NewWorkPlan validates start and end (HH:MM, start before end).
func NewWorkPlan(employeeID id.EmployeeID, days [7]bool, start, end string) (*WorkPlan, error) {
	s, err := time.Parse(ClockLayout, start)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "start must be HH:MM")
	}
	e, err := time.Parse(ClockLayout, end)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "end must be HH:MM")
	}
	if !s.Before(e) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "start must be before end")
	}
	return &WorkPlan{EmployeeID: employeeID, Days: days, Start: start, End: end}, nil
}

// Works reports whether the plan includes the weekday of day.
// A nil plan works every day.
func (p *WorkPlan) Works(day time.Time) bool {
	if p == nil {
		return true
	}
	return p.Days[(int(day.Weekday())+6)%7]
}
