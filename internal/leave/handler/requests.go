package handler

import (
	"strings"
	"time"
	"unicode/utf8"

	"legajo/internal/leave/models"
	"legajo/internal/leave/service"
	id "legajo/pkg/domain"
	dErrors "legajo/pkg/domain-errors"
)

const (
	maxDescriptionInput = 120
	maxNoteInput        = 200
)

// weekdays maps request day names to WorkPlan.Days indexes.
var weekdays = map[string]int{
	"monday": 0, "tuesday": 1, "wednesday": 2, "thursday": 3,
	"friday": 4, "saturday": 5, "sunday": 6,
}

func parseDate(field, raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, dErrors.New(dErrors.CodeValidation, field+" is required")
	}
	t, err := models.ParseDate(raw)
	if err != nil {
		return time.Time{}, dErrors.New(dErrors.CodeValidation, field+" must be YYYY-MM-DD")
	}
	return t, nil
}

// HolidayRequest is the body of POST /leave/holidays and PUT /leave/holidays/{id}.
type HolidayRequest struct {
	Date        string `json:"date"`
	Description string `json:"description"`

	parsedDate time.Time
}

func (r *HolidayRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Description = strings.TrimSpace(r.Description)
	if utf8.RuneCountInString(r.Description) > maxDescriptionInput {
		return dErrors.New(dErrors.CodeValidation, "description must be 120 characters or less")
	}
	var err error
	r.parsedDate, err = parseDate("date", strings.TrimSpace(r.Date))
	return err
}

// WorkPlanRequest is the body of PUT /leave/work-plans/{employeeID}.
// Days holds lowercase English weekday names.
type WorkPlanRequest struct {
	Days  []string `json:"days"`
	Start string   `json:"start"`
	End   string   `json:"end"`

	parsedDays [7]bool
}

func (r *WorkPlanRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Days) > len(weekdays) {
		return dErrors.New(dErrors.CodeValidation, "days lists at most 7 weekdays")
	}
	for _, d := range r.Days {
		i, ok := weekdays[strings.ToLower(strings.TrimSpace(d))]
		if !ok {
			return dErrors.New(dErrors.CodeValidation, "unknown weekday "+d)
		}
		r.parsedDays[i] = true
	}
	r.Start = strings.TrimSpace(r.Start)
	r.End = strings.TrimSpace(r.End)
	return nil
}

// LeaveTypeRequest is the body of POST /leave/types.
type LeaveTypeRequest struct {
	Description string `json:"description"`
	MaxDays     int    `json:"max_days"`
	Paid        bool   `json:"paid"`
}

func (r *LeaveTypeRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Description = strings.TrimSpace(r.Description)
	if utf8.RuneCountInString(r.Description) > maxDescriptionInput {
		return dErrors.New(dErrors.CodeValidation, "description must be 120 characters or less")
	}
	return nil
}

// SubmitRequest is the body of POST /leave/requests.
type SubmitRequest struct {
	EmployeeID string `json:"employee_id"`
	Kind       string `json:"kind"`
	TypeID     string `json:"type_id"`
	From       string `json:"from"`
	To         string `json:"to"`
	Comment    string `json:"comment"`

	input service.SubmitInput
}

func (r *SubmitRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	employeeID, err := id.ParseEmployeeID(strings.TrimSpace(r.EmployeeID))
	if err != nil {
		return err
	}
	kind, ok := models.ParseKind(strings.TrimSpace(r.Kind))
	if !ok {
		return dErrors.New(dErrors.CodeValidation, "kind must be leave or vacation")
	}
	var typeID id.LeaveTypeID
	if raw := strings.TrimSpace(r.TypeID); raw != "" {
		if typeID, err = id.ParseLeaveTypeID(raw); err != nil {
			return err
		}
	}
	from, err := parseDate("from", strings.TrimSpace(r.From))
	if err != nil {
		return err
	}
	to, err := parseDate("to", strings.TrimSpace(r.To))
	if err != nil {
		return err
	}
	r.input = service.SubmitInput{
		EmployeeID: employeeID,
		Kind:       kind,
		TypeID:     typeID,
		From:       from,
		To:         to,
		Comment:    r.Comment,
	}
	return nil
}

// DecisionRequest is the body of POST /leave/requests/{id}/approve and
// /reject. Note is optional on approval and required on rejection.
type DecisionRequest struct {
	Note string `json:"note"`
}

func (r *DecisionRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Note = strings.TrimSpace(r.Note)
	if utf8.RuneCountInString(r.Note) > maxNoteInput {
		return dErrors.New(dErrors.CodeValidation, "note must be 200 characters or less")
	}
	return nil
}

// GrantRequest is the body of POST /leave/vacation-grants.
type GrantRequest struct {
	EmployeeID string `json:"employee_id"`
	Year       int    `json:"year"`
	HireDate   string `json:"hire_date"`

	employeeID id.EmployeeID
	hire       time.Time
}

func (r *GrantRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	var err error
	if r.employeeID, err = id.ParseEmployeeID(strings.TrimSpace(r.EmployeeID)); err != nil {
		return err
	}
	if r.Year < minYear || r.Year > maxYear {
		return dErrors.New(dErrors.CodeValidation, "year must be a four-digit number")
	}
	r.hire, err = parseDate("hire_date", strings.TrimSpace(r.HireDate))
	return err
}
