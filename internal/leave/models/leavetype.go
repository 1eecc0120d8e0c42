package models

import (
	"strings"
	"unicode/utf8"

	id "legajo/pkg/domain"
	dErrors "legajo/pkg/domain-errors"
)

const maxTypeDescription = 100

// LeaveType is a kind of leave employees can request. MaxDays zero marks
// a free leave, which has no day limit and may fall on holidays.
type LeaveType struct {
	ID          id.LeaveTypeID `json:"id"`
	Description string         `json:"description"`
	MaxDays     int            `json:"max_days"`
	Paid        bool           `json:"paid"`
}

func NewLeaveType(typeID id.LeaveTypeID, description string, maxDays int, paid bool) (*LeaveType, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "description is required")
	}
	if utf8.RuneCountInString(description) > maxTypeDescription {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "description must be 100 characters or less")
	}
	if maxDays < 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "max_days cannot be negative")
	}
	return &LeaveType{ID: typeID, Description: description, MaxDays: maxDays, Paid: paid}, nil
}

// Free reports whether t has no day limit.
func (t *LeaveType) Free() bool { return t.MaxDays == 0 }
