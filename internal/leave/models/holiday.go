package models

import (
	"strings"
	"time"
	"unicode/utf8"

	id "legajo/pkg/domain"
	dErrors "legajo/pkg/domain-errors"
)

const maxHolidayDescription = 120

// Holiday is a non-working day for everyone. Dates are unique.
// Past holidays may still be edited.
type Holiday struct {
	ID          id.HolidayID `json:"id"`
	Date        time.Time    `json:"date"`
	Description string       `json:"description"`
}

// NewHoliday validates and builds a holiday.
func NewHoliday(holidayID id.HolidayID, date time.Time, description string) (*Holiday, error) {
	h := &Holiday{ID: holidayID}
	if err := h.Set(date, description); err != nil {
		return nil, err
	}
	return h, nil
}

// Set replaces the date and description of h after validating them.
func (h *Holiday) Set(date time.Time, description string) error {
	description = strings.TrimSpace(description)
	if description == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "description is required")
	}
	if utf8.RuneCountInString(description) > maxHolidayDescription {
		return dErrors.New(dErrors.CodeInvariantViolation, "description must be 120 characters or less")
	}
	if date.IsZero() {
		return dErrors.New(dErrors.CodeInvariantViolation, "date is required")
	}
	h.Date = Day(date)
	h.Description = description
	return nil
}
