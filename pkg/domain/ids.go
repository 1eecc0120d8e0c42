// Package domain holds the typed identifiers shared across modules.
// Every identifier is parsed at the trust boundary; code past that point only
// sees valid values.
package domain

import (
	"unicode/utf8"

	"github.com/google/uuid"

	"legajo/pkg/cuil"
	dErrors "legajo/pkg/domain-errors"
)

// EmployeeID identifies an employee record.
type EmployeeID uuid.UUID

// AuditEventID identifies an audit log entry.
type AuditEventID uuid.UUID

// NewEmployeeID returns a fresh random EmployeeID.
func NewEmployeeID() EmployeeID { return EmployeeID(uuid.New()) }

// NewAuditEventID returns a fresh random AuditEventID.
func NewAuditEventID() AuditEventID { return AuditEventID(uuid.New()) }

func (id EmployeeID) String() string   { return uuid.UUID(id).String() }
func (id EmployeeID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id AuditEventID) String() string { return uuid.UUID(id).String() }
func (id AuditEventID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id EmployeeID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *EmployeeID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

func (id AuditEventID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *AuditEventID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

// ParseEmployeeID parses s as an EmployeeID.
func ParseEmployeeID(s string) (EmployeeID, error) {
	u, err := parseUUID(s, "employee ID")
	return EmployeeID(u), err
}

// ParseAuditEventID parses s as an AuditEventID.
func ParseAuditEventID(s string) (AuditEventID, error) {
	u, err := parseUUID(s, "audit event ID")
	return AuditEventID(u), err
}

// Leave identifiers. They follow the same rules as EmployeeID.
type (
	HolidayID       uuid.UUID
	LeaveTypeID     uuid.UUID
	LeaveRequestID  uuid.UUID
	VacationGrantID uuid.UUID
)

func NewHolidayID() HolidayID             { return HolidayID(uuid.New()) }
func NewLeaveTypeID() LeaveTypeID         { return LeaveTypeID(uuid.New()) }
func NewLeaveRequestID() LeaveRequestID   { return LeaveRequestID(uuid.New()) }
func NewVacationGrantID() VacationGrantID { return VacationGrantID(uuid.New()) }

func (id HolidayID) String() string       { return uuid.UUID(id).String() }
func (id HolidayID) IsNil() bool          { return uuid.UUID(id) == uuid.Nil }
func (id LeaveTypeID) String() string     { return uuid.UUID(id).String() }
func (id LeaveTypeID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id LeaveRequestID) String() string  { return uuid.UUID(id).String() }
func (id LeaveRequestID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id VacationGrantID) String() string { return uuid.UUID(id).String() }
func (id VacationGrantID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id HolidayID) MarshalText() ([]byte, error)       { return uuid.UUID(id).MarshalText() }
func (id LeaveTypeID) MarshalText() ([]byte, error)     { return uuid.UUID(id).MarshalText() }
func (id LeaveRequestID) MarshalText() ([]byte, error)  { return uuid.UUID(id).MarshalText() }
func (id VacationGrantID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *HolidayID) UnmarshalText(b []byte) error       { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *LeaveTypeID) UnmarshalText(b []byte) error     { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *LeaveRequestID) UnmarshalText(b []byte) error  { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *VacationGrantID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }

func ParseHolidayID(s string) (HolidayID, error) {
	u, err := parseUUID(s, "holiday ID")
	return HolidayID(u), err
}

func ParseLeaveTypeID(s string) (LeaveTypeID, error) {
	u, err := parseUUID(s, "leave type ID")
	return LeaveTypeID(u), err
}

func ParseLeaveRequestID(s string) (LeaveRequestID, error) {
	u, err := parseUUID(s, "leave request ID")
	return LeaveRequestID(u), err
}

func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be nil")
	}
	return u, nil
}

// MaxNationalIDInput bounds the raw DNI text, separators included.
const MaxNationalIDInput = 60

// NationalID is an Argentine DNI: exactly 8 digits, no separators.
type NationalID string

// ParseNationalID accepts a DNI with or without mask characters
// ("12.345.678", "12345678") and returns its 8-digit form.
func ParseNationalID(s string) (NationalID, error) {
	if utf8.RuneCountInString(s) > MaxNationalIDInput {
		return "", dErrors.New(dErrors.CodeInvalidInput, "dni must be at most 60 characters")
	}
	digits := cuil.NormalizeDNI(s)
	if digits == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "dni is required")
	}
	if len(digits) != cuil.DNILength {
		return "", dErrors.New(dErrors.CodeInvalidInput, "dni must have 8 digits")
	}
	return NationalID(digits), nil
}

func (n NationalID) String() string { return string(n) }

// Masked renders the DNI as DD.DDD.DDD.
func (n NationalID) Masked() string { return cuil.MaskDNI(string(n)) }
