package models

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"legajo/pkg/cuil"
	id "legajo/pkg/domain"
	dErrors "legajo/pkg/domain-errors"
)

// Field length limits, matching the personnel file columns.
const (
	maxNameLen    = 40
	maxPhoneLen   = 20
	maxAddressLen = 40
	maxChildren   = 30
)

// Employee is the personnel record (legajo) of one employee.
//
// Invariants:
//   - FirstNames and LastName are non-empty and at most 40 characters
//   - DNI is exactly 8 digits
//   - Sex is non-empty
//   - CUIL is always derived from DNI and Sex, never accepted from input
//   - BirthDate is set and not after the record's UpdatedAt
//   - CreatedAt is immutable after construction
type Employee struct {
	ID         id.EmployeeID `json:"id"`
	FirstNames string        `json:"first_names"`
	LastName   string        `json:"last_name"`
	DNI        id.NationalID `json:"dni"`
	Sex        cuil.Sex      `json:"sex"`
	// CUIL is stored as digits only: 11 digits, or 12 when the check digit
	// could not be resolved (see cuil.Result.Unresolved).
	CUIL      string    `json:"cuil"`
	BirthDate time.Time `json:"birth_date"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	Children  int       `json:"children"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Profile holds the editable data of an employee, as captured by the forms.
// DNI may carry mask characters.
type Profile struct {
	FirstNames string
	LastName   string
	DNI        string
	Sex        cuil.Sex
	BirthDate  time.Time
	Phone      string
	Address    string
	Children   int
}

// ProfileUpdate is a partial Profile; nil fields are left unchanged.
type ProfileUpdate struct {
	FirstNames *string
	LastName   *string
	DNI        *string
	Sex        *cuil.Sex
	BirthDate  *time.Time
	Phone      *string
	Address    *string
	Children   *int
}

// NewEmployee validates profile and builds a record whose CUIL is derived by gen.
func NewEmployee(employeeID id.EmployeeID, profile Profile, gen cuil.Generator, now time.Time) (*Employee, error) {
	e := &Employee{ID: employeeID, CreatedAt: now}
	if err := e.apply(profile, gen, now); err != nil {
		return nil, err
	}
	return e, nil
}

// Profile returns the editable data of e.
func (e *Employee) Profile() Profile {
	return Profile{
		FirstNames: e.FirstNames,
		LastName:   e.LastName,
		DNI:        string(e.DNI),
		Sex:        e.Sex,
		BirthDate:  e.BirthDate,
		Phone:      e.Phone,
		Address:    e.Address,
		Children:   e.Children,
	}
}

// Merge overlays the set fields of u onto p.
func (p Profile) Merge(u ProfileUpdate) Profile {
	if u.FirstNames != nil {
		p.FirstNames = *u.FirstNames
	}
	if u.LastName != nil {
		p.LastName = *u.LastName
	}
	if u.DNI != nil {
		p.DNI = *u.DNI
	}
	if u.Sex != nil {
		p.Sex = *u.Sex
	}
	if u.BirthDate != nil {
		p.BirthDate = *u.BirthDate
	}
	if u.Phone != nil {
		p.Phone = *u.Phone
	}
	if u.Address != nil {
		p.Address = *u.Address
	}
	if u.Children != nil {
		p.Children = *u.Children
	}
	return p
}

// WithProfile returns a copy of e with profile applied and the CUIL
// re-derived. e itself is not modified.
func (e *Employee) WithProfile(profile Profile, gen cuil.Generator, now time.Time) (*Employee, error) {
	next := *e
	if err := next.apply(profile, gen, now); err != nil {
		return nil, err
	}
	return &next, nil
}

func (e *Employee) apply(p Profile, gen cuil.Generator, now time.Time) error {
	first := strings.TrimSpace(p.FirstNames)
	last := strings.TrimSpace(p.LastName)
	if err := checkName("first_names", first); err != nil {
		return err
	}
	if err := checkName("last_name", last); err != nil {
		return err
	}

	dni, err := id.ParseNationalID(p.DNI)
	if err != nil {
		msg := "invalid dni"
		if de, ok := dErrors.As(err); ok {
			msg = de.Message
		}
		return dErrors.New(dErrors.CodeInvariantViolation, msg)
	}
	sex := cuil.Sex(strings.TrimSpace(string(p.Sex)))
	if sex == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "sex is required")
	}

	if p.BirthDate.IsZero() {
		return dErrors.New(dErrors.CodeInvariantViolation, "birth_date is required")
	}
	if p.BirthDate.After(now) {
		return dErrors.New(dErrors.CodeInvariantViolation, "birth_date cannot be in the future")
	}

	phone := strings.TrimSpace(p.Phone)
	if utf8.RuneCountInString(phone) > maxPhoneLen {
		return dErrors.New(dErrors.CodeInvariantViolation, "phone must be 20 characters or less")
	}
	address := strings.TrimSpace(p.Address)
	if utf8.RuneCountInString(address) > maxAddressLen {
		return dErrors.New(dErrors.CodeInvariantViolation, "address must be 40 characters or less")
	}
	if p.Children < 0 || p.Children > maxChildren {
		return dErrors.New(dErrors.CodeInvariantViolation, "children must be between 0 and 30")
	}

	res, ok := gen.Generate(string(dni), string(sex))
	if !ok {
		return dErrors.New(dErrors.CodeInvariantViolation, "cuil cannot be derived from dni and sex")
	}

	e.FirstNames = first
	e.LastName = last
	e.DNI = dni
	e.Sex = sex
	e.CUIL = res.Digits()
	e.BirthDate = dateOnly(p.BirthDate)
	e.Phone = phone
	e.Address = address
	e.Children = p.Children
	e.UpdatedAt = now
	return nil
}

func checkName(field, v string) error {
	if v == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, field+" cannot be empty")
	}
	if utf8.RuneCountInString(v) > maxNameLen {
		return dErrors.New(dErrors.CodeInvariantViolation, field+" must be 40 characters or less")
	}
	return nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FullName renders "Apellido, Nombres".
func (e *Employee) FullName() string {
	return e.LastName + ", " + e.FirstNames
}

// MaskedCUIL renders the CUIL as PP-DD.DDD.DDD-V for display.
func (e *Employee) MaskedCUIL() string {
	return cuil.Mask(e.CUIL)
}

// Fields flattens the audited fields of e, keyed by their column names.
func (e *Employee) Fields() map[string]string {
	birth := ""
	if !e.BirthDate.IsZero() {
		birth = e.BirthDate.Format(time.DateOnly)
	}
	return map[string]string{
		FieldFirstNames: e.FirstNames,
		FieldLastName:   e.LastName,
		FieldDNI:        string(e.DNI),
		FieldCUIL:       e.CUIL,
		FieldSex:        string(e.Sex),
		FieldBirthDate:  birth,
		FieldPhone:      e.Phone,
		FieldAddress:    e.Address,
		FieldChildren:   strconv.Itoa(e.Children),
	}
}
