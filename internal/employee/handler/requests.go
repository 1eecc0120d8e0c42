package handler

import (
	"strings"
	"time"
	"unicode/utf8"

	"legajo/internal/employee/models"
	"legajo/pkg/cuil"
	id "legajo/pkg/domain"
	dErrors "legajo/pkg/domain-errors"
)

// Upper bounds checked before any parsing.
const (
	maxDNIInput   = id.MaxNationalIDInput
	maxSexInput   = 4
	maxTextInput  = 200
	dateLayout    = time.DateOnly
	maxQueryInput = 60
)

// PreviewCUILRequest is the body of POST /cuil/preview.
type PreviewCUILRequest struct {
	DNI string `json:"dni"`
	Sex string `json:"sex"`
}

// Validate implements httputil.Validatable. Incomplete input is allowed;
// the preview comes back empty.
func (r *PreviewCUILRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if utf8.RuneCountInString(r.DNI) > maxDNIInput {
		return dErrors.New(dErrors.CodeValidation, "dni must be at most 60 characters")
	}
	r.Sex = strings.TrimSpace(r.Sex)
	if len(r.Sex) > maxSexInput {
		return dErrors.New(dErrors.CodeValidation, "sex must be at most 4 characters")
	}
	return nil
}

// CreateEmployeeRequest is the body of POST /employees. A cuil field, if
// sent, is ignored: the CUIL is always derived from dni and sex.
type CreateEmployeeRequest struct {
	FirstNames string `json:"first_names"`
	LastName   string `json:"last_name"`
	DNI        string `json:"dni"`
	Sex        string `json:"sex"`
	BirthDate  string `json:"birth_date"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	Children   int    `json:"children"`

	parsedBirthDate time.Time
}

func (r *CreateEmployeeRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if err := checkSizes(r.FirstNames, r.LastName, r.Phone, r.Address); err != nil {
		return err
	}
	if utf8.RuneCountInString(r.DNI) > maxDNIInput {
		return dErrors.New(dErrors.CodeValidation, "dni must be at most 60 characters")
	}

	r.FirstNames = strings.TrimSpace(r.FirstNames)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Sex = strings.TrimSpace(r.Sex)
	switch {
	case r.FirstNames == "":
		return dErrors.New(dErrors.CodeValidation, "first_names is required")
	case r.LastName == "":
		return dErrors.New(dErrors.CodeValidation, "last_name is required")
	case strings.TrimSpace(r.DNI) == "":
		return dErrors.New(dErrors.CodeValidation, "dni is required")
	case r.Sex == "":
		return dErrors.New(dErrors.CodeValidation, "sex is required")
	case len(r.Sex) > maxSexInput:
		return dErrors.New(dErrors.CodeValidation, "sex must be at most 4 characters")
	}

	birth, err := parseDate(r.BirthDate)
	if err != nil {
		return err
	}
	r.parsedBirthDate = birth
	return nil
}

// ToProfile returns the validated request as a models.Profile.
func (r *CreateEmployeeRequest) ToProfile() models.Profile {
	return models.Profile{
		FirstNames: r.FirstNames,
		LastName:   r.LastName,
		DNI:        r.DNI,
		Sex:        cuil.Sex(r.Sex),
		BirthDate:  r.parsedBirthDate,
		Phone:      r.Phone,
		Address:    r.Address,
		Children:   r.Children,
	}
}

// UpdateEmployeeRequest is the body of PATCH /employees/{id}. Omitted
// fields are left unchanged.
type UpdateEmployeeRequest struct {
	FirstNames *string `json:"first_names"`
	LastName   *string `json:"last_name"`
	DNI        *string `json:"dni"`
	Sex        *string `json:"sex"`
	BirthDate  *string `json:"birth_date"`
	Phone      *string `json:"phone"`
	Address    *string `json:"address"`
	Children   *int    `json:"children"`

	parsedBirthDate *time.Time
}

func (r *UpdateEmployeeRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if err := checkSizes(deref(r.FirstNames), deref(r.LastName), deref(r.Phone), deref(r.Address)); err != nil {
		return err
	}
	if utf8.RuneCountInString(deref(r.DNI)) > maxDNIInput {
		return dErrors.New(dErrors.CodeValidation, "dni must be at most 60 characters")
	}
	if len(deref(r.Sex)) > maxSexInput {
		return dErrors.New(dErrors.CodeValidation, "sex must be at most 4 characters")
	}
	if r.BirthDate != nil {
		birth, err := parseDate(*r.BirthDate)
		if err != nil {
			return err
		}
		r.parsedBirthDate = &birth
	}
	return nil
}

// ToUpdate returns the validated request as a models.ProfileUpdate.
func (r *UpdateEmployeeRequest) ToUpdate() models.ProfileUpdate {
	u := models.ProfileUpdate{
		FirstNames: r.FirstNames,
		LastName:   r.LastName,
		DNI:        r.DNI,
		BirthDate:  r.parsedBirthDate,
		Phone:      r.Phone,
		Address:    r.Address,
		Children:   r.Children,
	}
	if r.Sex != nil {
		sex := cuil.Sex(strings.TrimSpace(*r.Sex))
		u.Sex = &sex
	}
	return u
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, dErrors.New(dErrors.CodeValidation, "birth_date is required")
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, dErrors.New(dErrors.CodeValidation, "birth_date must be YYYY-MM-DD")
	}
	return t, nil
}

func checkSizes(values ...string) error {
	for _, v := range values {
		if utf8.RuneCountInString(v) > maxTextInput {
			return dErrors.New(dErrors.CodeValidation, "field exceeds maximum length")
		}
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
