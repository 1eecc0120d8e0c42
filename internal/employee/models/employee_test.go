package models

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"legajo/pkg/cuil"
	id "legajo/pkg/domain"
	dErrors "legajo/pkg/domain-errors"
)

type EmployeeSuite struct {
	suite.Suite
	now time.Time
}

func TestEmployeeSuite(t *testing.T) {
	suite.Run(t, new(EmployeeSuite))
}

func (s *EmployeeSuite) SetupTest() {
	s.now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
}

func validProfile() Profile {
	return Profile{
		FirstNames: "Juan Carlos",
		LastName:   "Pérez",
		DNI:        "12.345.678",
		Sex:        cuil.SexMale,
		BirthDate:  time.Date(1980, 5, 17, 15, 30, 0, 0, time.UTC),
		Phone:      "351 555-0101",
		Address:    "San Martín 123",
		Children:   2,
	}
}

type failingGenerator struct{}

func (failingGenerator) Generate(string, string) (cuil.Result, bool) { return cuil.Result{}, false }

func (s *EmployeeSuite) TestNewEmployee() {
	s.Run("derives cuil from dni and sex", func() {
		e, err := NewEmployee(id.NewEmployeeID(), validProfile(), cuil.Standard, s.now)
		s.Require().NoError(err)
		s.Equal(id.NationalID("12345678"), e.DNI)
		s.Equal("20123456786", e.CUIL)
		s.Equal("20-12.345.678-6", e.MaskedCUIL())
		s.Equal("Pérez, Juan Carlos", e.FullName())
		s.Equal(s.now, e.CreatedAt)
		s.Equal(s.now, e.UpdatedAt)
	})

	s.Run("truncates birth date to the day", func() {
		e, err := NewEmployee(id.NewEmployeeID(), validProfile(), cuil.Standard, s.now)
		s.Require().NoError(err)
		s.Equal(time.Date(1980, 5, 17, 0, 0, 0, 0, time.UTC), e.BirthDate)
	})

	s.Run("trims text fields", func() {
		p := validProfile()
		p.FirstNames = "  Ana  "
		p.Phone = " 123 "
		e, err := NewEmployee(id.NewEmployeeID(), p, cuil.Standard, s.now)
		s.Require().NoError(err)
		s.Equal("Ana", e.FirstNames)
		s.Equal("123", e.Phone)
	})

	s.Run("keeps an unresolved check digit", func() {
		p := validProfile()
		p.DNI = "10000013"
		p.Sex = "9"
		e, err := NewEmployee(id.NewEmployeeID(), p, cuil.Standard, s.now)
		s.Require().NoError(err)
		s.Equal("231000001310", e.CUIL)
		s.False(cuil.Verify(e.CUIL))
	})

	cases := []struct {
		name   string
		mutate func(*Profile)
		msg    string
	}{
		{"empty first names", func(p *Profile) { p.FirstNames = "  " }, "first_names cannot be empty"},
		{"long last name", func(p *Profile) { p.LastName = strings.Repeat("x", 41) }, "last_name must be 40 characters or less"},
		{"missing dni", func(p *Profile) { p.DNI = "" }, "dni is required"},
		{"short dni", func(p *Profile) { p.DNI = "1234567" }, "dni must have 8 digits"},
		{"long dni", func(p *Profile) { p.DNI = "123456789" }, "dni must have 8 digits"},
		{"missing sex", func(p *Profile) { p.Sex = "" }, "sex is required"},
		{"missing birth date", func(p *Profile) { p.BirthDate = time.Time{} }, "birth_date is required"},
		{"future birth date", func(p *Profile) { p.BirthDate = time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC) }, "birth_date cannot be in the future"},
		{"long phone", func(p *Profile) { p.Phone = strings.Repeat("1", 21) }, "phone must be 20 characters or less"},
		{"long address", func(p *Profile) { p.Address = strings.Repeat("a", 41) }, "address must be 40 characters or less"},
		{"negative children", func(p *Profile) { p.Children = -1 }, "children must be between 0 and 30"},
		{"too many children", func(p *Profile) { p.Children = 31 }, "children must be between 0 and 30"},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			p := validProfile()
			tc.mutate(&p)
			_, err := NewEmployee(id.NewEmployeeID(), p, cuil.Standard, s.now)
			s.Require().Error(err)
			s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
			de, ok := dErrors.As(err)
			s.Require().True(ok)
			s.Equal(tc.msg, de.Message)
		})
	}

	s.Run("rejects when the generator cannot derive a cuil", func() {
		_, err := NewEmployee(id.NewEmployeeID(), validProfile(), failingGenerator{}, s.now)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})
}

func (s *EmployeeSuite) TestWithProfile() {
	original, err := NewEmployee(id.NewEmployeeID(), validProfile(), cuil.Standard, s.now)
	s.Require().NoError(err)
	later := s.now.Add(time.Hour)

	s.Run("re-derives cuil on sex change without touching the original", func() {
		female := cuil.SexFemale
		next, err := original.WithProfile(original.Profile().Merge(ProfileUpdate{Sex: &female}), cuil.Standard, later)
		s.Require().NoError(err)
		s.Equal("27123456780", next.CUIL)
		s.Equal(later, next.UpdatedAt)
		s.Equal(original.CreatedAt, next.CreatedAt)
		s.Equal(original.ID, next.ID)

		s.Equal("20123456786", original.CUIL)
		s.Equal(s.now, original.UpdatedAt)
	})

	s.Run("invalid update leaves nothing applied", func() {
		empty := ""
		_, err := original.WithProfile(original.Profile().Merge(ProfileUpdate{LastName: &empty}), cuil.Standard, later)
		s.Require().Error(err)
		s.Equal("Pérez", original.LastName)
	})
}

func (s *EmployeeSuite) TestMerge() {
	p := validProfile()
	name := "María"
	children := 0
	merged := p.Merge(ProfileUpdate{FirstNames: &name, Children: &children})
	s.Equal("María", merged.FirstNames)
	s.Equal(0, merged.Children)
	s.Equal(p.LastName, merged.LastName)
	s.Equal(p.DNI, merged.DNI)
}

func (s *EmployeeSuite) TestFields() {
	e, err := NewEmployee(id.NewEmployeeID(), validProfile(), cuil.Standard, s.now)
	s.Require().NoError(err)
	fields := e.Fields()
	s.Equal("12345678", fields[FieldDNI])
	s.Equal("20123456786", fields[FieldCUIL])
	s.Equal("1980-05-17", fields[FieldBirthDate])
	s.Equal("2", fields[FieldChildren])
	s.Equal("1", fields[FieldSex])
	s.Len(fields, 9)
}
