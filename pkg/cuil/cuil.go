// Package cuil derives the Argentine CUIL (Código Único de Identificación
// Laboral) from a national identity number (DNI) and a sex code.
//
// Derivation is pure: the same DNI and sex code always yield the same CUIL,
// nothing is read from the clock or from shared state, and every function in
// this package is safe for concurrent use.
//
// Incomplete input (a DNI that is not exactly 8 digits once separators are
// stripped, or an empty sex code) is not an error. Compute returns "" and
// Generate returns ok == false so callers can render "nothing to show yet".
package cuil

import (
	"fmt"
	"strings"
)

// Sex is the sex code captured by the personnel forms.
// Any value other than SexMale and SexFemale maps to the unspecified prefix.
type Sex string

const (
	SexMale   Sex = "1"
	SexFemale Sex = "2"
)

// Prefixes assigned by sex. PrefixOther doubles as the fallback prefix when
// the modulo-11 check digit for the sex prefix is 10.
const (
	PrefixMale   = 20
	PrefixFemale = 27
	PrefixOther  = 23
)

// DNILength is the number of digits a DNI must have to derive a CUIL.
const DNILength = 8

// unresolvedDigit is what the modulo-11 step yields when no single digit fits.
const unresolvedDigit = 10

var weights = [10]int{5, 4, 3, 2, 7, 6, 5, 4, 3, 2}

// Prefix returns the two-digit CUIL prefix for the sex code.
func (s Sex) Prefix() int {
	switch s {
	case SexMale:
		return PrefixMale
	case SexFemale:
		return PrefixFemale
	default:
		return PrefixOther
	}
}

// Label returns a human readable name for the sex code.
func (s Sex) Label() string {
	switch s {
	case SexMale:
		return "Masculino"
	case SexFemale:
		return "Femenino"
	case "":
		return ""
	default:
		return "No especificado"
	}
}

// Result is a derived CUIL broken into its parts.
type Result struct {
	// Prefix is the prefix that produced the accepted check digit. It is
	// PrefixOther when the fallback was applied.
	Prefix int
	// DNI is the 8-digit national id, without separators.
	DNI string
	// CheckDigit is 0-9, or 10 when even the fallback prefix could not
	// produce a single digit (see Unresolved).
	CheckDigit int
	// Fallback reports whether the sex prefix was replaced by PrefixOther.
	Fallback bool
}

// String renders the canonical form PP-DDDDDDDD-V.
func (r Result) String() string {
	return fmt.Sprintf("%02d-%s-%d", r.Prefix, r.DNI, r.CheckDigit)
}

// Masked renders the on-screen form PP-DD.DDD.DDD-V.
func (r Result) Masked() string {
	return fmt.Sprintf("%02d-%s-%d", r.Prefix, MaskDNI(r.DNI), r.CheckDigit)
}

// Digits renders the CUIL without separators, as it is stored.
func (r Result) Digits() string {
	return fmt.Sprintf("%02d%s%d", r.Prefix, r.DNI, r.CheckDigit)
}

// Unresolved reports a check digit of 10 surviving the fallback prefix.
// This only happens when the sex code was already unspecified. The value is
// reported as-is; there is no second fallback.
func (r Result) Unresolved() bool {
	return r.CheckDigit == unresolvedDigit
}

// Generate derives the CUIL for nationalID and sexCode. Non-digit characters
// in nationalID are ignored, so "20.123.456" and "20123456" are equivalent.
// ok is false when the input is incomplete.
func Generate(nationalID, sexCode string) (res Result, ok bool) {
	dni := NormalizeDNI(nationalID)
	if len(dni) != DNILength || sexCode == "" {
		return Result{}, false
	}

	prefix := Sex(sexCode).Prefix()
	digit := checkDigit(prefix, dni)
	fallback := false
	if digit == unresolvedDigit {
		prefix = PrefixOther
		digit = checkDigit(prefix, dni)
		fallback = true
	}

	return Result{
		Prefix:     prefix,
		DNI:        dni,
		CheckDigit: digit,
		Fallback:   fallback,
	}, true
}

// Compute returns the canonical CUIL string PP-DDDDDDDD-V, or "" when the
// input is incomplete.
func Compute(nationalID, sexCode string) string {
	res, ok := Generate(nationalID, sexCode)
	if !ok {
		return ""
	}
	return res.String()
}

// checkDigit runs the weighted modulo-11 checksum over prefix+dni.
// dni must already be DNILength digits.
func checkDigit(prefix int, dni string) int {
	base := fmt.Sprintf("%02d%s", prefix, dni)
	sum := 0
	for i, w := range weights {
		sum += int(base[i]-'0') * w
	}
	digit := 11 - sum%11
	if digit == 11 {
		return 0
	}
	return digit
}

// NormalizeDNI strips every non-digit character from raw.
func NormalizeDNI(raw string) string {
	return digitsOnly(raw)
}

// MaskDNI formats a DNI for display as the user types: digits beyond the
// eighth are dropped and dots are inserted as DD.DDD.DDD.
func MaskDNI(raw string) string {
	d := digitsOnly(raw)
	if len(d) > DNILength {
		d = d[:DNILength]
	}
	switch {
	case len(d) > 5:
		return d[:2] + "." + d[2:5] + "." + d[5:]
	case len(d) > 2:
		return d[:2] + "." + d[2:]
	default:
		return d
	}
}

// Mask formats a stored CUIL (11 digits, any separators) as PP-DD.DDD.DDD-V.
// Anything that is not 11 digits is returned unchanged.
func Mask(raw string) string {
	d := digitsOnly(raw)
	if len(d) != 11 {
		return raw
	}
	return d[:2] + "-" + MaskDNI(d[2:10]) + "-" + d[10:]
}

// Verify reports whether raw is an 11-digit CUIL whose last digit matches
// the modulo-11 checksum of its own prefix and DNI.
func Verify(raw string) bool {
	d := digitsOnly(raw)
	if len(d) != 11 {
		return false
	}
	prefix := int(d[0]-'0')*10 + int(d[1]-'0')
	want := checkDigit(prefix, d[2:10])
	if want == unresolvedDigit {
		return false
	}
	return int(d[10]-'0') == want
}

// SameNumber compares two DNI or CUIL values ignoring mask characters.
func SameNumber(a, b string) bool {
	return digitsOnly(a) == digitsOnly(b)
}

func digitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if c := s[i]; c >= '0' && c <= '9' {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// Generator derives CUILs. Consumers receive one instead of calling the
// package functions so tests can substitute it.
type Generator interface {
	Generate(nationalID, sexCode string) (Result, bool)
}

type standard struct{}

func (standard) Generate(nationalID, sexCode string) (Result, bool) {
	return Generate(nationalID, sexCode)
}

// Standard is the production Generator.
var Standard Generator = standard{}
