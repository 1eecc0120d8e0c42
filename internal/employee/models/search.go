package models

import (
	"strings"
	"unicode"

	"legajo/pkg/cuil"
)

const (
	DefaultSearchLimit = 10
	MaxSearchLimit     = 50
)

// SearchQuery is a parsed autocomplete query. Exactly one of Name and
// DNIPrefix is set for a non-empty query.
type SearchQuery struct {
	// Name matches case-insensitively against last name or first names.
	Name string
	// DNIPrefix matches the start of the DNI.
	DNIPrefix string
	Limit     int
}

// ParseSearchQuery interprets raw as a DNI prefix when it contains only
// digits and mask characters, and as a name fragment otherwise.
func ParseSearchQuery(raw string, limit int) SearchQuery {
	raw = strings.TrimSpace(raw)
	switch {
	case limit <= 0:
		limit = DefaultSearchLimit
	case limit > MaxSearchLimit:
		limit = MaxSearchLimit
	}

	q := SearchQuery{Limit: limit}
	if raw == "" {
		return q
	}
	if isNumeric(raw) {
		q.DNIPrefix = cuil.NormalizeDNI(raw)
		if len(q.DNIPrefix) > cuil.DNILength {
			q.DNIPrefix = q.DNIPrefix[:cuil.DNILength]
		}
		return q
	}
	q.Name = strings.ToLower(raw)
	return q
}

// IsEmpty reports a query that matches everything.
func (q SearchQuery) IsEmpty() bool {
	return q.Name == "" && q.DNIPrefix == ""
}

// Matches reports whether e satisfies q.
func (q SearchQuery) Matches(e *Employee) bool {
	switch {
	case q.DNIPrefix != "":
		return strings.HasPrefix(string(e.DNI), q.DNIPrefix)
	case q.Name != "":
		return strings.Contains(strings.ToLower(e.LastName), q.Name) ||
			strings.Contains(strings.ToLower(e.FirstNames), q.Name)
	default:
		return true
	}
}

func isNumeric(s string) bool {
	hasDigit := false
	for _, r := range s {
		switch {
		case unicode.IsDigit(r):
			hasDigit = true
		case r == '.' || r == '-' || r == ' ':
		default:
			return false
		}
	}
	return hasDigit
}
