package models

import (
	"sort"

	"legajo/pkg/cuil"
)

// Audited field names. They match the personnel file columns so history
// entries read the same as in the legacy system.
const (
	FieldFirstNames = "nombres"
	FieldLastName   = "apellido"
	FieldDNI        = "dni"
	FieldCUIL       = "cuil"
	FieldSex        = "id_sexo"
	FieldBirthDate  = "fecha_nac"
	FieldPhone      = "telefono"
	FieldAddress    = "dr_personal"
	FieldChildren   = "num_hijos"
)

// FieldChange is the before and after value of a field.
type FieldChange struct {
	Old string
	New string
}

// Changes maps field names to their change.
type Changes map[string]FieldChange

// Empty reports whether nothing changed.
func (c Changes) Empty() bool { return len(c) == 0 }

// Fields lists the changed field names in sorted order.
func (c Changes) Fields() []string {
	out := make([]string, 0, len(c))
	for f := range c {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Diff returns the fields whose values differ between before and after.
//
// DNI and CUIL compare by digits only, so re-masking a value
// ("12345678" → "12.345.678") is not a change. Two empty values ("" or
// "0") are never a change.
func Diff(before, after map[string]string) Changes {
	changes := Changes{}
	seen := make(map[string]struct{}, len(before)+len(after))
	for k := range before {
		seen[k] = struct{}{}
	}
	for k := range after {
		seen[k] = struct{}{}
	}

	for field := range seen {
		oldVal, newVal := before[field], after[field]
		if isEmpty(oldVal) && isEmpty(newVal) {
			continue
		}
		if isNumberField(field) {
			if cuil.SameNumber(oldVal, newVal) {
				continue
			}
		} else if oldVal == newVal {
			continue
		}
		changes[field] = FieldChange{Old: oldVal, New: newVal}
	}
	return changes
}

func isNumberField(field string) bool {
	return field == FieldDNI || field == FieldCUIL
}

func isEmpty(v string) bool {
	return v == "" || v == "0"
}
