package domain

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "legajo/pkg/domain-errors"
)

// TestParseUUID_Invariants validates the parsing invariant:
// "IDs must be valid, non-empty, non-nil UUIDs"
func TestParseUUID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseEmployeeID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseEmployeeID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseEmployeeID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		validUUID := uuid.New()
		id, err := ParseEmployeeID(validUUID.String())
		require.NoError(t, err)
		assert.Equal(t, EmployeeID(validUUID), id)
		assert.Equal(t, validUUID.String(), id.String())
		assert.False(t, id.IsNil())
	})
}

// TestParseID_SecurityInvariants validates parsing at the API boundary.
func TestParseID_SecurityInvariants(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"SQL injection attempt", "'; DROP TABLE empleados;--", true},
		{"Path traversal", "../../../etc/passwd", true},
		{"Null byte injection", "550e8400\x00-e29b-41d4-a716-446655440000", true},
		{"Oversized input", strings.Repeat("a", 1000), true},
		{"Empty string", "", true},
		{"Nil UUID", uuid.Nil.String(), true},
		{"Whitespace only", "   ", true},
		{"Uppercase valid UUID", "550E8400-E29B-41D4-A716-446655440000", false},
		{"Valid UUID lowercase", "550e8400-e29b-41d4-a716-446655440000", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, errEmployee := ParseEmployeeID(tt.input)
			_, errAudit := ParseAuditEventID(tt.input)
			_, errHoliday := ParseHolidayID(tt.input)
			_, errType := ParseLeaveTypeID(tt.input)
			_, errRequest := ParseLeaveRequestID(tt.input)
			if tt.wantErr {
				require.Error(t, errEmployee)
				require.Error(t, errAudit)
				require.Error(t, errHoliday)
				require.Error(t, errType)
				require.Error(t, errRequest)
				assert.True(t, dErrors.HasCode(errEmployee, dErrors.CodeInvalidInput))
				assert.True(t, dErrors.HasCode(errRequest, dErrors.CodeInvalidInput))
			} else {
				require.NoError(t, errEmployee)
				require.NoError(t, errAudit)
				require.NoError(t, errHoliday)
				require.NoError(t, errType)
				require.NoError(t, errRequest)
			}
		})
	}
}

func TestParseNationalID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    NationalID
		wantErr bool
	}{
		{"plain digits", "12345678", "12345678", false},
		{"masked", "12.345.678", "12345678", false},
		{"spaces", " 12 345 678 ", "12345678", false},
		{"seven digits", "1234567", "", true},
		{"nine digits", "123456789", "", true},
		{"empty", "", "", true},
		{"letters", "abcdefgh", "", true},
		{"decorated", "DNI Nro. 12.345.678 (titular)", "12345678", false},
		{"oversized", strings.Repeat(".", 61), "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseNationalID(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("masked rendering", func(t *testing.T) {
		assert.Equal(t, "12.345.678", NationalID("12345678").Masked())
	})
}
