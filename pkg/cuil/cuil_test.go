package cuil

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var canonical = regexp.MustCompile(`^\d{2}-\d{8}-\d$`)

func TestCompute(t *testing.T) {
	tests := []struct {
		name string
		dni  string
		sex  string
		want string
	}{
		// 2020123456: 10+0+6+0+7+12+15+16+15+12 = 93, 93 mod 11 = 5, 11-5 = 6
		{"male worked example", "20123456", "1", "20-20123456-6"},
		{"male", "12345678", "1", "20-12345678-6"},
		{"female", "12345678", "2", "27-12345678-0"},
		{"unspecified", "12345678", "9", "23-12345678-5"},
		{"remainder zero collapses to 0", "00000000", "9", "23-00000000-0"},
		{"masked input", "33.213.232", "1", "20-33213232-7"},
		{"male fallback to 23", "10000005", "1", "23-10000005-9"},
		{"female fallback to 23", "10000002", "2", "23-10000002-4"},
		{"unresolved digit reported as-is", "10000013", "X", "23-10000013-10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Compute(tt.dni, tt.sex))
		})
	}
}

func TestCompute_IncompleteInput(t *testing.T) {
	tests := []struct {
		name string
		dni  string
		sex  string
	}{
		{"seven digits", "1234567", "1"},
		{"nine digits", "123456789", "1"},
		{"empty sex", "12345678", ""},
		{"empty dni", "", "1"},
		{"letters only", "abcdefgh", "2"},
		{"oversized input", strings.Repeat("9", 1000), "1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, Compute(tt.dni, tt.sex))
			_, ok := Generate(tt.dni, tt.sex)
			assert.False(t, ok)
		})
	}
}

func TestCompute_PrefixMapping(t *testing.T) {
	assert.True(t, strings.HasPrefix(Compute("12345678", "1"), "20-"))
	assert.True(t, strings.HasPrefix(Compute("12345678", "2"), "27-"))
	for _, sex := range []string{"9", "X", "U", "0", "masculino"} {
		assert.True(t, strings.HasPrefix(Compute("12345678", sex), "23-"), "sex %q", sex)
	}
}

func TestCompute_Normalization(t *testing.T) {
	want := Compute("12345678", "1")
	for _, in := range []string{"12.345.678", "12-345-678", " 12 345 678 ", "DNI 12345678"} {
		assert.Equal(t, want, Compute(in, "1"), "input %q", in)
	}
}

// Every 8-digit DNI with a male or female code yields a single check digit:
// the fallback prefix never produces 10 for those sexes.
func TestCompute_FormatForStrongSexCodes(t *testing.T) {
	for n := 0; n < 100000; n += 7 {
		dni := fmt.Sprintf("%08d", n*997)
		for _, sex := range []string{"1", "2"} {
			got := Compute(dni, sex)
			require.Regexp(t, canonical, got, "dni %s sex %s", dni, sex)
			require.True(t, Verify(got), "dni %s sex %s", dni, sex)
		}
	}
}

func TestCompute_FallbackExists(t *testing.T) {
	var found bool
	for n := 10000000; n < 10001000 && !found; n++ {
		dni := fmt.Sprintf("%08d", n)
		if checkDigit(PrefixMale, dni) != unresolvedDigit {
			continue
		}
		found = true
		res, ok := Generate(dni, "1")
		require.True(t, ok)
		assert.True(t, res.Fallback)
		assert.Equal(t, PrefixOther, res.Prefix)
		assert.NotEqual(t, unresolvedDigit, res.CheckDigit)
		assert.True(t, strings.HasPrefix(res.String(), "23-"))
	}
	assert.True(t, found, "expected a DNI whose male check digit is 10")
}

func TestCompute_Deterministic(t *testing.T) {
	first := Compute("20.123.456", "2")
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, first, Compute("20.123.456", "2"))
		}()
	}
	wg.Wait()
}

func TestResult(t *testing.T) {
	t.Run("renders canonical masked and stored forms", func(t *testing.T) {
		res, ok := Generate("33213232", "1")
		require.True(t, ok)
		assert.Equal(t, "20-33213232-7", res.String())
		assert.Equal(t, "20-33.213.232-7", res.Masked())
		assert.Equal(t, "20332132327", res.Digits())
		assert.False(t, res.Fallback)
		assert.False(t, res.Unresolved())
	})

	t.Run("flags unresolved check digit", func(t *testing.T) {
		res, ok := Generate("10000013", "U")
		require.True(t, ok)
		assert.True(t, res.Unresolved())
		assert.True(t, res.Fallback)
		assert.Equal(t, "231000001310", res.Digits())
	})
}

func TestMaskDNI(t *testing.T) {
	tests := map[string]string{
		"":              "",
		"12":            "12",
		"123":           "12.3",
		"12345":         "12.345",
		"123456":        "12.345.6",
		"12345678":      "12.345.678",
		"1234567899":    "12.345.678",
		"12.345.678":    "12.345.678",
		"1.234.567":     "12.345.67",
		"abc":           "",
		"20-12345678-6": "20.123.456",
	}
	for in, want := range tests {
		assert.Equal(t, want, MaskDNI(in), "input %q", in)
	}
}

func TestMask(t *testing.T) {
	assert.Equal(t, "20-12.345.678-6", Mask("20123456786"))
	assert.Equal(t, "20-12.345.678-6", Mask("20-12345678-6"))
	assert.Equal(t, "not a cuil", Mask("not a cuil"))
	assert.Equal(t, "2012345678", Mask("2012345678"))
}

func TestVerify(t *testing.T) {
	assert.True(t, Verify("20-12345678-6"))
	assert.True(t, Verify("20-12.345.678-6"))
	assert.True(t, Verify("23-10000005-9"))
	assert.False(t, Verify("20-12345678-9"))
	assert.False(t, Verify("23-10000013-10"))
	assert.False(t, Verify("2012345678"))
	assert.False(t, Verify(""))
}

func TestSameNumber(t *testing.T) {
	assert.True(t, SameNumber("12.345.678", "12345678"))
	assert.True(t, SameNumber("20-12.345.678-6", "20123456786"))
	assert.False(t, SameNumber("12345678", "12345679"))
}

func TestSex(t *testing.T) {
	assert.Equal(t, PrefixMale, SexMale.Prefix())
	assert.Equal(t, PrefixFemale, SexFemale.Prefix())
	assert.Equal(t, PrefixOther, Sex("").Prefix())
	assert.Equal(t, "Masculino", SexMale.Label())
	assert.Equal(t, "Femenino", SexFemale.Label())
	assert.Equal(t, "No especificado", Sex("3").Label())
	assert.Empty(t, Sex("").Label())
}

func TestStandardGenerator(t *testing.T) {
	res, ok := Standard.Generate("12345678", "2")
	require.True(t, ok)
	assert.Equal(t, "27-12345678-0", res.String())
}
