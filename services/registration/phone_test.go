package registration

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPhoneValidator(t *testing.T) {
	v := NewPhoneValidator()

	cases := []struct {
		name    string
		country string
		number  string
		valid   bool
	}{
		{"national format", "AE", "501234567", true},
		{"national format with trunk zero", "AE", "0501234567", true},
		{"international format", "AE", "+971501234567", true},
		{"formatted input", "AE", "050 123 4567", true},
		{"lowercase country code", "ae", "501234567", true},
		{"too short", "AE", "12", false},
		{"wrong country for selection", "AE", "+442071838750", false},
		{"letters", "AE", "not-a-number", false},
		{"empty", "AE", "", false},
		{"empty country", "", "501234567", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.valid, v.Valid(tc.country, tc.number))
		})
	}
}
