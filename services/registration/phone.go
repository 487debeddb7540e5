package registration

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// PhoneValidator checks a phone number against the numbering plan of the
// country selected in the form. It is a collaborator so tests can substitute
// fixed verdicts.
type PhoneValidator interface {
	Valid(countryCode string, number string) bool
}

// LibPhoneValidator validates against libphonenumber metadata. National
// format and international format with the country's dial prefix are both
// accepted; a number belonging to a different country than the one selected
// is rejected.
type LibPhoneValidator struct{}

func NewPhoneValidator() *LibPhoneValidator {
	return &LibPhoneValidator{}
}

func (v *LibPhoneValidator) Valid(countryCode string, number string) bool {
	region := strings.ToUpper(strings.TrimSpace(countryCode))
	num, err := phonenumbers.Parse(number, region)
	if err != nil {
		return false
	}
	return phonenumbers.IsValidNumberForRegion(num, region)
}
