package registration

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateStep is called with f.mu held.
func (f *Flow) validateStep(step int) map[string]string {
	switch step {
	case 1:
		return f.validateStepOne()
	case 2:
		return f.validateStepTwo()
	case 3:
		return f.validateStepThree()
	}
	return nil
}

func (f *Flow) validateStepOne() map[string]string {
	errs := map[string]string{}
	d := f.one

	requireAll(errs, map[string]string{
		"name":     d.Name,
		"phone":    d.Phone,
		"email":    d.Email,
		"username": d.Username,
		"country":  d.Country,
		"password": d.Password,
	})

	if errs["email"] == "" && validate.Var(d.Email, "email") != nil {
		errs["email"] = MsgInvalidEmail
	}

	// Distinct from "required" so the user can tell a bad number from a
	// missing one.
	if errs["phone"] == "" && d.Country != "" && !f.phone.Valid(d.Country, d.Phone) {
		errs["phone"] = MsgInvalidPhone
	}

	if d.Password != d.ConfirmPassword {
		errs["confirmPassword"] = MsgPasswordMismatch
	}

	return prune(errs)
}

func (f *Flow) validateStepTwo() map[string]string {
	errs := map[string]string{}
	d := f.two

	requireAll(errs, map[string]string{
		"dateOfBirth": d.DateOfBirth,
		"address":     d.Address,
		"city":        d.City,
		"occupation":  d.Occupation,
	})

	if d.BranchID == 0 {
		errs["branch"] = MsgRequired
	}

	if errs["dateOfBirth"] == "" && !dateWithinRange(d.DateOfBirth, 18, 100) {
		errs["dateOfBirth"] = MsgDateOutOfRange
	}

	return prune(errs)
}

func (f *Flow) validateStepThree() map[string]string {
	errs := map[string]string{}
	d := f.three

	requireAll(errs, map[string]string{
		"identityType":   d.IdentityType,
		"identityNumber": d.IdentityNumber,
	})

	if msg := CheckFile(d.IdentityFront, false); msg != "" {
		errs["identityFront"] = msg
	}
	if msg := CheckFile(d.IdentityBack, false); msg != "" {
		errs["identityBack"] = msg
	}

	return prune(errs)
}

func requireAll(errs map[string]string, fields map[string]string) {
	for name, value := range fields {
		if strings.TrimSpace(value) == "" {
			errs[name] = MsgRequired
		}
	}
}

func prune(errs map[string]string) map[string]string {
	for k, v := range errs {
		if v == "" {
			delete(errs, k)
		}
	}
	return errs
}

// dateWithinRange parses a yyyy-mm-dd date and checks the derived age in
// whole years falls inside [minYears, maxYears].
func dateWithinRange(date string, minYears int, maxYears int) bool {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return false
	}

	now := time.Now()
	years := now.Year() - t.Year()
	if now.YearDay() < t.YearDay() {
		years--
	}

	return years >= minYears && years <= maxYears
}
