package registration

import (
	"context"
	"fmt"

	"github.com/AurumGate/AurumGate-Portal/providers"
)

// AccountVariant selects the KYC form shape.
type AccountVariant string

const (
	Individual AccountVariant = "individual"
	Company    AccountVariant = "company"
)

// fileRequirement names one required upload and whether PDF scans are
// accepted for it.
type fileRequirement struct {
	Field    string
	AllowPDF bool
}

// variantSpec is one account shape's required fields and uploads. Both
// variants share the file-size/type and date-range check routines; only
// these sets differ.
type variantSpec struct {
	requiredFields []string
	dateFields     map[string][2]int // field -> [minYears, maxYears] of age
	files          []fileRequirement
}

var variants = map[AccountVariant]variantSpec{
	Individual: {
		requiredFields: []string{"first_name", "last_name", "nationality", "date_of_birth", "id_number"},
		dateFields:     map[string][2]int{"date_of_birth": {18, 100}},
		files: []fileRequirement{
			{Field: "id_front"},
			{Field: "id_back"},
			{Field: "selfie"},
		},
	},
	Company: {
		requiredFields: []string{"company_name", "registration_number", "incorporation_date", "representative_name", "representative_id"},
		dateFields:     map[string][2]int{"incorporation_date": {0, 200}},
		files: []fileRequirement{
			{Field: "trade_license", AllowPDF: true},
			{Field: "incorporation_certificate", AllowPDF: true},
			{Field: "representative_id_front"},
			{Field: "representative_id_back"},
		},
	},
}

// KYCSubmission is an in-progress KYC draft for either variant.
type KYCSubmission struct {
	Variant AccountVariant
	Fields  map[string]string
	Files   map[string]*FileUpload
}

// KYCBackend is the slice of the backend client used for KYC uploads.
type KYCBackend interface {
	SubmitKYC(ctx context.Context, fields map[string]string, files []providers.Attachment) error
	SubmitCompanyKYC(ctx context.Context, fields map[string]string, files []providers.Attachment) error
}

// ValidateKYC applies the variant's required-field set, shared date-range
// checks and shared file policy, returning a field error map.
func ValidateKYC(sub KYCSubmission) map[string]string {
	errs := map[string]string{}

	spec, ok := variants[sub.Variant]
	if !ok {
		errs["account_type"] = fmt.Sprintf("unknown account variant %q", sub.Variant)
		return errs
	}

	values := map[string]string{}
	for _, field := range spec.requiredFields {
		values[field] = sub.Fields[field]
	}
	requireAll(errs, values)

	for field, bounds := range spec.dateFields {
		if errs[field] == "" && !dateWithinRange(sub.Fields[field], bounds[0], bounds[1]) {
			errs[field] = MsgDateOutOfRange
		}
	}

	for _, req := range spec.files {
		if msg := CheckFile(sub.Files[req.Field], req.AllowPDF); msg != "" {
			errs[req.Field] = msg
		}
	}

	return prune(errs)
}

// SubmitKYC validates and uploads a KYC draft via the variant's endpoint.
// Field errors abort before anything is sent.
func SubmitKYC(ctx context.Context, b KYCBackend, sub KYCSubmission) (map[string]string, error) {
	if errs := ValidateKYC(sub); len(errs) > 0 {
		return errs, ErrNotSubmittable
	}

	spec := variants[sub.Variant]
	files := make([]providers.Attachment, 0, len(spec.files))
	for _, req := range spec.files {
		f := sub.Files[req.Field]
		files = append(files, providers.Attachment{Field: req.Field, FileName: f.FileName, Content: f.Content})
	}

	if sub.Variant == Company {
		return nil, b.SubmitCompanyKYC(ctx, sub.Fields, files)
	}
	return nil, b.SubmitKYC(ctx, sub.Fields, files)
}
