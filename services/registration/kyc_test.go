package registration

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/AurumGate/AurumGate-Portal/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeKYCBackend struct {
	individualCalls int
	companyCalls    int
	gotFiles        []providers.Attachment
	err             error
}

func (b *fakeKYCBackend) SubmitKYC(ctx context.Context, fields map[string]string, files []providers.Attachment) error {
	b.individualCalls++
	b.gotFiles = files
	return b.err
}

func (b *fakeKYCBackend) SubmitCompanyKYC(ctx context.Context, fields map[string]string, files []providers.Attachment) error {
	b.companyCalls++
	b.gotFiles = files
	return b.err
}

func validIndividual() KYCSubmission {
	return KYCSubmission{
		Variant: Individual,
		Fields: map[string]string{
			"first_name":    "Amal",
			"last_name":     "Haddad",
			"nationality":   "AE",
			"date_of_birth": "1990-03-14",
			"id_number":     "784-1990-1234567-1",
		},
		Files: map[string]*FileUpload{
			"id_front": {FileName: "front.png", Content: pngBytes()},
			"id_back":  {FileName: "back.png", Content: pngBytes()},
			"selfie":   {FileName: "selfie.png", Content: pngBytes()},
		},
	}
}

func validCompany() KYCSubmission {
	return KYCSubmission{
		Variant: Company,
		Fields: map[string]string{
			"company_name":        "Aurum Traders LLC",
			"registration_number": "CN-445566",
			"incorporation_date":  "2015-06-01",
			"representative_name": "Amal Haddad",
			"representative_id":   "784-1990-1234567-1",
		},
		Files: map[string]*FileUpload{
			"trade_license":             {FileName: "license.pdf", Content: pdfBytes()},
			"incorporation_certificate": {FileName: "cert.pdf", Content: pdfBytes()},
			"representative_id_front":   {FileName: "front.png", Content: pngBytes()},
			"representative_id_back":    {FileName: "back.png", Content: pngBytes()},
		},
	}
}

func pdfBytes() []byte {
	return append([]byte("%PDF-1.4\n"), bytes.Repeat([]byte{' '}, 64)...)
}

func TestValidateKYC_IndividualComplete(t *testing.T) {
	assert.Empty(t, ValidateKYC(validIndividual()))
}

func TestValidateKYC_MissingFieldsAndFiles(t *testing.T) {
	sub := validIndividual()
	sub.Fields["nationality"] = ""
	delete(sub.Files, "selfie")

	errs := ValidateKYC(sub)
	assert.Equal(t, MsgRequired, errs["nationality"])
	assert.Equal(t, MsgRequired, errs["selfie"])
	assert.NotContains(t, errs, "first_name")
}

func TestValidateKYC_DateOfBirthRange(t *testing.T) {
	sub := validIndividual()
	sub.Fields["date_of_birth"] = "2020-01-01" // under 18

	errs := ValidateKYC(sub)
	assert.Equal(t, MsgDateOutOfRange, errs["date_of_birth"])
}

func TestValidateKYC_FilePolicy(t *testing.T) {
	sub := validIndividual()
	// Individual photo fields reject PDF scans.
	sub.Files["selfie"] = &FileUpload{FileName: "selfie.pdf", Content: pdfBytes()}

	errs := ValidateKYC(sub)
	assert.Equal(t, MsgFileBadType, errs["selfie"])

	sub = validIndividual()
	sub.Files["id_front"] = &FileUpload{
		FileName: "front.png",
		Content:  append(pngBytes(), bytes.Repeat([]byte{0}, MaxFileSize)...),
	}
	errs = ValidateKYC(sub)
	assert.Equal(t, MsgFileTooLarge, errs["id_front"])
}

func TestValidateKYC_CompanyAcceptsPDFDocuments(t *testing.T) {
	assert.Empty(t, ValidateKYC(validCompany()))
}

func TestValidateKYC_UnknownVariant(t *testing.T) {
	errs := ValidateKYC(KYCSubmission{Variant: "partnership"})
	assert.Contains(t, errs["account_type"], "partnership")
}

func TestSubmitKYC_RoutesByVariant(t *testing.T) {
	b := &fakeKYCBackend{}

	fieldErrs, err := SubmitKYC(context.Background(), b, validIndividual())
	require.NoError(t, err)
	assert.Empty(t, fieldErrs)
	assert.Equal(t, 1, b.individualCalls)
	assert.Equal(t, 0, b.companyCalls)
	assert.Len(t, b.gotFiles, 3)

	fieldErrs, err = SubmitKYC(context.Background(), b, validCompany())
	require.NoError(t, err)
	assert.Empty(t, fieldErrs)
	assert.Equal(t, 1, b.companyCalls)
	assert.Len(t, b.gotFiles, 4)
}

func TestSubmitKYC_InvalidDraftNeverSent(t *testing.T) {
	b := &fakeKYCBackend{}
	sub := validIndividual()
	sub.Fields["id_number"] = ""

	fieldErrs, err := SubmitKYC(context.Background(), b, sub)
	assert.ErrorIs(t, err, ErrNotSubmittable)
	assert.Equal(t, MsgRequired, fieldErrs["id_number"])
	assert.Equal(t, 0, b.individualCalls)
}

func TestSubmitKYC_UpstreamError(t *testing.T) {
	b := &fakeKYCBackend{err: fmt.Errorf("upstream rejected submission")}

	fieldErrs, err := SubmitKYC(context.Background(), b, validIndividual())
	assert.Error(t, err)
	assert.Empty(t, fieldErrs)
}
