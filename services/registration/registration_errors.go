package registration

import "fmt"

var (
	ErrWrongStep        = fmt.Errorf("operation not valid for the current step")
	ErrAlreadySubmitted = fmt.Errorf("registration already submitted")
	ErrNotSubmittable   = fmt.Errorf("one or more steps failed validation")
)

// Field error messages. These surface verbatim in the UI, so changes here
// are user-visible.
const (
	MsgRequired         = "This field is required"
	MsgInvalidEmail     = "Enter a valid email address"
	MsgPasswordMismatch = "Passwords do not match"
	MsgInvalidPhone     = "Enter a valid phone number for the selected country"
	MsgUsernameTaken    = "Username is already taken"
	MsgEmailTaken       = "Email is already registered"
	MsgFileTooLarge     = "File exceeds the 5 MB limit"
	MsgFileBadType      = "File type is not allowed"
	MsgDateOutOfRange   = "Date is out of the allowed range"
)
