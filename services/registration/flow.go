package registration

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/AurumGate/AurumGate-Portal/providers"
	"github.com/AurumGate/AurumGate-Portal/providers/backend"
	"github.com/AurumGate/AurumGate-Portal/services/monitoring/logging"
)

// FlowState tracks where the wizard is in its lifecycle.
type FlowState string

const (
	StateCollecting FlowState = "collecting"
	StateSubmitting FlowState = "submitting"
	StateDone       FlowState = "done"
	StateFailed     FlowState = "failed"
)

// BranchListState is the observable state of the branch dropdown.
type BranchListState string

const (
	BranchesLoading     BranchListState = "loading"
	BranchesUnavailable BranchListState = "unavailable"
	BranchesLoaded      BranchListState = "loaded"
)

// StepOneData is the basic-info step.
type StepOneData struct {
	Name            string `json:"name"`
	Phone           string `json:"phone"`
	Email           string `json:"email"`
	Username        string `json:"username"`
	Country         string `json:"country"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// StepTwoData is the personal/financial step.
type StepTwoData struct {
	DateOfBirth   string `json:"date_of_birth"`
	Address       string `json:"address"`
	City          string `json:"city"`
	Occupation    string `json:"occupation"`
	MonthlyIncome string `json:"monthly_income"`
	BranchID      int64  `json:"branch_id"`
}

// StepThreeData is the identity-documents step.
type StepThreeData struct {
	IdentityType   string      `json:"identity_type"`
	IdentityNumber string      `json:"identity_number"`
	IdentityFront  *FileUpload `json:"-"`
	IdentityBack   *FileUpload `json:"-"`
}

// Registrar is the slice of the backend client the flow depends on.
type Registrar interface {
	Register(ctx context.Context, fields map[string]string, files []providers.Attachment) (*backend.RegisterResult, error)
	FetchPublicBranches(ctx context.Context) ([]backend.Branch, error)
}

// Flow is the 3-step registration wizard. Forward navigation is gated on
// the current step's validation; Previous always succeeds and never clears
// entered data. Submission re-validates every step so edits made after
// backtracking cannot bypass a once-passed gate.
type Flow struct {
	registrar Registrar
	phone     PhoneValidator
	logger    *logging.Logger

	mu        sync.Mutex
	step      int
	state     FlowState
	one       StepOneData
	two       StepTwoData
	three     StepThreeData
	branches  []backend.Branch
	brState   BranchListState
	asyncErrs map[string]string
}

func NewFlow(registrar Registrar, phone PhoneValidator, logger *logging.Logger) *Flow {
	return &Flow{
		registrar: registrar,
		phone:     phone,
		logger:    logger,
		step:      1,
		state:     StateCollecting,
		brState:   BranchesLoading,
		asyncErrs: make(map[string]string),
	}
}

// SetAsyncError records (or clears, with an empty message) a field error
// delivered by an asynchronous availability check.
func (f *Flow) SetAsyncError(field string, msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if msg == "" {
		delete(f.asyncErrs, field)
		return
	}
	f.asyncErrs[field] = msg
}

// AsyncErrors returns the current async field errors.
func (f *Flow) AsyncErrors() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]string, len(f.asyncErrs))
	for k, v := range f.asyncErrs {
		out[k] = v
	}
	return out
}

// Step reports the current step (1-based).
func (f *Flow) Step() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.step
}

// State reports the flow lifecycle state.
func (f *Flow) State() FlowState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// SetStepOne stores step-1 input. Data is kept even when invalid so a user
// returning via Previous finds their entries intact.
func (f *Flow) SetStepOne(d StepOneData) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.one = d
}

func (f *Flow) SetStepTwo(d StepTwoData) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.two = d
}

func (f *Flow) SetStepThree(d StepThreeData) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.three = d
}

// StepOne returns the stored step-1 input.
func (f *Flow) StepOne() StepOneData {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.one
}

// Next validates the current step and advances on success. On failure the
// field error map is returned and the step does not change.
func (f *Flow) Next() (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != StateCollecting {
		return nil, ErrAlreadySubmitted
	}
	if f.step >= 3 {
		return nil, ErrWrongStep
	}

	errs := f.validateStep(f.step)
	if len(errs) > 0 {
		return errs, nil
	}
	f.step++
	return nil, nil
}

// Previous steps back without touching entered data.
func (f *Flow) Previous() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != StateCollecting {
		return ErrAlreadySubmitted
	}
	if f.step <= 1 {
		return ErrWrongStep
	}
	f.step--
	return nil
}

// LoadBranches populates the branch dropdown. On fetch failure the state
// becomes unavailable and the fallback catalog is kept so the user can
// either retry or continue with the minimal list.
func (f *Flow) LoadBranches(ctx context.Context) {
	f.mu.Lock()
	f.brState = BranchesLoading
	f.mu.Unlock()

	branches, err := f.registrar.FetchPublicBranches(ctx)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.branches = branches
	if err != nil {
		f.logger.Error(fmt.Sprintf("branch list fetch failed: %v", err))
		f.brState = BranchesUnavailable
		return
	}
	f.brState = BranchesLoaded
}

// Branches returns the dropdown contents and their load state. Unavailable
// still carries the fallback catalog; the UI offers Retry (LoadBranches).
func (f *Flow) Branches() ([]backend.Branch, BranchListState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.branches, f.brState
}

// Validate runs one step's validation without navigating, for inline
// feedback as the user types.
func (f *Flow) Validate(step int) map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.validateStep(step)
}

// Submit re-validates all three steps, assembles the multipart payload and
// registers the customer. Field errors from any step abort the submission
// with ErrNotSubmittable; the entered data is preserved for correction.
func (f *Flow) Submit(ctx context.Context) (*backend.RegisterResult, map[string]string, error) {
	f.mu.Lock()
	if f.state != StateCollecting {
		f.mu.Unlock()
		return nil, nil, ErrAlreadySubmitted
	}

	// A user who backtracked and edited an earlier step must not bypass its
	// gate, so every step is checked again here.
	all := map[string]string{}
	for step := 1; step <= 3; step++ {
		for field, msg := range f.validateStep(step) {
			all[field] = msg
		}
	}
	for field, msg := range f.asyncErrs {
		all[field] = msg
	}
	if len(all) > 0 {
		f.mu.Unlock()
		return nil, all, ErrNotSubmittable
	}

	f.state = StateSubmitting
	fields, files := f.payload()
	f.mu.Unlock()

	result, err := f.registrar.Register(ctx, fields, files)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.state = StateFailed
		return nil, nil, err
	}
	f.state = StateDone
	return result, nil, nil
}

// Retry rearms a failed submission.
func (f *Flow) Retry() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StateFailed {
		return ErrWrongStep
	}
	f.state = StateCollecting
	return nil
}

func (f *Flow) payload() (map[string]string, []providers.Attachment) {
	fields := map[string]string{
		"name":            f.one.Name,
		"phone":           f.one.Phone,
		"email":           f.one.Email,
		"username":        f.one.Username,
		"country":         f.one.Country,
		"password":        f.one.Password,
		"date_of_birth":   f.two.DateOfBirth,
		"address":         f.two.Address,
		"city":            f.two.City,
		"occupation":      f.two.Occupation,
		"monthly_income":  f.two.MonthlyIncome,
		"branch_id":       strconv.FormatInt(f.two.BranchID, 10),
		"identity_type":   f.three.IdentityType,
		"identity_number": f.three.IdentityNumber,
	}

	files := []providers.Attachment{
		{Field: "identity_front", FileName: f.three.IdentityFront.FileName, Content: f.three.IdentityFront.Content},
		{Field: "identity_back", FileName: f.three.IdentityBack.FileName, Content: f.three.IdentityBack.Content},
	}

	return fields, files
}
