package backend

import (
	"time"

	"github.com/shopspring/decimal"
)

// KYC lifecycle states as reported by the backend.
const (
	KYCPending    = "pending"
	KYCRegistered = "registered"
	KYCRejected   = "rejected"
	KYCVerified   = "verified"
)

// Account shapes.
const (
	AccountB2B = "B2B"
	AccountB2C = "B2C"
)

// Customer is the authoritative snapshot returned by the backend. Balances
// are never derived client-side; they only ever arrive through this record.
type Customer struct {
	ID          int64              `json:"id"`
	Name        string             `json:"name"`
	Username    string             `json:"username"`
	Email       string             `json:"email"`
	Phone       string             `json:"phone"`
	KYCStatus   string             `json:"kyc_status"`
	AccountType string             `json:"account_type"`
	CashBalance decimal.Decimal    `json:"cash_balance"`
	Spread      decimal.Decimal    `json:"spread"`
	Branches    []BranchAssignment `json:"branches"`
}

// BranchAssignment pairs a branch with the customer's gold quantity held there.
type BranchAssignment struct {
	Branch      Branch          `json:"branch"`
	GoldBalance decimal.Decimal `json:"gold_balance"`
}

type Branch struct {
	ID       int64            `json:"id"`
	Name     string           `json:"name"`
	Code     string           `json:"code"`
	Address  string           `json:"address"`
	ChargeTo []TransferCharge `json:"charge_to,omitempty"`
}

// TransferCharge is the outbound fee configuration from one branch to a
// destination branch: a flat fee plus optional quantity slabs.
type TransferCharge struct {
	ToBranchID int64           `json:"to_branch_id"`
	Amount     decimal.Decimal `json:"amount"`
	Slabs      []ChargeSlab    `json:"slabs,omitempty"`
}

// ChargeSlab applies to transfers up to ThresholdKG. Slabs must be kept in
// ascending threshold order; the first slab whose threshold covers the
// transfer quantity is the applicable one.
type ChargeSlab struct {
	ThresholdKG decimal.Decimal `json:"up_to"`
	Percentage  decimal.Decimal `json:"percentage"`
}

// ChargeFor looks up the outbound transfer charge toward a destination
// branch. The second return reports whether a charge is configured at all.
func (b Branch) ChargeFor(toBranchID int64) (TransferCharge, bool) {
	for _, c := range b.ChargeTo {
		if c.ToBranchID == toBranchID {
			return c, true
		}
	}
	return TransferCharge{}, false
}

// Request form record types and statuses.
const (
	ReqDeposit  = "deposit"
	ReqWithdraw = "withdraw"
	ReqBuy      = "buy"
	ReqSell     = "sell"
	ReqSwapping = "swapping"

	ReqStatusPending  = "pending"
	ReqStatusApproved = "approved"
	ReqStatusRejected = "rejected"
)

// RequestFormRecord is the backend's view of a submitted transaction intent.
// Read-only to the portal; status transitions arrive over the event channel.
type RequestFormRecord struct {
	ID         int64           `json:"id"`
	Type       string          `json:"type"`
	AssetType  string          `json:"asset_type"`
	Amount     decimal.Decimal `json:"amount"`
	Status     string          `json:"status"`
	Remarks    string          `json:"remarks,omitempty"`
	FromBranch string          `json:"from_branch,omitempty"`
	ToBranch   string          `json:"to_branch,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// RequestFormParams is the body for POST /api/user/reqform/{customerId}.
// Fields are populated according to Type.
type RequestFormParams struct {
	Type          string          `json:"type"`
	AssetType     string          `json:"asset_type"`
	Amount        decimal.Decimal `json:"amount"`
	BranchID      int64           `json:"branch_id,omitempty"`
	ToBranchID    int64           `json:"to_branch_id,omitempty"`
	PaymentMethod string          `json:"payment_method,omitempty"`
}

// GoldRequestParams is the body for POST /api/user/reqformgold/{customerId}.
type GoldRequestParams struct {
	Type      string          `json:"type"`
	Quantity  decimal.Decimal `json:"quantity"`
	BranchID  int64           `json:"branch_id"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// RegisterResult is the payload returned on a successful registration.
type RegisterResult struct {
	Token    string    `json:"token"`
	Customer *Customer `json:"customer"`
	KYCForm  *KYCForm  `json:"kycForm,omitempty"`
}

type KYCForm struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}

// availabilityResponse mirrors the check-username / check-email endpoints.
type availabilityResponse struct {
	Available bool   `json:"available"`
	Message   string `json:"message,omitempty"`
}

type branchesResponse struct {
	Success  bool     `json:"success"`
	Branches []Branch `json:"branches"`
}

type customerResponse struct {
	Success  bool      `json:"success"`
	Customer *Customer `json:"customer"`
}

type requestFormsResponse struct {
	Success  bool                `json:"success"`
	Requests []RequestFormRecord `json:"requests"`
}

type registerResponse struct {
	Success  bool      `json:"success"`
	Message  string    `json:"message,omitempty"`
	Token    string    `json:"token"`
	Customer *Customer `json:"customer"`
	KYCForm  *KYCForm  `json:"kycForm,omitempty"`
}

type submitResponse struct {
	Success bool               `json:"success"`
	Message string             `json:"message,omitempty"`
	Request *RequestFormRecord `json:"request,omitempty"`
}
