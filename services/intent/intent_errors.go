package intent

import "fmt"

var (
	ErrNoCustomer = fmt.Errorf("no customer snapshot available")
)

// Reason codes carried on a Decision. Every rejection maps to exactly one
// code so callers (and tests) can distinguish the failing rule.
type ReasonCode string

const (
	ReasonNone                ReasonCode = ""
	ReasonInvalidQuantity     ReasonCode = "invalid_quantity"
	ReasonInsufficientCash    ReasonCode = "insufficient_cash"
	ReasonInsufficientGold    ReasonCode = "insufficient_gold"
	ReasonQuoteUnavailable    ReasonCode = "quote_unavailable"
	ReasonMarketClosed        ReasonCode = "market_closed"
	ReasonBranchNotSelected   ReasonCode = "branch_not_selected"
	ReasonChargeNotConfigured ReasonCode = "charge_not_configured"
	ReasonUnsupportedKind     ReasonCode = "unsupported_kind"
)
