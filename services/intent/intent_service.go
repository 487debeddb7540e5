package intent

import (
	"fmt"

	"github.com/AurumGate/AurumGate-Portal/providers/backend"
	"github.com/AurumGate/AurumGate-Portal/services/market"
	"github.com/shopspring/decimal"
)

// Draft kinds and assets.
type Kind string

const (
	Deposit  Kind = "deposit"
	Withdraw Kind = "withdraw"
	Buy      Kind = "buy"
	Sell     Kind = "sell"
	Swap     Kind = "swap"
)

type Asset string

const (
	Cash Asset = "cash"
	Gold Asset = "gold"
)

// PaymentMethod selects how a swap transfer charge is settled.
type PaymentMethod string

const (
	PayCash PaymentMethod = "cash"
	PayGold PaymentMethod = "gold"
)

// GoldUSDPerGram is the fixed settlement rate used to express a cash
// transfer charge as a gold quantity when a swap charge is paid in gold.
// It is a back-office rate, not the live market price.
var GoldUSDPerGram = decimal.NewFromInt(85)

// Draft is an ephemeral transaction intent. It is never persisted; it lives
// from the moment a confirmation dialog opens until cancel or submit.
type Draft struct {
	Kind           Kind
	Asset          Asset
	Quantity       decimal.Decimal
	SourceBranchID int64
	DestBranchID   int64
	PayChargeWith  PaymentMethod
}

// Figures carries the derived numbers shown to the user before confirming.
type Figures struct {
	UnitPrice    decimal.Decimal     `json:"unit_price,omitempty"`
	Total        decimal.Decimal     `json:"total,omitempty"`
	Charge       decimal.Decimal     `json:"charge,omitempty"`
	ChargeInGold decimal.Decimal     `json:"charge_in_gold,omitempty"`
	Available    decimal.Decimal     `json:"available"`
	Slab         *backend.ChargeSlab `json:"slab,omitempty"`
}

// Decision is the validator's verdict on a draft.
type Decision struct {
	Submittable bool
	Code        ReasonCode
	Reason      string
	Figures     Figures
}

func reject(code ReasonCode, reason string, f Figures) Decision {
	return Decision{Submittable: false, Code: code, Reason: reason, Figures: f}
}

func accept(f Figures) Decision {
	return Decision{Submittable: true, Figures: f}
}

// Validator decides submittability of drafts against the current account
// snapshot and market quote. It is pure: no state is read besides its
// arguments and no side effects are produced. The caller owns submission
// and the follow-up account refresh.
type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

// Evaluate applies the validation rules in precedence order; the first
// failing rule wins and determines the reason code. sourceBranch must carry
// the charge table (resolved from the branch catalog, not the customer's
// assignment list) and may be nil when the draft doesn't involve a branch.
func (v *Validator) Evaluate(draft Draft, cust *backend.Customer, sourceBranch *backend.Branch, quote market.Quote, quoteOK bool) (Decision, error) {
	if cust == nil {
		return Decision{}, ErrNoCustomer
	}

	if draft.Quantity.LessThanOrEqual(decimal.Zero) {
		return reject(ReasonInvalidQuantity, "Enter an amount greater than zero", Figures{}), nil
	}

	switch draft.Kind {
	case Deposit:
		return accept(Figures{Total: draft.Quantity}), nil
	case Withdraw:
		if draft.Asset == Cash {
			return v.checkCashWithdraw(draft, cust), nil
		}
		return v.checkGoldWithdraw(draft, cust), nil
	case Sell:
		return v.checkSell(draft, cust, quote, quoteOK), nil
	case Buy:
		return v.checkBuy(draft, cust, quote, quoteOK), nil
	case Swap:
		return v.checkSwap(draft, cust, sourceBranch), nil
	}

	return reject(ReasonUnsupportedKind, fmt.Sprintf("Unsupported request type %q", draft.Kind), Figures{}), nil
}

func (v *Validator) checkCashWithdraw(draft Draft, cust *backend.Customer) Decision {
	f := Figures{Total: draft.Quantity, Available: cust.CashBalance}
	if draft.Quantity.GreaterThan(cust.CashBalance) {
		return reject(ReasonInsufficientCash,
			fmt.Sprintf("Insufficient cash: available %s", cust.CashBalance.StringFixed(2)), f)
	}
	return accept(f)
}

func (v *Validator) checkGoldWithdraw(draft Draft, cust *backend.Customer) Decision {
	available := goldAt(cust, draft.SourceBranchID)
	f := Figures{Total: draft.Quantity, Available: available}
	if draft.Quantity.GreaterThan(available) {
		return reject(ReasonInsufficientGold,
			fmt.Sprintf("Insufficient gold: available %sg", available.String()), f)
	}
	return accept(f)
}

func (v *Validator) checkSell(draft Draft, cust *backend.Customer, quote market.Quote, quoteOK bool) Decision {
	available := goldAt(cust, draft.SourceBranchID)
	if draft.Quantity.GreaterThan(available) {
		return reject(ReasonInsufficientGold,
			fmt.Sprintf("Insufficient gold: available %sg", available.String()),
			Figures{Available: available})
	}

	if !quoteOK {
		return reject(ReasonQuoteUnavailable, "Live price unavailable, try again shortly",
			Figures{Available: available})
	}
	if !quote.Tradeable() {
		return reject(ReasonMarketClosed, "Market is closed", Figures{Available: available})
	}

	unit := market.PerGram(market.EffectiveBid(quote, cust.Spread))
	f := Figures{
		UnitPrice: unit,
		Total:     draft.Quantity.Mul(unit),
		Available: available,
	}
	return accept(f)
}

func (v *Validator) checkBuy(draft Draft, cust *backend.Customer, quote market.Quote, quoteOK bool) Decision {
	if !quoteOK {
		return reject(ReasonQuoteUnavailable, "Live price unavailable, try again shortly",
			Figures{Available: cust.CashBalance})
	}
	if !quote.Tradeable() {
		return reject(ReasonMarketClosed, "Market is closed", Figures{Available: cust.CashBalance})
	}

	unit := market.PerGram(market.EffectiveAsk(quote, cust.Spread))
	total := draft.Quantity.Mul(unit)
	f := Figures{
		UnitPrice: unit,
		Total:     total,
		Available: cust.CashBalance,
	}
	if total.GreaterThan(cust.CashBalance) {
		return reject(ReasonInsufficientCash,
			fmt.Sprintf("Insufficient cash: required %s, available %s",
				total.StringFixed(2), cust.CashBalance.StringFixed(2)), f)
	}
	return accept(f)
}

func (v *Validator) checkSwap(draft Draft, cust *backend.Customer, sourceBranch *backend.Branch) Decision {
	if draft.SourceBranchID == 0 || draft.DestBranchID == 0 || sourceBranch == nil {
		return reject(ReasonBranchNotSelected, "Select both a source and a destination branch", Figures{})
	}

	available := goldAt(cust, draft.SourceBranchID)

	charge, ok := sourceBranch.ChargeFor(draft.DestBranchID)
	if !ok {
		return reject(ReasonChargeNotConfigured,
			"Transfer charge not configured for the selected destination",
			Figures{Available: available})
	}

	f := Figures{
		Total:     draft.Quantity,
		Charge:    charge.Amount,
		Available: available,
		Slab:      applicableSlab(charge, draft.Quantity),
	}

	if draft.Quantity.GreaterThan(available) {
		return reject(ReasonInsufficientGold,
			fmt.Sprintf("Insufficient gold: available %sg", available.String()), f)
	}

	switch draft.PayChargeWith {
	case PayGold:
		// Express the cash charge as gold at the fixed settlement rate and
		// require the source branch to cover transfer plus charge.
		chargeInGold := charge.Amount.Div(GoldUSDPerGram)
		f.ChargeInGold = chargeInGold
		if draft.Quantity.Add(chargeInGold).GreaterThan(available) {
			return reject(ReasonInsufficientGold,
				fmt.Sprintf("Insufficient gold to cover transfer plus charge: available %sg", available.String()), f)
		}
	default:
		if cust.CashBalance.LessThan(charge.Amount) {
			return reject(ReasonInsufficientCash,
				fmt.Sprintf("Insufficient cash for the transfer charge: required %s, available %s",
					charge.Amount.StringFixed(2), cust.CashBalance.StringFixed(2)), f)
		}
	}

	return accept(f)
}

// applicableSlab returns the first slab, in ascending threshold order, whose
// threshold covers the transfer quantity. Slabs are informational: the flat
// charge amount drives validation.
func applicableSlab(charge backend.TransferCharge, qty decimal.Decimal) *backend.ChargeSlab {
	for i := range charge.Slabs {
		if charge.Slabs[i].ThresholdKG.GreaterThanOrEqual(qty) {
			return &charge.Slabs[i]
		}
	}
	return nil
}

func goldAt(cust *backend.Customer, branchID int64) decimal.Decimal {
	if branchID == 0 {
		return decimal.Zero
	}
	for _, ba := range cust.Branches {
		if ba.Branch.ID == branchID {
			return ba.GoldBalance
		}
	}
	return decimal.Zero
}
