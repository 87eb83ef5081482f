package credits

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Kind is the business reason recorded on a ledger transaction.
type Kind string

const (
	KindGeneration      Kind = "GENERATION"
	KindRefund          Kind = "REFUND"
	KindPurchase        Kind = "PURCHASE"
	KindSignupBonus     Kind = "SIGNUP_BONUS"
	KindAdminAdjustment Kind = "ADMIN_ADJUSTMENT"
)

// Transaction is one immutable row of the append-only ledger. Amounts are
// signed: deductions negative, grants and refunds positive. The sum of a
// user's transaction amounts always equals their current balance.
type Transaction struct {
	ID          uuid.UUID       `json:"id"`
	UserID      uuid.UUID       `json:"user_id"`
	Amount      decimal.Decimal `json:"amount"`
	Kind        Kind            `json:"kind"`
	Description string          `json:"description,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// BalanceStatus is the API response for a balance check.
type BalanceStatus struct {
	Balance decimal.Decimal `json:"balance"`
}

// CheckResult reports whether a balance covers a required amount.
// It is advisory only; Deduct re-checks under the row lock.
type CheckResult struct {
	HasEnough bool            `json:"has_enough"`
	Balance   decimal.Decimal `json:"balance"`
}

// DeductResult is returned by a successful deduction. TransactionID lets
// a matching refund reference the original charge.
type DeductResult struct {
	NewBalance    decimal.Decimal `json:"new_balance"`
	TransactionID uuid.UUID       `json:"transaction_id"`
}

// ListParams holds pagination for transaction history queries.
type ListParams struct {
	Page     int
	PageSize int
}

// DefaultListParams returns sensible defaults.
func DefaultListParams() ListParams {
	return ListParams{Page: 1, PageSize: 20}
}
