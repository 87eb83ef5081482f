package credits

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/adforge-app/adforge/internal/metrics"
)

// Service is the ledger gate in front of paid operations. It owns all
// balance mutation; nothing else writes credit_balances or
// credit_transactions. The deduct/refund pairing around a paid operation
// is the caller's responsibility.
type Service struct {
	store Store
}

// NewService creates a ledger Service over the given store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// CheckBalance reports whether the user can afford required. Advisory:
// Deduct re-checks under the storage lock, so a passing check here does
// not reserve anything.
func (s *Service) CheckBalance(ctx context.Context, userID uuid.UUID, required decimal.Decimal) (CheckResult, error) {
	balance, err := s.store.Balance(ctx, userID)
	if err != nil {
		return CheckResult{}, err
	}
	return CheckResult{HasEnough: balance.GreaterThanOrEqual(required), Balance: balance}, nil
}

// Balance returns the user's current balance; missing records read as zero.
func (s *Service) Balance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	return s.store.Balance(ctx, userID)
}

// Deduct charges the user, appending a negative ledger transaction.
// Returns *InsufficientCreditsError when the atomic re-check finds the
// balance short; in that case nothing is written.
func (s *Service) Deduct(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, kind Kind, description string) (DeductResult, error) {
	if !amount.IsPositive() {
		return DeductResult{}, ErrNonPositiveAmount
	}

	entry, newBalance, err := s.store.Deduct(ctx, userID, amount, kind, description)
	if err != nil {
		return DeductResult{}, err
	}

	metrics.CreditsDeductedTotal.Add(toFloat(amount))
	return DeductResult{NewBalance: newBalance, TransactionID: entry.ID}, nil
}

// Refund returns amount to the user after a failed paid operation. It is
// unconditional on balance state and creates the balance record if it
// never existed. reason should reference the failed operation; the
// original kind is folded into the description for the audit trail.
func (s *Service) Refund(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, originalKind Kind, reason string) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, ErrNonPositiveAmount
	}

	description := fmt.Sprintf("refund of %s: %s", originalKind, reason)
	_, newBalance, err := s.store.Credit(ctx, userID, amount, KindRefund, description)
	if err != nil {
		return decimal.Zero, err
	}

	metrics.CreditsRefundedTotal.Add(toFloat(amount))
	return newBalance, nil
}

// Grant adds credits outside the refund path: purchases, signup bonuses
// and positive admin adjustments.
func (s *Service) Grant(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, kind Kind, description string) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, ErrNonPositiveAmount
	}

	_, newBalance, err := s.store.Credit(ctx, userID, amount, kind, description)
	if err != nil {
		return decimal.Zero, err
	}
	return newBalance, nil
}

// Transactions returns the user's ledger history, newest first.
func (s *Service) Transactions(ctx context.Context, userID uuid.UUID, params ListParams) ([]Transaction, int64, error) {
	return s.store.Transactions(ctx, userID, params)
}

// toFloat is for metrics only; ledger arithmetic never goes through float64.
func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
