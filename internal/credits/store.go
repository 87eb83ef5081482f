package credits

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Store is the durable ledger. Implementations must make Deduct and
// Credit single atomic units serialized per user: two concurrent Deduct
// calls for one user must never both observe the same pre-deduction
// balance.
type Store interface {
	// Balance returns the current balance; a missing record reads as zero.
	Balance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)

	// Deduct atomically re-checks the balance, subtracts amount and
	// appends a negative transaction. Returns *InsufficientCreditsError
	// when the balance is short, writing nothing.
	Deduct(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, kind Kind, description string) (*Transaction, decimal.Decimal, error)

	// Credit atomically adds amount and appends a positive transaction,
	// creating the balance record if absent. It never fails on balance
	// state.
	Credit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, kind Kind, description string) (*Transaction, decimal.Decimal, error)

	// Transactions returns the user's ledger entries, newest first.
	Transactions(ctx context.Context, userID uuid.UUID, params ListParams) ([]Transaction, int64, error)
}
