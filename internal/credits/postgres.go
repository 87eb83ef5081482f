package credits

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PostgresStore implements Store on top of credit_balances and
// credit_transactions. Every mutation runs in one transaction with the
// balance row locked (SELECT ... FOR UPDATE, or the row lock taken by
// ON CONFLICT DO UPDATE), so concurrent mutations for a user are
// linearized by the database. Amounts travel as text and NUMERIC to keep
// float64 out of the money path.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Store backed by the given pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Balance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	var balanceStr string
	err := s.pool.QueryRow(ctx,
		`SELECT balance::text FROM credit_balances WHERE user_id = $1`, userID,
	).Scan(&balanceStr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("querying balance: %w", err)
	}

	balance, err := decimal.NewFromString(balanceStr)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing balance %q: %w", balanceStr, err)
	}
	return balance, nil
}

func (s *PostgresStore) Deduct(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, kind Kind, description string) (*Transaction, decimal.Decimal, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, decimal.Zero, fmt.Errorf("beginning deduction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Lock the balance row for the duration of the transaction. This
	// re-read is the authoritative guard: an optimistic pre-check may
	// have raced another deduction.
	var balanceStr string
	err = tx.QueryRow(ctx,
		`SELECT balance::text FROM credit_balances WHERE user_id = $1 FOR UPDATE`, userID,
	).Scan(&balanceStr)

	balance := decimal.Zero
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		// Missing record reads as zero; the shortfall check below fails.
	case err != nil:
		return nil, decimal.Zero, fmt.Errorf("locking balance: %w", err)
	default:
		balance, err = decimal.NewFromString(balanceStr)
		if err != nil {
			return nil, decimal.Zero, fmt.Errorf("parsing balance %q: %w", balanceStr, err)
		}
	}

	if balance.LessThan(amount) {
		return nil, balance, &InsufficientCreditsError{Required: amount, Available: balance}
	}

	var newBalanceStr string
	err = tx.QueryRow(ctx,
		`UPDATE credit_balances
		 SET balance = balance - $2::numeric, updated_at = NOW()
		 WHERE user_id = $1
		 RETURNING balance::text`,
		userID, amount.String(),
	).Scan(&newBalanceStr)
	if err != nil {
		return nil, decimal.Zero, fmt.Errorf("decrementing balance: %w", err)
	}

	entry, err := appendTransaction(ctx, tx, userID, amount.Neg(), kind, description)
	if err != nil {
		return nil, decimal.Zero, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, decimal.Zero, fmt.Errorf("committing deduction: %w", err)
	}

	newBalance, err := decimal.NewFromString(newBalanceStr)
	if err != nil {
		return nil, decimal.Zero, fmt.Errorf("parsing new balance %q: %w", newBalanceStr, err)
	}
	return entry, newBalance, nil
}

func (s *PostgresStore) Credit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, kind Kind, description string) (*Transaction, decimal.Decimal, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, decimal.Zero, fmt.Errorf("beginning credit: %w", err)
	}
	defer tx.Rollback(ctx)

	// Upsert so a refund lands even when the balance row was never
	// initialized. ON CONFLICT DO UPDATE locks the row, serializing
	// against concurrent deductions.
	var newBalanceStr string
	err = tx.QueryRow(ctx,
		`INSERT INTO credit_balances (user_id, balance)
		 VALUES ($1, $2::numeric)
		 ON CONFLICT (user_id) DO UPDATE
		 SET balance = credit_balances.balance + EXCLUDED.balance, updated_at = NOW()
		 RETURNING balance::text`,
		userID, amount.String(),
	).Scan(&newBalanceStr)
	if err != nil {
		return nil, decimal.Zero, fmt.Errorf("incrementing balance: %w", err)
	}

	entry, err := appendTransaction(ctx, tx, userID, amount, kind, description)
	if err != nil {
		return nil, decimal.Zero, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, decimal.Zero, fmt.Errorf("committing credit: %w", err)
	}

	newBalance, err := decimal.NewFromString(newBalanceStr)
	if err != nil {
		return nil, decimal.Zero, fmt.Errorf("parsing new balance %q: %w", newBalanceStr, err)
	}
	return entry, newBalance, nil
}

func appendTransaction(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount decimal.Decimal, kind Kind, description string) (*Transaction, error) {
	entry := &Transaction{
		ID:          uuid.New(),
		UserID:      userID,
		Amount:      amount,
		Kind:        kind,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}

	_, err := tx.Exec(ctx,
		`INSERT INTO credit_transactions (id, user_id, amount, kind, description, created_at)
		 VALUES ($1, $2, $3::numeric, $4, $5, $6)`,
		entry.ID, entry.UserID, entry.Amount.String(), string(entry.Kind), entry.Description, entry.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("appending ledger transaction: %w", err)
	}
	return entry, nil
}

func (s *PostgresStore) Transactions(ctx context.Context, userID uuid.UUID, params ListParams) ([]Transaction, int64, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 || params.PageSize > 100 {
		params.PageSize = 20
	}

	var totalCount int64
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM credit_transactions WHERE user_id = $1`, userID,
	).Scan(&totalCount)
	if err != nil {
		return nil, 0, fmt.Errorf("counting transactions: %w", err)
	}

	offset := (params.Page - 1) * params.PageSize
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, amount::text, kind, description, created_at
		 FROM credit_transactions
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`,
		userID, params.PageSize, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("querying transactions: %w", err)
	}
	defer rows.Close()

	var entries []Transaction
	for rows.Next() {
		var (
			entry     Transaction
			amountStr string
			kindStr   string
		)
		if err := rows.Scan(&entry.ID, &entry.UserID, &amountStr, &kindStr, &entry.Description, &entry.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scanning transaction: %w", err)
		}
		entry.Amount, err = decimal.NewFromString(amountStr)
		if err != nil {
			return nil, 0, fmt.Errorf("parsing amount %q: %w", amountStr, err)
		}
		entry.Kind = Kind(kindStr)
		entries = append(entries, entry)
	}

	return entries, totalCount, nil
}
