package credits

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// ledgerSum reconstructs a balance from the append-only log.
func ledgerSum(t *testing.T, store *MemoryStore, userID uuid.UUID) decimal.Decimal {
	t.Helper()
	entries, _, err := store.Transactions(context.Background(), userID, ListParams{Page: 1, PageSize: 100})
	require.NoError(t, err)

	sum := decimal.Zero
	for _, e := range entries {
		sum = sum.Add(e.Amount)
	}
	return sum
}

func TestCheckBalance_MissingRecordReadsZero(t *testing.T) {
	svc := NewService(NewMemoryStore())

	res, err := svc.CheckBalance(context.Background(), uuid.New(), dec("1"))
	require.NoError(t, err)
	assert.False(t, res.HasEnough)
	assert.True(t, res.Balance.IsZero())
}

func TestDeduct_ThenRefund_RestoresBalanceExactly(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store)
	ctx := context.Background()
	userID := uuid.New()

	_, err := svc.Grant(ctx, userID, dec("10"), KindPurchase, "starter pack")
	require.NoError(t, err)

	res, err := svc.Deduct(ctx, userID, dec("1"), KindGeneration, "image generation")
	require.NoError(t, err)
	assert.True(t, res.NewBalance.Equal(dec("9")))
	assert.NotEqual(t, uuid.Nil, res.TransactionID)

	newBalance, err := svc.Refund(ctx, userID, dec("1"), KindGeneration, "provider timeout")
	require.NoError(t, err)
	assert.True(t, newBalance.Equal(dec("10")))

	entries, total, err := svc.Transactions(ctx, userID, DefaultListParams())
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	// Newest first: refund, deduction, grant.
	assert.Equal(t, KindRefund, entries[0].Kind)
	assert.True(t, entries[0].Amount.Equal(dec("1")))
	assert.Equal(t, KindGeneration, entries[1].Kind)
	assert.True(t, entries[1].Amount.Equal(dec("-1")))
}

func TestDeduct_InsufficientWritesNothing(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store)
	ctx := context.Background()
	userID := uuid.New()

	_, err := svc.Grant(ctx, userID, dec("0.25"), KindSignupBonus, "signup bonus")
	require.NoError(t, err)

	_, err = svc.Deduct(ctx, userID, dec("0.5"), KindGeneration, "ad copy")
	require.Error(t, err)

	var ice *InsufficientCreditsError
	require.ErrorAs(t, err, &ice)
	assert.True(t, ice.Required.Equal(dec("0.5")))
	assert.True(t, ice.Available.Equal(dec("0.25")))

	// Balance untouched, no transaction appended.
	balance, err := svc.Balance(ctx, userID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec("0.25")))

	_, total, err := svc.Transactions(ctx, userID, DefaultListParams())
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestDeduct_RejectsNonPositiveAmounts(t *testing.T) {
	svc := NewService(NewMemoryStore())
	ctx := context.Background()
	userID := uuid.New()

	_, err := svc.Deduct(ctx, userID, decimal.Zero, KindGeneration, "")
	assert.ErrorIs(t, err, ErrNonPositiveAmount)

	_, err = svc.Deduct(ctx, userID, dec("-1"), KindGeneration, "")
	assert.ErrorIs(t, err, ErrNonPositiveAmount)

	_, err = svc.Refund(ctx, userID, decimal.Zero, KindGeneration, "")
	assert.ErrorIs(t, err, ErrNonPositiveAmount)
}

func TestRefund_CreatesMissingBalanceRecord(t *testing.T) {
	svc := NewService(NewMemoryStore())
	ctx := context.Background()
	userID := uuid.New()

	// A refund must never be lost, even for a user the ledger has never
	// seen.
	newBalance, err := svc.Refund(ctx, userID, dec("2.5"), KindGeneration, "orphaned charge")
	require.NoError(t, err)
	assert.True(t, newBalance.Equal(dec("2.5")))
}

func TestLedger_NoDriftOverRepeatedFractionalCycles(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store)
	ctx := context.Background()
	userID := uuid.New()

	_, err := svc.Grant(ctx, userID, dec("10"), KindPurchase, "pack")
	require.NoError(t, err)

	for i := 0; i < 10000; i++ {
		_, err := svc.Deduct(ctx, userID, dec("0.5"), KindGeneration, "copy")
		require.NoError(t, err)
		_, err = svc.Refund(ctx, userID, dec("0.5"), KindGeneration, "failed")
		require.NoError(t, err)
	}

	balance, err := svc.Balance(ctx, userID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec("10")), "balance drifted to %s", balance)
}

func TestLedger_BalanceEqualsTransactionSum(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store)
	ctx := context.Background()
	userID := uuid.New()

	_, err := svc.Grant(ctx, userID, dec("7.75"), KindPurchase, "pack")
	require.NoError(t, err)
	_, err = svc.Deduct(ctx, userID, dec("1"), KindGeneration, "image")
	require.NoError(t, err)
	_, err = svc.Deduct(ctx, userID, dec("0.5"), KindGeneration, "copy")
	require.NoError(t, err)
	_, err = svc.Refund(ctx, userID, dec("0.5"), KindGeneration, "failed")
	require.NoError(t, err)
	_, err = svc.Grant(ctx, userID, dec("3"), KindAdminAdjustment, "goodwill")
	require.NoError(t, err)

	balance, err := svc.Balance(ctx, userID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(ledgerSum(t, store, userID)))
	assert.True(t, balance.Equal(dec("9.75")))
}

func TestDeduct_ConcurrentOverSubscription(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store)
	ctx := context.Background()
	userID := uuid.New()

	_, err := svc.Grant(ctx, userID, dec("10"), KindPurchase, "pack")
	require.NoError(t, err)

	// 25 concurrent 1-credit deductions against a balance of 10:
	// exactly 10 may succeed, the rest fail, balance lands at zero.
	const attempts = 25
	var wg sync.WaitGroup
	results := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Deduct(ctx, userID, dec("1"), KindGeneration, "image")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded, insufficient := 0, 0
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case IsInsufficientCredits(err):
			insufficient++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 10, succeeded)
	assert.Equal(t, 15, insufficient)

	balance, err := svc.Balance(ctx, userID)
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
	assert.True(t, ledgerSum(t, store, userID).IsZero())
}
