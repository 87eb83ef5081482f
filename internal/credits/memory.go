package credits

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MemoryStore is an in-memory Store with the same per-user atomicity
// contract as PostgresStore. It backs unit tests and local development
// without a database.
type MemoryStore struct {
	mu       sync.Mutex
	balances map[uuid.UUID]decimal.Decimal
	entries  []Transaction
}

// NewMemoryStore creates an empty in-memory ledger.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{balances: make(map[uuid.UUID]decimal.Decimal)}
}

func (s *MemoryStore) Balance(_ context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balances[userID], nil
}

func (s *MemoryStore) Deduct(_ context.Context, userID uuid.UUID, amount decimal.Decimal, kind Kind, description string) (*Transaction, decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	balance := s.balances[userID]
	if balance.LessThan(amount) {
		return nil, balance, &InsufficientCreditsError{Required: amount, Available: balance}
	}

	newBalance := balance.Sub(amount)
	s.balances[userID] = newBalance
	entry := s.append(userID, amount.Neg(), kind, description)
	return entry, newBalance, nil
}

func (s *MemoryStore) Credit(_ context.Context, userID uuid.UUID, amount decimal.Decimal, kind Kind, description string) (*Transaction, decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	newBalance := s.balances[userID].Add(amount)
	s.balances[userID] = newBalance
	entry := s.append(userID, amount, kind, description)
	return entry, newBalance, nil
}

func (s *MemoryStore) append(userID uuid.UUID, amount decimal.Decimal, kind Kind, description string) *Transaction {
	entry := Transaction{
		ID:          uuid.New(),
		UserID:      userID,
		Amount:      amount,
		Kind:        kind,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
	s.entries = append(s.entries, entry)
	return &entry
}

func (s *MemoryStore) Transactions(_ context.Context, userID uuid.UUID, params ListParams) ([]Transaction, int64, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 || params.PageSize > 100 {
		params.PageSize = 20
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var mine []Transaction
	for i := len(s.entries) - 1; i >= 0; i-- { // newest first
		if s.entries[i].UserID == userID {
			mine = append(mine, s.entries[i])
		}
	}

	total := int64(len(mine))
	start := (params.Page - 1) * params.PageSize
	if start >= len(mine) {
		return nil, total, nil
	}
	end := start + params.PageSize
	if end > len(mine) {
		end = len(mine)
	}
	return mine[start:end], total, nil
}
