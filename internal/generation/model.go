package generation

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Kind selects what gets generated and what it costs.
type Kind string

const (
	KindImage     Kind = "image"
	KindCopy      Kind = "copy"
	KindVariation Kind = "variation"
)

// Job statuses.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Costs per kind, in credits. Fractional on purpose: lightweight
// operations cost less than a full credit.
var costs = map[Kind]decimal.Decimal{
	KindImage:     decimal.RequireFromString("1"),
	KindCopy:      decimal.RequireFromString("0.5"),
	KindVariation: decimal.RequireFromString("0.25"),
}

// CostFor returns the credit cost of a kind and whether it is known.
func CostFor(kind Kind) (decimal.Decimal, bool) {
	cost, ok := costs[kind]
	return cost, ok
}

// Job is one paid generation request and its lifecycle:
// pending → processing → completed | failed. LedgerTxID references the
// deduction that paid for it, so refunds and out-of-band reconciliation
// can be matched against job outcomes.
type Job struct {
	ID          uuid.UUID       `json:"id"`
	UserID      uuid.UUID       `json:"user_id"`
	ProjectID   uuid.UUID       `json:"project_id"`
	Kind        Kind            `json:"kind"`
	Prompt      string          `json:"prompt"`
	Status      string          `json:"status"`
	Cost        decimal.Decimal `json:"cost"`
	LedgerTxID  uuid.UUID       `json:"ledger_tx_id"`
	AssetID     *uuid.UUID      `json:"asset_id,omitempty"`
	ErrorDetail string          `json:"error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type CreateJobRequest struct {
	ProjectID string `json:"project_id" validate:"required,uuid"`
	Kind      string `json:"kind" validate:"required,oneof=image copy variation"`
	Prompt    string `json:"prompt" validate:"required,min=1,max=4000"`
}

// ListParams holds pagination for job listings.
type ListParams struct {
	Page     int
	PageSize int
}

// DefaultListParams returns sensible defaults.
func DefaultListParams() ListParams {
	return ListParams{Page: 1, PageSize: 20}
}
