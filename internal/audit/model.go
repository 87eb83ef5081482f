package audit

import (
	"time"

	"github.com/google/uuid"
)

// Entry is one row of the append-only audit log. Entries are written by
// the NATS consumer, never updated or deleted.
type Entry struct {
	ID           uuid.UUID `json:"id"`
	UserID       uuid.UUID `json:"user_id"`
	EventType    string    `json:"event_type"`
	Severity     string    `json:"severity"`
	ResourceType string    `json:"resource_type"`
	ResourceID   string    `json:"resource_id"`
	Details      string    `json:"details"`
	CreatedAt    time.Time `json:"created_at"`
}

// ListParams holds pagination for audit listings.
type ListParams struct {
	Page     int
	PageSize int
}

// DefaultListParams returns sensible defaults.
func DefaultListParams() ListParams {
	return ListParams{Page: 1, PageSize: 20}
}
