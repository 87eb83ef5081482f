package assets

import (
	"time"

	"github.com/google/uuid"
)

// Asset is metadata for a generated creative stored in object storage.
// The bytes themselves live behind StorageKey; this service only tracks
// ownership and shape.
type Asset struct {
	ID          uuid.UUID `json:"id"`
	ProjectID   uuid.UUID `json:"project_id"`
	OwnerUserID uuid.UUID `json:"owner_user_id"`
	Kind        string    `json:"kind"` // image, copy, variation
	StorageKey  string    `json:"storage_key"`
	MimeType    string    `json:"mime_type"`
	SizeBytes   int64     `json:"size_bytes"`
	CreatedAt   time.Time `json:"created_at"`
}

// ListParams holds pagination for asset listings.
type ListParams struct {
	Page     int
	PageSize int
}

// DefaultListParams returns sensible defaults.
func DefaultListParams() ListParams {
	return ListParams{Page: 1, PageSize: 20}
}
