package projects

import (
	"time"

	"github.com/google/uuid"
)

// Project groups a user's ad creatives under one brand context.
type Project struct {
	ID          uuid.UUID `json:"id"`
	OwnerUserID uuid.UUID `json:"owner_user_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	BrandName   string    `json:"brand_name,omitempty"`
	BrandTone   string    `json:"brand_tone,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type CreateProjectRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=255"`
	Description string `json:"description" validate:"max=1000"`
	BrandName   string `json:"brand_name" validate:"max=255"`
	BrandTone   string `json:"brand_tone" validate:"omitempty,oneof=playful professional bold minimal"`
}

type UpdateProjectRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=255"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
	BrandName   *string `json:"brand_name" validate:"omitempty,max=255"`
	BrandTone   *string `json:"brand_tone" validate:"omitempty,oneof=playful professional bold minimal"`
}

// ListParams holds pagination for project listings.
type ListParams struct {
	Page     int
	PageSize int
}

// DefaultListParams returns sensible defaults.
func DefaultListParams() ListParams {
	return ListParams{Page: 1, PageSize: 20}
}
