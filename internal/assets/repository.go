package assets

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const assetColumns = `id, project_id, owner_user_id, kind, storage_key, mime_type, size_bytes, created_at`

func (r *Repository) Create(ctx context.Context, a *Asset) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO assets (id, project_id, owner_user_id, kind, storage_key, mime_type, size_bytes, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, a.ProjectID, a.OwnerUserID, a.Kind, a.StorageKey, a.MimeType, a.SizeBytes, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting asset: %w", err)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Asset, error) {
	a := &Asset{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+assetColumns+` FROM assets WHERE id = $1`, id,
	).Scan(&a.ID, &a.ProjectID, &a.OwnerUserID, &a.Kind, &a.StorageKey, &a.MimeType, &a.SizeBytes, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying asset: %w", err)
	}
	return a, nil
}

func (r *Repository) ListByProject(ctx context.Context, projectID uuid.UUID, params ListParams) ([]Asset, int64, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 || params.PageSize > 100 {
		params.PageSize = 20
	}

	var totalCount int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM assets WHERE project_id = $1`, projectID,
	).Scan(&totalCount)
	if err != nil {
		return nil, 0, fmt.Errorf("counting assets: %w", err)
	}

	offset := (params.Page - 1) * params.PageSize
	rows, err := r.pool.Query(ctx,
		`SELECT `+assetColumns+` FROM assets
		 WHERE project_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`,
		projectID, params.PageSize, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("querying assets: %w", err)
	}
	defer rows.Close()

	var out []Asset
	for rows.Next() {
		var a Asset
		if err := rows.Scan(&a.ID, &a.ProjectID, &a.OwnerUserID, &a.Kind, &a.StorageKey, &a.MimeType, &a.SizeBytes, &a.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scanning asset: %w", err)
		}
		out = append(out, a)
	}

	return out, totalCount, nil
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM assets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting asset: %w", err)
	}
	return nil
}
