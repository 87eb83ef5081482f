package projects

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	Create(ctx context.Context, project *Project) error
	GetByID(ctx context.Context, id uuid.UUID) (*Project, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, params ListParams) ([]Project, int64, error)
	Update(ctx context.Context, project *Project) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

const projectColumns = `id, owner_user_id, name, description, brand_name, brand_tone, created_at, updated_at`

func (r *postgresRepository) Create(ctx context.Context, p *Project) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO projects (id, owner_user_id, name, description, brand_name, brand_tone, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.OwnerUserID, p.Name, p.Description, p.BrandName, p.BrandTone, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting project: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Project, error) {
	p := &Project{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = $1`, id,
	).Scan(&p.ID, &p.OwnerUserID, &p.Name, &p.Description, &p.BrandName, &p.BrandTone, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying project: %w", err)
	}
	return p, nil
}

func (r *postgresRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID, params ListParams) ([]Project, int64, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 || params.PageSize > 100 {
		params.PageSize = 20
	}

	var totalCount int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM projects WHERE owner_user_id = $1`, ownerID,
	).Scan(&totalCount)
	if err != nil {
		return nil, 0, fmt.Errorf("counting projects: %w", err)
	}

	offset := (params.Page - 1) * params.PageSize
	rows, err := r.pool.Query(ctx,
		`SELECT `+projectColumns+` FROM projects
		 WHERE owner_user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`,
		ownerID, params.PageSize, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("querying projects: %w", err)
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.ID, &p.OwnerUserID, &p.Name, &p.Description, &p.BrandName, &p.BrandTone, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("scanning project: %w", err)
		}
		projects = append(projects, p)
	}

	return projects, totalCount, nil
}

func (r *postgresRepository) Update(ctx context.Context, p *Project) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE projects
		 SET name = $2, description = $3, brand_name = $4, brand_tone = $5, updated_at = NOW()
		 WHERE id = $1`,
		p.ID, p.Name, p.Description, p.BrandName, p.BrandTone)
	if err != nil {
		return fmt.Errorf("updating project: %w", err)
	}
	return nil
}

func (r *postgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting project: %w", err)
	}
	return nil
}
