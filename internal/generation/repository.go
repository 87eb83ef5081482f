package generation

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type Repository interface {
	Create(ctx context.Context, job *Job) error
	GetByID(ctx context.Context, id uuid.UUID) (*Job, error)
	ListByUser(ctx context.Context, userID uuid.UUID, params ListParams) ([]Job, int64, error)
	MarkProcessing(ctx context.Context, id uuid.UUID) error
	MarkCompleted(ctx context.Context, id uuid.UUID, assetID uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, errorDetail string) error
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

const jobColumns = `id, user_id, project_id, kind, prompt, status, cost::text, ledger_tx_id, asset_id, error_detail, created_at, updated_at`

func (r *postgresRepository) Create(ctx context.Context, job *Job) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO generation_jobs
		   (id, user_id, project_id, kind, prompt, status, cost, ledger_tx_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, $8, $9, $10)`,
		job.ID, job.UserID, job.ProjectID, string(job.Kind), job.Prompt, job.Status,
		job.Cost.String(), job.LedgerTxID, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting generation job: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Job, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM generation_jobs WHERE id = $1`, id)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying generation job: %w", err)
	}
	return job, nil
}

func (r *postgresRepository) ListByUser(ctx context.Context, userID uuid.UUID, params ListParams) ([]Job, int64, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 || params.PageSize > 100 {
		params.PageSize = 20
	}

	var totalCount int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM generation_jobs WHERE user_id = $1`, userID,
	).Scan(&totalCount)
	if err != nil {
		return nil, 0, fmt.Errorf("counting generation jobs: %w", err)
	}

	offset := (params.Page - 1) * params.PageSize
	rows, err := r.pool.Query(ctx,
		`SELECT `+jobColumns+` FROM generation_jobs
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`,
		userID, params.PageSize, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("querying generation jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning generation job: %w", err)
		}
		jobs = append(jobs, *job)
	}

	return jobs, totalCount, nil
}

func scanJob(row pgx.Row) (*Job, error) {
	var (
		job     Job
		kindStr string
		costStr string
	)
	err := row.Scan(&job.ID, &job.UserID, &job.ProjectID, &kindStr, &job.Prompt, &job.Status,
		&costStr, &job.LedgerTxID, &job.AssetID, &job.ErrorDetail, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return nil, err
	}
	job.Kind = Kind(kindStr)
	job.Cost, err = decimal.NewFromString(costStr)
	if err != nil {
		return nil, fmt.Errorf("parsing job cost %q: %w", costStr, err)
	}
	return &job, nil
}

func (r *postgresRepository) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	return r.setStatus(ctx,
		`UPDATE generation_jobs SET status = $2, updated_at = NOW() WHERE id = $1 AND status = $3`,
		id, StatusProcessing, StatusPending)
}

func (r *postgresRepository) MarkCompleted(ctx context.Context, id uuid.UUID, assetID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE generation_jobs SET status = $2, asset_id = $3, updated_at = NOW() WHERE id = $1`,
		id, StatusCompleted, assetID)
	if err != nil {
		return fmt.Errorf("marking job completed: %w", err)
	}
	return nil
}

func (r *postgresRepository) MarkFailed(ctx context.Context, id uuid.UUID, errorDetail string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE generation_jobs SET status = $2, error_detail = $3, updated_at = NOW() WHERE id = $1`,
		id, StatusFailed, errorDetail)
	if err != nil {
		return fmt.Errorf("marking job failed: %w", err)
	}
	return nil
}

func (r *postgresRepository) setStatus(ctx context.Context, query string, args ...any) error {
	_, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating job status: %w", err)
	}
	return nil
}
