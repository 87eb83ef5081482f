package generation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/adforge-app/adforge/internal/credits"
	inats "github.com/adforge-app/adforge/internal/nats"
)

// TaskPublisher enqueues accepted jobs for worker processing.
// *nats.Publisher satisfies it; tests substitute a fake.
type TaskPublisher interface {
	PublishGenerationTask(ctx context.Context, task inats.GenerationTask) error
}

// Service orchestrates the paid-operation sequence around the ledger:
// deduct, persist the job, enqueue. The ledger knows nothing about
// jobs; pairing every deduction with either a completed job or a refund
// happens here and in the Worker.
type Service struct {
	repo      Repository
	ledger    *credits.Service
	publisher TaskPublisher
}

func NewService(repo Repository, ledger *credits.Service, publisher TaskPublisher) *Service {
	return &Service{
		repo:      repo,
		ledger:    ledger,
		publisher: publisher,
	}
}

// Create charges the user for one generation and enqueues it.
// On insufficient balance the returned error wraps
// *credits.InsufficientCreditsError and nothing is charged or stored.
// Failures after the deduction refund it before returning.
func (s *Service) Create(ctx context.Context, userID, projectID uuid.UUID, kind Kind, prompt string) (*Job, error) {
	cost, ok := CostFor(kind)
	if !ok {
		return nil, fmt.Errorf("unknown generation kind %q", kind)
	}

	jobID := uuid.New()

	deduction, err := s.ledger.Deduct(ctx, userID, cost, credits.KindGeneration,
		fmt.Sprintf("ad %s generation, job %s", kind, jobID))
	if err != nil {
		return nil, fmt.Errorf("charging for generation: %w", err)
	}

	now := time.Now()
	job := &Job{
		ID:         jobID,
		UserID:     userID,
		ProjectID:  projectID,
		Kind:       kind,
		Prompt:     prompt,
		Status:     StatusPending,
		Cost:       cost,
		LedgerTxID: deduction.TransactionID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.repo.Create(ctx, job); err != nil {
		s.refund(ctx, job, "job persistence failed")
		return nil, fmt.Errorf("storing generation job: %w", err)
	}

	task := inats.GenerationTask{
		JobID:     job.ID,
		UserID:    job.UserID,
		ProjectID: job.ProjectID,
		Kind:      string(job.Kind),
		Prompt:    job.Prompt,
		Cost:      job.Cost.String(),
	}
	if err := s.publisher.PublishGenerationTask(ctx, task); err != nil {
		s.refund(ctx, job, "enqueue failed")
		if markErr := s.repo.MarkFailed(ctx, job.ID, "could not enqueue generation task"); markErr != nil {
			slog.Error("marking unenqueued job failed", "error", markErr, "job_id", job.ID)
		}
		return nil, fmt.Errorf("enqueueing generation task: %w", err)
	}

	return job, nil
}

// refund undoes the deduction for a job that never reached a worker.
// A failed refund is an orphaned deduction; it is logged with both IDs
// so an out-of-band reconciliation sweep can repair it.
func (s *Service) refund(ctx context.Context, job *Job, reason string) {
	_, err := s.ledger.Refund(ctx, job.UserID, job.Cost, credits.KindGeneration,
		fmt.Sprintf("%s, job %s", reason, job.ID))
	if err != nil {
		slog.Error("refund failed, deduction orphaned",
			"error", err,
			"job_id", job.ID,
			"ledger_tx_id", job.LedgerTxID,
			"amount", job.Cost.String(),
		)
	}
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Job, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByUser(ctx context.Context, userID uuid.UUID, params ListParams) ([]Job, int64, error) {
	return s.repo.ListByUser(ctx, userID, params)
}
