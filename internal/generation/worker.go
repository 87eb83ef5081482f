package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/shopspring/decimal"

	"github.com/adforge-app/adforge/internal/assets"
	"github.com/adforge-app/adforge/internal/credits"
	"github.com/adforge-app/adforge/internal/metrics"
	inats "github.com/adforge-app/adforge/internal/nats"
)

// AssetWriter stores artifact metadata produced by completed jobs.
// *assets.Repository satisfies it.
type AssetWriter interface {
	Create(ctx context.Context, a *assets.Asset) error
}

// Worker consumes generation tasks from JetStream and drives jobs to a
// terminal status. A failed generation refunds the deduction that paid
// for the job before the job is marked failed.
type Worker struct {
	client    *inats.Client
	repo      Repository
	ledger    *credits.Service
	assetRepo AssetWriter
	generator Generator

	cc jetstream.ConsumeContext
}

func NewWorker(client *inats.Client, repo Repository, ledger *credits.Service, assetRepo AssetWriter, generator Generator) *Worker {
	return &Worker{
		client:    client,
		repo:      repo,
		ledger:    ledger,
		assetRepo: assetRepo,
		generator: generator,
	}
}

// Start attaches the durable consumer and begins processing.
func (w *Worker) Start(ctx context.Context) error {
	cc, err := w.client.Consume(ctx, inats.StreamTasks, "generation-worker", inats.SubjectGenerationTask, w.handleMessage)
	if err != nil {
		return fmt.Errorf("starting generation worker: %w", err)
	}
	w.cc = cc
	slog.Info("generation worker started")
	return nil
}

// Stop detaches the consumer. In-flight messages finish or get redelivered.
func (w *Worker) Stop() {
	if w.cc != nil {
		w.cc.Stop()
	}
}

// handleMessage returns an error only for transient failures worth a
// redelivery. A job that fails generation is refunded, marked failed and
// acked; redelivering it would charge nothing but also produce nothing.
func (w *Worker) handleMessage(msg jetstream.Msg) error {
	var task inats.GenerationTask
	if err := json.Unmarshal(msg.Data(), &task); err != nil {
		// Poison message; ack it away rather than redeliver forever.
		slog.Error("dropping undecodable generation task", "error", err)
		return nil
	}
	return w.process(context.Background(), task)
}

func (w *Worker) process(ctx context.Context, task inats.GenerationTask) error {
	log := slog.With("job_id", task.JobID, "user_id", task.UserID, "kind", task.Kind)

	if err := w.repo.MarkProcessing(ctx, task.JobID); err != nil {
		return fmt.Errorf("marking job processing: %w", err)
	}

	artifact, err := w.generator.Generate(ctx, Task{
		JobID:     task.JobID.String(),
		ProjectID: task.ProjectID.String(),
		Kind:      Kind(task.Kind),
		Prompt:    task.Prompt,
	})
	if err != nil {
		log.Error("generation failed", "error", err)
		w.fail(ctx, task, err.Error())
		return nil
	}

	asset := &assets.Asset{
		ID:          uuid.New(),
		ProjectID:   task.ProjectID,
		OwnerUserID: task.UserID,
		Kind:        task.Kind,
		StorageKey:  artifact.StorageKey,
		MimeType:    artifact.MimeType,
		SizeBytes:   artifact.SizeBytes,
		CreatedAt:   time.Now(),
	}
	if err := w.assetRepo.Create(ctx, asset); err != nil {
		return fmt.Errorf("storing generated asset: %w", err)
	}

	if err := w.repo.MarkCompleted(ctx, task.JobID, asset.ID); err != nil {
		return fmt.Errorf("marking job completed: %w", err)
	}

	metrics.GenerationJobsTotal.WithLabelValues(StatusCompleted).Inc()
	log.Info("generation job completed", "asset_id", asset.ID)
	return nil
}

// fail refunds the job's deduction and records the failure. A refund
// error leaves an orphaned deduction; it is logged for out-of-band
// reconciliation, never retried here.
func (w *Worker) fail(ctx context.Context, task inats.GenerationTask, detail string) {
	cost, err := decimal.NewFromString(task.Cost)
	if err != nil {
		slog.Error("unparseable cost on failed job, deduction orphaned",
			"job_id", task.JobID, "cost", task.Cost, "error", err)
	} else if _, err := w.ledger.Refund(ctx, task.UserID, cost, credits.KindGeneration,
		fmt.Sprintf("generation failed, job %s", task.JobID)); err != nil {
		slog.Error("refund failed, deduction orphaned",
			"error", err, "job_id", task.JobID, "amount", task.Cost)
	}

	if err := w.repo.MarkFailed(ctx, task.JobID, detail); err != nil {
		slog.Error("marking job failed", "error", err, "job_id", task.JobID)
	}
	metrics.GenerationJobsTotal.WithLabelValues(StatusFailed).Inc()
}
