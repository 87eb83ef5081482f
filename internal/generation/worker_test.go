package generation

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adforge-app/adforge/internal/assets"
	"github.com/adforge-app/adforge/internal/credits"
	inats "github.com/adforge-app/adforge/internal/nats"
)

type fakeAssetWriter struct {
	created []assets.Asset
	fail    error
}

func (w *fakeAssetWriter) Create(_ context.Context, a *assets.Asset) error {
	if w.fail != nil {
		return w.fail
	}
	w.created = append(w.created, *a)
	return nil
}

type failingGenerator struct{ err error }

func (g *failingGenerator) Generate(context.Context, Task) (*GeneratedArtifact, error) {
	return nil, g.err
}

func seedJob(t *testing.T, repo *fakeRepo, ledger *credits.Service, userID uuid.UUID, kind Kind) (*Job, inats.GenerationTask) {
	t.Helper()
	cost, ok := CostFor(kind)
	require.True(t, ok)

	deduction, err := ledger.Deduct(context.Background(), userID, cost, credits.KindGeneration, "test deduction")
	require.NoError(t, err)

	job := &Job{
		ID:         uuid.New(),
		UserID:     userID,
		ProjectID:  uuid.New(),
		Kind:       kind,
		Prompt:     "a bold banner",
		Status:     StatusPending,
		Cost:       cost,
		LedgerTxID: deduction.TransactionID,
	}
	require.NoError(t, repo.Create(context.Background(), job))

	return job, inats.GenerationTask{
		JobID:     job.ID,
		UserID:    job.UserID,
		ProjectID: job.ProjectID,
		Kind:      string(kind),
		Prompt:    job.Prompt,
		Cost:      cost.String(),
	}
}

func TestWorker_CompletesJobAndStoresAsset(t *testing.T) {
	store := credits.NewMemoryStore()
	ledger := credits.NewService(store)
	userID := uuid.New()
	_, err := ledger.Grant(context.Background(), userID, decimal.RequireFromString("10"), credits.KindPurchase, "test top-up")
	require.NoError(t, err)

	repo := newFakeRepo()
	writer := &fakeAssetWriter{}
	worker := NewWorker(nil, repo, ledger, writer, NewStubGenerator())

	job, task := seedJob(t, repo, ledger, userID, KindImage)

	require.NoError(t, worker.process(context.Background(), task))

	stored := repo.jobs[job.ID]
	assert.Equal(t, StatusCompleted, stored.Status)
	require.NotNil(t, stored.AssetID)

	require.Len(t, writer.created, 1)
	asset := writer.created[0]
	assert.Equal(t, *stored.AssetID, asset.ID)
	assert.Equal(t, job.ProjectID, asset.ProjectID)
	assert.Equal(t, userID, asset.OwnerUserID)
	assert.Equal(t, "image/png", asset.MimeType)

	// No refund on success.
	balance, err := ledger.Balance(context.Background(), userID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("9")), "got %s", balance)
}

func TestWorker_GenerationFailureRefundsAndFailsJob(t *testing.T) {
	store := credits.NewMemoryStore()
	ledger := credits.NewService(store)
	userID := uuid.New()
	_, err := ledger.Grant(context.Background(), userID, decimal.RequireFromString("10"), credits.KindPurchase, "test top-up")
	require.NoError(t, err)

	repo := newFakeRepo()
	writer := &fakeAssetWriter{}
	worker := NewWorker(nil, repo, ledger, writer, &failingGenerator{err: errors.New("model provider timeout")})

	job, task := seedJob(t, repo, ledger, userID, KindCopy)

	// Business failure is terminal: no error means the message gets acked.
	require.NoError(t, worker.process(context.Background(), task))

	stored := repo.jobs[job.ID]
	assert.Equal(t, StatusFailed, stored.Status)
	assert.Contains(t, stored.ErrorDetail, "model provider timeout")
	assert.Empty(t, writer.created)

	balance, err := ledger.Balance(context.Background(), userID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("10")), "refund expected, got %s", balance)
}

func TestWorker_AssetStoreFailureRequestsRedelivery(t *testing.T) {
	store := credits.NewMemoryStore()
	ledger := credits.NewService(store)
	userID := uuid.New()
	_, err := ledger.Grant(context.Background(), userID, decimal.RequireFromString("10"), credits.KindPurchase, "test top-up")
	require.NoError(t, err)

	repo := newFakeRepo()
	writer := &fakeAssetWriter{fail: errors.New("connection refused")}
	worker := NewWorker(nil, repo, ledger, writer, NewStubGenerator())

	job, task := seedJob(t, repo, ledger, userID, KindImage)

	// Infra failure propagates so JetStream redelivers the task.
	require.Error(t, worker.process(context.Background(), task))

	stored := repo.jobs[job.ID]
	assert.Equal(t, StatusProcessing, stored.Status)

	// No refund either; the job is still in flight.
	balance, err := ledger.Balance(context.Background(), userID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("9")), "got %s", balance)
}

func TestStubGenerator_Deterministic(t *testing.T) {
	gen := NewStubGenerator()
	task := Task{JobID: "job-1", ProjectID: "proj-1", Kind: KindImage, Prompt: "red sneakers"}

	a1, err := gen.Generate(context.Background(), task)
	require.NoError(t, err)
	a2, err := gen.Generate(context.Background(), task)
	require.NoError(t, err)
	assert.Equal(t, a1.StorageKey, a2.StorageKey)

	copyArt, err := gen.Generate(context.Background(), Task{JobID: "job-2", ProjectID: "proj-1", Kind: KindCopy, Prompt: "slogan"})
	require.NoError(t, err)
	assert.Equal(t, "text/plain", copyArt.MimeType)

	_, err = gen.Generate(context.Background(), Task{Kind: Kind("audio")})
	require.Error(t, err)
}
