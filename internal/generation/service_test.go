package generation

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adforge-app/adforge/internal/credits"
	inats "github.com/adforge-app/adforge/internal/nats"
)

type fakeRepo struct {
	jobs       map[uuid.UUID]*Job
	failCreate error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{jobs: make(map[uuid.UUID]*Job)}
}

func (r *fakeRepo) Create(_ context.Context, job *Job) error {
	if r.failCreate != nil {
		return r.failCreate
	}
	cp := *job
	r.jobs[job.ID] = &cp
	return nil
}

func (r *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (*Job, error) {
	return r.jobs[id], nil
}

func (r *fakeRepo) ListByUser(_ context.Context, userID uuid.UUID, _ ListParams) ([]Job, int64, error) {
	var out []Job
	for _, j := range r.jobs {
		if j.UserID == userID {
			out = append(out, *j)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeRepo) setStatus(id uuid.UUID, status string) error {
	job, ok := r.jobs[id]
	if !ok {
		return errors.New("job not found")
	}
	job.Status = status
	return nil
}

func (r *fakeRepo) MarkProcessing(_ context.Context, id uuid.UUID) error {
	return r.setStatus(id, StatusProcessing)
}

func (r *fakeRepo) MarkCompleted(_ context.Context, id uuid.UUID, assetID uuid.UUID) error {
	if err := r.setStatus(id, StatusCompleted); err != nil {
		return err
	}
	r.jobs[id].AssetID = &assetID
	return nil
}

func (r *fakeRepo) MarkFailed(_ context.Context, id uuid.UUID, detail string) error {
	if err := r.setStatus(id, StatusFailed); err != nil {
		return err
	}
	r.jobs[id].ErrorDetail = detail
	return nil
}

type fakePublisher struct {
	tasks []inats.GenerationTask
	fail  error
}

func (p *fakePublisher) PublishGenerationTask(_ context.Context, task inats.GenerationTask) error {
	if p.fail != nil {
		return p.fail
	}
	p.tasks = append(p.tasks, task)
	return nil
}

func newTestService(t *testing.T, balance string) (*Service, *fakeRepo, *fakePublisher, *credits.Service, uuid.UUID) {
	t.Helper()
	store := credits.NewMemoryStore()
	ledger := credits.NewService(store)
	userID := uuid.New()
	if balance != "0" {
		_, err := ledger.Grant(context.Background(), userID, decimal.RequireFromString(balance), credits.KindPurchase, "test top-up")
		require.NoError(t, err)
	}
	repo := newFakeRepo()
	pub := &fakePublisher{}
	return NewService(repo, ledger, pub), repo, pub, ledger, userID
}

func TestCreate_DeductsStoresAndPublishes(t *testing.T) {
	svc, repo, pub, ledger, userID := newTestService(t, "10")
	projectID := uuid.New()

	job, err := svc.Create(context.Background(), userID, projectID, KindImage, "sunset over mountains")
	require.NoError(t, err)
	require.NotNil(t, job)

	assert.Equal(t, StatusPending, job.Status)
	assert.Equal(t, userID, job.UserID)
	assert.Equal(t, projectID, job.ProjectID)
	assert.True(t, job.Cost.Equal(decimal.RequireFromString("1")))
	assert.NotEqual(t, uuid.Nil, job.LedgerTxID)

	stored, err := repo.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)

	require.Len(t, pub.tasks, 1)
	assert.Equal(t, job.ID, pub.tasks[0].JobID)
	assert.Equal(t, "1", pub.tasks[0].Cost)

	balance, err := ledger.Balance(context.Background(), userID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("9")), "got %s", balance)
}

func TestCreate_FractionalCost(t *testing.T) {
	svc, _, pub, ledger, userID := newTestService(t, "1")

	job, err := svc.Create(context.Background(), userID, uuid.New(), KindCopy, "headline for shoes")
	require.NoError(t, err)
	assert.True(t, job.Cost.Equal(decimal.RequireFromString("0.5")))
	require.Len(t, pub.tasks, 1)
	assert.Equal(t, "0.5", pub.tasks[0].Cost)

	balance, err := ledger.Balance(context.Background(), userID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("0.5")), "got %s", balance)
}

func TestCreate_InsufficientBalanceWritesNothing(t *testing.T) {
	svc, repo, pub, ledger, userID := newTestService(t, "0.25")

	_, err := svc.Create(context.Background(), userID, uuid.New(), KindImage, "too expensive")
	require.Error(t, err)
	assert.True(t, credits.IsInsufficientCredits(err))

	assert.Empty(t, repo.jobs)
	assert.Empty(t, pub.tasks)

	balance, err := ledger.Balance(context.Background(), userID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("0.25")), "got %s", balance)
}

func TestCreate_UnknownKindChargesNothing(t *testing.T) {
	svc, repo, pub, ledger, userID := newTestService(t, "10")

	_, err := svc.Create(context.Background(), userID, uuid.New(), Kind("video"), "nope")
	require.Error(t, err)

	assert.Empty(t, repo.jobs)
	assert.Empty(t, pub.tasks)

	balance, err := ledger.Balance(context.Background(), userID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("10")))
}

func TestCreate_PublishFailureRefundsAndFailsJob(t *testing.T) {
	svc, repo, pub, ledger, userID := newTestService(t, "10")
	pub.fail = errors.New("jetstream unavailable")

	_, err := svc.Create(context.Background(), userID, uuid.New(), KindImage, "doomed")
	require.Error(t, err)
	assert.False(t, credits.IsInsufficientCredits(err))

	balance, err := ledger.Balance(context.Background(), userID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("10")), "refund expected, got %s", balance)

	require.Len(t, repo.jobs, 1)
	for _, job := range repo.jobs {
		assert.Equal(t, StatusFailed, job.Status)
		assert.NotEmpty(t, job.ErrorDetail)
	}

	txs, _, err := ledger.Transactions(context.Background(), userID, credits.ListParams{Page: 1, PageSize: 10})
	require.NoError(t, err)
	// top-up, deduction, refund
	require.Len(t, txs, 3)
	assert.Equal(t, credits.KindRefund, txs[0].Kind)
}

func TestCreate_StoreFailureRefundsAndSkipsPublish(t *testing.T) {
	svc, repo, pub, ledger, userID := newTestService(t, "5")
	repo.failCreate = errors.New("connection reset")

	_, err := svc.Create(context.Background(), userID, uuid.New(), KindVariation, "doomed")
	require.Error(t, err)

	assert.Empty(t, pub.tasks)

	balance, err := ledger.Balance(context.Background(), userID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("5")), "refund expected, got %s", balance)
}
