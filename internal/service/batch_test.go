package service_test

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kremlit/email-enricher/internal/domain"
	"github.com/kremlit/email-enricher/internal/service"
)

// In-memory repositories shared by the service and processor tests.

type memBatchRepo struct {
	mu      sync.Mutex
	batches map[uuid.UUID]*domain.Batch
}

func newMemBatchRepo() *memBatchRepo {
	return &memBatchRepo{batches: make(map[uuid.UUID]*domain.Batch)}
}

func (r *memBatchRepo) Create(_ context.Context, batch *domain.Batch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	clone := *batch
	r.batches[batch.ID] = &clone

	return nil
}

func (r *memBatchRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Batch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	batch, ok := r.batches[id]
	if !ok {
		return nil, nil
	}

	clone := *batch

	return &clone, nil
}

func (r *memBatchRepo) List(_ context.Context, params domain.BatchListParams) ([]*domain.Batch, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*domain.Batch
	for _, batch := range r.batches {
		if params.Status != nil && batch.Status != *params.Status {
			continue
		}

		clone := *batch
		out = append(out, &clone)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})

	total := len(out)

	if params.Offset > 0 && params.Offset < len(out) {
		out = out[params.Offset:]
	} else if params.Offset >= len(out) {
		out = nil
	}

	if params.Limit > 0 && params.Limit < len(out) {
		out = out[:params.Limit]
	}

	return out, total, nil
}

func (r *memBatchRepo) Update(_ context.Context, batch *domain.Batch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	clone := *batch
	clone.UpdatedAt = time.Now()
	r.batches[batch.ID] = &clone

	return nil
}

func (r *memBatchRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.batches, id)

	return nil
}

func (r *memBatchRepo) UpdateStatus(_ context.Context, id uuid.UUID, status domain.BatchStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if batch, ok := r.batches[id]; ok {
		batch.Status = status
		batch.UpdatedAt = time.Now()
	}

	return nil
}

func (r *memBatchRepo) UpdateProgress(_ context.Context, id uuid.UUID, progress domain.BatchProgress) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if batch, ok := r.batches[id]; ok {
		batch.Progress = progress
		batch.UpdatedAt = time.Now()
	}

	return nil
}

func (r *memBatchRepo) MarkStaleRunning(_ context.Context, timeoutSeconds int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().Add(-time.Duration(timeoutSeconds) * time.Second)

	count := 0
	for _, batch := range r.batches {
		if batch.Status == domain.BatchStatusRunning && batch.UpdatedAt.Before(cutoff) {
			batch.Status = domain.BatchStatusPending
			count++
		}
	}

	return count, nil
}

func (r *memBatchRepo) GetStats(_ context.Context) (*domain.BatchStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := &domain.BatchStats{}
	for _, batch := range r.batches {
		stats.Total++

		switch batch.Status {
		case domain.BatchStatusPending:
			stats.Pending++
		case domain.BatchStatusQueued:
			stats.Queued++
		case domain.BatchStatusRunning:
			stats.Running++
		case domain.BatchStatusPaused:
			stats.Paused++
		case domain.BatchStatusCompleted:
			stats.Completed++
		case domain.BatchStatusFailed:
			stats.Failed++
		case domain.BatchStatusCancelled:
			stats.Cancelled++
		}
	}

	return stats, nil
}

type memOutcomeRepo struct {
	mu       sync.Mutex
	outcomes map[uuid.UUID][]*domain.VerificationOutcome
}

func newMemOutcomeRepo() *memOutcomeRepo {
	return &memOutcomeRepo{outcomes: make(map[uuid.UUID][]*domain.VerificationOutcome)}
}

func (r *memOutcomeRepo) Save(_ context.Context, batchID uuid.UUID, outcome *domain.VerificationOutcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	clone := *outcome
	r.outcomes[batchID] = append(r.outcomes[batchID], &clone)

	return nil
}

func (r *memOutcomeRepo) ListByBatchID(_ context.Context, batchID uuid.UUID, limit, offset int) ([]*domain.VerificationOutcome, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all := r.outcomes[batchID]
	total := len(all)

	if offset >= len(all) {
		return nil, total, nil
	}
	all = all[offset:]

	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}

	out := make([]*domain.VerificationOutcome, len(all))
	for i, o := range all {
		clone := *o
		out[i] = &clone
	}

	return out, total, nil
}

func (r *memOutcomeRepo) CountByBatchID(_ context.Context, batchID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.outcomes[batchID]), nil
}

func (r *memOutcomeRepo) DeleteByBatchID(_ context.Context, batchID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.outcomes, batchID)

	return nil
}

func (r *memOutcomeRepo) GetStats(_ context.Context) (*domain.OutcomeStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := &domain.OutcomeStats{}
	for _, outcomes := range r.outcomes {
		for _, o := range outcomes {
			stats.TotalProcessed++
			stats.OracleCalls += len(o.CandidatesTried)
			stats.CallsSaved += o.CallsSaved()

			if o.Found() {
				stats.EmailsFound++
			}
		}
	}

	return stats, nil
}

func newTestService() (*service.BatchService, *memBatchRepo, *memOutcomeRepo) {
	batches := newMemBatchRepo()
	outcomes := newMemOutcomeRepo()

	return service.NewBatchService(batches, outcomes, nil, nil), batches, outcomes
}

func testRows() []domain.Contact {
	return []domain.Contact{
		{FirstName: "John", LastName: "Smith", CompanyURL: "https://example.com"},
		{FirstName: "Ann", LastName: "Carter", CompanyURL: "acme.io"},
		{FirstName: "", LastName: "Nolast", CompanyURL: "acme.io"},
	}
}

func TestBatchServiceCreateDropsIncompleteRows(t *testing.T) {
	svc, repo, _ := newTestService()

	batch, err := svc.Create(context.Background(), &domain.CreateBatchRequest{
		Name: "launch list",
		Rows: testRows(),
	})
	require.NoError(t, err)

	assert.Len(t, batch.Rows, 2)
	assert.Equal(t, domain.BatchStatusPending, batch.Status)
	assert.Equal(t, 2, batch.Progress.TotalRows)
	assert.Equal(t, 300*time.Millisecond, batch.Config.ProbeDelay)

	stored, err := repo.GetByID(context.Background(), batch.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "launch list", stored.Name)
}

func TestBatchServiceCreateRejectsEmpty(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Create(context.Background(), &domain.CreateBatchRequest{
		Name: "empty",
		Rows: []domain.Contact{{FirstName: "only", LastName: "", CompanyURL: ""}},
	})

	assert.ErrorIs(t, err, service.ErrBatchEmpty)
}

func TestBatchServiceTransitions(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	batch, err := svc.Create(ctx, &domain.CreateBatchRequest{Name: "t", Rows: testRows()})
	require.NoError(t, err)

	// Pending batches cannot be paused.
	_, err = svc.Pause(ctx, batch.ID)
	assert.ErrorIs(t, err, service.ErrBatchNotPausable)

	require.NoError(t, repo.UpdateStatus(ctx, batch.ID, domain.BatchStatusRunning))

	paused, err := svc.Pause(ctx, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BatchStatusPaused, paused.Status)

	resumed, err := svc.Resume(ctx, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BatchStatusPending, resumed.Status)

	cancelled, err := svc.Cancel(ctx, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BatchStatusCancelled, cancelled.Status)

	// Terminal batches reject further transitions.
	_, err = svc.Resume(ctx, batch.ID)
	assert.ErrorIs(t, err, service.ErrBatchNotResumable)
	_, err = svc.Cancel(ctx, batch.ID)
	assert.ErrorIs(t, err, service.ErrBatchNotCancellable)
}

func TestBatchServiceTransitionsUnknownID(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, service.ErrBatchNotFound)

	_, err = svc.Pause(ctx, uuid.New())
	assert.ErrorIs(t, err, service.ErrBatchNotFound)

	err = svc.Delete(ctx, uuid.New())
	assert.ErrorIs(t, err, service.ErrBatchNotFound)
}

func TestBatchServiceDeleteBlocksRunning(t *testing.T) {
	svc, repo, outcomes := newTestService()
	ctx := context.Background()

	batch, err := svc.Create(ctx, &domain.CreateBatchRequest{Name: "d", Rows: testRows()})
	require.NoError(t, err)

	require.NoError(t, repo.UpdateStatus(ctx, batch.ID, domain.BatchStatusRunning))
	assert.Error(t, svc.Delete(ctx, batch.ID))

	require.NoError(t, repo.UpdateStatus(ctx, batch.ID, domain.BatchStatusCompleted))
	require.NoError(t, outcomes.Save(ctx, batch.ID, &domain.VerificationOutcome{Status: domain.StatusNotFound}))

	require.NoError(t, svc.Delete(ctx, batch.ID))

	count, err := outcomes.CountByBatchID(ctx, batch.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestBatchServiceFailRecordsMessage(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	batch, err := svc.Create(ctx, &domain.CreateBatchRequest{Name: "f", Rows: testRows()})
	require.NoError(t, err)

	require.NoError(t, svc.Fail(ctx, batch.ID, "oracle unreachable"))

	stored, err := repo.GetByID(ctx, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BatchStatusFailed, stored.Status)
	require.NotNil(t, stored.ErrorMessage)
	assert.Equal(t, "oracle unreachable", *stored.ErrorMessage)
}
