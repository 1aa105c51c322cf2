package service_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kremlit/email-enricher/internal/domain"
	"github.com/kremlit/email-enricher/internal/oracle"
	"github.com/kremlit/email-enricher/internal/service"
)

// countingOracle accepts every candidate and counts its calls.
type countingOracle struct {
	mu    sync.Mutex
	calls int
}

func (o *countingOracle) Verify(_ context.Context, email string) (*oracle.Result, error) {
	o.mu.Lock()
	o.calls++
	o.mu.Unlock()

	return &oracle.Result{Email: email, Status: "valid"}, nil
}

func (o *countingOracle) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.calls
}

func newTestProcessor() (*service.Processor, *service.BatchService, *memBatchRepo, *memOutcomeRepo, *countingOracle) {
	svc, batches, outcomes := newTestService()
	o := &countingOracle{}

	return service.NewProcessor(svc, o, nil), svc, batches, outcomes, o
}

func createTestBatch(t *testing.T, svc *service.BatchService) *domain.Batch {
	t.Helper()

	batch, err := svc.Create(context.Background(), &domain.CreateBatchRequest{
		Name:         "run",
		Rows:         testRows(),
		ProbeDelayMS: 1,
	})
	require.NoError(t, err)

	return batch
}

func TestProcessorCompletesBatch(t *testing.T) {
	proc, svc, repo, outcomes, o := newTestProcessor()
	ctx := context.Background()

	batch := createTestBatch(t, svc)

	require.NoError(t, proc.Process(ctx, batch.ID))

	stored, err := repo.GetByID(ctx, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BatchStatusCompleted, stored.Status)
	assert.Equal(t, 2, stored.Progress.ProcessedRows)
	assert.Equal(t, 2, stored.Progress.FoundEmails)
	assert.InDelta(t, 100.0, stored.Progress.Percentage, 0.01)

	saved, total, err := outcomes.ListByBatchID(ctx, batch.ID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	for _, outcome := range saved {
		assert.True(t, outcome.Found())
		assert.Equal(t, 1, outcome.AttemptIndex)
	}

	// Accept-first oracle means exactly one call per row.
	assert.Equal(t, 2, o.count())
}

func TestProcessorResumesFromStoredOutcomes(t *testing.T) {
	proc, svc, repo, outcomes, o := newTestProcessor()
	ctx := context.Background()

	batch := createTestBatch(t, svc)

	// First row was already enriched before a restart.
	require.NoError(t, outcomes.Save(ctx, batch.ID, &domain.VerificationOutcome{
		FirstName: "John",
		LastName:  "Smith",
		Email:     "jsmith@example.com",
		Status:    "valid",
	}))

	require.NoError(t, proc.Process(ctx, batch.ID))

	assert.Equal(t, 1, o.count())

	_, total, err := outcomes.ListByBatchID(ctx, batch.ID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	stored, err := repo.GetByID(ctx, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BatchStatusCompleted, stored.Status)
}

func TestProcessorSkipsPausedBatch(t *testing.T) {
	proc, svc, repo, _, o := newTestProcessor()
	ctx := context.Background()

	batch := createTestBatch(t, svc)
	require.NoError(t, repo.UpdateStatus(ctx, batch.ID, domain.BatchStatusPaused))

	require.NoError(t, proc.Process(ctx, batch.ID))

	assert.Zero(t, o.count())

	stored, err := repo.GetByID(ctx, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BatchStatusPaused, stored.Status)
}

func TestProcessorSkipsTerminalBatch(t *testing.T) {
	proc, svc, repo, _, o := newTestProcessor()
	ctx := context.Background()

	batch := createTestBatch(t, svc)
	require.NoError(t, repo.UpdateStatus(ctx, batch.ID, domain.BatchStatusCancelled))

	require.NoError(t, proc.Process(ctx, batch.ID))
	assert.Zero(t, o.count())
}

func TestProcessorCompletesWhenAllRowsStored(t *testing.T) {
	proc, svc, repo, outcomes, o := newTestProcessor()
	ctx := context.Background()

	batch := createTestBatch(t, svc)

	for range batch.Rows {
		require.NoError(t, outcomes.Save(ctx, batch.ID, &domain.VerificationOutcome{Status: domain.StatusNotFound}))
	}

	require.NoError(t, proc.Process(ctx, batch.ID))

	assert.Zero(t, o.count())

	stored, err := repo.GetByID(ctx, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BatchStatusCompleted, stored.Status)
}
