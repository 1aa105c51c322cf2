// Package service wires the enrichment core to persistence, caching and
// the queue transports.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/kremlit/email-enricher/internal/cache"
	"github.com/kremlit/email-enricher/internal/domain"
	"github.com/kremlit/email-enricher/internal/mq"
	"github.com/kremlit/email-enricher/internal/queue"
)

// Common errors
var (
	ErrBatchNotFound       = errors.New("batch not found")
	ErrBatchNotPausable    = errors.New("batch cannot be paused")
	ErrBatchNotResumable   = errors.New("batch cannot be resumed")
	ErrBatchNotCancellable = errors.New("batch cannot be cancelled")
	ErrBatchEmpty          = errors.New("batch has no usable rows")
)

// BatchService handles batch business logic
type BatchService struct {
	batches  domain.BatchRepository
	outcomes domain.OutcomeRepository
	queue    *queue.Queue // Redis queue (fallback)
	mqPub    mq.Publisher // RabbitMQ publisher (preferred)
	cache    cache.Cache
}

// NewBatchService creates a new BatchService backed by the Redis queue
func NewBatchService(batches domain.BatchRepository, outcomes domain.OutcomeRepository, q *queue.Queue, c cache.Cache) *BatchService {
	if c == nil {
		c = cache.NewNoOpCache()
	}

	return &BatchService{
		batches:  batches,
		outcomes: outcomes,
		queue:    q,
		cache:    c,
	}
}

// NewBatchServiceWithMQ creates a new BatchService with RabbitMQ support.
// This is the preferred constructor when a broker is configured.
func NewBatchServiceWithMQ(batches domain.BatchRepository, outcomes domain.OutcomeRepository, mqPub mq.Publisher, q *queue.Queue, c cache.Cache) *BatchService {
	s := NewBatchService(batches, outcomes, q, c)
	s.mqPub = mqPub

	return s
}

// Create creates a new batch and dispatches it to the queue
func (s *BatchService) Create(ctx context.Context, req *domain.CreateBatchRequest) (*domain.Batch, error) {
	batch := req.ToBatch()

	if len(batch.Rows) == 0 {
		return nil, ErrBatchEmpty
	}

	if err := s.batches.Create(ctx, batch); err != nil {
		return nil, fmt.Errorf("failed to create batch: %w", err)
	}

	log.Printf("[BatchService] Created batch %s (%d rows, %d dropped)",
		batch.ID, len(batch.Rows), len(req.Rows)-len(batch.Rows))

	s.dispatch(ctx, batch)
	s.invalidateListings(ctx)

	return batch, nil
}

// dispatch hands the batch to RabbitMQ when configured, falling back to
// the Redis queue. Dispatch failure never fails batch creation; the
// watchdog re-queues stranded pending batches.
func (s *BatchService) dispatch(ctx context.Context, batch *domain.Batch) {
	if s.mqPub != nil {
		msg := &mq.BatchMessage{
			BatchID:  batch.ID,
			Priority: batch.Priority,
			Type:     "batch:process",
		}
		if err := s.mqPub.Publish(ctx, msg); err != nil {
			log.Printf("[BatchService] WARNING: failed to publish batch %s to RabbitMQ: %v", batch.ID, err)
		} else {
			log.Printf("[BatchService] Batch %s published to RabbitMQ queue", batch.ID)
			return
		}
	}

	if s.queue != nil {
		if err := s.queue.Enqueue(ctx, batch.ID, batch.Priority); err != nil {
			log.Printf("[BatchService] WARNING: failed to enqueue batch %s to Redis: %v", batch.ID, err)
		} else {
			log.Printf("[BatchService] Batch %s enqueued to Redis queue", batch.ID)
		}
	}
}

// Redispatch re-queues a batch that is already persisted. Used by the
// watchdog for pending batches whose original dispatch was lost.
func (s *BatchService) Redispatch(ctx context.Context, batch *domain.Batch) {
	s.dispatch(ctx, batch)
}

// GetByID retrieves a batch by ID
func (s *BatchService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Batch, error) {
	batch, err := s.batches.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get batch: %w", err)
	}
	if batch == nil {
		return nil, ErrBatchNotFound
	}

	return batch, nil
}

// List retrieves batches with optional filtering
func (s *BatchService) List(ctx context.Context, params domain.BatchListParams) ([]*domain.Batch, int, error) {
	batches, total, err := s.batches.List(ctx, params)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list batches: %w", err)
	}

	return batches, total, nil
}

// Delete deletes a batch and its outcomes
func (s *BatchService) Delete(ctx context.Context, id uuid.UUID) error {
	batch, err := s.batches.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get batch: %w", err)
	}
	if batch == nil {
		return ErrBatchNotFound
	}

	if batch.Status == domain.BatchStatusRunning {
		return errors.New("cannot delete a running batch, cancel it first")
	}

	// Cascade should handle this, but be explicit
	if err := s.outcomes.DeleteByBatchID(ctx, id); err != nil {
		return fmt.Errorf("failed to delete outcomes: %w", err)
	}

	if err := s.batches.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete batch: %w", err)
	}

	s.invalidateListings(ctx)

	return nil
}

// Pause pauses a running or queued batch
func (s *BatchService) Pause(ctx context.Context, id uuid.UUID) (*domain.Batch, error) {
	batch, err := s.batches.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get batch: %w", err)
	}
	if batch == nil {
		return nil, ErrBatchNotFound
	}

	if !batch.Status.CanPause() {
		return nil, ErrBatchNotPausable
	}

	if err := s.batches.UpdateStatus(ctx, id, domain.BatchStatusPaused); err != nil {
		return nil, fmt.Errorf("failed to pause batch: %w", err)
	}

	batch.Status = domain.BatchStatusPaused
	s.invalidateListings(ctx)

	return batch, nil
}

// Resume resumes a paused batch
func (s *BatchService) Resume(ctx context.Context, id uuid.UUID) (*domain.Batch, error) {
	batch, err := s.batches.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get batch: %w", err)
	}
	if batch == nil {
		return nil, ErrBatchNotFound
	}

	if !batch.Status.CanResume() {
		return nil, ErrBatchNotResumable
	}

	// Resume to pending so a worker can pick it up
	if err := s.batches.UpdateStatus(ctx, id, domain.BatchStatusPending); err != nil {
		return nil, fmt.Errorf("failed to resume batch: %w", err)
	}

	batch.Status = domain.BatchStatusPending
	s.dispatch(ctx, batch)
	s.invalidateListings(ctx)

	return batch, nil
}

// Cancel cancels a batch
func (s *BatchService) Cancel(ctx context.Context, id uuid.UUID) (*domain.Batch, error) {
	batch, err := s.batches.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get batch: %w", err)
	}
	if batch == nil {
		return nil, ErrBatchNotFound
	}

	if !batch.Status.CanCancel() {
		return nil, ErrBatchNotCancellable
	}

	if err := s.batches.UpdateStatus(ctx, id, domain.BatchStatusCancelled); err != nil {
		return nil, fmt.Errorf("failed to cancel batch: %w", err)
	}

	batch.Status = domain.BatchStatusCancelled
	s.invalidateListings(ctx)

	return batch, nil
}

// Outcomes retrieves the stored outcomes for a batch
func (s *BatchService) Outcomes(ctx context.Context, id uuid.UUID, limit, offset int) ([]*domain.VerificationOutcome, int, error) {
	batch, err := s.batches.GetByID(ctx, id)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get batch: %w", err)
	}
	if batch == nil {
		return nil, 0, ErrBatchNotFound
	}

	return s.outcomes.ListByBatchID(ctx, id, limit, offset)
}

// UpdateProgress updates batch progress
func (s *BatchService) UpdateProgress(ctx context.Context, id uuid.UUID, progress domain.BatchProgress) error {
	progress.CalculatePercentage()
	return s.batches.UpdateProgress(ctx, id, progress)
}

// Complete marks a batch as completed
func (s *BatchService) Complete(ctx context.Context, id uuid.UUID) error {
	s.invalidateListings(ctx)
	return s.batches.UpdateStatus(ctx, id, domain.BatchStatusCompleted)
}

// Fail marks a batch as failed with an error message
func (s *BatchService) Fail(ctx context.Context, id uuid.UUID, errMsg string) error {
	batch, err := s.batches.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if batch == nil {
		return ErrBatchNotFound
	}

	batch.Status = domain.BatchStatusFailed
	batch.ErrorMessage = &errMsg

	s.invalidateListings(ctx)

	return s.batches.Update(ctx, batch)
}

// GetStats retrieves batch statistics
func (s *BatchService) GetStats(ctx context.Context) (*domain.BatchStats, error) {
	return s.batches.GetStats(ctx)
}

func (s *BatchService) invalidateListings(ctx context.Context) {
	if err := s.cache.DeleteByPattern(ctx, cache.KeyPrefixBatches+"*"); err != nil {
		log.Printf("[BatchService] cache invalidation failed: %v", err)
	}
	if err := s.cache.DeleteByPattern(ctx, cache.KeyPrefixStats+"*"); err != nil {
		log.Printf("[BatchService] cache invalidation failed: %v", err)
	}
}
