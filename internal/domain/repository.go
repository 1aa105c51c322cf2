package domain

import (
	"context"

	"github.com/google/uuid"
)

// BatchRepository defines the interface for batch persistence
type BatchRepository interface {
	// Create creates a new batch
	Create(ctx context.Context, batch *Batch) error

	// GetByID retrieves a batch by ID
	GetByID(ctx context.Context, id uuid.UUID) (*Batch, error)

	// List retrieves batches with optional filtering
	List(ctx context.Context, params BatchListParams) ([]*Batch, int, error)

	// Update updates a batch
	Update(ctx context.Context, batch *Batch) error

	// Delete deletes a batch by ID
	Delete(ctx context.Context, id uuid.UUID) error

	// UpdateStatus updates only the status of a batch
	UpdateStatus(ctx context.Context, id uuid.UUID, status BatchStatus) error

	// UpdateProgress updates the progress of a batch
	UpdateProgress(ctx context.Context, id uuid.UUID, progress BatchProgress) error

	// MarkStaleRunning returns running batches to pending when their
	// processor stopped updating them for longer than timeoutSeconds.
	MarkStaleRunning(ctx context.Context, timeoutSeconds int) (int, error)

	// GetStats retrieves batch statistics
	GetStats(ctx context.Context) (*BatchStats, error)
}

// OutcomeRepository defines the interface for outcome persistence
type OutcomeRepository interface {
	// Save stores one outcome for a batch row
	Save(ctx context.Context, batchID uuid.UUID, outcome *VerificationOutcome) error

	// ListByBatchID retrieves outcomes for a batch in insertion order
	ListByBatchID(ctx context.Context, batchID uuid.UUID, limit, offset int) ([]*VerificationOutcome, int, error)

	// CountByBatchID returns the number of stored outcomes for a batch
	CountByBatchID(ctx context.Context, batchID uuid.UUID) (int, error)

	// DeleteByBatchID removes all outcomes for a batch
	DeleteByBatchID(ctx context.Context, batchID uuid.UUID) error

	// GetStats retrieves outcome statistics
	GetStats(ctx context.Context) (*OutcomeStats, error)
}
