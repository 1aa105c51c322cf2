package domain

import (
	"time"

	"github.com/google/uuid"
)

// BatchStatus represents the status of a batch enrichment job
type BatchStatus string

const (
	BatchStatusPending   BatchStatus = "pending"
	BatchStatusQueued    BatchStatus = "queued"
	BatchStatusRunning   BatchStatus = "running"
	BatchStatusPaused    BatchStatus = "paused"
	BatchStatusCompleted BatchStatus = "completed"
	BatchStatusFailed    BatchStatus = "failed"
	BatchStatusCancelled BatchStatus = "cancelled"
)

// IsTerminal returns true if the batch is in a terminal state
func (s BatchStatus) IsTerminal() bool {
	return s == BatchStatusCompleted || s == BatchStatusFailed || s == BatchStatusCancelled
}

// CanPause returns true if the batch can be paused
func (s BatchStatus) CanPause() bool {
	return s == BatchStatusRunning || s == BatchStatusQueued
}

// CanResume returns true if the batch can be resumed
func (s BatchStatus) CanResume() bool {
	return s == BatchStatusPaused
}

// CanCancel returns true if the batch can be cancelled
func (s BatchStatus) CanCancel() bool {
	return s == BatchStatusPending || s == BatchStatusQueued || s == BatchStatusRunning || s == BatchStatusPaused
}

// Batch represents one batch enrichment job in the queue
type Batch struct {
	ID       uuid.UUID   `json:"id"`
	Name     string      `json:"name"`
	Status   BatchStatus `json:"status"`
	Priority int         `json:"priority"`

	Config   BatchConfig   `json:"config"`
	Progress BatchProgress `json:"progress"`

	// Rows are the cleaned input contacts. Stored with the batch so a
	// restarted processor can resume from the persisted outcome count.
	Rows []Contact `json:"rows"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	ErrorMessage *string `json:"error_message,omitempty"`
}

// BatchConfig contains the enrichment configuration for one batch
type BatchConfig struct {
	// Concurrency is the number of rows processed in parallel.
	Concurrency int `json:"concurrency"`

	// ProbeDelay is the pause between two oracle calls for the same
	// person. Shared across workers through the rate gate.
	ProbeDelay time.Duration `json:"probe_delay"`

	// FindProfiles enables the LinkedIn profile lookup for every
	// accepted email.
	FindProfiles bool `json:"find_profiles"`
}

// BatchProgress tracks how far a batch has come
type BatchProgress struct {
	TotalRows     int     `json:"total_rows"`
	ProcessedRows int     `json:"processed_rows"`
	FoundEmails   int     `json:"found_emails"`
	OracleCalls   int     `json:"oracle_calls"`
	Percentage    float64 `json:"percentage"`
}

// CalculatePercentage updates the percentage based on processed/total
func (p *BatchProgress) CalculatePercentage() {
	if p.TotalRows > 0 {
		p.Percentage = float64(p.ProcessedRows) / float64(p.TotalRows) * 100
	} else {
		p.Percentage = 0
	}
}

// CreateBatchRequest is the request to create a new batch
type CreateBatchRequest struct {
	Name         string    `json:"name"`
	Rows         []Contact `json:"rows"`
	Concurrency  int       `json:"concurrency"`
	ProbeDelayMS int       `json:"probe_delay_ms"`
	FindProfiles bool      `json:"find_profiles"`
	Priority     int       `json:"priority"`
}

// ToBatch converts a CreateBatchRequest to a Batch, dropping rows that
// miss any of the three required fields.
func (r *CreateBatchRequest) ToBatch() *Batch {
	now := time.Now().UTC()

	rows := make([]Contact, 0, len(r.Rows))
	for _, row := range r.Rows {
		if row.IsComplete() {
			rows = append(rows, row)
		}
	}

	config := BatchConfig{
		Concurrency:  r.Concurrency,
		ProbeDelay:   time.Duration(r.ProbeDelayMS) * time.Millisecond,
		FindProfiles: r.FindProfiles,
	}

	if config.Concurrency < 1 {
		config.Concurrency = 1
	}

	if config.ProbeDelay == 0 {
		config.ProbeDelay = 300 * time.Millisecond
	}

	return &Batch{
		ID:       uuid.New(),
		Name:     r.Name,
		Status:   BatchStatusPending,
		Priority: r.Priority,
		Config:   config,
		Rows:     rows,
		Progress: BatchProgress{
			TotalRows: len(rows),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// UpdateBatchRequest is the request to update a batch (pause/resume/cancel)
type UpdateBatchRequest struct {
	Status *BatchStatus `json:"status,omitempty"`
}

// BatchListParams are parameters for listing batches
type BatchListParams struct {
	Status   *BatchStatus
	Limit    int
	Offset   int
	OrderBy  string
	OrderDir string
}
