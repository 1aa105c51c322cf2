package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kremlit/email-enricher/internal/domain"
)

// BatchRepository implements domain.BatchRepository for PostgreSQL
type BatchRepository struct {
	db *sql.DB
}

// NewBatchRepository creates a new BatchRepository
func NewBatchRepository(db *sql.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

const batchColumns = `
	id, name, status, priority,
	concurrency, probe_delay, find_profiles, rows_json,
	total_rows, processed_rows, found_emails, oracle_calls,
	created_at, updated_at, started_at, completed_at, error_message
`

// Create creates a new batch
func (r *BatchRepository) Create(ctx context.Context, batch *domain.Batch) error {
	query := `
		INSERT INTO batches (
			id, name, status, priority,
			concurrency, probe_delay, find_profiles, rows_json,
			total_rows, processed_rows, found_emails, oracle_calls,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	rowsJSON, err := json.Marshal(batch.Rows)
	if err != nil {
		return fmt.Errorf("failed to marshal rows: %w", err)
	}

	_, err = r.db.ExecContext(ctx, query,
		batch.ID, batch.Name, batch.Status, batch.Priority,
		batch.Config.Concurrency, batch.Config.ProbeDelay.String(), batch.Config.FindProfiles, string(rowsJSON),
		batch.Progress.TotalRows, batch.Progress.ProcessedRows, batch.Progress.FoundEmails, batch.Progress.OracleCalls,
		batch.CreatedAt, batch.UpdatedAt,
	)

	return err
}

// GetByID retrieves a batch by ID
func (r *BatchRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Batch, error) {
	query := fmt.Sprintf("SELECT %s FROM batches WHERE id = $1", batchColumns)

	row := r.db.QueryRowContext(ctx, query, id)

	batch, err := scanBatch(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return batch, nil
}

// List retrieves batches with optional filtering
func (r *BatchRepository) List(ctx context.Context, params domain.BatchListParams) ([]*domain.Batch, int, error) {
	var conditions []string
	var args []interface{}

	if params.Status != nil {
		args = append(args, *params.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM batches %s", whereClause)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	orderBy := "created_at"
	if params.OrderBy != "" {
		orderBy = params.OrderBy
	}
	orderDir := "DESC"
	if params.OrderDir != "" {
		orderDir = params.OrderDir
	}

	limit := 20
	if params.Limit > 0 {
		limit = params.Limit
	}

	args = append(args, limit, params.Offset)

	query := fmt.Sprintf("SELECT %s FROM batches %s ORDER BY %s %s LIMIT $%d OFFSET $%d",
		batchColumns, whereClause, orderBy, orderDir, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var batches []*domain.Batch
	for rows.Next() {
		batch, err := scanBatch(rows.Scan)
		if err != nil {
			return nil, 0, err
		}
		batches = append(batches, batch)
	}

	return batches, total, rows.Err()
}

// Update updates a batch
func (r *BatchRepository) Update(ctx context.Context, batch *domain.Batch) error {
	query := `
		UPDATE batches SET
			name = $1, status = $2, priority = $3,
			concurrency = $4, probe_delay = $5, find_profiles = $6, rows_json = $7,
			total_rows = $8, processed_rows = $9, found_emails = $10, oracle_calls = $11,
			started_at = $12, completed_at = $13, error_message = $14, updated_at = NOW()
		WHERE id = $15
	`

	rowsJSON, _ := json.Marshal(batch.Rows)

	_, err := r.db.ExecContext(ctx, query,
		batch.Name, batch.Status, batch.Priority,
		batch.Config.Concurrency, batch.Config.ProbeDelay.String(), batch.Config.FindProfiles, string(rowsJSON),
		batch.Progress.TotalRows, batch.Progress.ProcessedRows, batch.Progress.FoundEmails, batch.Progress.OracleCalls,
		batch.StartedAt, batch.CompletedAt, batch.ErrorMessage,
		batch.ID,
	)

	return err
}

// Delete deletes a batch by ID
func (r *BatchRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM batches WHERE id = $1", id)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("batch not found: %s", id)
	}

	return nil
}

// UpdateStatus updates only the status of a batch
func (r *BatchRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.BatchStatus) error {
	query := "UPDATE batches SET status = $1, updated_at = NOW()"

	switch status {
	case domain.BatchStatusRunning:
		query += ", started_at = COALESCE(started_at, NOW())"
	case domain.BatchStatusCompleted, domain.BatchStatusFailed, domain.BatchStatusCancelled:
		query += ", completed_at = NOW()"
	}

	query += " WHERE id = $2"

	_, err := r.db.ExecContext(ctx, query, status, id)

	return err
}

// UpdateProgress updates the progress of a batch
func (r *BatchRepository) UpdateProgress(ctx context.Context, id uuid.UUID, progress domain.BatchProgress) error {
	query := `
		UPDATE batches SET
			total_rows = $1, processed_rows = $2, found_emails = $3, oracle_calls = $4,
			updated_at = NOW()
		WHERE id = $5
	`

	_, err := r.db.ExecContext(ctx, query,
		progress.TotalRows, progress.ProcessedRows, progress.FoundEmails, progress.OracleCalls, id,
	)

	return err
}

// MarkStaleRunning returns running batches to pending when their
// processor stopped updating them for longer than timeoutSeconds.
func (r *BatchRepository) MarkStaleRunning(ctx context.Context, timeoutSeconds int) (int, error) {
	query := `
		UPDATE batches SET status = $1, updated_at = NOW()
		WHERE status = $2 AND updated_at < NOW() - ($3 || ' seconds')::INTERVAL
	`

	result, err := r.db.ExecContext(ctx, query,
		domain.BatchStatusPending, domain.BatchStatusRunning, timeoutSeconds)
	if err != nil {
		return 0, err
	}

	affected, err := result.RowsAffected()

	return int(affected), err
}

// GetStats retrieves batch statistics
func (r *BatchRepository) GetStats(ctx context.Context) (*domain.BatchStats, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM batches GROUP BY status")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := &domain.BatchStats{}

	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}

		stats.Total += count

		switch domain.BatchStatus(status) {
		case domain.BatchStatusPending:
			stats.Pending = count
		case domain.BatchStatusQueued:
			stats.Queued = count
		case domain.BatchStatusRunning:
			stats.Running = count
		case domain.BatchStatusPaused:
			stats.Paused = count
		case domain.BatchStatusCompleted:
			stats.Completed = count
		case domain.BatchStatusFailed:
			stats.Failed = count
		case domain.BatchStatusCancelled:
			stats.Cancelled = count
		}
	}

	return stats, rows.Err()
}

// scanBatch reads one batch row via the given scan function.
func scanBatch(scan func(dest ...interface{}) error) (*domain.Batch, error) {
	batch := &domain.Batch{}

	var probeDelayStr, rowsJSON string
	var startedAt, completedAt sql.NullTime
	var errorMessage sql.NullString

	err := scan(
		&batch.ID, &batch.Name, &batch.Status, &batch.Priority,
		&batch.Config.Concurrency, &probeDelayStr, &batch.Config.FindProfiles, &rowsJSON,
		&batch.Progress.TotalRows, &batch.Progress.ProcessedRows, &batch.Progress.FoundEmails, &batch.Progress.OracleCalls,
		&batch.CreatedAt, &batch.UpdatedAt, &startedAt, &completedAt, &errorMessage,
	)
	if err != nil {
		return nil, err
	}

	batch.Config.ProbeDelay, err = time.ParseDuration(probeDelayStr)
	if err != nil {
		batch.Config.ProbeDelay = 300 * time.Millisecond
	}

	if err := json.Unmarshal([]byte(rowsJSON), &batch.Rows); err != nil {
		return nil, fmt.Errorf("failed to unmarshal rows: %w", err)
	}

	if startedAt.Valid {
		batch.StartedAt = &startedAt.Time
	}

	if completedAt.Valid {
		batch.CompletedAt = &completedAt.Time
	}

	if errorMessage.Valid {
		batch.ErrorMessage = &errorMessage.String
	}

	batch.Progress.CalculatePercentage()

	return batch, nil
}
