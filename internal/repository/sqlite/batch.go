package sqlite

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

// BatchRepository implements domain.BatchRepository for SQLite
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
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	rowsJSON, err := json.Marshal(batch.Rows)
	if err != nil {
		return fmt.Errorf("failed to marshal rows: %w", err)
	}

	_, err = r.db.ExecContext(ctx, query,
		batch.ID.String(), batch.Name, batch.Status, batch.Priority,
		batch.Config.Concurrency, batch.Config.ProbeDelay.String(), batch.Config.FindProfiles, string(rowsJSON),
		batch.Progress.TotalRows, batch.Progress.ProcessedRows, batch.Progress.FoundEmails, batch.Progress.OracleCalls,
		batch.CreatedAt.Format(time.RFC3339), batch.UpdatedAt.Format(time.RFC3339),
	)

	return err
}

// GetByID retrieves a batch by ID
func (r *BatchRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Batch, error) {
	query := fmt.Sprintf("SELECT %s FROM batches WHERE id = ?", batchColumns)

	row := r.db.QueryRowContext(ctx, query, id.String())

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
		conditions = append(conditions, "status = ?")
		args = append(args, *params.Status)
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

	query := fmt.Sprintf("SELECT %s FROM batches %s ORDER BY %s %s LIMIT ? OFFSET ?",
		batchColumns, whereClause, orderBy, orderDir)

	args = append(args, limit, params.Offset)

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
			name = ?, status = ?, priority = ?,
			concurrency = ?, probe_delay = ?, find_profiles = ?, rows_json = ?,
			total_rows = ?, processed_rows = ?, found_emails = ?, oracle_calls = ?,
			started_at = ?, completed_at = ?, error_message = ?, updated_at = ?
		WHERE id = ?
	`

	rowsJSON, _ := json.Marshal(batch.Rows)

	var startedAtStr, completedAtStr interface{}
	if batch.StartedAt != nil {
		startedAtStr = batch.StartedAt.Format(time.RFC3339)
	}
	if batch.CompletedAt != nil {
		completedAtStr = batch.CompletedAt.Format(time.RFC3339)
	}

	_, err := r.db.ExecContext(ctx, query,
		batch.Name, batch.Status, batch.Priority,
		batch.Config.Concurrency, batch.Config.ProbeDelay.String(), batch.Config.FindProfiles, string(rowsJSON),
		batch.Progress.TotalRows, batch.Progress.ProcessedRows, batch.Progress.FoundEmails, batch.Progress.OracleCalls,
		startedAtStr, completedAtStr, batch.ErrorMessage, time.Now().UTC().Format(time.RFC3339),
		batch.ID.String(),
	)

	return err
}

// Delete deletes a batch by ID
func (r *BatchRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM batches WHERE id = ?", id.String())
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
	now := time.Now().UTC().Format(time.RFC3339)

	query := "UPDATE batches SET status = ?, updated_at = ?"
	args := []interface{}{status, now}

	switch status {
	case domain.BatchStatusRunning:
		query += ", started_at = COALESCE(started_at, ?)"
		args = append(args, now)
	case domain.BatchStatusCompleted, domain.BatchStatusFailed, domain.BatchStatusCancelled:
		query += ", completed_at = ?"
		args = append(args, now)
	}

	query += " WHERE id = ?"
	args = append(args, id.String())

	_, err := r.db.ExecContext(ctx, query, args...)

	return err
}

// UpdateProgress updates the progress of a batch
func (r *BatchRepository) UpdateProgress(ctx context.Context, id uuid.UUID, progress domain.BatchProgress) error {
	query := `
		UPDATE batches SET
			total_rows = ?, processed_rows = ?, found_emails = ?, oracle_calls = ?,
			updated_at = ?
		WHERE id = ?
	`

	_, err := r.db.ExecContext(ctx, query,
		progress.TotalRows, progress.ProcessedRows, progress.FoundEmails, progress.OracleCalls,
		time.Now().UTC().Format(time.RFC3339), id.String(),
	)

	return err
}

// MarkStaleRunning returns running batches to pending when their
// processor stopped updating them for longer than timeoutSeconds.
func (r *BatchRepository) MarkStaleRunning(ctx context.Context, timeoutSeconds int) (int, error) {
	cutoff := time.Now().UTC().Add(-time.Duration(timeoutSeconds) * time.Second).Format(time.RFC3339)

	result, err := r.db.ExecContext(ctx,
		"UPDATE batches SET status = ?, updated_at = ? WHERE status = ? AND updated_at < ?",
		domain.BatchStatusPending, time.Now().UTC().Format(time.RFC3339),
		domain.BatchStatusRunning, cutoff,
	)
	if err != nil {
		return 0, err
	}

	affected, err := result.RowsAffected()

	return int(affected), err
}

// GetStats retrieves batch statistics
func (r *BatchRepository) GetStats(ctx context.Context) (*domain.BatchStats, error) {
	query := `
		SELECT status, COUNT(*)
		FROM batches
		GROUP BY status
	`

	rows, err := r.db.QueryContext(ctx, query)
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

	var idStr, statusStr, probeDelayStr, rowsJSON string
	var createdAtStr, updatedAtStr string
	var startedAtStr, completedAtStr, errorMessage sql.NullString

	err := scan(
		&idStr, &batch.Name, &statusStr, &batch.Priority,
		&batch.Config.Concurrency, &probeDelayStr, &batch.Config.FindProfiles, &rowsJSON,
		&batch.Progress.TotalRows, &batch.Progress.ProcessedRows, &batch.Progress.FoundEmails, &batch.Progress.OracleCalls,
		&createdAtStr, &updatedAtStr, &startedAtStr, &completedAtStr, &errorMessage,
	)
	if err != nil {
		return nil, err
	}

	batch.ID, err = uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse batch ID: %w", err)
	}

	batch.Status = domain.BatchStatus(statusStr)

	batch.Config.ProbeDelay, err = time.ParseDuration(probeDelayStr)
	if err != nil {
		batch.Config.ProbeDelay = 300 * time.Millisecond
	}

	if err := json.Unmarshal([]byte(rowsJSON), &batch.Rows); err != nil {
		return nil, fmt.Errorf("failed to unmarshal rows: %w", err)
	}

	batch.CreatedAt, _ = time.Parse(time.RFC3339, createdAtStr)
	batch.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAtStr)

	if startedAtStr.Valid {
		t, _ := time.Parse(time.RFC3339, startedAtStr.String)
		batch.StartedAt = &t
	}

	if completedAtStr.Valid {
		t, _ := time.Parse(time.RFC3339, completedAtStr.String)
		batch.CompletedAt = &t
	}

	if errorMessage.Valid {
		batch.ErrorMessage = &errorMessage.String
	}

	batch.Progress.CalculatePercentage()

	return batch, nil
}
