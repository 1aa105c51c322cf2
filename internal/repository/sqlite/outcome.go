package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/kremlit/email-enricher/internal/domain"
)

// OutcomeRepository implements domain.OutcomeRepository for SQLite
type OutcomeRepository struct {
	db *sql.DB
}

// NewOutcomeRepository creates a new OutcomeRepository
func NewOutcomeRepository(db *sql.DB) *OutcomeRepository {
	return &OutcomeRepository{db: db}
}

// Save stores one outcome for a batch row
func (r *OutcomeRepository) Save(ctx context.Context, batchID uuid.UUID, outcome *domain.VerificationOutcome) error {
	query := `
		INSERT INTO outcomes (
			batch_id, first_name, last_name, full_name, company,
			email, status, candidates_tried, candidates_total, attempt_index
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	triedJSON, err := json.Marshal(outcome.CandidatesTried)
	if err != nil {
		return fmt.Errorf("failed to marshal candidates: %w", err)
	}

	_, err = r.db.ExecContext(ctx, query,
		batchID.String(), outcome.FirstName, outcome.LastName, outcome.FullName, outcome.Company,
		outcome.Email, outcome.Status, string(triedJSON), outcome.CandidatesTotal, outcome.AttemptIndex,
	)

	return err
}

// ListByBatchID retrieves outcomes for a batch in insertion order
func (r *OutcomeRepository) ListByBatchID(ctx context.Context, batchID uuid.UUID, limit, offset int) ([]*domain.VerificationOutcome, int, error) {
	var total int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM outcomes WHERE batch_id = ?", batchID.String()).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT first_name, last_name, full_name, company,
			email, status, candidates_tried, candidates_total, attempt_index
		FROM outcomes
		WHERE batch_id = ?
		ORDER BY id ASC
		LIMIT ? OFFSET ?
	`

	rows, err := r.db.QueryContext(ctx, query, batchID.String(), limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var outcomes []*domain.VerificationOutcome
	for rows.Next() {
		outcome := &domain.VerificationOutcome{}
		var triedJSON string

		err := rows.Scan(
			&outcome.FirstName, &outcome.LastName, &outcome.FullName, &outcome.Company,
			&outcome.Email, &outcome.Status, &triedJSON, &outcome.CandidatesTotal, &outcome.AttemptIndex,
		)
		if err != nil {
			return nil, 0, err
		}

		if err := json.Unmarshal([]byte(triedJSON), &outcome.CandidatesTried); err != nil {
			return nil, 0, fmt.Errorf("failed to unmarshal candidates: %w", err)
		}

		outcomes = append(outcomes, outcome)
	}

	return outcomes, total, rows.Err()
}

// CountByBatchID returns the number of stored outcomes for a batch
func (r *OutcomeRepository) CountByBatchID(ctx context.Context, batchID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM outcomes WHERE batch_id = ?", batchID.String()).Scan(&count)

	return count, err
}

// DeleteByBatchID removes all outcomes for a batch
func (r *OutcomeRepository) DeleteByBatchID(ctx context.Context, batchID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM outcomes WHERE batch_id = ?", batchID.String())

	return err
}

// GetStats retrieves outcome statistics
func (r *OutcomeRepository) GetStats(ctx context.Context) (*domain.OutcomeStats, error) {
	stats := &domain.OutcomeStats{}

	query := `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN email != '' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN created_at >= datetime('now', 'start of day') THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(json_array_length(candidates_tried)), 0),
			COALESCE(SUM(candidates_total - json_array_length(candidates_tried)), 0)
		FROM outcomes
	`

	err := r.db.QueryRowContext(ctx, query).Scan(
		&stats.TotalProcessed, &stats.EmailsFound, &stats.Today,
		&stats.OracleCalls, &stats.CallsSaved,
	)
	if err != nil {
		return nil, err
	}

	return stats, nil
}
