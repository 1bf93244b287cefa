package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"stocknotifier/internal/domain/entity"
	"stocknotifier/internal/port/outbound"
)

// SQL query constants.
const (
	insertRunQuery = `
		INSERT INTO screening_runs (
			id, mode, started_at, duration_ms, state, success,
			processed_count, skipped_count, error_count, candidate_count
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	insertRunErrorQuery = `
		INSERT INTO screening_run_errors (
			id, run_id, occurred_at, operation, item_id, error_message,
			severity, action, category, retryable, context
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	selectRecentRunsQuery = `
		SELECT id, mode, started_at, duration_ms, state, success,
			processed_count, skipped_count, error_count, candidate_count
		FROM screening_runs
		ORDER BY started_at DESC
		LIMIT $1
	`
)

// RunRepository persists screening runs in PostgreSQL.
type RunRepository struct {
	pool *pgxpool.Pool
}

// NewRunRepository creates a run repository backed by a connection pool.
func NewRunRepository(pool *pgxpool.Pool) (*RunRepository, error) {
	if pool == nil {
		return nil, errors.New("postgres: pool cannot be nil")
	}
	return &RunRepository{pool: pool}, nil
}

var _ outbound.RunRepository = (*RunRepository)(nil)

// SaveRun stores one run summary.
func (r *RunRepository) SaveRun(ctx context.Context, run *outbound.RunRecord) error {
	if run == nil {
		return errors.New("postgres: run cannot be nil")
	}

	_, err := r.pool.Exec(ctx, insertRunQuery,
		run.ID,
		run.Mode,
		run.StartedAt,
		run.Duration.Milliseconds(),
		run.State,
		run.Success,
		run.ProcessedCount,
		run.SkippedCount,
		run.ErrorCount,
		run.CandidateCount,
	)
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", run.ID, err)
	}
	return nil
}

// SaveRunErrors stores per-error detail rows for a run in one batch.
func (r *RunRepository) SaveRunErrors(ctx context.Context, runID uuid.UUID, procErrors []*entity.ProcessingError) error {
	if len(procErrors) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, procErr := range procErrors {
		if procErr == nil {
			continue
		}

		errMsg := ""
		if procErr.Err != nil {
			errMsg = procErr.Err.Error()
		}
		contextJSON, err := json.Marshal(procErr.Context)
		if err != nil {
			contextJSON = []byte("{}")
		}

		batch.Queue(insertRunErrorQuery,
			uuid.New(),
			runID,
			procErr.Timestamp,
			procErr.Operation,
			procErr.ItemID,
			errMsg,
			procErr.Classification.Severity.String(),
			procErr.Classification.Action.String(),
			procErr.Classification.Category,
			procErr.Classification.Retryable,
			contextJSON,
		)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to save errors for run %s: %w", runID, err)
		}
	}
	return nil
}

// GetRecentRuns retrieves the most recent run summaries, newest first.
func (r *RunRepository) GetRecentRuns(ctx context.Context, limit int) ([]outbound.RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.pool.Query(ctx, selectRecentRunsQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent runs: %w", err)
	}
	defer rows.Close()

	var runs []outbound.RunRecord
	for rows.Next() {
		var run outbound.RunRecord
		var durationMillis int64
		if err := rows.Scan(
			&run.ID,
			&run.Mode,
			&run.StartedAt,
			&durationMillis,
			&run.State,
			&run.Success,
			&run.ProcessedCount,
			&run.SkippedCount,
			&run.ErrorCount,
			&run.CandidateCount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		run.Duration = time.Duration(durationMillis) * time.Millisecond
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read run rows: %w", err)
	}
	return runs, nil
}
