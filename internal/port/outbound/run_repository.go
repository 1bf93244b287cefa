package outbound

import (
	"context"
	"time"

	"github.com/google/uuid"

	"stocknotifier/internal/domain/entity"
)

// RunRecord is the persisted summary of one screening run.
type RunRecord struct {
	ID             uuid.UUID     `json:"id"`
	Mode           string        `json:"mode"`
	StartedAt      time.Time     `json:"started_at"`
	Duration       time.Duration `json:"duration"`
	State          string        `json:"state"`
	Success        bool          `json:"success"`
	ProcessedCount int           `json:"processed_count"`
	SkippedCount   int           `json:"skipped_count"`
	ErrorCount     int           `json:"error_count"`
	CandidateCount int           `json:"candidate_count"`
}

// RunRepository persists screening-run summaries and their error details.
type RunRepository interface {
	// SaveRun stores one run summary.
	SaveRun(ctx context.Context, run *RunRecord) error

	// SaveRunErrors stores per-error detail rows for a run.
	SaveRunErrors(ctx context.Context, runID uuid.UUID, errors []*entity.ProcessingError) error

	// GetRecentRuns retrieves the most recent run summaries, newest first.
	GetRecentRuns(ctx context.Context, limit int) ([]RunRecord, error)
}
