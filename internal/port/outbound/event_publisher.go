package outbound

import (
	"context"
	"time"

	"github.com/google/uuid"

	"stocknotifier/internal/domain/entity"
)

// RunCompletedEvent announces a finished screening run to downstream consumers.
type RunCompletedEvent struct {
	RunID          uuid.UUID `json:"run_id"`
	Mode           string    `json:"mode"`
	State          string    `json:"state"`
	Success        bool      `json:"success"`
	ProcessedCount int       `json:"processed_count"`
	SkippedCount   int       `json:"skipped_count"`
	ErrorCount     int       `json:"error_count"`
	CandidateCount int       `json:"candidate_count"`
	CompletedAt    time.Time `json:"completed_at"`
}

// EventPublisher publishes run lifecycle and alert events.
type EventPublisher interface {
	// PublishRunCompleted publishes a run-completed event.
	PublishRunCompleted(ctx context.Context, event RunCompletedEvent) error

	// PublishAlert publishes a threshold-breach alert event.
	PublishAlert(ctx context.Context, alert *entity.Alert) error

	// Close releases the underlying connection.
	Close() error
}
