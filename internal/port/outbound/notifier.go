package outbound

import (
	"context"
	"time"

	"stocknotifier/internal/domain/entity"
)

// Notifier delivers human-facing notifications about screening runs.
type Notifier interface {
	// NotifyResults reports the screening candidates for a run.
	NotifyResults(ctx context.Context, stocks []entity.ValueStock, runDate time.Time) error

	// NotifyNoCandidates reports a run that screened symbols but found nothing.
	NotifyNoCandidates(ctx context.Context, screenedCount int, runDate time.Time) error

	// NotifyError reports a run-level failure.
	NotifyError(ctx context.Context, title, message string) error

	// NotifyAlert delivers a threshold-breach alert.
	NotifyAlert(ctx context.Context, alert *entity.Alert) error
}
