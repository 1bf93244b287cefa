package outbound

import (
	"context"
	"time"

	"stocknotifier/internal/domain/entity"
)

// ReportWriter exports screening results to local report files.
type ReportWriter interface {
	// WriteResults writes the full results report for one run.
	WriteResults(ctx context.Context, stocks []entity.ValueStock, runDate time.Time) (path string, err error)

	// AppendHistory appends per-candidate rows to the long-running history file.
	AppendHistory(ctx context.Context, stocks []entity.ValueStock, runDate time.Time) error
}
