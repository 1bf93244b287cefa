package entity

import (
	"encoding/json"
	"time"

	"stocknotifier/internal/domain/valueobject"
)

// ErrorClassification captures how a classified error is to be handled.
// CRITICAL severity always implies a stop-all action; the classifier
// constructor enforces this invariant.
type ErrorClassification struct {
	Severity    valueobject.ErrorSeverity
	Action      valueobject.ProcessingAction
	Retryable   bool
	Description string
	Category    string
}

// ProcessingError records one failed item attempt, immutable once produced.
type ProcessingError struct {
	Timestamp      time.Time
	Operation      string
	ItemID         string
	Err            error
	Classification ErrorClassification
	Context        map[string]any
	StackTrace     string
	RetryCount     int
}

// IsCritical returns true if the recorded error has critical severity.
func (pe *ProcessingError) IsCritical() bool {
	return pe.Classification.Severity.IsCritical()
}

// MarshalJSON implements json.Marshaler for structured logging and storage.
func (pe *ProcessingError) MarshalJSON() ([]byte, error) {
	errMsg := ""
	if pe.Err != nil {
		errMsg = pe.Err.Error()
	}
	return json.Marshal(map[string]any{
		"timestamp":   pe.Timestamp,
		"operation":   pe.Operation,
		"item_id":     pe.ItemID,
		"error":       errMsg,
		"severity":    pe.Classification.Severity.String(),
		"action":      pe.Classification.Action.String(),
		"category":    pe.Classification.Category,
		"retryable":   pe.Classification.Retryable,
		"retry_count": pe.RetryCount,
		"context":     pe.Context,
	})
}

// BatchState is the terminal state of a continuation-engine batch run.
type BatchState int

const (
	BatchStateRunning BatchState = iota
	BatchStateCompleted
	BatchStateStoppedCritical
	BatchStateStoppedThreshold
)

// String returns the string representation of the batch state.
func (bs BatchState) String() string {
	switch bs {
	case BatchStateRunning:
		return "running"
	case BatchStateCompleted:
		return "completed"
	case BatchStateStoppedCritical:
		return "stopped_critical"
	case BatchStateStoppedThreshold:
		return "stopped_threshold"
	default:
		return "unknown"
	}
}

// ProcessingResult aggregates the outcome of one batch run.
type ProcessingResult struct {
	Success           bool
	State             BatchState
	ProcessedCount    int
	SkippedCount      int
	ErrorCount        int
	CriticalErrors    []*ProcessingError
	NonCriticalErrors []*ProcessingError
	Warnings          []string
	ProcessingTime    time.Duration
}

// TotalAttempted returns how many items were attempted before the run ended.
func (pr *ProcessingResult) TotalAttempted() int {
	return pr.ProcessedCount + pr.SkippedCount + pr.ErrorCount
}

// SuccessRate returns the fraction of attempted items that succeeded.
func (pr *ProcessingResult) SuccessRate() float64 {
	total := pr.TotalAttempted()
	if total == 0 {
		return 0
	}
	return float64(pr.ProcessedCount) / float64(total)
}

// ErrorRate returns the fraction of attempted items that errored.
func (pr *ProcessingResult) ErrorRate() float64 {
	total := pr.TotalAttempted()
	if total == 0 {
		return 0
	}
	return float64(pr.ErrorCount) / float64(total)
}

// HasCriticalErrors returns true if any critical error was recorded.
// Callers must treat a non-empty critical list as fatal.
func (pr *ProcessingResult) HasCriticalErrors() bool {
	return len(pr.CriticalErrors) > 0
}
