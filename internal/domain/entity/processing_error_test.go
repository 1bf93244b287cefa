package entity

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stocknotifier/internal/domain/valueobject"
)

func TestProcessingError_IsCritical(t *testing.T) {
	critical := &ProcessingError{Classification: ErrorClassification{Severity: valueobject.SeverityCritical()}}
	medium := &ProcessingError{Classification: ErrorClassification{Severity: valueobject.SeverityMedium()}}

	assert.True(t, critical.IsCritical())
	assert.False(t, medium.IsCritical())
}

func TestProcessingError_MarshalJSON(t *testing.T) {
	procErr := &ProcessingError{
		Timestamp: time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC),
		Operation: "daily_screening",
		ItemID:    "7203.T",
		Err:       errors.New("provider returned 503"),
		Classification: ErrorClassification{
			Severity:  valueobject.SeverityMedium(),
			Action:    valueobject.ActionRetry(),
			Retryable: true,
			Category:  "api",
		},
		RetryCount: 2,
	}

	data, err := json.Marshal(procErr)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "daily_screening", decoded["operation"])
	assert.Equal(t, "7203.T", decoded["item_id"])
	assert.Equal(t, "provider returned 503", decoded["error"])
	assert.Equal(t, "MEDIUM", decoded["severity"])
	assert.Equal(t, "retry", decoded["action"])
	assert.Equal(t, true, decoded["retryable"])
	assert.Equal(t, float64(2), decoded["retry_count"])
}

func TestBatchState_String(t *testing.T) {
	assert.Equal(t, "running", BatchStateRunning.String())
	assert.Equal(t, "completed", BatchStateCompleted.String())
	assert.Equal(t, "stopped_critical", BatchStateStoppedCritical.String())
	assert.Equal(t, "stopped_threshold", BatchStateStoppedThreshold.String())
	assert.Equal(t, "unknown", BatchState(9).String())
}

func TestProcessingResult_Rates(t *testing.T) {
	result := &ProcessingResult{ProcessedCount: 7, SkippedCount: 1, ErrorCount: 2}

	assert.Equal(t, 10, result.TotalAttempted())
	assert.InDelta(t, 0.7, result.SuccessRate(), 1e-9)
	assert.InDelta(t, 0.2, result.ErrorRate(), 1e-9)
}

func TestProcessingResult_EmptyRun(t *testing.T) {
	result := &ProcessingResult{}

	assert.Equal(t, 0, result.TotalAttempted())
	assert.Zero(t, result.SuccessRate())
	assert.Zero(t, result.ErrorRate())
	assert.False(t, result.HasCriticalErrors())
}

func TestProcessingResult_HasCriticalErrors(t *testing.T) {
	result := &ProcessingResult{
		CriticalErrors: []*ProcessingError{
			{Classification: ErrorClassification{Severity: valueobject.SeverityCritical()}},
		},
	}
	assert.True(t, result.HasCriticalErrors())
}
