package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"stocknotifier/internal/domain/entity"
	"stocknotifier/internal/domain/valueobject"
)

func TestThresholdsFor(t *testing.T) {
	tests := []struct {
		name     string
		mode     valueobject.HandlingMode
		expected ModeThresholds
	}{
		{
			name: "strict",
			mode: valueobject.ModeStrict(),
			expected: ModeThresholds{
				ContinueOnBatchError: false,
				MaxConsecutiveErrors: 3,
				MaxErrorRate:         0.10,
				RetryMax:             2,
				NotFoundAsWarning:    false,
				AlertThreshold:       0.05,
				IncludeStackTraces:   true,
			},
		},
		{
			name: "tolerant",
			mode: valueobject.ModeTolerant(),
			expected: ModeThresholds{
				ContinueOnBatchError: true,
				MaxConsecutiveErrors: 20,
				MaxErrorRate:         0.80,
				RetryMax:             5,
				NotFoundAsWarning:    true,
				AlertThreshold:       0.30,
				IncludeStackTraces:   false,
			},
		},
		{
			name: "debug",
			mode: valueobject.ModeDebug(),
			expected: ModeThresholds{
				ContinueOnBatchError: true,
				MaxConsecutiveErrors: 50,
				MaxErrorRate:         0.95,
				RetryMax:             3,
				NotFoundAsWarning:    true,
				AlertThreshold:       0.90,
				IncludeStackTraces:   true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ThresholdsFor(tt.mode))
		})
	}
}

func classificationWith(severity valueobject.ErrorSeverity) entity.ErrorClassification {
	action := valueobject.ActionContinue()
	if severity.IsCritical() {
		action = valueobject.ActionStopAll()
	}
	return entity.ErrorClassification{
		Severity:  severity,
		Action:    action,
		Retryable: false,
		Category:  "test",
	}
}

func TestModeProfile_ShouldStopProcessing(t *testing.T) {
	remote := remoteError("7203.T")
	fatal := entity.NewMarketError(valueobject.ErrorKindResourceExhaustion, "7203.T", "out of memory", nil)

	tests := []struct {
		name        string
		mode        valueobject.HandlingMode
		err         error
		severity    valueobject.ErrorSeverity
		consecutive int
		errorRate   float64
		expected    bool
	}{
		// Strict: high-or-worse severity halts immediately; medium halts
		// through the consecutive counter.
		{"strict first medium error continues", valueobject.ModeStrict(), remote, valueobject.SeverityMedium(), 1, 0, false},
		{"strict second medium error continues", valueobject.ModeStrict(), remote, valueobject.SeverityMedium(), 2, 0, false},
		{"strict third consecutive error halts", valueobject.ModeStrict(), remote, valueobject.SeverityMedium(), 3, 0, true},
		{"strict high severity halts immediately", valueobject.ModeStrict(), remote, valueobject.SeverityHigh(), 1, 0, true},
		{"strict critical severity halts immediately", valueobject.ModeStrict(), remote, valueobject.SeverityCritical(), 1, 0, true},
		{"strict error rate over ten percent halts", valueobject.ModeStrict(), remote, valueobject.SeverityLow(), 0, 0.2, true},
		{"strict error rate at threshold continues", valueobject.ModeStrict(), remote, valueobject.SeverityLow(), 0, 0.10, false},

		// Tolerant: only critical severity halts before the high thresholds.
		{"tolerant medium error continues", valueobject.ModeTolerant(), remote, valueobject.SeverityMedium(), 5, 0.2, false},
		{"tolerant high severity continues", valueobject.ModeTolerant(), remote, valueobject.SeverityHigh(), 10, 0.5, false},
		{"tolerant critical halts", valueobject.ModeTolerant(), remote, valueobject.SeverityCritical(), 0, 0, true},
		{"tolerant twentieth consecutive error halts", valueobject.ModeTolerant(), remote, valueobject.SeverityHigh(), 20, 0, true},
		{"tolerant error rate over eighty percent halts", valueobject.ModeTolerant(), remote, valueobject.SeverityMedium(), 0, 0.85, true},

		// Debug: only fatal system conditions or extreme thresholds halt.
		{"debug critical from non-fatal kind continues", valueobject.ModeDebug(), remote, valueobject.SeverityCritical(), 10, 0.5, false},
		{"debug fatal kind halts", valueobject.ModeDebug(), fatal, valueobject.SeverityCritical(), 0, 0, true},
		{"debug fiftieth consecutive error halts", valueobject.ModeDebug(), remote, valueobject.SeverityMedium(), 50, 0, true},
		{"debug error rate over ninety-five percent halts", valueobject.ModeDebug(), remote, valueobject.SeverityMedium(), 0, 0.96, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profile := NewModeProfile(tt.mode, nil)

			got := profile.ShouldStopProcessing(
				context.Background(), tt.err, classificationWith(tt.severity), tt.consecutive, tt.errorRate)

			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestModeProfile_Accessors(t *testing.T) {
	profile := NewModeProfile(valueobject.ModeStrict(), nil)

	assert.True(t, profile.Mode().IsStrict())
	assert.Equal(t, 3, profile.Thresholds().MaxConsecutiveErrors)
}
