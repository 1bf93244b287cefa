package service

import (
	"context"
	"runtime"

	"stocknotifier/internal/application/common/logging"
	"stocknotifier/internal/domain/entity"
	"stocknotifier/internal/domain/valueobject"
)

// ModeThresholds is the named threshold set derived from a handling mode.
// Thresholds are always derived from the mode tag, never the reverse.
type ModeThresholds struct {
	ContinueOnBatchError bool
	MaxConsecutiveErrors int
	MaxErrorRate         float64
	RetryMax             int
	NotFoundAsWarning    bool
	AlertThreshold       float64
	IncludeStackTraces   bool
}

// ThresholdsFor returns the canonical threshold set for a handling mode.
func ThresholdsFor(mode valueobject.HandlingMode) ModeThresholds {
	switch {
	case mode.IsStrict():
		return ModeThresholds{
			ContinueOnBatchError: false,
			MaxConsecutiveErrors: 3,
			MaxErrorRate:         0.10,
			RetryMax:             2,
			NotFoundAsWarning:    false,
			AlertThreshold:       0.05,
			IncludeStackTraces:   true,
		}
	case mode.IsDebug():
		return ModeThresholds{
			ContinueOnBatchError: true,
			MaxConsecutiveErrors: 50,
			MaxErrorRate:         0.95,
			RetryMax:             3,
			NotFoundAsWarning:    true,
			AlertThreshold:       0.90,
			IncludeStackTraces:   true,
		}
	default: // tolerant
		return ModeThresholds{
			ContinueOnBatchError: true,
			MaxConsecutiveErrors: 20,
			MaxErrorRate:         0.80,
			RetryMax:             5,
			NotFoundAsWarning:    true,
			AlertThreshold:       0.30,
			IncludeStackTraces:   false,
		}
	}
}

// ModeProfile applies mode-specific continuation rules to classified errors.
type ModeProfile struct {
	mode       valueobject.HandlingMode
	thresholds ModeThresholds
	logger     logging.ApplicationLogger
}

// NewModeProfile creates a profile for the given mode.
func NewModeProfile(mode valueobject.HandlingMode, logger logging.ApplicationLogger) *ModeProfile {
	return &ModeProfile{
		mode:       mode,
		thresholds: ThresholdsFor(mode),
		logger:     logger,
	}
}

// Mode returns the profile's handling mode.
func (mp *ModeProfile) Mode() valueobject.HandlingMode { return mp.mode }

// Thresholds returns the profile's threshold set.
func (mp *ModeProfile) Thresholds() ModeThresholds { return mp.thresholds }

// ShouldStopProcessing decides whether accumulated failures should halt the
// batch, given the latest error's classification and the current
// continuation-control state.
func (mp *ModeProfile) ShouldStopProcessing(
	ctx context.Context,
	err error,
	classification entity.ErrorClassification,
	consecutiveErrors int,
	errorRate float64,
) bool {
	switch {
	case mp.mode.IsStrict():
		return mp.strictShouldStop(ctx, err, classification, consecutiveErrors, errorRate)
	case mp.mode.IsDebug():
		return mp.debugShouldStop(ctx, err, classification, consecutiveErrors, errorRate)
	default:
		return mp.tolerantShouldStop(ctx, err, classification, consecutiveErrors, errorRate)
	}
}

// strictShouldStop halts on any HIGH-or-worse error, 3 consecutive errors,
// or a 10% error rate. MEDIUM errors halt through the consecutive counter,
// which they increment in strict mode.
func (mp *ModeProfile) strictShouldStop(
	ctx context.Context,
	err error,
	classification entity.ErrorClassification,
	consecutiveErrors int,
	errorRate float64,
) bool {
	if classification.Severity.AtLeast(valueobject.SeverityHigh()) {
		mp.logStop(ctx, err, "severity", classification.Severity.String())
		return true
	}
	if consecutiveErrors >= mp.thresholds.MaxConsecutiveErrors {
		mp.logStop(ctx, err, "consecutive_errors", consecutiveErrors)
		return true
	}
	if errorRate > mp.thresholds.MaxErrorRate {
		mp.logStop(ctx, err, "error_rate", errorRate)
		return true
	}
	return false
}

// tolerantShouldStop halts only on CRITICAL errors, 20 consecutive errors,
// or an 80% error rate.
func (mp *ModeProfile) tolerantShouldStop(
	ctx context.Context,
	err error,
	classification entity.ErrorClassification,
	consecutiveErrors int,
	errorRate float64,
) bool {
	if classification.Severity.IsCritical() {
		mp.logStop(ctx, err, "severity", classification.Severity.String())
		return true
	}
	if consecutiveErrors >= mp.thresholds.MaxConsecutiveErrors {
		mp.logStop(ctx, err, "consecutive_errors", consecutiveErrors)
		return true
	}
	if errorRate > mp.thresholds.MaxErrorRate {
		mp.logStop(ctx, err, "error_rate", errorRate)
		return true
	}
	return false
}

// debugShouldStop emits full diagnostic context for every error, then halts
// only on fatal system conditions or extreme thresholds.
func (mp *ModeProfile) debugShouldStop(
	ctx context.Context,
	err error,
	classification entity.ErrorClassification,
	consecutiveErrors int,
	errorRate float64,
) bool {
	mp.logDiagnostics(ctx, err, classification, consecutiveErrors, errorRate)

	if classification.Severity.IsCritical() && entity.KindOf(err).IsFatal() {
		mp.logStop(ctx, err, "fatal_kind", entity.KindOf(err).String())
		return true
	}
	if consecutiveErrors >= mp.thresholds.MaxConsecutiveErrors {
		mp.logStop(ctx, err, "consecutive_errors", consecutiveErrors)
		return true
	}
	if errorRate > mp.thresholds.MaxErrorRate {
		mp.logStop(ctx, err, "error_rate", errorRate)
		return true
	}
	return false
}

func (mp *ModeProfile) logStop(ctx context.Context, err error, reasonKey string, reasonValue any) {
	if mp.logger == nil {
		return
	}
	mp.logger.ErrorWithError(ctx, err, "Stopping batch processing", logging.Fields{
		"mode":    mp.mode.String(),
		reasonKey: reasonValue,
	})
}

func (mp *ModeProfile) logDiagnostics(
	ctx context.Context,
	err error,
	classification entity.ErrorClassification,
	consecutiveErrors int,
	errorRate float64,
) {
	if mp.logger == nil {
		return
	}

	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)

	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}
	mp.logger.Debug(ctx, "Detailed error diagnostics", logging.Fields{
		"mode":               mp.mode.String(),
		"error":              errMsg,
		"error_kind":         entity.KindOf(err).String(),
		"severity":           classification.Severity.String(),
		"action":             classification.Action.String(),
		"category":           classification.Category,
		"retryable":          classification.Retryable,
		"consecutive_errors": consecutiveErrors,
		"error_rate":         errorRate,
		"stack_trace":        string(buf[:n]),
	})
}
