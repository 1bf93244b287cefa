package service

import (
	"fmt"
	"sync"

	"stocknotifier/internal/domain/entity"
	"stocknotifier/internal/domain/valueobject"
)

// ErrorClassifier maps an error's kind to a handling classification. Each
// instance owns its classification table; overrides copy-on-write so that
// concurrent engine instances never share mutable state.
type ErrorClassifier struct {
	mu              sync.RWMutex
	table           map[valueobject.ErrorKind]entity.ErrorClassification
	notFoundWarning bool
}

// ClassifierOption customizes an ErrorClassifier at construction.
type ClassifierOption func(*ErrorClassifier)

// WithNotFoundAsWarning flips NotFound between LOW (warning) and MEDIUM
// severity. The skip-item action is unaffected.
func WithNotFoundAsWarning(enabled bool) ClassifierOption {
	return func(c *ErrorClassifier) {
		c.notFoundWarning = enabled
	}
}

// NewErrorClassifier creates a classifier with the default table.
func NewErrorClassifier(opts ...ClassifierOption) *ErrorClassifier {
	c := &ErrorClassifier{notFoundWarning: true}
	for _, opt := range opts {
		opt(c)
	}
	c.table = defaultClassifications(c.notFoundWarning)
	return c
}

func defaultClassifications(notFoundWarning bool) map[valueobject.ErrorKind]entity.ErrorClassification {
	notFoundSeverity := valueobject.SeverityLow()
	if !notFoundWarning {
		notFoundSeverity = valueobject.SeverityMedium()
	}

	return map[valueobject.ErrorKind]entity.ErrorClassification{
		valueobject.ErrorKindNotFound: {
			Severity:    notFoundSeverity,
			Action:      valueobject.ActionSkipItem(),
			Retryable:   false,
			Description: "Data not found (possibly delisted or unavailable)",
			Category:    "data_availability",
		},
		valueobject.ErrorKindRateLimited: {
			Severity:    valueobject.SeverityMedium(),
			Action:      valueobject.ActionRetry(),
			Retryable:   true,
			Description: "Provider rate limit exceeded",
			Category:    "api_limits",
		},
		valueobject.ErrorKindNetworkTransient: {
			Severity:    valueobject.SeverityMedium(),
			Action:      valueobject.ActionRetry(),
			Retryable:   true,
			Description: "Transient network failure",
			Category:    "network",
		},
		valueobject.ErrorKindValidation: {
			Severity:    valueobject.SeverityMedium(),
			Action:      valueobject.ActionSkipItem(),
			Retryable:   false,
			Description: "Item failed validation",
			Category:    "validation",
		},
		valueobject.ErrorKindRemote: {
			Severity:    valueobject.SeverityMedium(),
			Action:      valueobject.ActionContinue(),
			Retryable:   true,
			Description: "Provider error",
			Category:    "api",
		},
		valueobject.ErrorKindProgrammingDefect: {
			Severity:    valueobject.SeverityCritical(),
			Action:      valueobject.ActionStopAll(),
			Retryable:   false,
			Description: "Contract violation",
			Category:    "programming",
		},
		valueobject.ErrorKindResourceExhaustion: {
			Severity:    valueobject.SeverityCritical(),
			Action:      valueobject.ActionStopAll(),
			Retryable:   false,
			Description: "Resource exhaustion",
			Category:    "system",
		},
		valueobject.ErrorKindUserCancellation: {
			Severity:    valueobject.SeverityCritical(),
			Action:      valueobject.ActionStopAll(),
			Retryable:   false,
			Description: "User interruption",
			Category:    "user",
		},
	}
}

// unknownClassification is the safe default for kinds with no table entry.
func unknownClassification(kind valueobject.ErrorKind) entity.ErrorClassification {
	return entity.ErrorClassification{
		Severity:    valueobject.SeverityHigh(),
		Action:      valueobject.ActionSkipItem(),
		Retryable:   false,
		Description: fmt.Sprintf("Unknown error kind: %s", kind),
		Category:    "unknown",
	}
}

// Classify returns the classification for an error. For a fixed kind and
// fixed overrides the result is deterministic.
func (c *ErrorClassifier) Classify(err error) entity.ErrorClassification {
	kind := entity.KindOf(err)

	c.mu.RLock()
	classification, ok := c.table[kind]
	c.mu.RUnlock()

	if !ok {
		return unknownClassification(kind)
	}
	return classification
}

// ClassifyKind returns the classification for a kind directly.
func (c *ErrorClassifier) ClassifyKind(kind valueobject.ErrorKind) entity.ErrorClassification {
	c.mu.RLock()
	classification, ok := c.table[kind]
	c.mu.RUnlock()

	if !ok {
		return unknownClassification(kind)
	}
	return classification
}

// AddClassification overrides the classification for a kind. Last write
// wins; there is no merging with the previous entry. CRITICAL severity must
// carry a stop-all action.
func (c *ErrorClassifier) AddClassification(
	kind valueobject.ErrorKind,
	classification entity.ErrorClassification,
) error {
	if classification.Severity.IsCritical() && !classification.Action.IsStopAll() {
		return fmt.Errorf("classifier: critical severity requires stop_all action, got %s", classification.Action)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	next := make(map[valueobject.ErrorKind]entity.ErrorClassification, len(c.table)+1)
	for k, v := range c.table {
		next[k] = v
	}
	next[kind] = classification
	c.table = next
	return nil
}
